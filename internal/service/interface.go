package service

import (
	"context"
	"time"

	"github.com/godilite/survey-insights/internal/repository/models"
)

// ResponseStore defines the storage operations the dashboard service needs.
type ResponseStore interface {
	Append(ctx context.Context, resp models.Response) error
	LoadAll(ctx context.Context) ([]models.Response, error)
	LoadBetween(ctx context.Context, start, end time.Time) ([]models.Response, error)
}
