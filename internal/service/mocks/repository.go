package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/survey-insights/internal/repository/models"
)

// MockResponseStore is a mock implementation of the ResponseStore interface
// for testing the service layer.
type MockResponseStore struct {
	AppendFunc      func(ctx context.Context, resp models.Response) error
	LoadAllFunc     func(ctx context.Context) ([]models.Response, error)
	LoadBetweenFunc func(ctx context.Context, start, end time.Time) ([]models.Response, error)
}

// Append implements the ResponseStore interface
func (m *MockResponseStore) Append(ctx context.Context, resp models.Response) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, resp)
	}
	return errors.New("AppendFunc not implemented")
}

// LoadAll implements the ResponseStore interface
func (m *MockResponseStore) LoadAll(ctx context.Context) ([]models.Response, error) {
	if m.LoadAllFunc != nil {
		return m.LoadAllFunc(ctx)
	}
	return nil, errors.New("LoadAllFunc not implemented")
}

// LoadBetween implements the ResponseStore interface
func (m *MockResponseStore) LoadBetween(ctx context.Context, start, end time.Time) ([]models.Response, error) {
	if m.LoadBetweenFunc != nil {
		return m.LoadBetweenFunc(ctx, start, end)
	}
	return nil, errors.New("LoadBetweenFunc not implemented")
}
