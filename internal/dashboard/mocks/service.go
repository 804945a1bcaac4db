package mocks

import (
	"context"
	"errors"

	"github.com/godilite/survey-insights/internal/service"
)

// MockDashboardService is a mock implementation of the DashboardService
// interface for testing the view layer.
type MockDashboardService struct {
	BuildDashboardFunc func(ctx context.Context, q service.Query) (service.Dashboard, error)
}

// BuildDashboard implements the DashboardService interface
func (m *MockDashboardService) BuildDashboard(ctx context.Context, q service.Query) (service.Dashboard, error) {
	if m.BuildDashboardFunc != nil {
		return m.BuildDashboardFunc(ctx, q)
	}
	return service.Dashboard{}, errors.New("BuildDashboardFunc not implemented")
}
