package cmd

import (
	"context"

	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

// MockHub wraps a real hub and lets tests override the calls run makes.
type MockHub struct {
	*telldus.Hub
	ValidateConnectivityFunc func(ctx context.Context) bool
	RefreshFunc              func(ctx context.Context) bool
}

func (m *MockHub) ValidateConnectivity(ctx context.Context) bool {
	if m.ValidateConnectivityFunc != nil {
		return m.ValidateConnectivityFunc(ctx)
	}
	return m.Hub.ValidateConnectivity(ctx)
}

func (m *MockHub) Refresh(ctx context.Context) bool {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return m.Hub.Refresh(ctx)
}
