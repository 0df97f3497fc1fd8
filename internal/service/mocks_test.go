package service

import (
	"context"
	"time"

	"github.com/rensmac/chat-gateway/internal/domain"
	"github.com/rensmac/chat-gateway/internal/model"
	"github.com/stretchr/testify/mock"
)

// MockProvider mocks model.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) DefaultModel() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockProvider) Complete(ctx context.Context, question string, history []domain.Exchange) (*model.Response, error) {
	args := m.Called(ctx, question, history)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Response), args.Error(1)
}

func (m *MockProvider) Warm(ctx context.Context, count int) (time.Duration, error) {
	args := m.Called(ctx, count)
	return args.Get(0).(time.Duration), args.Error(1)
}
