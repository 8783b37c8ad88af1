package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"spconnect/domain/contracts"
)

// MockTriggerStateRepository implements TriggerStateRepository for testing
type MockTriggerStateRepository struct {
	mock.Mock
}

func (m *MockTriggerStateRepository) Get(ctx context.Context, key string) (*contracts.TriggerState, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.TriggerState), args.Error(1)
}

func (m *MockTriggerStateRepository) Set(ctx context.Context, key string, value int64) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *MockTriggerStateRepository) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockTriggerStateRepository) List(ctx context.Context) ([]*contracts.TriggerState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*contracts.TriggerState), args.Error(1)
}
