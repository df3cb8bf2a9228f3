/*
Copyright 2024 Csveer Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package mocks

import (
	"context"
	"time"

	"github.com/csveer/csveer/database"
	"github.com/csveer/csveer/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Context methods

func (m *MockDataSource) CreateContext(ctx context.Context, name string) (*model.Context, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Context), args.Error(1)
}

func (m *MockDataSource) GetContextByName(ctx context.Context, name string) (*model.Context, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Context), args.Error(1)
}

// File source methods

func (m *MockDataSource) CreateFileSource(ctx context.Context, source *model.FileSource) (*model.FileSource, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileSource), args.Error(1)
}

func (m *MockDataSource) GetFileSource(ctx context.Context, contextName, identifier string) (*model.FileSource, error) {
	args := m.Called(ctx, contextName, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileSource), args.Error(1)
}

// File destination methods

func (m *MockDataSource) CreateFileDestination(ctx context.Context, destination *model.FileDestination) (*model.FileDestination, error) {
	args := m.Called(ctx, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileDestination), args.Error(1)
}

func (m *MockDataSource) GetFileDestinations(ctx context.Context, fileSourceID int64) ([]*model.FileDestination, error) {
	args := m.Called(ctx, fileSourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.FileDestination), args.Error(1)
}

// Dispatch ledger methods

func (m *MockDataSource) RecordDataDispatches(ctx context.Context, dispatches []*model.DataDispatch) ([]error, error) {
	args := m.Called(ctx, dispatches)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]error), args.Error(1)
}

func (m *MockDataSource) GetDataDispatch(ctx context.Context, id int64) (*model.DataDispatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DataDispatch), args.Error(1)
}

func (m *MockDataSource) ListDataDispatches(ctx context.Context, filter database.DispatchFilter) ([]*model.DataDispatch, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DataDispatch), args.Error(1)
}

func (m *MockDataSource) RecordDispatchExecution(ctx context.Context, dispatchID int64, status model.ExecutionStatus, message string) (*model.DataDispatch, *model.DataDispatchExecution, error) {
	args := m.Called(ctx, dispatchID, status, message)
	var (
		dispatch  *model.DataDispatch
		execution *model.DataDispatchExecution
	)
	if v := args.Get(0); v != nil {
		dispatch = v.(*model.DataDispatch)
	}
	if v := args.Get(1); v != nil {
		execution = v.(*model.DataDispatchExecution)
	}
	return dispatch, execution, args.Error(2)
}

func (m *MockDataSource) ListDispatchExecutions(ctx context.Context, dispatchID int64) ([]*model.DataDispatchExecution, error) {
	args := m.Called(ctx, dispatchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DataDispatchExecution), args.Error(1)
}

func (m *MockDataSource) GetStalePendingDispatches(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*model.DataDispatch, error) {
	args := m.Called(ctx, olderThan, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DataDispatch), args.Error(1)
}

func (m *MockDataSource) IncrementRecoveryAttempts(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

var _ database.IDataSource = (*MockDataSource)(nil)
