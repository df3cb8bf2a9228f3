package csveer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/csveer/csveer/database"
	"github.com/csveer/csveer/database/mocks"
	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

func TestListDataDispatches_ClampsPaging(t *testing.T) {
	tests := []struct {
		name       string
		filter     database.DispatchFilter
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", filter: database.DispatchFilter{}, wantLimit: 20},
		{name: "above max", filter: database.DispatchFilter{Limit: 5000, Offset: 40}, wantLimit: 100, wantOffset: 40},
		{name: "negative offset", filter: database.DispatchFilter{Limit: 10, Offset: -3}, wantLimit: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &mocks.MockDataSource{}
			c, _ := newTestCsveer(t, ds)

			ds.On("ListDataDispatches", mock.Anything, mock.MatchedBy(func(f database.DispatchFilter) bool {
				return f.Limit == tt.wantLimit && f.Offset == tt.wantOffset
			})).Return([]*model.DataDispatch{}, nil)

			_, err := c.ListDataDispatches(context.Background(), tt.filter)
			require.NoError(t, err)
			ds.AssertExpectations(t)
		})
	}
}

func TestListDispatchExecutions_UnknownDispatch(t *testing.T) {
	ds := &mocks.MockDataSource{}
	c, _ := newTestCsveer(t, ds)

	ds.On("GetDataDispatch", mock.Anything, int64(404)).
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Data dispatch with ID '404' not found", nil))

	_, err := c.ListDispatchExecutions(context.Background(), 404)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
	ds.AssertNotCalled(t, "ListDispatchExecutions", mock.Anything, mock.Anything)
}

func TestListDispatchExecutions(t *testing.T) {
	ds := &mocks.MockDataSource{}
	c, _ := newTestCsveer(t, ds)

	ds.On("GetDataDispatch", mock.Anything, int64(7)).Return(&model.DataDispatch{ID: 7, Status: model.DispatchFailed}, nil)
	ds.On("ListDispatchExecutions", mock.Anything, int64(7)).Return([]*model.DataDispatchExecution{
		{ID: 1, DataDispatchID: 7, Status: model.ExecutionFailure, Message: "queue timeout", CreatedAt: time.Now()},
	}, nil)

	executions, err := c.ListDispatchExecutions(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, model.ExecutionFailure, executions[0].Status)
}

func TestRecordDispatchExecution(t *testing.T) {
	ds := &mocks.MockDataSource{}
	c, _ := newTestCsveer(t, ds)

	ds.On("RecordDispatchExecution", mock.Anything, int64(7), model.ExecutionSuccess, "").
		Return(&model.DataDispatch{ID: 7, Status: model.DispatchFinished}, &model.DataDispatchExecution{ID: 2, DataDispatchID: 7, Status: model.ExecutionSuccess}, nil)

	dispatch, execution, err := c.RecordDispatchExecution(context.Background(), 7, model.ExecutionSuccess, "")
	require.NoError(t, err)
	assert.Equal(t, model.DispatchFinished, dispatch.Status)
	assert.Equal(t, int64(2), execution.ID)
}

func TestRecordDispatchExecution_Finished(t *testing.T) {
	ds := &mocks.MockDataSource{}
	c, _ := newTestCsveer(t, ds)

	ds.On("RecordDispatchExecution", mock.Anything, int64(7), model.ExecutionFailure, "late").
		Return(nil, nil, apierror.NewAPIError(apierror.ErrConflict, "Data dispatch 7 is already Finished", nil))

	_, _, err := c.RecordDispatchExecution(context.Background(), 7, model.ExecutionFailure, "late")
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
}
