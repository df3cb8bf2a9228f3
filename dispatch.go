package csveer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/csveer/csveer/database"
	"github.com/csveer/csveer/model"
)

const (
	defaultDispatchListLimit = 20
	maxDispatchListLimit     = 100
)

func (c *Csveer) GetDataDispatch(ctx context.Context, id int64) (*model.DataDispatch, error) {
	return c.datasource.GetDataDispatch(ctx, id)
}

// ListDataDispatches clamps the page size to the list limits.
func (c *Csveer) ListDataDispatches(ctx context.Context, filter database.DispatchFilter) ([]*model.DataDispatch, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultDispatchListLimit
	}
	if filter.Limit > maxDispatchListLimit {
		filter.Limit = maxDispatchListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return c.datasource.ListDataDispatches(ctx, filter)
}

// RecordDispatchExecution appends an executor-reported outcome and moves the
// dispatch along its status machine. Reports against a Finished dispatch are
// rejected as conflicts.
func (c *Csveer) RecordDispatchExecution(ctx context.Context, dispatchID int64, status model.ExecutionStatus, message string) (*model.DataDispatch, *model.DataDispatchExecution, error) {
	dispatch, execution, err := c.datasource.RecordDispatchExecution(ctx, dispatchID, status, message)
	if err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"data_dispatch_id": dispatch.ID,
		"execution":        execution.Status,
		"status":           dispatch.Status,
	}).Info("dispatch execution recorded")
	return dispatch, execution, nil
}

// ListDispatchExecutions returns NOT_FOUND for an unknown dispatch rather than an
// empty history.
func (c *Csveer) ListDispatchExecutions(ctx context.Context, dispatchID int64) ([]*model.DataDispatchExecution, error) {
	if _, err := c.datasource.GetDataDispatch(ctx, dispatchID); err != nil {
		return nil, err
	}
	return c.datasource.ListDispatchExecutions(ctx, dispatchID)
}
