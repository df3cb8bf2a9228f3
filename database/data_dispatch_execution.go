package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

// RecordDispatchExecution appends an execution and moves the dispatch to the status the
// outcome implies. The dispatch row is locked for the duration of the transaction so
// concurrent reports for the same dispatch are serialized.
func (d Datasource) RecordDispatchExecution(ctx context.Context, dispatchID int64, status model.ExecutionStatus, message string) (*model.DataDispatch, *model.DataDispatchExecution, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	dispatch, err := scanDataDispatch(tx.QueryRowContext(ctx, `
		SELECT `+dispatchColumns+`
		FROM csveer.data_dispatches
		WHERE id = $1
		FOR UPDATE
	`, dispatchID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Data dispatch %d not found", dispatchID), err)
		}
		return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve data dispatch", err)
	}

	next, err := model.NextDispatchStatus(dispatch.Status, status)
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Cannot record a %s execution for data dispatch %d in status %s", status, dispatchID, dispatch.Status), err)
	}

	execution := model.DataDispatchExecution{DataDispatchID: dispatchID, Status: status, Message: message}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO csveer.data_dispatch_executions (data_dispatch_id, status, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, dispatchID, string(status), message).Scan(&execution.ID, &execution.CreatedAt)
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record dispatch execution", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE csveer.data_dispatches
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, dispatchID, string(next), now)
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update data dispatch status", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	dispatch.Status = next
	dispatch.UpdatedAt = &now
	return dispatch, &execution, nil
}

func (d Datasource) ListDispatchExecutions(ctx context.Context, dispatchID int64) ([]*model.DataDispatchExecution, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, data_dispatch_id, status, message, created_at
		FROM csveer.data_dispatch_executions
		WHERE data_dispatch_id = $1
		ORDER BY created_at ASC, id ASC
	`, dispatchID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve dispatch executions", err)
	}
	defer rows.Close()

	executions := []*model.DataDispatchExecution{}
	for rows.Next() {
		execution := model.DataDispatchExecution{}
		var status string
		if err := rows.Scan(&execution.ID, &execution.DataDispatchID, &status, &execution.Message, &execution.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan dispatch execution", err)
		}
		execution.Status = model.ExecutionStatus(status)
		executions = append(executions, &execution)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over dispatch executions", err)
	}
	return executions, nil
}
