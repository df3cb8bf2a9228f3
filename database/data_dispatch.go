package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

const dispatchColumns = `id, file_destination_id, status, message, idempotency_key, recovery_attempts, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataDispatch(row rowScanner) (*model.DataDispatch, error) {
	dispatch := model.DataDispatch{}
	var (
		status    string
		updatedAt sql.NullTime
	)
	err := row.Scan(&dispatch.ID, &dispatch.FileDestinationID, &status, &dispatch.Message,
		&dispatch.IdempotencyKey, &dispatch.RecoveryAttempts, &dispatch.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	dispatch.Status = model.DispatchStatus(status)
	if updatedAt.Valid {
		dispatch.UpdatedAt = &updatedAt.Time
	}
	return &dispatch, nil
}

// RecordDataDispatches writes the dispatches of one notification record in a single
// transaction. Every insert runs under its own savepoint so a failing row is rolled
// back alone and its siblings still commit. The returned slice holds the per-row
// error (nil when ledgered) in input order; the second error means the transaction
// itself failed and nothing was written.
func (d Datasource) RecordDataDispatches(ctx context.Context, dispatches []*model.DataDispatch) ([]error, error) {
	rowErrs := make([]error, len(dispatches))
	if len(dispatches) == 0 {
		return rowErrs, nil
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, dispatch := range dispatches {
		savepoint := fmt.Sprintf("dispatch_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create savepoint", err)
		}

		err := recordDataDispatch(ctx, tx, dispatch)
		if err != nil {
			rowErrs[i] = err
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to roll back savepoint", rbErr)
			}
			continue
		}

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to release savepoint", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}
	return rowErrs, nil
}

// recordDataDispatch inserts one PendingExecution row. The ledger only ever creates
// dispatches in that state.
func recordDataDispatch(ctx context.Context, tx *sql.Tx, dispatch *model.DataDispatch) error {
	dispatch.Status = model.DispatchPendingExecution
	err := tx.QueryRowContext(ctx, `
		INSERT INTO csveer.data_dispatches (file_destination_id, status, message, idempotency_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, dispatch.FileDestinationID, string(dispatch.Status), dispatch.Message, dispatch.IdempotencyKey).
		Scan(&dispatch.ID, &dispatch.CreatedAt)
	if err != nil {
		if pqErrorName(err) == "foreign_key_violation" {
			return apierror.NewAPIError(apierror.ErrBadRequest, "File destination does not exist", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record data dispatch", err)
	}
	return nil
}

func (d Datasource) GetDataDispatch(ctx context.Context, id int64) (*model.DataDispatch, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+dispatchColumns+`
		FROM csveer.data_dispatches
		WHERE id = $1
	`, id)
	dispatch, err := scanDataDispatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Data dispatch %d not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve data dispatch", err)
	}
	return dispatch, nil
}

func (d Datasource) ListDataDispatches(ctx context.Context, filter DispatchFilter) ([]*model.DataDispatch, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.FileDestinationID != nil {
		args = append(args, *filter.FileDestinationID)
		conditions = append(conditions, fmt.Sprintf("file_destination_id = $%d", len(args)))
	}

	var query strings.Builder
	query.WriteString("SELECT " + dispatchColumns + " FROM csveer.data_dispatches")
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	args = append(args, filter.Limit, filter.Offset)
	query.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := d.Conn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve data dispatches", err)
	}
	defer rows.Close()

	return collectDataDispatches(rows)
}

// GetStalePendingDispatches returns PendingExecution rows that nobody reported on and
// that were last touched before olderThan. Rows past maxAttempts are left out.
func (d Datasource) GetStalePendingDispatches(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*model.DataDispatch, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT d.id, d.file_destination_id, d.status, d.message, d.idempotency_key, d.recovery_attempts, d.created_at, d.updated_at
		FROM csveer.data_dispatches d
		WHERE d.status = $1
		AND COALESCE(d.updated_at, d.created_at) < $2
		AND d.recovery_attempts <= $3
		AND NOT EXISTS (
			SELECT 1 FROM csveer.data_dispatch_executions e WHERE e.data_dispatch_id = d.id
		)
		ORDER BY d.created_at ASC
		LIMIT $4
	`, string(model.DispatchPendingExecution), olderThan, maxAttempts, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve stale dispatches", err)
	}
	defer rows.Close()

	return collectDataDispatches(rows)
}

// IncrementRecoveryAttempts bumps the attempt counter and touches updated_at so the
// row waits a full threshold before the next sweep sees it.
func (d Datasource) IncrementRecoveryAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := d.Conn.QueryRowContext(ctx, `
		UPDATE csveer.data_dispatches
		SET recovery_attempts = recovery_attempts + 1, updated_at = $2
		WHERE id = $1
		RETURNING recovery_attempts
	`, id, time.Now()).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Data dispatch %d not found", id), err)
		}
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update recovery attempts", err)
	}
	return attempts, nil
}

func collectDataDispatches(rows *sql.Rows) ([]*model.DataDispatch, error) {
	dispatches := []*model.DataDispatch{}
	for rows.Next() {
		dispatch, err := scanDataDispatch(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan data dispatch", err)
		}
		dispatches = append(dispatches, dispatch)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over data dispatches", err)
	}
	return dispatches, nil
}
