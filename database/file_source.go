package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
	"github.com/lib/pq"
)

// CreateFileSource inserts the file source inside one transaction that first creates
// its context when the name is not known yet.
func (d Datasource) CreateFileSource(ctx context.Context, source *model.FileSource) (*model.FileSource, error) {
	sourceJSON, err := json.Marshal(source.Source)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal source configuration", err)
	}
	var compressionJSON []byte
	if source.Compression != nil {
		compressionJSON, err = json.Marshal(source.Compression)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal compression", err)
		}
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO csveer.contexts (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
	`, source.Context)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create context", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO csveer.file_sources (context, identifier, description, source_config, headers, compression, hide_columns)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, source.Context, source.Identifier, source.Description, sourceJSON, source.Headers, nullableJSON(compressionJSON), pq.Array(toInt64s(source.HideColumns))).
		Scan(&source.ID, &source.CreatedAt)
	if err != nil {
		switch pqErrorName(err) {
		case "unique_violation":
			return nil, apierror.NewAPIError(apierror.ErrConflict,
				fmt.Sprintf("A file source with identifier '%s' already exists in context '%s'.", source.Identifier, source.Context), err)
		default:
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create file source", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}
	return source, nil
}

func (d Datasource) GetFileSource(ctx context.Context, contextName, identifier string) (*model.FileSource, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, context, identifier, description, source_config, headers, compression, hide_columns, created_at, updated_at
		FROM csveer.file_sources
		WHERE context = $1 AND identifier = $2
	`, contextName, identifier)

	source, err := scanFileSource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("No file source found for context %s and identifier %s", contextName, identifier), err)
		}
		return nil, err
	}
	return source, nil
}

func scanFileSource(row *sql.Row) (*model.FileSource, error) {
	source := model.FileSource{}
	var (
		sourceJSON      []byte
		compressionJSON []byte
		hideColumns     pq.Int64Array
		updatedAt       sql.NullTime
	)
	err := row.Scan(&source.ID, &source.Context, &source.Identifier, &source.Description, &sourceJSON,
		&source.Headers, &compressionJSON, &hideColumns, &source.CreatedAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve file source", err)
	}

	source.Source, err = model.DecodeSourceType(sourceJSON)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Stored file source is corrupted", err)
	}
	source.Compression, err = model.DecodeCompression(compressionJSON)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Stored file source is corrupted", err)
	}
	source.HideColumns = toInts(hideColumns)
	if updatedAt.Valid {
		source.UpdatedAt = &updatedAt.Time
	}
	return &source, nil
}

func toInt64s(values []int) []int64 {
	if values == nil {
		return nil
	}
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func toInts(values []int64) []int {
	if values == nil {
		return nil
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
