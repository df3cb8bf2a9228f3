package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
	"github.com/lib/pq"
)

// pqErrorName returns the condition name of a postgres error, or "" for any other error.
func pqErrorName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name()
	}
	return ""
}

func (d Datasource) CreateContext(ctx context.Context, name string) (*model.Context, error) {
	c := model.Context{Name: name}
	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO csveer.contexts (name)
		VALUES ($1)
		RETURNING id, created_at
	`, name).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		switch pqErrorName(err) {
		case "unique_violation":
			return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("A context with name '%s' already exists.", name), err)
		default:
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create context", err)
		}
	}
	return &c, nil
}

func (d Datasource) GetContextByName(ctx context.Context, name string) (*model.Context, error) {
	c := model.Context{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM csveer.contexts
		WHERE name = $1
	`, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Context '%s' not found", name), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve context", err)
	}
	return &c, nil
}
