package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

func (d Datasource) CreateFileDestination(ctx context.Context, destination *model.FileDestination) (*model.FileDestination, error) {
	destinationJSON, err := json.Marshal(destination.Destination)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal destination configuration", err)
	}
	var groupingJSON, batchingJSON []byte
	if destination.Grouping != nil {
		groupingJSON, err = json.Marshal(destination.Grouping)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal grouping configuration", err)
	}
	if destination.Batching != nil {
		batchingJSON, err = json.Marshal(destination.Batching)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal batching configuration", err)
	}

	err = d.Conn.QueryRowContext(ctx, `
		INSERT INTO csveer.file_destinations (file_source_id, identifier, destination_config, include_headers, grouping_config, batching_config)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, destination.FileSourceID, destination.Identifier, destinationJSON, destination.IncludeHeaders, nullableJSON(groupingJSON), nullableJSON(batchingJSON)).
		Scan(&destination.ID, &destination.CreatedAt)
	if err != nil {
		switch pqErrorName(err) {
		case "unique_violation":
			return nil, apierror.NewAPIError(apierror.ErrConflict,
				fmt.Sprintf("A file destination with identifier '%s' already exists for this file source.", destination.Identifier), err)
		case "foreign_key_violation":
			return nil, apierror.NewAPIError(apierror.ErrBadRequest, "File source does not exist", err)
		default:
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create file destination", err)
		}
	}
	return destination, nil
}

// GetFileDestinations lists the destinations of a source. A row whose stored
// configuration no longer decodes fails the whole listing with an integrity error.
func (d Datasource) GetFileDestinations(ctx context.Context, fileSourceID int64) ([]*model.FileDestination, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, file_source_id, identifier, destination_config, include_headers, grouping_config, batching_config, created_at, updated_at
		FROM csveer.file_destinations
		WHERE file_source_id = $1
		ORDER BY id
	`, fileSourceID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve file destinations", err)
	}
	defer rows.Close()

	destinations := []*model.FileDestination{}
	for rows.Next() {
		destination := model.FileDestination{}
		var (
			destinationJSON, groupingJSON, batchingJSON []byte
			updatedAt                                   sql.NullTime
		)
		err = rows.Scan(&destination.ID, &destination.FileSourceID, &destination.Identifier, &destinationJSON,
			&destination.IncludeHeaders, &groupingJSON, &batchingJSON, &destination.CreatedAt, &updatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan file destination", err)
		}

		if destination.Destination, err = model.DecodeDestinationConfig(destinationJSON); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Stored file destination is corrupted", err)
		}
		if destination.Grouping, err = model.DecodeGroupingConfig(groupingJSON); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Stored file destination is corrupted", err)
		}
		if destination.Batching, err = model.DecodeBatchingConfig(batchingJSON); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Stored file destination is corrupted", err)
		}
		if updatedAt.Valid {
			destination.UpdatedAt = &updatedAt.Time
		}
		destinations = append(destinations, &destination)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over file destinations", err)
	}
	return destinations, nil
}

// nullableJSON keeps absent configurations as SQL NULL.
func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
