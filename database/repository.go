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

package database

import (
	"context"
	"time"

	"github.com/csveer/csveer/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	contextStore    // Interface for context-related operations
	fileSource      // Interface for file source operations
	fileDestination // Interface for file destination operations
	dataDispatch    // Interface for the dispatch ledger
}

type contextStore interface {
	CreateContext(ctx context.Context, name string) (*model.Context, error)    // Creates a context, conflict when the name exists
	GetContextByName(ctx context.Context, name string) (*model.Context, error) // Retrieves a context by name
}

type fileSource interface {
	CreateFileSource(ctx context.Context, source *model.FileSource) (*model.FileSource, error)    // Creates a file source and, if missing, its context
	GetFileSource(ctx context.Context, contextName, identifier string) (*model.FileSource, error) // Retrieves a file source by its unique pair
}

type fileDestination interface {
	CreateFileDestination(ctx context.Context, destination *model.FileDestination) (*model.FileDestination, error) // Attaches a destination to a file source
	GetFileDestinations(ctx context.Context, fileSourceID int64) ([]*model.FileDestination, error)                 // Lists the destinations of a file source
}

// dataDispatch defines the dispatch ledger.
type dataDispatch interface {
	RecordDataDispatches(ctx context.Context, dispatches []*model.DataDispatch) ([]error, error)
	GetDataDispatch(ctx context.Context, id int64) (*model.DataDispatch, error)
	ListDataDispatches(ctx context.Context, filter DispatchFilter) ([]*model.DataDispatch, error)
	RecordDispatchExecution(ctx context.Context, dispatchID int64, status model.ExecutionStatus, message string) (*model.DataDispatch, *model.DataDispatchExecution, error)
	ListDispatchExecutions(ctx context.Context, dispatchID int64) ([]*model.DataDispatchExecution, error)
	GetStalePendingDispatches(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*model.DataDispatch, error)
	IncrementRecoveryAttempts(ctx context.Context, id int64) (int, error)
}

// DispatchFilter narrows ListDataDispatches. Nil fields do not filter.
type DispatchFilter struct {
	Status            *model.DispatchStatus
	FileDestinationID *int64
	Limit             int
	Offset            int
}
