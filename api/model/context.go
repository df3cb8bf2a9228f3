package model

import "github.com/csveer/csveer/model"

type CreateContext struct {
	Name string `json:"name"`
}

type CreateFileSource struct {
	Context     string             `json:"context"`
	Identifier  string             `json:"identifier"`
	Description string             `json:"description"`
	Source      model.SourceType   `json:"source"`
	Headers     bool               `json:"headers"`
	Compression *model.Compression `json:"compression"`
	HideColumns []int              `json:"hide_columns"`
}

type CreateFileDestination struct {
	Identifier     string                  `json:"identifier"`
	Destination    model.DestinationConfig `json:"destination"`
	IncludeHeaders bool                    `json:"include_headers"`
	Grouping       *model.GroupingConfig   `json:"grouping"`
	Batching       *model.BatchingConfig   `json:"batching"`
}

type RecordExecution struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
