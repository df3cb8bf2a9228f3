package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

func detailsOf(t *testing.T, err error) (string, []string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apierror.Is(err, apierror.ErrInvalidInput), "unexpected error: %v", err)
	resp := apierror.ToResponse(err)
	return resp.Message, resp.Details
}

func TestValidateCreateContext(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "valid", input: "banking-eu1"},
		{name: "empty", input: "", wantErr: "Context name should not be empty."},
		{name: "underscore", input: "bank_ing", wantErr: "Context name should only contain numbers or charaters. Found char '_'"},
		{name: "slash", input: "bank/ing", wantErr: "Context name should only contain numbers or charaters. Found char '/'"},
		{name: "dispatch route", input: "dispatches", wantErr: "Context name 'dispatches' is reserved"},
		{name: "admin route", input: "admin", wantErr: "Context name 'admin' is reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CreateContext{Name: tt.input}
			err := c.ValidateCreateContext()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			message, details := detailsOf(t, err)
			assert.Equal(t, "Invalid context name", message)
			assert.Equal(t, []string{tt.wantErr}, details)
		})
	}
}

func TestValidateCreateFileSource(t *testing.T) {
	valid := CreateFileSource{
		Context:    "banking",
		Identifier: "daily-transfer-csv",
		Source:     model.SourceType{Kind: model.SourceHttpPassive},
	}
	assert.NoError(t, valid.ValidateCreateFileSource())

	invalid := valid
	invalid.Identifier = "daily transfer"
	invalid.HideColumns = []int{1, -2}
	message, details := detailsOf(t, invalid.ValidateCreateFileSource())
	assert.Equal(t, "Invalid file source", message)
	assert.ElementsMatch(t, []string{
		"File source identifier should only contain numbers or charaters. Found char ' '",
		"Hidden column index at position 1 cannot be negative",
	}, details)

	reserved := valid
	reserved.Context = "dispatches"
	_, details = detailsOf(t, reserved.ValidateCreateFileSource())
	assert.Equal(t, []string{"Context name 'dispatches' is reserved"}, details)

	missingSource := valid
	missingSource.Source = model.SourceType{}
	_, details = detailsOf(t, missingSource.ValidateCreateFileSource())
	assert.Equal(t, []string{"Source type is required"}, details)
}

func sqsDestination(url string) CreateFileDestination {
	return CreateFileDestination{
		Identifier:  "sqs-a",
		Destination: model.NewSQSDestination(url),
	}
}

func TestValidateCreateFileDestination(t *testing.T) {
	const queueURL = "https://sqs.us-east-1.amazonaws.com/123456789012/sqs-a"

	tests := []struct {
		name        string
		destination func() CreateFileDestination
		wantMessage string
		wantDetail  string
	}{
		{
			name:        "valid",
			destination: func() CreateFileDestination { return sqsDestination(queueURL) },
		},
		{
			name: "bad identifier",
			destination: func() CreateFileDestination {
				d := sqsDestination(queueURL)
				d.Identifier = "sqs.a"
				return d
			},
			wantMessage: "Invalid file destination identifier",
			wantDetail:  "File destination identifier should only contain numbers or charaters. Found char '.'",
		},
		{
			name:        "empty queue url",
			destination: func() CreateFileDestination { return sqsDestination("") },
			wantMessage: "Invalid queue URL for SQS destination",
			wantDetail:  "Queue URL should not be empty",
		},
		{
			name:        "relative queue url",
			destination: func() CreateFileDestination { return sqsDestination("not a url") },
			wantMessage: "Invalid queue URL for SQS destination",
			wantDetail:  "Queue URL 'not a url' is invalid",
		},
		{
			name: "no grouping columns",
			destination: func() CreateFileDestination {
				d := sqsDestination(queueURL)
				d.Grouping = &model.GroupingConfig{Kind: model.GroupingByColumns}
				return d
			},
			wantMessage: "Column grouping configuration is invalid",
			wantDetail:  "No column index provided",
		},
		{
			name: "negative grouping column",
			destination: func() CreateFileDestination {
				d := sqsDestination(queueURL)
				d.Grouping = &model.GroupingConfig{Kind: model.GroupingByColumns, Columns: []int{0, -1}}
				return d
			},
			wantMessage: "Column grouping configuration is invalid",
			wantDetail:  "Column index at position 1 cannot be negative",
		},
		{
			name: "duplicate grouping column",
			destination: func() CreateFileDestination {
				d := sqsDestination(queueURL)
				d.Grouping = &model.GroupingConfig{Kind: model.GroupingByColumns, Columns: []int{1, 2, 2}}
				return d
			},
			wantMessage: "Column grouping configuration is invalid",
			wantDetail:  "Column index 2 appears twice in columns list",
		},
		{
			name: "same column twice",
			destination: func() CreateFileDestination {
				d := sqsDestination(queueURL)
				d.Grouping = &model.GroupingConfig{Kind: model.GroupingByColumns, Columns: []int{2, 2}}
				return d
			},
			wantMessage: "Column grouping configuration is invalid",
			wantDetail:  "Column index 2 appears twice in columns list",
		},
		{
			name: "zero batch size",
			destination: func() CreateFileDestination {
				d := sqsDestination(queueURL)
				d.Batching = &model.BatchingConfig{Kind: model.BatchingFixed, BatchSize: 0}
				return d
			},
			wantMessage: "Invalid fixed batch configuration",
			wantDetail:  "Batch size should be a positive number. Provided: 0",
		},
		{
			name: "negative batch size",
			destination: func() CreateFileDestination {
				d := sqsDestination(queueURL)
				d.Batching = &model.BatchingConfig{Kind: model.BatchingFixed, BatchSize: -1}
				return d
			},
			wantMessage: "Invalid fixed batch configuration",
			wantDetail:  "Batch size should be a positive number. Provided: -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.destination()
			err := d.ValidateCreateFileDestination()
			if tt.wantMessage == "" {
				assert.NoError(t, err)
				return
			}
			message, details := detailsOf(t, err)
			assert.Equal(t, tt.wantMessage, message)
			assert.Equal(t, []string{tt.wantDetail}, details)
		})
	}
}

func TestCreateFileDestinationFromJSON(t *testing.T) {
	body := `{
		"identifier": "sqs-a",
		"destination": {"type": "SQS", "queue_url": "https://sqs.us-east-1.amazonaws.com/123456789012/sqs-a"},
		"include_headers": true,
		"grouping": {"type": "GroupedByColumns", "columns": [0, 3]},
		"batching": {"type": "Fixed", "batch_size": 500}
	}`

	var d CreateFileDestination
	require.NoError(t, json.Unmarshal([]byte(body), &d))
	require.NoError(t, d.ValidateCreateFileDestination())

	destination := d.ToFileDestination()
	assert.Equal(t, model.DestinationSQS, destination.Destination.Kind)
	assert.Equal(t, []int{0, 3}, destination.Grouping.Columns)
	assert.Equal(t, 500, destination.Batching.BatchSize)
	assert.True(t, destination.IncludeHeaders)
}

func TestValidateRecordExecution(t *testing.T) {
	ok := RecordExecution{Status: "Success"}
	assert.NoError(t, ok.ValidateRecordExecution())

	bad := RecordExecution{Status: "Done"}
	_, details := detailsOf(t, bad.ValidateRecordExecution())
	assert.Equal(t, []string{"Execution status should be Success or Failure"}, details)
}
