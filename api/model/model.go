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
package model

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

// identifierRule checks a value that ends up as a segment of an object key.
func identifierRule(label string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return fmt.Errorf("%s should not be empty.", label)
		}
		if c := model.InvalidIdentifierChar(s); c != 0 {
			return fmt.Errorf("%s should only contain numbers or charaters. Found char '%c'", label, c)
		}
		return nil
	}
}

// reservedContextNames are first path segments already routed to the dispatch
// and admin endpoints.
var reservedContextNames = map[string]struct{}{
	"dispatches": {},
	"admin":      {},
}

func contextNameRule(value interface{}) error {
	if err := identifierRule("Context name")(value); err != nil {
		return err
	}
	s, _ := value.(string)
	if _, ok := reservedContextNames[s]; ok {
		return fmt.Errorf("Context name '%s' is reserved", s)
	}
	return nil
}

func nonNegativeColumns(label string) validation.RuleFunc {
	return func(value interface{}) error {
		columns, _ := value.([]int)
		for idx, col := range columns {
			if col < 0 {
				return fmt.Errorf("%s at position %d cannot be negative", label, idx)
			}
		}
		return nil
	}
}

func distinctColumns(value interface{}) error {
	columns, _ := value.([]int)
	seen := make(map[int]struct{}, len(columns))
	for _, col := range columns {
		if _, ok := seen[col]; ok {
			return fmt.Errorf("Column index %d appears twice in columns list", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

func positiveBatchSize(value interface{}) error {
	size, _ := value.(int)
	if size <= 0 {
		return fmt.Errorf("Batch size should be a positive number. Provided: %d", size)
	}
	return nil
}

func absoluteURL(value interface{}) error {
	raw, _ := value.(string)
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("Queue URL '%s' is invalid", raw)
	}
	return nil
}

// detailed converts ozzo errors into an INVALID_INPUT error whose details are the
// individual rule messages, ordered by field name.
func detailed(message string, err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		var internal validation.InternalError
		if errors.As(err, &internal) {
			return err
		}
		return apierror.NewDetailedValidationError(message, err.Error())
	}

	fields := make([]string, 0, len(fieldErrs))
	for field := range fieldErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	details := make([]string, 0, len(fields))
	for _, field := range fields {
		details = append(details, fieldErrs[field].Error())
	}
	return apierror.NewDetailedValidationError(message, details...)
}

func (c *CreateContext) ValidateCreateContext() error {
	return detailed("Invalid context name", validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.By(contextNameRule)),
	))
}

func (s *CreateFileSource) ValidateCreateFileSource() error {
	return detailed("Invalid file source", validation.ValidateStruct(s,
		validation.Field(&s.Context, validation.By(contextNameRule)),
		validation.Field(&s.Identifier, validation.By(identifierRule("File source identifier"))),
		validation.Field(&s.Source, validation.By(func(value interface{}) error {
			if source, _ := value.(model.SourceType); source.Kind == "" {
				return errors.New("Source type is required")
			}
			return nil
		})),
		validation.Field(&s.HideColumns, validation.By(nonNegativeColumns("Hidden column index"))),
	))
}

// ValidateCreateFileDestination reports the first invalid part of the destination,
// checking the identifier, the destination, the grouping and the batching in turn.
func (d *CreateFileDestination) ValidateCreateFileDestination() error {
	if err := validation.Validate(d.Identifier, validation.By(identifierRule("File destination identifier"))); err != nil {
		return detailed("Invalid file destination identifier", err)
	}

	switch d.Destination.Kind {
	case model.DestinationSQS:
		queueURL := ""
		if d.Destination.SQS != nil {
			queueURL = d.Destination.SQS.QueueURL
		}
		err := validation.Validate(queueURL,
			validation.Required.Error("Queue URL should not be empty"),
			validation.By(absoluteURL),
		)
		if err != nil {
			return detailed("Invalid queue URL for SQS destination", err)
		}
	default:
		return apierror.NewDetailedValidationError("Invalid file destination", "Destination configuration is required")
	}

	if d.Grouping != nil {
		err := validation.Validate(d.Grouping.Columns,
			validation.Required.Error("No column index provided"),
			validation.By(nonNegativeColumns("Column index")),
			validation.By(distinctColumns),
		)
		if err != nil {
			return detailed("Column grouping configuration is invalid", err)
		}
	}

	if d.Batching != nil {
		if err := validation.Validate(d.Batching.BatchSize, validation.By(positiveBatchSize)); err != nil {
			return detailed("Invalid fixed batch configuration", err)
		}
	}
	return nil
}

func (r *RecordExecution) ValidateRecordExecution() error {
	return detailed("Invalid execution report", validation.ValidateStruct(r,
		validation.Field(&r.Status,
			validation.Required.Error("Execution status is required"),
			validation.In(string(model.ExecutionSuccess), string(model.ExecutionFailure)).
				Error("Execution status should be Success or Failure"),
		),
	))
}

func (c *CreateContext) ToContextName() string {
	return c.Name
}

func (s *CreateFileSource) ToFileSource() *model.FileSource {
	return &model.FileSource{
		Context:     s.Context,
		Identifier:  s.Identifier,
		Description: s.Description,
		Source:      s.Source,
		Headers:     s.Headers,
		Compression: s.Compression,
		HideColumns: s.HideColumns,
	}
}

func (d *CreateFileDestination) ToFileDestination() *model.FileDestination {
	return &model.FileDestination{
		Identifier:     d.Identifier,
		Destination:    d.Destination,
		IncludeHeaders: d.IncludeHeaders,
		Grouping:       d.Grouping,
		Batching:       d.Batching,
	}
}
