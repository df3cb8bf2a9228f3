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

package csveer

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/internal/notification"
	"github.com/csveer/csveer/internal/s3event"
	"github.com/csveer/csveer/model"
)

// ErrRetryable marks a notification that must stay on the queue so it is redelivered.
var ErrRetryable = stderrors.New("notification must be redelivered")

var tracer = otel.Tracer("csveer.pipeline")

// DispatchFailure is one destination that could not be ledgered or published.
type DispatchFailure struct {
	FileDestination string
	Err             error
}

// FanOutResult describes what happened to every destination of one record.
type FanOutResult struct {
	Context         string
	FileSource      string
	FileName        string
	Destinations    int
	Ledgered        []*model.DataDispatch
	Published       int
	LedgerFailures  []DispatchFailure
	PublishFailures []DispatchFailure
}

// Complete is true when every destination has a ledger row. Publish failures do not
// count against it since the recovery sweep re-publishes pending rows.
func (r *FanOutResult) Complete() bool {
	return len(r.LedgerFailures) == 0
}

// ProcessResult summarises one notification.
type ProcessResult struct {
	// Dropped is set when the body was not a storage event at all.
	Dropped bool
	Records int
	Skipped int
	FanOuts []*FanOutResult
}

// FanOut ledgers one PendingExecution dispatch per destination of source, then
// publishes every dispatch that was ledgered. A failing destination never stops its
// siblings. The returned error means nothing was ledgered.
func (c *Csveer) FanOut(ctx context.Context, source *model.FileSource, fileName, objectVersion string) (*FanOutResult, error) {
	ctx, span := tracer.Start(ctx, "FanOut")
	defer span.End()
	span.SetAttributes(
		attribute.String("csveer.context", source.Context),
		attribute.String("csveer.file_source", source.Identifier),
		attribute.String("csveer.file_name", fileName),
	)

	result := &FanOutResult{Context: source.Context, FileSource: source.Identifier, FileName: fileName}

	destinations, err := c.datasource.GetFileDestinations(ctx, source.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing destinations failed")
		return nil, errors.Wrapf(err, "listing destinations of %s/%s", source.Context, source.Identifier)
	}
	result.Destinations = len(destinations)
	if len(destinations) == 0 {
		return result, nil
	}

	messages := make([]model.DispatchMessage, len(destinations))
	dispatches := make([]*model.DataDispatch, len(destinations))
	for i, destination := range destinations {
		messages[i] = model.DispatchMessage{
			Context:                   source.Context,
			FileSourceIdentifier:      source.Identifier,
			FileDestinationIdentifier: destination.Identifier,
			FileName:                  fileName,
			IdempotencyKey:            model.NewIdempotencyKey(source.Context, source.Identifier, destination.Identifier, fileName, objectVersion),
		}
		body, err := messages[i].Encode()
		if err != nil {
			return nil, errors.Wrap(err, "encoding dispatch message")
		}
		dispatches[i] = &model.DataDispatch{
			FileDestinationID: destination.ID,
			Message:           body,
			IdempotencyKey:    messages[i].IdempotencyKey,
		}
	}

	rowErrs, err := c.datasource.RecordDataDispatches(ctx, dispatches)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger transaction failed")
		return nil, errors.Wrap(err, "recording data dispatches")
	}

	// Every row is committed before anything is published.
	for i, destination := range destinations {
		logger := logrus.WithFields(logrus.Fields{
			"context":          source.Context,
			"file_source":      source.Identifier,
			"file_destination": destination.Identifier,
			"file_name":        fileName,
		})

		if rowErrs[i] != nil {
			logger.WithError(rowErrs[i]).Error("failed to ledger data dispatch")
			result.LedgerFailures = append(result.LedgerFailures, DispatchFailure{FileDestination: destination.Identifier, Err: rowErrs[i]})
			continue
		}
		result.Ledgered = append(result.Ledgered, dispatches[i])

		if err := c.publisher.Publish(ctx, messages[i]); err != nil {
			logger.WithError(err).WithField("data_dispatch_id", dispatches[i].ID).
				Error("failed to publish data dispatch, left pending for recovery")
			result.PublishFailures = append(result.PublishFailures, DispatchFailure{FileDestination: destination.Identifier, Err: err})
			continue
		}
		result.Published++
		logger.WithField("data_dispatch_id", dispatches[i].ID).Info("data dispatch published")
	}

	span.SetAttributes(
		attribute.Int("csveer.destinations", result.Destinations),
		attribute.Int("csveer.published", result.Published),
	)
	return result, nil
}

// ProcessNotification runs every record of a notification body through resolution and
// fan-out. A returned error wrapping ErrRetryable means the notification must not be
// acknowledged; any other outcome, including skipped records, allows the ack.
func (c *Csveer) ProcessNotification(ctx context.Context, body string) (*ProcessResult, error) {
	result := &ProcessResult{}

	records, ok := s3event.Decode(body)
	if !ok {
		logrus.Info("could not parse message body into a storage event, dropping message")
		result.Dropped = true
		return result, nil
	}
	result.Records = len(records)

	var failures []error
	for _, record := range records {
		fanOut, err := c.processRecord(ctx, record)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if fanOut == nil {
			result.Skipped++
			continue
		}
		result.FanOuts = append(result.FanOuts, fanOut)
		if !fanOut.Complete() {
			failures = append(failures, errors.Errorf("%d of %d destinations of %s/%s not ledgered",
				len(fanOut.LedgerFailures), fanOut.Destinations, fanOut.Context, fanOut.FileSource))
		}
	}

	if len(failures) > 0 {
		return result, errors.Wrapf(ErrRetryable, "%d of %d records failed, first: %v", len(failures), len(records), failures[0])
	}
	return result, nil
}

// processRecord returns a nil result for a record skipped by policy.
func (c *Csveer) processRecord(ctx context.Context, record s3event.Record) (*FanOutResult, error) {
	logger := logrus.WithFields(logrus.Fields{"event": record.EventName, "key": record.Key})

	if !record.IsObjectCreated() {
		logger.Info("skipped record, not an object creation")
		return nil, nil
	}

	key, err := s3event.ParseObjectKey(record.Key)
	if err != nil {
		logger.WithError(err).Error("skipped record with malformed object key")
		return nil, nil
	}

	source, err := c.ResolveFileSource(ctx, key.Context, key.FileSourceIdentifier)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			logger.Errorf("could not find file source with identifier %s on context %s", key.FileSourceIdentifier, key.Context)
			return nil, nil
		}
		if stderrors.Is(err, model.ErrConfigurationIntegrity) {
			notification.NotifyError(errors.Wrapf(err, "file source %s/%s", key.Context, key.FileSourceIdentifier))
			return nil, nil
		}
		return nil, errors.Wrapf(err, "resolving file source %s/%s", key.Context, key.FileSourceIdentifier)
	}

	fanOut, err := c.FanOut(ctx, source, key.FileName, record.ObjectVersion())
	if err != nil {
		if stderrors.Is(err, model.ErrConfigurationIntegrity) {
			notification.NotifyError(err)
			return nil, nil
		}
		return nil, err
	}
	return fanOut, nil
}
