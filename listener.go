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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/csveer/csveer/internal/queue"
)

type ListenerState int32

const (
	ListenerIdle ListenerState = iota
	ListenerPolling
	ListenerProcessing
	ListenerAcknowledging
	ListenerCancelled
)

func (s ListenerState) String() string {
	switch s {
	case ListenerIdle:
		return "Idle"
	case ListenerPolling:
		return "Polling"
	case ListenerProcessing:
		return "Processing"
	case ListenerAcknowledging:
		return "Acknowledging"
	case ListenerCancelled:
		return "Cancelled"
	}
	return fmt.Sprintf("ListenerState(%d)", int32(s))
}

type notificationConsumer interface {
	Receive(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, m queue.Message) error
}

type notificationProcessor interface {
	ProcessNotification(ctx context.Context, body string) (*ProcessResult, error)
}

// IngestionListener drains the storage notification queue. Other listener processes
// may consume the same queue; the queue's visibility timeout keeps them apart.
type IngestionListener struct {
	consumer     notificationConsumer
	processor    notificationProcessor
	errorBackoff time.Duration
	state        atomic.Int32
}

func NewIngestionListener(consumer notificationConsumer, processor notificationProcessor, errorBackoff time.Duration) *IngestionListener {
	return &IngestionListener{
		consumer:     consumer,
		processor:    processor,
		errorBackoff: errorBackoff,
	}
}

func (l *IngestionListener) State() ListenerState {
	return ListenerState(l.state.Load())
}

func (l *IngestionListener) setState(s ListenerState) {
	l.state.Store(int32(s))
}

// Run polls until ctx is cancelled. Cancellation is observed between iterations and
// while waiting on the queue; a message already being processed is finished and
// acknowledged first. Run only returns once cancelled.
func (l *IngestionListener) Run(ctx context.Context) {
	l.setState(ListenerIdle)
	defer l.setState(ListenerCancelled)
	logrus.Info("file ingestion listener started")

	for {
		if ctx.Err() != nil {
			logrus.Info("shutting down file ingestion listener")
			return
		}

		l.setState(ListenerPolling)
		messages, err := l.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logrus.Info("shutting down file ingestion listener")
				return
			}
			logrus.WithError(err).Error("failed to poll ingestion queue")
			l.sleep(ctx, l.errorBackoff)
			continue
		}

		for _, message := range messages {
			// Messages not yet started are left for redelivery.
			if ctx.Err() != nil {
				break
			}
			l.handle(context.WithoutCancel(ctx), message)
		}
	}
}

func (l *IngestionListener) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (l *IngestionListener) handle(ctx context.Context, message queue.Message) {
	traceID := uuid.New().String()
	logger := logrus.WithFields(logrus.Fields{
		"trace_id":      traceID,
		"message_id":    message.ID,
		"receive_count": message.ReceiveCount,
	})

	ctx, span := tracer.Start(ctx, "Process File Ingestion Message", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("csveer.trace_id", traceID),
		attribute.String("messaging.message.id", message.ID),
	)

	l.setState(ListenerProcessing)
	defer l.setState(ListenerIdle)
	logger.Infof("about to process message: %s", message.Body)

	result, err := l.process(ctx, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing failed")
		logger.WithError(err).Error("failed to process message, leaving it for redelivery")
		return
	}

	l.setState(ListenerAcknowledging)
	if err := l.consumer.Ack(ctx, message); err != nil {
		span.RecordError(err)
		logger.WithError(err).Error("failed to acknowledge message")
		return
	}
	logger.WithFields(logrus.Fields{
		"records": result.Records,
		"skipped": result.Skipped,
		"dropped": result.Dropped,
	}).Info("successfully processed message")
}

// process turns a panic into an error so one message cannot end the loop.
func (l *IngestionListener) process(ctx context.Context, message queue.Message) (result *ProcessResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing message %s: %v", message.ID, r)
		}
	}()

	result, err = l.processor.ProcessNotification(ctx, message.Body)
	if err == nil && result == nil {
		result = &ProcessResult{}
	}
	return result, err
}
