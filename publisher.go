package csveer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/csveer/csveer/config"
	"github.com/csveer/csveer/internal/queue"
	"github.com/csveer/csveer/model"
)

// IdempotencyKeyAttribute is the message attribute carrying the dispatch key.
const IdempotencyKeyAttribute = "IdempotencyKey"

type messageSender interface {
	Send(ctx context.Context, m queue.OutboundMessage) (string, error)
}

// DispatchPublisher sends instructions with bounded retries. A circuit breaker sits
// in front of the queue so that a dead queue stops costing a full retry budget per
// destination.
type DispatchPublisher struct {
	sender     messageSender
	breaker    *gobreaker.CircuitBreaker
	newBackOff func() backoff.BackOff
}

func NewDispatchPublisher(sender messageSender, cnf config.DispatchConfig) *DispatchPublisher {
	maxElapsed := time.Duration(cnf.PublishMaxElapsedSeconds) * time.Second
	threshold := cnf.BreakerFailureThreshold

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "dispatch-queue",
		Timeout: time.Duration(cnf.BreakerTimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("dispatch queue circuit breaker changed state")
		},
	})

	return &DispatchPublisher{
		sender:  sender,
		breaker: breaker,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = maxElapsed
			return b
		},
	}
}

// Publish returns the last send error once the retry budget is spent or the breaker
// is open.
func (p *DispatchPublisher) Publish(ctx context.Context, message model.DispatchMessage) error {
	body, err := message.Encode()
	if err != nil {
		return err
	}

	out := queue.OutboundMessage{
		Body:            body,
		Attributes:      map[string]string{IdempotencyKeyAttribute: message.IdempotencyKey},
		DeduplicationID: message.IdempotencyKey,
		GroupID:         message.FileDestinationIdentifier,
	}

	attempt := 0
	operation := func() error {
		attempt++
		_, err := p.breaker.Execute(func() (interface{}, error) {
			return p.sender.Send(ctx, out)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}

	err = backoff.RetryNotify(operation, backoff.WithContext(p.newBackOff(), ctx), func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{
			"file_destination": message.FileDestinationIdentifier,
			"attempt":          attempt,
			"retry_in":         wait.String(),
		}).WithError(err).Warn("dispatch publish failed, retrying")
	})
	if err != nil {
		return fmt.Errorf("publishing dispatch for %s after %d attempt(s): %w", message.FileDestinationIdentifier, attempt, err)
	}
	return nil
}
