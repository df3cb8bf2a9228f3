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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	redlock "github.com/csveer/csveer/internal/lock"
	"github.com/csveer/csveer/internal/notification"
	"github.com/csveer/csveer/model"
)

const (
	dispatchRecoveryLockKey = "csveer:dispatch-recovery"
	minRecoveryThreshold    = time.Minute
	minRecoveryLockDuration = time.Minute
)

// DispatchRecoveryProcessor re-publishes dispatches that stayed PendingExecution
// without any execution being reported. Only one instance sweeps at a time.
type DispatchRecoveryProcessor struct {
	csveer              *Csveer
	batchSize           int
	maxWorkers          int
	pollInterval        time.Duration
	staleThreshold      time.Duration
	maxRecoveryAttempts int
	instanceID          string
	stopCh              chan struct{}
	wg                  sync.WaitGroup
	running             bool
	mu                  sync.Mutex
}

func NewDispatchRecoveryProcessor(c *Csveer) *DispatchRecoveryProcessor {
	cnf := c.config.Recovery
	return &DispatchRecoveryProcessor{
		csveer:              c,
		batchSize:           cnf.BatchSize,
		maxWorkers:          cnf.Workers,
		pollInterval:        time.Duration(cnf.PollIntervalSeconds) * time.Second,
		staleThreshold:      time.Duration(cnf.StaleThresholdSeconds) * time.Second,
		maxRecoveryAttempts: cnf.MaxRecoveryAttempts,
		instanceID:          model.GenerateUUIDWithSuffix("sweeper"),
		stopCh:              make(chan struct{}),
	}
}

func (p *DispatchRecoveryProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()

	logrus.Info("Dispatch recovery processor started")
}

func (p *DispatchRecoveryProcessor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logrus.Info("Dispatch recovery processor stopped")
}

func (p *DispatchRecoveryProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *DispatchRecoveryProcessor) run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Dispatch recovery processor context cancelled")
			return
		case <-p.stopCh:
			logrus.Info("Dispatch recovery processor stop signal received")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

// sweep runs one locked pass. Losing the lock race is normal when several listeners
// are deployed.
func (p *DispatchRecoveryProcessor) sweep(ctx context.Context) {
	ttl := p.pollInterval
	if ttl < minRecoveryLockDuration {
		ttl = minRecoveryLockDuration
	}

	locker := redlock.NewLocker(p.csveer.redis, dispatchRecoveryLockKey, p.instanceID)
	if err := locker.Lock(ctx, ttl); err != nil {
		if errors.Is(err, redlock.ErrLockHeld) {
			logrus.Debug("dispatch recovery sweep skipped, another instance holds the lock")
			return
		}
		logrus.Errorf("failed to acquire dispatch recovery lock: %v", err)
		return
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.keepLock(sweepCtx, locker, ttl)

	defer func() {
		if err := locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			logrus.Warnf("failed to release dispatch recovery lock: %v", err)
		}
	}()

	if _, err := p.recoverWithThreshold(sweepCtx, p.staleThreshold); err != nil {
		logrus.Errorf("dispatch recovery sweep failed: %v", err)
	}
}

func (p *DispatchRecoveryProcessor) keepLock(ctx context.Context, locker *redlock.Locker, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := locker.ExtendLock(ctx, ttl); err != nil {
				logrus.Warnf("failed to extend dispatch recovery lock: %v", err)
				return
			}
		}
	}
}

// RecoverPendingDispatches triggers an immediate sweep using the provided threshold.
// This is exposed for the manual trigger API endpoint.
func (c *Csveer) RecoverPendingDispatches(ctx context.Context, threshold time.Duration) (int, error) {
	if threshold < minRecoveryThreshold {
		threshold = minRecoveryThreshold
	}

	processor := NewDispatchRecoveryProcessor(c)
	return processor.recoverWithThreshold(ctx, threshold)
}

func (p *DispatchRecoveryProcessor) recoverWithThreshold(ctx context.Context, threshold time.Duration) (int, error) {
	stale, err := p.csveer.datasource.GetStalePendingDispatches(ctx, time.Now().Add(-threshold), p.maxRecoveryAttempts, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get stale pending dispatches: %w", err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	logrus.Infof("Processing %d stale pending dispatches with %d workers (threshold=%v)", len(stale), p.maxWorkers, threshold)

	workers := p.maxWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var batchWg sync.WaitGroup

	for _, dispatch := range stale {
		sem <- struct{}{}
		batchWg.Add(1)
		go func(d *model.DataDispatch) {
			defer batchWg.Done()
			defer func() { <-sem }()
			if err := p.processStaleDispatch(ctx, d); err != nil {
				logrus.Errorf("failed to recover data dispatch %d: %v", d.ID, err)
			}
		}(dispatch)
	}

	batchWg.Wait()
	return len(stale), nil
}

// processStaleDispatch bumps the attempt counter whatever the outcome so the row
// waits a full threshold before the next try. A row that has used up its attempts is
// reported once and left PendingExecution; only the executor marks dispatches Failed.
func (p *DispatchRecoveryProcessor) processStaleDispatch(ctx context.Context, d *model.DataDispatch) error {
	if d.RecoveryAttempts >= p.maxRecoveryAttempts {
		notification.NotifyError(fmt.Errorf("data dispatch %d is still pending after %d recovery attempts", d.ID, d.RecoveryAttempts))
		_, err := p.csveer.datasource.IncrementRecoveryAttempts(ctx, d.ID)
		return err
	}

	message, err := model.DecodeDispatchMessage(d.Message)
	if err != nil {
		notification.NotifyError(fmt.Errorf("data dispatch %d has an unreadable message: %w", d.ID, err))
		_, incErr := p.csveer.datasource.IncrementRecoveryAttempts(ctx, d.ID)
		return errors.Join(err, incErr)
	}

	publishErr := p.csveer.publisher.Publish(ctx, message)

	attempts, err := p.csveer.datasource.IncrementRecoveryAttempts(ctx, d.ID)
	if err != nil {
		return errors.Join(publishErr, err)
	}
	if publishErr != nil {
		return publishErr
	}

	logrus.Infof("Re-published data dispatch %d (recovery attempt %d)", d.ID, attempts)
	return nil
}
