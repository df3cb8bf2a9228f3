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
	"time"
)

type DispatchStatus string

const (
	DispatchPendingExecution DispatchStatus = "PendingExecution"
	DispatchFailed           DispatchStatus = "Failed"
	DispatchFinished         DispatchStatus = "Finished"
)

type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "Success"
	ExecutionFailure ExecutionStatus = "Failure"
)

// ErrInvalidTransition is returned when an execution outcome cannot move a dispatch
// out of its current status.
var ErrInvalidTransition = errors.New("invalid dispatch status transition")

// DataDispatch is the ledger row of a single fan-out instruction.
type DataDispatch struct {
	ID                int64          `json:"id"`
	FileDestinationID int64          `json:"file_destination_id"`
	Status            DispatchStatus `json:"status"`
	Message           string         `json:"message"`
	IdempotencyKey    string         `json:"idempotency_key"`
	RecoveryAttempts  int            `json:"recovery_attempts"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         *time.Time     `json:"updated_at"`
}

// DataDispatchExecution is one append-only attempt reported against a DataDispatch.
type DataDispatchExecution struct {
	ID             int64           `json:"id"`
	DataDispatchID int64           `json:"data_dispatch_id"`
	Status         ExecutionStatus `json:"status"`
	Message        string          `json:"message"`
	CreatedAt      time.Time       `json:"created_at"`
}

func ParseDispatchStatus(value string) (DispatchStatus, error) {
	switch DispatchStatus(value) {
	case DispatchPendingExecution, DispatchFailed, DispatchFinished:
		return DispatchStatus(value), nil
	}
	return "", fmt.Errorf("unknown dispatch status %q", value)
}

func ParseExecutionStatus(value string) (ExecutionStatus, error) {
	switch ExecutionStatus(value) {
	case ExecutionSuccess, ExecutionFailure:
		return ExecutionStatus(value), nil
	}
	return "", fmt.Errorf("unknown execution status %q", value)
}

// IsTerminal reports whether no further execution may be recorded.
func (s DispatchStatus) IsTerminal() bool {
	return s == DispatchFinished
}

// NextDispatchStatus applies an execution outcome to the current dispatch status.
//
//	PendingExecution --Success--> Finished
//	PendingExecution --Failure--> Failed
//	Failed           --Success--> Finished
//	Failed           --Failure--> Failed
//
// Finished accepts nothing.
func NextDispatchStatus(current DispatchStatus, outcome ExecutionStatus) (DispatchStatus, error) {
	if current.IsTerminal() {
		return current, fmt.Errorf("%w: dispatch is already %s", ErrInvalidTransition, current)
	}
	if current != DispatchPendingExecution && current != DispatchFailed {
		return current, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, current)
	}
	switch outcome {
	case ExecutionSuccess:
		return DispatchFinished, nil
	case ExecutionFailure:
		return DispatchFailed, nil
	default:
		return current, fmt.Errorf("%w: unknown execution status %q", ErrInvalidTransition, outcome)
	}
}
