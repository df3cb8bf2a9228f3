package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type DestinationKind string

const (
	DestinationSQS DestinationKind = "SQS"
)

// SQSDestination delivers dispatched files to a queue.
type SQSDestination struct {
	QueueURL string `json:"queue_url"`
}

// DestinationConfig is the closed union of delivery targets. Exactly the field that
// matches Kind is set.
type DestinationConfig struct {
	Kind DestinationKind
	SQS  *SQSDestination
}

// NewSQSDestination is a convenience constructor for the SQS variant.
func NewSQSDestination(queueURL string) DestinationConfig {
	return DestinationConfig{Kind: DestinationSQS, SQS: &SQSDestination{QueueURL: queueURL}}
}

func (d DestinationConfig) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case DestinationSQS:
		if d.SQS == nil {
			return nil, fmt.Errorf("destination %s has no payload", d.Kind)
		}
		return json.Marshal(struct {
			Type     DestinationKind `json:"type"`
			QueueURL string          `json:"queue_url"`
		}{Type: d.Kind, QueueURL: d.SQS.QueueURL})
	default:
		return nil, fmt.Errorf("%w: destination type %q", ErrUnknownVariant, d.Kind)
	}
}

func (d *DestinationConfig) UnmarshalJSON(data []byte) error {
	tag, err := readTag(data)
	if err != nil {
		return err
	}
	switch DestinationKind(tag) {
	case DestinationSQS:
		var v struct {
			Type     string `json:"type"`
			QueueURL string `json:"queue_url"`
		}
		if err := strictUnmarshal(data, &v); err != nil {
			return err
		}
		*d = NewSQSDestination(v.QueueURL)
		return nil
	default:
		return fmt.Errorf("%w: destination type %q", ErrUnknownVariant, tag)
	}
}

type GroupingKind string

const (
	GroupingByColumns GroupingKind = "GroupedByColumns"
)

// GroupingConfig is the closed union of row grouping policies.
type GroupingConfig struct {
	Kind    GroupingKind
	Columns []int
}

// CheckInvariants applies the column rules enforced when a destination is created.
func (g GroupingConfig) CheckInvariants() error {
	if len(g.Columns) == 0 {
		return errors.New("no column index provided")
	}
	seen := make(map[int]struct{}, len(g.Columns))
	for idx, col := range g.Columns {
		if col < 0 {
			return fmt.Errorf("column index at position %d cannot be negative", idx)
		}
		if _, ok := seen[col]; ok {
			return fmt.Errorf("column index %d appears twice in columns list", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

func (g GroupingConfig) MarshalJSON() ([]byte, error) {
	switch g.Kind {
	case GroupingByColumns:
		columns := g.Columns
		if columns == nil {
			columns = []int{}
		}
		return json.Marshal(struct {
			Type    GroupingKind `json:"type"`
			Columns []int        `json:"columns"`
		}{Type: g.Kind, Columns: columns})
	default:
		return nil, fmt.Errorf("%w: grouping type %q", ErrUnknownVariant, g.Kind)
	}
}

func (g *GroupingConfig) UnmarshalJSON(data []byte) error {
	tag, err := readTag(data)
	if err != nil {
		return err
	}
	switch GroupingKind(tag) {
	case GroupingByColumns:
		var v struct {
			Type    string `json:"type"`
			Columns []int  `json:"columns"`
		}
		if err := strictUnmarshal(data, &v); err != nil {
			return err
		}
		*g = GroupingConfig{Kind: GroupingByColumns, Columns: v.Columns}
		return nil
	default:
		return fmt.Errorf("%w: grouping type %q", ErrUnknownVariant, tag)
	}
}

type BatchingKind string

const (
	BatchingFixed BatchingKind = "Fixed"
)

// BatchingConfig is the closed union of batching policies.
type BatchingConfig struct {
	Kind      BatchingKind
	BatchSize int
}

func (b BatchingConfig) CheckInvariants() error {
	if b.BatchSize <= 0 {
		return fmt.Errorf("batch size should be a positive number, got %d", b.BatchSize)
	}
	return nil
}

func (b BatchingConfig) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case BatchingFixed:
		return json.Marshal(struct {
			Type      BatchingKind `json:"type"`
			BatchSize int          `json:"batch_size"`
		}{Type: b.Kind, BatchSize: b.BatchSize})
	default:
		return nil, fmt.Errorf("%w: batching type %q", ErrUnknownVariant, b.Kind)
	}
}

func (b *BatchingConfig) UnmarshalJSON(data []byte) error {
	tag, err := readTag(data)
	if err != nil {
		return err
	}
	switch BatchingKind(tag) {
	case BatchingFixed:
		var v struct {
			Type      string `json:"type"`
			BatchSize int    `json:"batch_size"`
		}
		if err := strictUnmarshal(data, &v); err != nil {
			return err
		}
		*b = BatchingConfig{Kind: BatchingFixed, BatchSize: v.BatchSize}
		return nil
	default:
		return fmt.Errorf("%w: batching type %q", ErrUnknownVariant, tag)
	}
}

// FileDestination is a delivery target attached to exactly one file source.
type FileDestination struct {
	ID             int64             `json:"id"`
	FileSourceID   int64             `json:"file_source_id"`
	Identifier     string            `json:"identifier"`
	Destination    DestinationConfig `json:"destination"`
	IncludeHeaders bool              `json:"include_headers"`
	Grouping       *GroupingConfig   `json:"grouping"`
	Batching       *BatchingConfig   `json:"batching"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      *time.Time        `json:"updated_at"`
}

// DecodeDestinationConfig decodes the stored destination column.
func DecodeDestinationConfig(data []byte) (DestinationConfig, error) {
	var d DestinationConfig
	err := decodeStored("destination", data, func(b []byte) error {
		return json.Unmarshal(b, &d)
	})
	return d, err
}

// DecodeGroupingConfig decodes the stored grouping column; null means no grouping.
func DecodeGroupingConfig(data []byte) (*GroupingConfig, error) {
	if isNullJSON(data) {
		return nil, nil
	}
	var g GroupingConfig
	if err := decodeStored("grouping", data, func(b []byte) error {
		if err := json.Unmarshal(b, &g); err != nil {
			return err
		}
		return g.CheckInvariants()
	}); err != nil {
		return nil, err
	}
	return &g, nil
}

// DecodeBatchingConfig decodes the stored batching column; null means no batching.
func DecodeBatchingConfig(data []byte) (*BatchingConfig, error) {
	if isNullJSON(data) {
		return nil, nil
	}
	var b BatchingConfig
	if err := decodeStored("batching", data, func(raw []byte) error {
		if err := json.Unmarshal(raw, &b); err != nil {
			return err
		}
		return b.CheckInvariants()
	}); err != nil {
		return nil, err
	}
	return &b, nil
}
