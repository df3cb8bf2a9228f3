package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SourceKind string

const (
	// SourceHttpPassive accepts files pushed through the upload endpoint.
	SourceHttpPassive SourceKind = "HttpPassive"
)

// SourceType is the closed set of ways a file source receives files.
type SourceType struct {
	Kind SourceKind
}

func (s SourceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type SourceKind `json:"type"`
	}{Type: s.Kind})
}

func (s *SourceType) UnmarshalJSON(data []byte) error {
	tag, err := readTag(data)
	if err != nil {
		return err
	}
	switch SourceKind(tag) {
	case SourceHttpPassive:
		var v struct {
			Type string `json:"type"`
		}
		if err := strictUnmarshal(data, &v); err != nil {
			return err
		}
		s.Kind = SourceHttpPassive
		return nil
	default:
		return fmt.Errorf("%w: source type %q", ErrUnknownVariant, tag)
	}
}

// Compression describes how uploaded files of a source are compressed. On the wire
// an uncompressed source is the literal false, a compressed one is
// {"type": "<algorithm>", "password": "..."}.
type Compression struct {
	Compressed bool
	Algorithm  string
	Password   *string
}

type compressedWire struct {
	Type     string  `json:"type"`
	Password *string `json:"password,omitempty"`
}

func (c Compression) MarshalJSON() ([]byte, error) {
	if !c.Compressed {
		return []byte("false"), nil
	}
	return json.Marshal(compressedWire{Type: c.Algorithm, Password: c.Password})
}

func (c *Compression) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		if flag {
			return errors.New("compression must be false or an object with a type")
		}
		*c = Compression{}
		return nil
	}
	var wire compressedWire
	if err := strictUnmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Type == "" {
		return errors.New(`compressed configuration is missing its "type"`)
	}
	*c = Compression{Compressed: true, Algorithm: wire.Type, Password: wire.Password}
	return nil
}

// FileSource is a named ingestion point within a context.
type FileSource struct {
	ID          int64        `json:"id"`
	Context     string       `json:"context"`
	Identifier  string       `json:"identifier"`
	Description string       `json:"description"`
	Source      SourceType   `json:"source"`
	Headers     bool         `json:"headers"`
	Compression *Compression `json:"compression"`
	HideColumns []int        `json:"hide_columns"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at"`
}

// DecodeSourceType decodes the stored source column.
func DecodeSourceType(data []byte) (SourceType, error) {
	var s SourceType
	err := decodeStored("source", data, func(b []byte) error {
		return json.Unmarshal(b, &s)
	})
	return s, err
}

// DecodeCompression decodes the stored compression column. SQL/JSON null means the
// source never declared a compression.
func DecodeCompression(data []byte) (*Compression, error) {
	if isNullJSON(data) {
		return nil, nil
	}
	var c Compression
	if err := decodeStored("compression", data, func(b []byte) error {
		return json.Unmarshal(b, &c)
	}); err != nil {
		return nil, err
	}
	return &c, nil
}
