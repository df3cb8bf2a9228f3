package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownVariant is returned when a tagged configuration carries a type the
	// service does not know about.
	ErrUnknownVariant = errors.New("unknown configuration variant")

	// ErrConfigurationIntegrity marks a stored configuration blob that no longer
	// decodes into its tagged variant. It is a data problem, never a user error.
	ErrConfigurationIntegrity = errors.New("stored configuration failed to decode")
)

type tagEnvelope struct {
	Type *string `json:"type"`
}

// readTag extracts the discriminator of a tagged configuration object.
func readTag(data []byte) (string, error) {
	var env tagEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	if env.Type == nil || *env.Type == "" {
		return "", errors.New(`configuration is missing its "type" tag`)
	}
	return *env.Type, nil
}

// strictUnmarshal decodes data into v rejecting fields v does not declare.
func strictUnmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isNullJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeStored runs fn on a stored blob and tags any failure as an integrity error.
func decodeStored(column string, data []byte, fn func([]byte) error) error {
	if err := fn(data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfigurationIntegrity, column, err)
	}
	return nil
}
