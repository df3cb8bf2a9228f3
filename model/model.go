package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a suffix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New() // Generate a new UUID.
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr) // Append the module as a suffix to the UUID.
	return idWithSuffix
}

// IsIdentifier reports whether value is a non-empty string made only of ASCII
// letters, digits and hyphens. Context names and source/destination identifiers
// share this rule because they become segments of the object key.
func IsIdentifier(value string) bool {
	if value == "" {
		return false
	}
	return InvalidIdentifierChar(value) == 0
}

// InvalidIdentifierChar returns the first rune of value that is not allowed in an
// identifier, or 0 when every rune is allowed.
func InvalidIdentifierChar(value string) rune {
	for _, c := range value {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			continue
		default:
			return c
		}
	}
	return 0
}

// NewIdempotencyKey derives the deterministic key attached to a dispatch instruction.
// The object version (S3 sequencer or ETag) keeps redeliveries of one notification on
// the same key while a re-upload of the same file name gets a new one.
func NewIdempotencyKey(context, fileSource, fileDestination, fileName, objectVersion string) string {
	data := strings.Join([]string{context, fileSource, fileDestination, fileName, objectVersion}, "\x00")
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
