// Package s3event turns S3 bucket notifications delivered over SQS into the
// object keys the pipeline fans out.
package s3event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

const objectCreatedPrefix = "ObjectCreated"

// ErrMalformedObjectKey is returned for keys that are not {context}/{source}/{file}.
var ErrMalformedObjectKey = errors.New("malformed object key")

// Record is the part of an S3 event record the pipeline needs.
type Record struct {
	EventName string
	Bucket    string
	// Key is URL-decoded.
	Key       string
	Sequencer string
	ETag      string
}

// ObjectKey is a parsed upload key.
type ObjectKey struct {
	Context              string
	FileSourceIdentifier string
	FileName             string
}

// Decode parses a notification body. ok is false when the body is not an S3 event
// envelope; such messages are dropped by the caller. A valid envelope may carry zero
// records (the s3:TestEvent sent when a notification is configured). Keys are
// unescaped while the envelope is decoded, so one key that is not valid form
// encoding makes the whole body unparseable and every record in it is dropped.
func Decode(body string) (records []Record, ok bool) {
	var event events.S3Event
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return nil, false
	}

	records = make([]Record, 0, len(event.Records))
	for _, r := range event.Records {
		records = append(records, Record{
			EventName: strings.TrimPrefix(r.EventName, "s3:"),
			Bucket:    r.S3.Bucket.Name,
			Key:       r.S3.Object.URLDecodedKey,
			Sequencer: r.S3.Object.Sequencer,
			ETag:      r.S3.Object.ETag,
		})
	}
	return records, true
}

func (r Record) IsObjectCreated() bool {
	return strings.HasPrefix(r.EventName, objectCreatedPrefix)
}

// ObjectVersion identifies this particular write of the object. The sequencer is
// unique per PUT on a key; ETag is the fallback for events without one.
func (r Record) ObjectVersion() string {
	if r.Sequencer != "" {
		return r.Sequencer
	}
	return strings.Trim(r.ETag, `"`)
}

// ParseObjectKey splits key on its first two separators. The file name keeps any
// further slashes.
func ParseObjectKey(key string) (ObjectKey, error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ObjectKey{}, fmt.Errorf("%w: %q", ErrMalformedObjectKey, key)
	}
	return ObjectKey{
		Context:              parts[0],
		FileSourceIdentifier: parts[1],
		FileName:             parts[2],
	}, nil
}

// Key renders the object key an upload is stored under.
func (k ObjectKey) Key() string {
	return k.Context + "/" + k.FileSourceIdentifier + "/" + k.FileName
}
