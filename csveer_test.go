package csveer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/csveer/csveer/config"
	"github.com/csveer/csveer/database"
	"github.com/csveer/csveer/model"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []model.DispatchMessage
	failFor   map[string]error
}

func (f *fakePublisher) Publish(_ context.Context, m model.DispatchMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[m.FileDestinationIdentifier]; ok {
		return err
	}
	f.published = append(f.published, m)
	return nil
}

func (f *fakePublisher) messages() []model.DispatchMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.DispatchMessage(nil), f.published...)
}

type fakeObjectStore struct {
	objects map[string]string
	err     error
}

func (f *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[key] = string(data)
	return nil
}

func newTestConfig() *config.Configuration {
	return &config.Configuration{
		Dispatch: config.DispatchConfig{
			QueueUrl:                 "https://sqs.us-east-1.amazonaws.com/123456789012/dispatches",
			PublishMaxElapsedSeconds: 1,
			BreakerFailureThreshold:  5,
			BreakerTimeoutSeconds:    30,
		},
		Recovery: config.RecoveryConfig{
			PollIntervalSeconds:   60,
			StaleThresholdSeconds: 300,
			MaxRecoveryAttempts:   3,
			BatchSize:             100,
			Workers:               2,
		},
	}
}

func newTestDataSource(t *testing.T) (database.IDataSource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &database.Datasource{Conn: db}, mock
}

// newTestCsveer builds a service on miniredis with in-memory publisher and object
// store. opts override those defaults.
func newTestCsveer(t *testing.T, ds database.IDataSource, opts ...Option) (*Csveer, *miniredis.Miniredis) {
	config.MockConfig(newTestConfig())

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	defaults := []Option{
		WithRedis(client),
		WithPublisher(&fakePublisher{}),
		WithObjectStore(&fakeObjectStore{}),
	}
	c, err := NewCsveer(ds, append(defaults, opts...)...)
	require.NoError(t, err)
	return c, server
}

func newFileSource(contextName, identifier string) *model.FileSource {
	return &model.FileSource{
		ID:          gofakeit.Int64(),
		Context:     contextName,
		Identifier:  identifier,
		Description: gofakeit.Sentence(5),
		Source:      model.SourceType{Kind: model.SourceHttpPassive},
		Headers:     true,
	}
}

func newFileDestination(id, sourceID int64, identifier string) *model.FileDestination {
	return &model.FileDestination{
		ID:           id,
		FileSourceID: sourceID,
		Identifier:   identifier,
		Destination:  model.NewSQSDestination(fmt.Sprintf("https://sqs.us-east-1.amazonaws.com/123456789012/%s", identifier)),
	}
}

func s3Notification(eventName, key, sequencer string) string {
	return fmt.Sprintf(`{"Records":[{"eventVersion":"2.1","eventSource":"aws:s3","eventName":%q,`+
		`"s3":{"bucket":{"name":"pending-csv-files"},"object":{"key":%q,"size":42,"sequencer":%q}}}]}`,
		eventName, key, sequencer)
}
