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
	"embed"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/csveer/csveer/config"
	"github.com/csveer/csveer/database"
	"github.com/csveer/csveer/internal/awsclient"
	"github.com/csveer/csveer/internal/cache"
	"github.com/csveer/csveer/internal/queue"
	redis_db "github.com/csveer/csveer/internal/redis-db"
	"github.com/csveer/csveer/internal/storage"
	"github.com/csveer/csveer/model"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// Publisher places dispatch instructions on the delivery queue.
type Publisher interface {
	Publish(ctx context.Context, message model.DispatchMessage) error
}

// ObjectStore keeps uploaded files until the ingestion notification is processed.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

// Csveer is the service behind the API, the ingestion listener and the recovery sweep.
type Csveer struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
	cache      cache.Cache
	cacheTTL   time.Duration
	publisher  Publisher
	objects    ObjectStore
	config     *config.Configuration
}

type Option func(*Csveer)

func WithRedis(client redis.UniversalClient) Option {
	return func(c *Csveer) { c.redis = client }
}

// WithCache enables the file source cache. A zero ttl leaves it disabled.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Csveer) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

func WithPublisher(p Publisher) Option {
	return func(c *Csveer) { c.publisher = p }
}

func WithObjectStore(o ObjectStore) Option {
	return func(c *Csveer) { c.objects = o }
}

// NewCsveer wires the service from the loaded configuration. Collaborators passed
// as options are used as given; the rest are built from configuration.
func NewCsveer(db database.IDataSource, opts ...Option) (*Csveer, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	c := &Csveer{datasource: db, config: configuration}
	for _, o := range opts {
		o(c)
	}

	if c.redis == nil {
		redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns})
		if err != nil {
			return nil, err
		}
		c.redis = redisClient.Client()
	}

	if c.cache == nil && configuration.ResolverCacheTTL() > 0 {
		c.cache = cache.NewRedisCache(c.redis, configuration.ResolverCacheTTL())
		c.cacheTTL = configuration.ResolverCacheTTL()
	}

	if c.publisher == nil || c.objects == nil {
		awsCfg, err := awsclient.LoadConfig(context.Background(), configuration.Aws)
		if err != nil {
			return nil, err
		}
		if c.publisher == nil {
			producer, err := queue.NewProducer(awsclient.NewSQS(awsCfg, configuration.Aws.Endpoint), configuration.Dispatch.QueueUrl)
			if err != nil {
				return nil, err
			}
			c.publisher = NewDispatchPublisher(producer, configuration.Dispatch)
		}
		if c.objects == nil {
			store, err := storage.NewObjectStore(
				awsclient.NewS3(awsCfg, configuration.Aws.Endpoint, configuration.Storage.UsePathStyle),
				configuration.Storage.Bucket,
			)
			if err != nil {
				return nil, err
			}
			c.objects = store
		}
	}

	return c, nil
}

// Redis exposes the shared client for the recovery lock.
func (c *Csveer) Redis() redis.UniversalClient {
	return c.redis
}

func (c *Csveer) Config() *config.Configuration {
	return c.config
}
