package csveer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/csveer/csveer/model"
)

func fileSourceCacheKey(contextName, identifier string) string {
	return fmt.Sprintf("file_source:%s:%s", contextName, identifier)
}

// ResolveFileSource finds the file source an object key points at. A missing source
// comes back as a NOT_FOUND APIError. Cache failures only cost a database read.
func (c *Csveer) ResolveFileSource(ctx context.Context, contextName, identifier string) (*model.FileSource, error) {
	key := fileSourceCacheKey(contextName, identifier)

	if c.cache != nil {
		var cached model.FileSource
		found, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("file source cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	source, err := c.datasource.GetFileSource(ctx, contextName, identifier)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, source, c.cacheTTL); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("file source cache write failed")
		}
	}
	return source, nil
}
