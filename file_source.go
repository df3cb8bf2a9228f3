package csveer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/csveer/csveer/model"
)

// CreateFileSource creates the source and, when it does not exist yet, its context in
// the same transaction.
func (c *Csveer) CreateFileSource(ctx context.Context, source *model.FileSource) (*model.FileSource, error) {
	created, err := c.datasource.CreateFileSource(ctx, source)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		// A stale entry can only exist if a source with this pair was removed out of band.
		if err := c.cache.Delete(ctx, fileSourceCacheKey(created.Context, created.Identifier)); err != nil {
			logrus.WithError(err).Warn("failed to evict file source cache entry")
		}
	}
	return created, nil
}

func (c *Csveer) GetFileSource(ctx context.Context, contextName, identifier string) (*model.FileSource, error) {
	return c.ResolveFileSource(ctx, contextName, identifier)
}
