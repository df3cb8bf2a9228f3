package csveer

import (
	"context"

	"github.com/csveer/csveer/model"
)

// CreateContext fails with a CONFLICT error when the name is taken.
func (c *Csveer) CreateContext(ctx context.Context, name string) (*model.Context, error) {
	return c.datasource.CreateContext(ctx, name)
}
