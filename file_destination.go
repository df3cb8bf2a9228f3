package csveer

import (
	"context"
	"fmt"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

// CreateFileDestination attaches destination to the file source named by the pair.
// An unknown source is the caller's mistake and comes back as BAD_REQUEST.
func (c *Csveer) CreateFileDestination(ctx context.Context, contextName, sourceIdentifier string, destination *model.FileDestination) (*model.FileDestination, error) {
	source, err := c.datasource.GetFileSource(ctx, contextName, sourceIdentifier)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			return nil, apierror.NewAPIError(apierror.ErrBadRequest,
				fmt.Sprintf("File source with context %s and identifier %s does not exist.", contextName, sourceIdentifier), err)
		}
		return nil, err
	}

	destination.FileSourceID = source.ID
	return c.datasource.CreateFileDestination(ctx, destination)
}

func (c *Csveer) GetFileDestinations(ctx context.Context, contextName, sourceIdentifier string) ([]*model.FileDestination, error) {
	source, err := c.ResolveFileSource(ctx, contextName, sourceIdentifier)
	if err != nil {
		return nil, err
	}
	return c.datasource.GetFileDestinations(ctx, source.ID)
}
