package csveer

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/internal/s3event"
)

// FileUpload is one file of an upload request.
type FileUpload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadResult lists the destinations that will receive the uploaded files.
type UploadResult struct {
	FileDestinationsAffected []string `json:"file_destinations_affected"`
}

// UploadFiles stores each file at {context}/{source}/{name}, where the storage
// notification picks it up. Nothing is stored for an unknown pair. Files without a
// name are ignored.
func (c *Csveer) UploadFiles(ctx context.Context, contextName, identifier string, files []FileUpload) (*UploadResult, error) {
	source, err := c.datasource.GetFileSource(ctx, contextName, identifier)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			message := fmt.Sprintf("No file source found for context %s and identifier %s", contextName, identifier)
			logrus.Error(message)
			return nil, apierror.NewAPIError(apierror.ErrBadRequest, message, err)
		}
		return nil, err
	}

	for _, file := range files {
		if file.Name == "" {
			logrus.Info("File had no file name.")
			continue
		}
		key := s3event.ObjectKey{Context: contextName, FileSourceIdentifier: identifier, FileName: file.Name}.Key()
		if err := c.objects.Put(ctx, key, file.Body, file.ContentType); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to store uploaded file", err)
		}
		logrus.WithField("key", key).Info("file stored for ingestion")
	}

	destinations, err := c.datasource.GetFileDestinations(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	result := &UploadResult{FileDestinationsAffected: make([]string, 0, len(destinations))}
	for _, d := range destinations {
		result.FileDestinationsAffected = append(result.FileDestinationsAffected, d.Identifier)
	}
	return result, nil
}
