package csveer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/csveer/csveer/database/mocks"
	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

func TestUploadFiles(t *testing.T) {
	ds := &mocks.MockDataSource{}
	store := &fakeObjectStore{}
	c, _ := newTestCsveer(t, ds, WithObjectStore(store))

	source := newFileSource("banking", "daily-transfer-csv")
	ds.On("GetFileSource", mock.Anything, "banking", "daily-transfer-csv").Return(source, nil)
	ds.On("GetFileDestinations", mock.Anything, source.ID).Return([]*model.FileDestination{
		newFileDestination(11, source.ID, "sqs-a"),
		newFileDestination(12, source.ID, "sqs-b"),
	}, nil)

	result, err := c.UploadFiles(context.Background(), "banking", "daily-transfer-csv", []FileUpload{
		{Name: "report.csv", ContentType: "text/csv", Body: strings.NewReader("id,amount\n1,10\n")},
		{Name: "", Body: strings.NewReader("ignored")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sqs-a", "sqs-b"}, result.FileDestinationsAffected)

	assert.Equal(t, map[string]string{"banking/daily-transfer-csv/report.csv": "id,amount\n1,10\n"}, store.objects)
}

func TestUploadFiles_UnknownSource(t *testing.T) {
	ds := &mocks.MockDataSource{}
	store := &fakeObjectStore{}
	c, _ := newTestCsveer(t, ds, WithObjectStore(store))

	ds.On("GetFileSource", mock.Anything, "banking", "missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "not found", nil))

	_, err := c.UploadFiles(context.Background(), "banking", "missing", []FileUpload{
		{Name: "report.csv", Body: strings.NewReader("id\n")},
	})
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrBadRequest))
	assert.EqualError(t, err, "BAD_REQUEST: No file source found for context banking and identifier missing")
	assert.Empty(t, store.objects)
}

func TestUploadFiles_StorageFailure(t *testing.T) {
	ds := &mocks.MockDataSource{}
	store := &fakeObjectStore{err: errors.New("access denied")}
	c, _ := newTestCsveer(t, ds, WithObjectStore(store))

	source := newFileSource("banking", "daily-transfer-csv")
	ds.On("GetFileSource", mock.Anything, "banking", "daily-transfer-csv").Return(source, nil)

	_, err := c.UploadFiles(context.Background(), "banking", "daily-transfer-csv", []FileUpload{
		{Name: "report.csv", Body: strings.NewReader("id\n")},
	})
	assert.True(t, apierror.Is(err, apierror.ErrInternalServer))
	ds.AssertNotCalled(t, "GetFileDestinations", mock.Anything, mock.Anything)
}
