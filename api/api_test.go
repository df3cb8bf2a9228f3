package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/csveer/csveer"
	"github.com/csveer/csveer/config"
	"github.com/csveer/csveer/database"
	"github.com/csveer/csveer/database/mocks"
	"github.com/csveer/csveer/internal/apierror"
	"github.com/csveer/csveer/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) *httptest.ResponseRecorder {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		_ = json.NewDecoder(resp.Body).Decode(s.Response)
	}
	return resp
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.DispatchMessage) error { return nil }

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func setupRouter(t *testing.T) (*gin.Engine, *mocks.MockDataSource, *memoryStore) {
	config.MockConfig(&config.Configuration{
		Recovery: config.RecoveryConfig{
			PollIntervalSeconds:   60,
			StaleThresholdSeconds: 300,
			MaxRecoveryAttempts:   3,
			BatchSize:             100,
			Workers:               2,
		},
	})

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ds := &mocks.MockDataSource{}
	store := &memoryStore{}
	service, err := csveer.NewCsveer(ds,
		csveer.WithRedis(client),
		csveer.WithPublisher(nopPublisher{}),
		csveer.WithObjectStore(store),
	)
	require.NoError(t, err)

	return NewAPI(service).Router(), ds, store
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestCreateContext(t *testing.T) {
	router, ds, _ := setupRouter(t)

	ds.On("CreateContext", mock.Anything, "banking").
		Return(&model.Context{ID: 1, Name: "banking", CreatedAt: time.Now()}, nil).Once()
	ds.On("CreateContext", mock.Anything, "retail").
		Return(nil, apierror.NewAPIError(apierror.ErrConflict, "A context with name 'retail' already exists.", nil)).Once()

	tests := []struct {
		name         string
		payload      map[string]string
		expectedCode int
		wantMessage  string
	}{
		{name: "created", payload: map[string]string{"name": "banking"}, expectedCode: http.StatusCreated},
		{name: "duplicate", payload: map[string]string{"name": "retail"}, expectedCode: http.StatusConflict, wantMessage: "A context with name 'retail' already exists."},
		{name: "invalid name", payload: map[string]string{"name": "bank ing"}, expectedCode: http.StatusBadRequest, wantMessage: "Invalid context name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var response map[string]interface{}
			resp := SetUpTestRequest(TestRequest{
				Payload:  jsonBody(t, tt.payload),
				Router:   router,
				Response: &response,
				Method:   http.MethodPost,
				Route:    "/context",
			})
			assert.Equal(t, tt.expectedCode, resp.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, response["message"])
			}
		})
	}
}

func TestCreateFileSource(t *testing.T) {
	router, ds, _ := setupRouter(t)

	ds.On("CreateFileSource", mock.Anything, mock.MatchedBy(func(s *model.FileSource) bool {
		return s.Context == "banking" && s.Identifier == "daily-transfer-csv" && s.Compression != nil && !s.Compression.Compressed
	})).Return(&model.FileSource{
		ID: 3, Context: "banking", Identifier: "daily-transfer-csv",
		Source: model.SourceType{Kind: model.SourceHttpPassive}, Compression: &model.Compression{},
	}, nil)

	var response model.FileSource
	resp := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(`{"context":"banking","identifier":"daily-transfer-csv","description":"` +
			gofakeit.Sentence(4) + `","source":{"type":"HttpPassive"},"headers":true,"compression":false}`),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/source",
	})

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, int64(3), response.ID)
	ds.AssertExpectations(t)
}

func TestCreateFileSource_UnknownSourceType(t *testing.T) {
	router, ds, _ := setupRouter(t)

	var response apierror.Response
	resp := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBufferString(`{"context":"banking","identifier":"daily","source":{"type":"Ftp"}}`),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/source",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Invalid request body", response.Message)
	ds.AssertNotCalled(t, "CreateFileSource", mock.Anything, mock.Anything)
}

func TestCreateFileDestination(t *testing.T) {
	router, ds, _ := setupRouter(t)

	source := &model.FileSource{ID: 3, Context: "banking", Identifier: "daily-transfer-csv"}
	ds.On("GetFileSource", mock.Anything, "banking", "daily-transfer-csv").Return(source, nil)
	ds.On("GetFileSource", mock.Anything, "banking", "missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "not found", nil))
	ds.On("CreateFileDestination", mock.Anything, mock.Anything).
		Return(&model.FileDestination{ID: 11, FileSourceID: 3, Identifier: "sqs-a"}, nil)

	valid := `{"identifier":"sqs-a","destination":{"type":"SQS","queue_url":"https://sqs.us-east-1.amazonaws.com/123456789012/sqs-a"}}`

	tests := []struct {
		name         string
		route        string
		payload      string
		expectedCode int
		wantMessage  string
		wantDetails  []string
	}{
		{name: "created", route: "/banking/daily-transfer-csv/destination", payload: valid, expectedCode: http.StatusCreated},
		{
			name:         "unknown source",
			route:        "/banking/missing/destination",
			payload:      valid,
			expectedCode: http.StatusBadRequest,
			wantMessage:  "File source with context banking and identifier missing does not exist.",
		},
		{
			name:  "duplicate grouping column",
			route: "/banking/daily-transfer-csv/destination",
			payload: `{"identifier":"sqs-a","destination":{"type":"SQS","queue_url":"https://sqs.us-east-1.amazonaws.com/123456789012/sqs-a"},` +
				`"grouping":{"type":"GroupedByColumns","columns":[1,2,2]}}`,
			expectedCode: http.StatusBadRequest,
			wantMessage:  "Column grouping configuration is invalid",
			wantDetails:  []string{"Column index 2 appears twice in columns list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var response apierror.Response
			resp := SetUpTestRequest(TestRequest{
				Payload:  bytes.NewBufferString(tt.payload),
				Router:   router,
				Response: &response,
				Method:   http.MethodPost,
				Route:    tt.route,
			})
			assert.Equal(t, tt.expectedCode, resp.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, response.Message)
			}
			if tt.wantDetails != nil {
				assert.Equal(t, tt.wantDetails, response.Details)
			}
		})
	}
}

func multipartUpload(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.WriteField("note", "not a file"))
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUploadFiles(t *testing.T) {
	router, ds, store := setupRouter(t)

	source := &model.FileSource{ID: 3, Context: "banking", Identifier: "daily-transfer-csv"}
	ds.On("GetFileSource", mock.Anything, "banking", "daily-transfer-csv").Return(source, nil)
	ds.On("GetFileDestinations", mock.Anything, int64(3)).Return([]*model.FileDestination{
		{ID: 11, FileSourceID: 3, Identifier: "sqs-a"},
		{ID: 12, FileSourceID: 3, Identifier: "sqs-b"},
	}, nil)

	body, contentType := multipartUpload(t, map[string]string{"report.csv": "id,amount\n1,10\n"})
	var response csveer.UploadResult
	resp := SetUpTestRequest(TestRequest{
		Payload:  body,
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/banking/daily-transfer-csv/upload",
		Header:   map[string]string{"Content-Type": contentType},
	})

	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, []string{"sqs-a", "sqs-b"}, response.FileDestinationsAffected)
	assert.Equal(t, "id,amount\n1,10\n", string(store.objects["banking/daily-transfer-csv/report.csv"]))
}

func TestUploadFiles_UnknownSource(t *testing.T) {
	router, ds, store := setupRouter(t)

	ds.On("GetFileSource", mock.Anything, "banking", "missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "not found", nil))

	body, contentType := multipartUpload(t, map[string]string{"report.csv": "id\n"})
	var response apierror.Response
	resp := SetUpTestRequest(TestRequest{
		Payload:  body,
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/banking/missing/upload",
		Header:   map[string]string{"Content-Type": contentType},
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "No file source found for context banking and identifier missing", response.Message)
	assert.Empty(t, store.objects)
}

func TestGetDataDispatch(t *testing.T) {
	router, ds, _ := setupRouter(t)

	ds.On("GetDataDispatch", mock.Anything, int64(7)).
		Return(&model.DataDispatch{ID: 7, Status: model.DispatchPendingExecution}, nil)
	ds.On("GetDataDispatch", mock.Anything, int64(8)).
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Data dispatch with ID '8' not found", nil))

	var found model.DataDispatch
	resp := SetUpTestRequest(TestRequest{Router: router, Response: &found, Method: http.MethodGet, Route: "/dispatches/7"})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.DispatchPendingExecution, found.Status)

	resp = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/dispatches/8"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/dispatches/abc"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListDataDispatches(t *testing.T) {
	router, ds, _ := setupRouter(t)

	ds.On("ListDataDispatches", mock.Anything, mock.MatchedBy(func(f database.DispatchFilter) bool {
		return f.Status != nil && *f.Status == model.DispatchFailed &&
			f.FileDestinationID != nil && *f.FileDestinationID == 11 &&
			f.Limit == 100 && f.Offset == 5
	})).Return([]*model.DataDispatch{{ID: 7, Status: model.DispatchFailed}}, nil)

	var response []model.DataDispatch
	resp := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/dispatches?status=Failed&file_destination_id=11&limit=500&offset=5",
	})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, response, 1)

	var invalid apierror.Response
	resp = SetUpTestRequest(TestRequest{Router: router, Response: &invalid, Method: http.MethodGet, Route: "/dispatches?status=Done"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, []string{"Unknown status 'Done'"}, invalid.Details)
}

func TestRecordDispatchExecution(t *testing.T) {
	router, ds, _ := setupRouter(t)

	ds.On("RecordDispatchExecution", mock.Anything, int64(7), model.ExecutionFailure, "queue timeout").
		Return(&model.DataDispatch{ID: 7, Status: model.DispatchFailed},
			&model.DataDispatchExecution{ID: 1, DataDispatchID: 7, Status: model.ExecutionFailure, Message: "queue timeout"}, nil)
	ds.On("RecordDispatchExecution", mock.Anything, int64(9), model.ExecutionSuccess, "").
		Return(nil, nil, apierror.NewAPIError(apierror.ErrConflict, "Data dispatch 9 is already Finished", nil))

	var response map[string]map[string]interface{}
	resp := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBufferString(`{"status":"Failure","message":"queue timeout"}`),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/dispatches/7/executions",
	})
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Failed", response["data_dispatch"]["status"])

	resp = SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(`{"status":"Success"}`),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/dispatches/9/executions",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(`{"status":"Maybe"}`),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/dispatches/9/executions",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListDispatchExecutions(t *testing.T) {
	router, ds, _ := setupRouter(t)

	ds.On("GetDataDispatch", mock.Anything, int64(7)).Return(&model.DataDispatch{ID: 7}, nil)
	ds.On("ListDispatchExecutions", mock.Anything, int64(7)).Return([]*model.DataDispatchExecution{
		{ID: 1, DataDispatchID: 7, Status: model.ExecutionFailure},
		{ID: 2, DataDispatchID: 7, Status: model.ExecutionSuccess},
	}, nil)

	var response []model.DataDispatchExecution
	resp := SetUpTestRequest(TestRequest{Router: router, Response: &response, Method: http.MethodGet, Route: "/dispatches/7/executions"})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, response, 2)
}

func TestRecoverDispatches(t *testing.T) {
	router, ds, _ := setupRouter(t)

	ds.On("GetStalePendingDispatches", mock.Anything, mock.Anything, 3, 100).Return([]*model.DataDispatch{}, nil)

	var response map[string]int
	resp := SetUpTestRequest(TestRequest{Router: router, Response: &response, Method: http.MethodPost, Route: "/admin/recover-dispatches?threshold=10m"})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, response["recovered"])

	resp = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: "/admin/recover-dispatches?threshold=soon"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
