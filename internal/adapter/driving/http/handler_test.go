package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/otpdeck/internal/adapter/driving/http"
	"github.com/ericfisherdev/otpdeck/internal/domain/model"
)

// --- Mock implementations ---

type mockConfigStager struct {
	staged   *model.Upload
	stageErr error
	count    int
	panicMsg string
}

func (m *mockConfigStager) StageUpload(_ context.Context, upload model.Upload) (int, error) {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.stageErr != nil {
		return 0, m.stageErr
	}
	m.staged = &upload
	return len(upload.Accounts), nil
}

func (m *mockConfigStager) Count(_ context.Context) int {
	return m.count
}

// --- Test helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRouter(configs httphandler.ConfigStager) httphandler.HandlerFunc {
	h := httphandler.NewHandler(configs, []byte("<html>page</html>"), discardLogger())
	return httphandler.NewRouter(h, discardLogger())
}

func errorBody(t *testing.T, resp httphandler.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	return body.Error
}

// --- Tests ---

func TestRouter_Index(t *testing.T) {
	route := setupRouter(&mockConfigStager{})

	resp := route(context.Background(), &httphandler.Request{Method: "GET", Path: "/"})

	assert.Equal(t, httphandler.StatusOK, resp.Status)
	assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)
	assert.Equal(t, "<html>page</html>", string(resp.Body))
}

func TestRouter_NotFound(t *testing.T) {
	route := setupRouter(&mockConfigStager{})

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/missing"},
		{"GET", "/upload_config"},
		{"POST", "/status"},
		{"DELETE", "/"},
		{"get", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := route(context.Background(), &httphandler.Request{Method: tt.method, Path: tt.path})

			assert.Equal(t, httphandler.StatusNotFound, resp.Status)
			assert.Equal(t, "text/plain", resp.ContentType)
			assert.Equal(t, "Not Found", string(resp.Body))
		})
	}
}

func TestRouter_Status(t *testing.T) {
	route := setupRouter(&mockConfigStager{count: 4})

	resp := route(context.Background(), &httphandler.Request{Method: "GET", Path: "/status"})
	require.Equal(t, httphandler.StatusOK, resp.Status)
	assert.Equal(t, "application/json", resp.ContentType)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(4), body["accounts_configured"])
	assert.Contains(t, body, "free_memory")
}

func TestRouter_UploadConfig(t *testing.T) {
	mock := &mockConfigStager{}
	route := setupRouter(mock)

	body := `{"accounts":[{"name":"Mail","issuer":"","secret":"jbswy3dpehpk3pxp","digits":6,"period":30}]}`
	resp := route(context.Background(), &httphandler.Request{Method: "POST", Path: "/upload_config", Body: []byte(body)})

	require.Equal(t, httphandler.StatusOK, resp.Status)

	var got httphandler.UploadResponse
	require.NoError(t, json.Unmarshal(resp.Body, &got))
	assert.Equal(t, "success", got.Status)
	assert.Equal(t, 1, got.AccountsCount)
	assert.NotEmpty(t, got.Message)

	require.NotNil(t, mock.staged)
	require.Len(t, mock.staged.Accounts, 1)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", mock.staged.Accounts[0].Secret)
	assert.Nil(t, mock.staged.Settings)
}

func TestRouter_UploadConfigRejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		stageErr   error
		wantStatus int
		wantError  string
	}{
		{name: "empty body", body: "", wantStatus: 400, wantError: "no data"},
		{name: "whitespace body", body: " \r\n", wantStatus: 400, wantError: "no data"},
		{name: "not json", body: "{accounts", wantStatus: 400, wantError: "invalid json"},
		{name: "missing accounts", body: `{"users":[]}`, wantStatus: 400, wantError: "invalid configuration format"},
		{name: "accounts not a list", body: `{"accounts":{}}`, wantStatus: 400, wantError: "invalid configuration format"},
		{name: "top-level array", body: `[1,2]`, wantStatus: 400, wantError: "invalid configuration format"},
		{name: "mistyped record", body: `{"accounts":[{"name":"a","secret":"ABC","digits":"six"}]}`, wantStatus: 400, wantError: "account 0: malformed record"},
		{
			name:       "validation failure from store",
			body:       `{"accounts":[]}`,
			stageErr:   &model.ValidationError{Index: 2, Field: "digits", Reason: "digits must be 6 or 8"},
			wantStatus: 400,
			wantError:  "account 2: digits must be 6 or 8",
		},
		{
			name:       "store failure",
			body:       `{"accounts":[]}`,
			stageErr:   errors.New("disk full"),
			wantStatus: 500,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockConfigStager{stageErr: tt.stageErr}
			route := setupRouter(mock)

			resp := route(context.Background(), &httphandler.Request{Method: "POST", Path: "/upload_config", Body: []byte(tt.body)})

			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantError, errorBody(t, resp))
		})
	}
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	route := setupRouter(&mockConfigStager{panicMsg: "boom"})

	resp := route(context.Background(), &httphandler.Request{Method: "POST", Path: "/upload_config", Body: []byte(`{"accounts":[]}`)})

	assert.Equal(t, httphandler.StatusInternalServerError, resp.Status)
	assert.Equal(t, "internal server error", errorBody(t, resp))
}
