package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagebrowser/internal/remote"
	"wagebrowser/internal/shared/testutil"
	"wagebrowser/internal/spreadsheet"
)

func TestNewErrorHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	handler := NewErrorHandler(logger, true)
	assert.NotNil(t, handler)
	assert.True(t, handler.includeStack)
	assert.NotNil(t, handler.logger)
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	timeout := &remote.ListError{Path: "", Err: fmt.Errorf("get: %w", context.DeadlineExceeded)}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name:       "listing failure",
			err:        &remote.ListError{Path: "", StatusCode: http.StatusForbidden, Err: remote.ErrUnexpectedStatus},
			wantStatus: http.StatusBadGateway,
			wantType:   TypeIndexUnavailable,
			wantTitle:  "Dataset Index Unavailable",
		},
		{
			name:       "listing timeout",
			err:        fmt.Errorf("build year index: %w", timeout),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeUpstreamTimeout,
			wantTitle:  "Data Repository Timeout",
		},
		{
			name:       "fetch not found",
			err:        &remote.FetchError{Path: "oesm23st/gone.xlsx", StatusCode: http.StatusNotFound, Err: remote.ErrUnexpectedStatus},
			wantStatus: http.StatusNotFound,
			wantType:   TypeFileNotFound,
			wantTitle:  "Dataset Not Found",
		},
		{
			name:       "fetch server error",
			err:        &remote.FetchError{Path: "oesm23st/a.xlsx", StatusCode: http.StatusServiceUnavailable, Err: remote.ErrUnexpectedStatus},
			wantStatus: http.StatusBadGateway,
			wantType:   TypeFetchFailed,
			wantTitle:  "Dataset Download Failed",
		},
		{
			name:       "parse failure",
			err:        &spreadsheet.ParseError{Format: spreadsheet.FormatUnknown, Reason: "unrecognised workbook signature"},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeUnreadable,
			wantTitle:  "Dataset Unreadable",
		},
		{
			name:       "APIError not found",
			err:        NotFoundError("year 2031"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Not Found",
		},
		{
			name:       "APIError validation",
			err:        ErrValidation("limit", "must be a non-negative integer"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
		},
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "generic error",
			err:        errors.New("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	handler := NewErrorHandler(testutil.DiscardLogger(), false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/datasets/years", nil)
			problem := handler.ErrorToProblem(tt.err, r)

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.wantTitle, problem.Title)
			assert.Equal(t, "/api/datasets/years", problem.Instance)
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/datasets/years/2023/files", nil)
	handler.HandleError(w, r, &remote.ListError{Path: "oesm23st", StatusCode: http.StatusForbidden, Err: remote.ErrUnexpectedStatus})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeIndexUnavailable, body["type"])
	assert.Equal(t, connectivityHint, body["detail"])
	assert.Equal(t, float64(http.StatusForbidden), body["upstream_status"])
	assert.Contains(t, body, "trace_id")

	testutil.AssertLogContains(t, logHandler, slog.LevelError, "request failed")
	testutil.AssertLogAttr(t, logHandler, "component", "error_handler")
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	handler := NewErrorHandler(testutil.DiscardLogger(), false)
	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, w.Body.Len())
}

func TestErrorHandler_Recoverer(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	panicking := handler.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	panicking.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/site/pages", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "boom", body["panic"])
	assert.True(t, logHandler.ContainsMessage("panic recovered"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	handler := NewErrorHandler(testutil.DiscardLogger(), false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "Method DELETE is not allowed")
}
