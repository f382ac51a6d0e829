package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	err := NotFoundError("year 2031")
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "NOT_FOUND", err.ErrorCode)
	assert.Equal(t, "year 2031 not found", err.Error())
	assert.Equal(t, "year 2031", err.Details)

	validation := ErrValidation("limit", "must be a non-negative integer")
	assert.Equal(t, http.StatusBadRequest, validation.StatusCode)
	assert.Equal(t, ValidationError{Field: "limit", Message: "must be a non-negative integer"}, validation.Details)
}

func TestAPIError_Is(t *testing.T) {
	assert.ErrorIs(t, NotFoundError("year 2031"), ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("lookup: %w", NotFoundError("file \"x.xls\"")), ErrNotFound)
	assert.ErrorIs(t, ErrValidation("limit", "bad"), ErrValidationFailed)
	assert.ErrorIs(t, InvalidRequestWithError(errors.New("bad year")), ErrInvalidRequest)
	assert.NotErrorIs(t, NotFoundError("year 2031"), ErrRateLimitExceeded)
	assert.NotErrorIs(t, errors.New("not found"), ErrNotFound)
}

func TestAPIErrorToProblem(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/datasets/years", nil)

	problem := APIErrorToProblem(ErrRateLimitExceeded.WithDetails("Rate limit exceeded. Please retry after 2 seconds", nil), r)
	assert.Equal(t, http.StatusTooManyRequests, problem.Status)
	assert.Equal(t, TypeRateLimit, problem.Type)
	assert.Equal(t, "Too Many Requests", problem.Title)
	assert.Equal(t, "Rate limit exceeded. Please retry after 2 seconds", problem.Detail)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", problem.Extensions["error_code"])
	assert.NotContains(t, problem.Extensions, "details")

	problem = APIErrorToProblem(NotFoundError("year 2031"), r)
	assert.Equal(t, TypeNotFound, problem.Type)
	assert.Equal(t, "year 2031", problem.Extensions["details"])

	problem = APIErrorToProblem(New(http.StatusConflict, "CONFLICT", "conflict"), r)
	assert.Equal(t, TypeInternal, problem.Type)
	assert.Equal(t, http.StatusConflict, problem.Status)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadGateway, TypeIndexUnavailable, "Dataset Index Unavailable", "", "/api/datasets/years").
		WithExtension("upstream_status", 403).
		WithExtension("status", 999)

	b, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &body))
	assert.Equal(t, TypeIndexUnavailable, body["type"])
	assert.Equal(t, float64(http.StatusBadGateway), body["status"], "extensions never override standard members")
	assert.Equal(t, float64(403), body["upstream_status"])
	assert.NotContains(t, body, "detail")
}
