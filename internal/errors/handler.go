package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"wagebrowser/internal/remote"
	"wagebrowser/internal/spreadsheet"
)

// Common error types following RFC 7807
const (
	TypeValidation = "/errors/validation"
	TypeNotFound   = "/errors/not-found"
	TypeRateLimit  = "/errors/rate-limit"
	TypeInternal   = "/errors/internal"
	TypeTimeout    = "/errors/timeout"
)

// Domain-specific error types
const (
	TypeIndexUnavailable = "/errors/dataset/index-unavailable"
	TypeUpstreamTimeout  = "/errors/dataset/upstream-timeout"
	TypeFileNotFound     = "/errors/dataset/not-found"
	TypeFetchFailed      = "/errors/dataset/fetch-failed"
	TypeUnreadable       = "/errors/dataset/unreadable"
)

// connectivityHint is shown whenever the data repository cannot be reached
const connectivityHint = "Could not reach the data repository. Check your internet connection and try again."

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem.WithExtension("trace_id", reqID)
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details. Typed
// remote and parse failures are matched before bare context errors so that
// an upstream deadline is reported as such.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	var (
		apiErr   *APIError
		listErr  *remote.ListError
		fetchErr *remote.FetchError
		parseErr *spreadsheet.ParseError
	)

	switch {
	case errors.As(err, &apiErr):
		return APIErrorToProblem(apiErr, r)

	case errors.As(err, &listErr):
		if listErr.Timeout() {
			return NewProblemDetails(http.StatusGatewayTimeout, TypeUpstreamTimeout,
				"Data Repository Timeout", connectivityHint, r.URL.Path)
		}
		problem := NewProblemDetails(http.StatusBadGateway, TypeIndexUnavailable,
			"Dataset Index Unavailable", connectivityHint, r.URL.Path)
		if listErr.StatusCode != 0 {
			problem.WithExtension("upstream_status", listErr.StatusCode)
		}
		return problem

	case errors.As(err, &fetchErr):
		switch {
		case fetchErr.NotFound():
			return NewProblemDetails(http.StatusNotFound, TypeFileNotFound,
				"Dataset Not Found",
				fmt.Sprintf("The file %q no longer exists in the data repository", fetchErr.Path),
				r.URL.Path)
		case fetchErr.Timeout():
			return NewProblemDetails(http.StatusGatewayTimeout, TypeUpstreamTimeout,
				"Data Repository Timeout", connectivityHint, r.URL.Path)
		}
		problem := NewProblemDetails(http.StatusBadGateway, TypeFetchFailed,
			"Dataset Download Failed", connectivityHint, r.URL.Path)
		if fetchErr.StatusCode != 0 {
			problem.WithExtension("upstream_status", fetchErr.StatusCode)
		}
		return problem

	case errors.As(err, &parseErr):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeUnreadable,
			"Dataset Unreadable",
			"The file was downloaded but could not be read as a spreadsheet",
			r.URL.Path).WithExtension("format", string(parseErr.Format))

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path)

	default:
		return NewProblemDetails(http.StatusInternalServerError, TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path)
	}
}

// APIErrorToProblem converts APIError to ProblemDetails
func APIErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch {
	case errors.Is(apiErr, ErrValidationFailed), errors.Is(apiErr, ErrInvalidRequest):
		problemType = TypeValidation
	case errors.Is(apiErr, ErrNotFound):
		problemType = TypeNotFound
	case errors.Is(apiErr, ErrRateLimitExceeded):
		problemType = TypeRateLimit
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeValidation,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	_ = render.Render(w, r, problem)
}

// Recoverer returns a middleware that turns panics into problem responses
func (h *ErrorHandler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.HandlePanic(w, r, rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
