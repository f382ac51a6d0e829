package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "wagebrowser/internal/errors"
	"wagebrowser/internal/exporter"
	"wagebrowser/internal/services"
	"wagebrowser/pkg/contracts/domain"
)

// DefaultPreviewRows is the preview size when the limit parameter is absent
const DefaultPreviewRows = 100

// DatasetService is the part of services.BrowserService the handler uses
type DatasetService interface {
	Index(ctx context.Context) (*services.IndexView, error)
	Files(ctx context.Context, year int) ([]domain.FileDescriptor, error)
	Table(ctx context.Context, year int, name string, limit int) (*services.TablePreview, error)
	Loaded(ctx context.Context, year int, name string) (*domain.LoadedFile, error)
	Raw(ctx context.Context, year int, name string) (*services.RawFile, error)
}

type ctxKey string

const yearCtxKey ctxKey = "year"

// DatasetHandler serves the year index, table previews and downloads
type DatasetHandler struct {
	service      DatasetService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/years", h.GetYears)
	r.Route("/years/{year}", func(r chi.Router) {
		r.Use(h.YearCtx)
		r.Get("/files", h.GetFiles)
		r.Route("/files/{name}", func(r chi.Router) {
			r.Get("/table", h.GetTable)
			r.Get("/table.csv", h.ExportTable)
			r.Get("/download", h.Download)
		})
	})

	return r
}

// YearCtx validates the year parameter and stores it in the context
func (h *DatasetHandler) YearCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		year, err := strconv.Atoi(chi.URLParam(r, "year"))
		if err != nil || year <= 0 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("year", "Year must be a positive number, e.g. 2023"))
			return
		}
		ctx := context.WithValue(r.Context(), yearCtxKey, year)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetYears handles GET /api/datasets/years
func (h *DatasetHandler) GetYears(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Index(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if len(view.Warnings) > 0 {
		h.logger.WarnContext(r.Context(), "year index is partial",
			slog.Int("warnings", len(view.Warnings)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	}
	render.JSON(w, r, view)
}

// GetFiles handles GET /api/datasets/years/{year}/files
func (h *DatasetHandler) GetFiles(w http.ResponseWriter, r *http.Request) {
	year := yearFrom(r)
	files, err := h.service.Files(r.Context(), year)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"year":  year,
		"files": files,
		"count": len(files),
	})
}

// GetTable handles GET /api/datasets/years/{year}/files/{name}/table
func (h *DatasetHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limitParam(w, r, DefaultPreviewRows)
	if !ok {
		return
	}

	preview, err := h.service.Table(r.Context(), yearFrom(r), chi.URLParam(r, "name"), limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, preview)
}

// ExportTable handles GET /api/datasets/years/{year}/files/{name}/table.csv.
// Without a limit every row is exported.
func (h *DatasetHandler) ExportTable(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limitParam(w, r, 0)
	if !ok {
		return
	}

	loaded, err := h.service.Loaded(r.Context(), yearFrom(r), chi.URLParam(r, "name"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	filename := csvName(loaded.Descriptor.Name)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)

	// Headers are already sent, a failure here can only be logged
	if err := exporter.WriteTable(w, loaded.Table, exporter.TableOptions{Limit: limit, BOMPrefix: true}); err != nil {
		h.logger.ErrorContext(r.Context(), "csv export interrupted",
			slog.String("file", loaded.Descriptor.Path),
			slog.String("error", err.Error()))
	}
}

// Download handles GET /api/datasets/years/{year}/files/{name}/download.
// The original bytes are sent unmodified.
func (h *DatasetHandler) Download(w http.ResponseWriter, r *http.Request) {
	raw, err := h.service.Raw(r.Context(), yearFrom(r), chi.URLParam(r, "name"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", raw.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": raw.File.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(raw.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw.Data); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted",
			slog.String("file", raw.File.Path),
			slog.String("error", err.Error()))
	}
}

// limitParam parses the optional limit query parameter. Zero means every row.
func (h *DatasetHandler) limitParam(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", "Limit must be a non-negative integer"))
		return 0, false
	}
	return limit, true
}

// handleError maps service lookups to 404/400 and leaves remote and parse
// failures to the central error handler.
func (h *DatasetHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrYearNotFound):
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError(fmt.Sprintf("year %d", yearFrom(r))))
	case errors.Is(err, services.ErrFileNotFound):
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError(fmt.Sprintf("file %q", chi.URLParam(r, "name"))))
	case errors.Is(err, services.ErrInvalidInput):
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

func yearFrom(r *http.Request) int {
	year, _ := r.Context().Value(yearCtxKey).(int)
	return year
}

func csvName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ".csv"
}
