package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "wagebrowser/internal/errors"
	"wagebrowser/internal/site"
)

// SiteService is the part of site.Service the handler uses
type SiteService interface {
	Title() string
	Pages() []site.PageSummary
	Page(ctx context.Context, slug string) (*site.Page, error)
	Team(ctx context.Context) []site.Member
}

// SiteHandler serves the narrative pages and the team roster
type SiteHandler struct {
	service      SiteService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSiteHandler creates a new site handler
func NewSiteHandler(service SiteService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SiteHandler {
	return &SiteHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "site_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the site routes
func (h *SiteHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/pages", h.GetPages)
	r.Get("/pages/{slug}", h.GetPage)
	r.Get("/team", h.GetTeam)
	return r
}

// GetPages handles GET /api/site/pages
func (h *SiteHandler) GetPages(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"title": h.service.Title(),
		"pages": h.service.Pages(),
	})
}

// GetPage handles GET /api/site/pages/{slug}
func (h *SiteHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	page, err := h.service.Page(r.Context(), slug)
	if err != nil {
		if errors.Is(err, site.ErrPageNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.NotFoundError(fmt.Sprintf("page %q", slug)))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// GetTeam handles GET /api/site/team
func (h *SiteHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	members := h.service.Team(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"members": members,
		"count":   len(members),
	})
}
