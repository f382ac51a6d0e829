package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wagebrowser/internal/infrastructure"
)

// ErrPageNotFound is returned for an unknown page slug
var ErrPageNotFound = errors.New("page not found")

// Service serves pages with their images resolved
type Service struct {
	content  *Content
	resolver *ImageResolver
	logger   *slog.Logger
}

// NewService creates a site service over content
func NewService(content *Content, resolver *ImageResolver, logger *slog.Logger) *Service {
	return &Service{
		content:  content,
		resolver: resolver,
		logger:   infrastructure.WithComponent(logger, "site"),
	}
}

// Title returns the site title
func (s *Service) Title() string {
	return s.content.SiteTitle
}

// Pages returns the navigation entries in authored order
func (s *Service) Pages() []PageSummary {
	out := make([]PageSummary, 0, len(s.content.Pages))
	for _, p := range s.content.Pages {
		out = append(out, PageSummary{Slug: p.Slug, Nav: p.Nav, Title: p.Title})
	}
	return out
}

// Page returns a copy of the page with every image resolved
func (s *Service) Page(ctx context.Context, slug string) (*Page, error) {
	for _, p := range s.content.Pages {
		if p.Slug != slug {
			continue
		}

		page := p
		page.Blocks = make([]Block, len(p.Blocks))
		for i, b := range p.Blocks {
			if b.Image != nil {
				img := *b.Image
				img.Src = s.resolver.Resolve(ctx, img.URL)
				b.Image = &img
			}
			page.Blocks[i] = b
		}
		return &page, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPageNotFound, slug)
}

// Team returns the roster with photos resolved
func (s *Service) Team(ctx context.Context) []Member {
	members := make([]Member, len(s.content.Team))
	for i, m := range s.content.Team {
		m.Photo = s.resolver.Resolve(ctx, m.Image)
		members[i] = m
	}
	s.logger.DebugContext(ctx, "team resolved", slog.Int("members", len(members)))
	return members
}
