package site

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"wagebrowser/internal/cache"
	"wagebrowser/internal/infrastructure"
)

// Checker reports whether a URL answers successfully
type Checker interface {
	Check(ctx context.Context, url string) error
}

// ResolveImage picks the URL to display: primary when it is set and its check
// succeeded, the placeholder sentinel otherwise.
func ResolveImage(primary, placeholder string, checkErr error) string {
	if strings.TrimSpace(primary) == "" || checkErr != nil {
		return placeholder
	}
	return primary
}

// ImageResolver checks image URLs once and remembers the decision for the
// lifetime of its cache. Checks cut short by the caller's context are not
// remembered.
type ImageResolver struct {
	checker     Checker
	placeholder string
	timeout     time.Duration
	results     cache.Cache[string, string]
	group       singleflight.Group
	logger      *slog.Logger
}

// NewImageResolver creates a resolver. A nil checker resolves every non-empty
// URL to itself.
func NewImageResolver(checker Checker, placeholder string, timeout time.Duration, results cache.Cache[string, string], logger *slog.Logger) *ImageResolver {
	return &ImageResolver{
		checker:     checker,
		placeholder: placeholder,
		timeout:     timeout,
		results:     results,
		logger:      infrastructure.WithComponent(logger, "site_images"),
	}
}

// Placeholder returns the fallback image URL
func (r *ImageResolver) Placeholder() string {
	return r.placeholder
}

// Resolve returns the URL to display for url
func (r *ImageResolver) Resolve(ctx context.Context, url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return r.placeholder
	}
	if r.checker == nil {
		return url
	}
	if src, ok := r.results.Get(url); ok {
		return src
	}

	v, _, _ := r.group.Do(url, func() (interface{}, error) {
		if src, ok := r.results.Get(url); ok {
			return src, nil
		}

		checkCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			checkCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		err := r.checker.Check(checkCtx, url)
		if err != nil {
			r.logger.WarnContext(ctx, "image unreachable, using placeholder",
				slog.String("url", url),
				slog.String("error", err.Error()))
		}

		src := ResolveImage(url, r.placeholder, err)
		// A caller that went away says nothing about the image
		if ctx.Err() == nil {
			r.results.Put(url, src)
		}
		return src, nil
	})
	return v.(string)
}
