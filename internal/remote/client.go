// Package remote talks to the source-control host that publishes the OEWS
// spreadsheets: the JSON contents listing API and the raw content host.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"wagebrowser/internal/config"
	"wagebrowser/internal/infrastructure"
	"wagebrowser/pkg/contracts/domain"
)

const (
	acceptListing = "application/vnd.github+json"

	endpointList  = "list"
	endpointRaw   = "raw"
	endpointCheck = "check"
)

// Client is a read-only client for one repository at one branch
type Client struct {
	http    *resty.Client
	cfg     config.RemoteConfig
	limiter *rate.Limiter
	metrics *infrastructure.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithMetrics records every outbound request on m
func WithMetrics(m *infrastructure.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for the configured repository. Every request is
// bounded by cfg.Timeout; nothing is retried.
func NewClient(cfg config.RemoteConfig, logger *slog.Logger, opts ...Option) *Client {
	logger = infrastructure.WithComponent(logger, "remote")

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetLogger(restyLogger{logger: logger})
	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}

	c := &Client{
		http:   httpClient,
		cfg:    cfg,
		tracer: otel.Tracer(infrastructure.TracerName),
		logger: logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source describes the repository the client reads, e.g. owner/repo@main
func (c *Client) Source() string {
	return fmt.Sprintf("%s/%s@%s", c.cfg.Owner, c.cfg.Repo, c.cfg.Branch)
}

// BasePath returns the configured folder that holds the year folders
func (c *Client) BasePath() string {
	return c.cfg.BasePath
}

// ContentsURL returns the listing endpoint for a repository path
func (c *Client) ContentsURL(path string) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents", c.cfg.APIHost, url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repo))
	if escaped := escapePath(path); escaped != "" {
		u += "/" + escaped
	}
	return u
}

// RawURL returns the raw download address for a repository path
func (c *Client) RawURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", c.cfg.RawHost,
		url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repo), url.PathEscape(c.cfg.Branch), escapePath(path))
}

type listingItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// ListDirectory performs exactly one listing request for path. Any failure is
// returned as *ListError.
func (c *Client) ListDirectory(ctx context.Context, path string) ([]domain.DirectoryEntry, error) {
	ctx, span := c.tracer.Start(ctx, "remote.ListDirectory",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("remote.path", path)))
	defer span.End()

	fail := func(status int, err error) error {
		listErr := &ListError{Path: path, StatusCode: status, Err: err}
		infrastructure.RecordError(ctx, listErr)
		return listErr
	}

	if err := c.wait(ctx); err != nil {
		return nil, fail(0, err)
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptListing).
		SetQueryParam("ref", c.cfg.Branch)
	if c.cfg.Token != "" {
		req.SetAuthToken(c.cfg.Token)
	}

	start := time.Now()
	resp, err := req.Get(c.ContentsURL(path))
	status := statusOf(resp)
	c.metrics.RecordRemoteRequest(ctx, endpointList, status, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if err != nil {
		c.logger.WarnContext(ctx, "directory listing failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, fail(0, err)
	}
	if !resp.IsSuccess() {
		c.logger.WarnContext(ctx, "directory listing rejected",
			slog.String("path", path),
			slog.Int("status", status))
		return nil, fail(status, statusError(status))
	}

	entries, err := decodeListing(resp.Body())
	if err != nil {
		return nil, fail(status, err)
	}

	c.logger.DebugContext(ctx, "directory listed",
		slog.String("path", path),
		slog.Int("entries", len(entries)))
	return entries, nil
}

func decodeListing(body []byte) ([]domain.DirectoryEntry, error) {
	var items []listingItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedListing, err)
	}
	if items == nil {
		return nil, fmt.Errorf("%w: body is not an array", ErrMalformedListing)
	}

	entries := make([]domain.DirectoryEntry, 0, len(items))
	for i, item := range items {
		if item.Name == "" || item.Type == "" {
			return nil, fmt.Errorf("%w: entry %d lacks name or type", ErrMalformedListing, i)
		}
		entries = append(entries, domain.DirectoryEntry{
			Name: item.Name,
			Path: item.Path,
			Type: item.Type,
		})
	}
	return entries, nil
}

// FetchRaw downloads the bytes at path. Any failure is returned as *FetchError.
func (c *Client) FetchRaw(ctx context.Context, path string) ([]byte, error) {
	rawURL := c.RawURL(path)
	ctx, span := c.tracer.Start(ctx, "remote.FetchRaw",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("remote.path", path),
			attribute.String("url.full", rawURL)))
	defer span.End()

	fail := func(status int, err error) error {
		fetchErr := &FetchError{Path: path, URL: rawURL, StatusCode: status, Err: err}
		infrastructure.RecordError(ctx, fetchErr)
		return fetchErr
	}

	if err := c.wait(ctx); err != nil {
		return nil, fail(0, err)
	}

	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(rawURL)
	status := statusOf(resp)
	c.metrics.RecordRemoteRequest(ctx, endpointRaw, status, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if err != nil {
		c.logger.WarnContext(ctx, "raw fetch failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, fail(0, err)
	}
	if !resp.IsSuccess() {
		c.logger.WarnContext(ctx, "raw fetch rejected",
			slog.String("path", path),
			slog.Int("status", status))
		return nil, fail(status, statusError(status))
	}

	body := resp.Body()
	span.SetAttributes(attribute.Int("http.response.body.size", len(body)))
	c.logger.DebugContext(ctx, "raw content fetched",
		slog.String("path", path),
		slog.Int("bytes", len(body)))
	return body, nil
}

// Check sends a HEAD request to an arbitrary URL and reports whether it is
// reachable. The repository token is never sent to other hosts.
func (c *Client) Check(ctx context.Context, target string) error {
	ctx, span := c.tracer.Start(ctx, "remote.Check",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url.full", target)))
	defer span.End()

	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Head(target)
	status := statusOf(resp)
	c.metrics.RecordRemoteRequest(ctx, endpointCheck, status, time.Since(start))

	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return statusError(status)
	}
	return nil
}

func statusOf(resp *resty.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode()
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// escapePath escapes each segment of a slash separated repository path
func escapePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// restyLogger routes resty's internal logging through slog
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
