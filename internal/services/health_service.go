package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"wagebrowser/internal/cache"
)

// StatsSource reports the occupancy of one cache
type StatsSource interface {
	Stats() cache.Stats
}

// IndexStatusSource reports the most recent index build
type IndexStatusSource interface {
	Status() IndexStatus
	Source() string
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	repoURL   string
	buildTime string
	buildID   string
	browser   IndexStatusSource
	caches    map[string]StatsSource
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. browser and caches may be nil.
func NewHealthService(version, repoURL, buildTime, buildID string, browser IndexStatusSource, caches map[string]StatsSource, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("repo_url", repoURL),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:   version,
		repoURL:   repoURL,
		buildTime: buildTime,
		buildID:   buildID,
		browser:   browser,
		caches:    caches,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}

	hs.logger.DebugContext(ctx, "health check completed",
		slog.String("status", status.Status),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return status
}

// ReadinessCheck reports not_ready only when the last index build failed.
// It never contacts the remote repository.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	catalogHealth := hs.checkCatalogHealth()
	status.Services["catalog"] = catalogHealth
	if caches := hs.cacheStats(); len(caches) > 0 {
		status.Services["caches"] = caches
	}

	if catalogHealth.Status != "ready" {
		status.Status = "not_ready"
		hs.logger.WarnContext(ctx, "readiness check failed",
			slog.String("reason", catalogHealth.Message))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"repo_url":     hs.repoURL,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.browser != nil {
		result["data_source"] = hs.browser.Source()
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

func (hs *HealthService) checkCatalogHealth() ServiceHealth {
	if hs.browser == nil {
		return ServiceHealth{Status: "not_ready", Message: "browser service not initialized"}
	}

	st := hs.browser.Status()
	switch {
	case !st.Attempted:
		return ServiceHealth{
			Status:  "ready",
			Message: "year index not built yet",
			Uptime:  time.Since(hs.startTime).String(),
		}
	case st.Err != nil:
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("year index unavailable: %v", st.Err),
		}
	default:
		return ServiceHealth{
			Status:  "ready",
			Message: fmt.Sprintf("%d years, %d files", st.Years, st.Files),
			Uptime:  time.Since(hs.startTime).String(),
		}
	}
}

func (hs *HealthService) cacheStats() map[string]cache.Stats {
	if len(hs.caches) == 0 {
		return nil
	}
	out := make(map[string]cache.Stats, len(hs.caches))
	for name, src := range hs.caches {
		out[name] = src.Stats()
	}
	return out
}
