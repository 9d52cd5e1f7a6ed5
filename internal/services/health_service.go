package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/pkg/contracts"
)

// DatasetSource exposes the snapshot being served
type DatasetSource interface {
	Current() *dataset.Context
	Path() string
}

// ClientCounter reports connected push clients
type ClientCounter interface {
	ClientCount() int
}

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string
	RepoURL   string
	BuildTime string
	BuildID   string
}

// HealthService answers the health, readiness and version probes
type HealthService struct {
	build     BuildInfo
	dataset   DatasetSource
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the body of the probe endpoints
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   *RuntimeInfo             `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// RuntimeInfo is reported by the liveness probe
type RuntimeInfo struct {
	Uptime     float64 `json:"uptime"`
	GoVersion  string  `json:"go_version"`
	Goroutines int     `json:"goroutines"`
}

// ServiceHealth is the readiness of one dependency
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// VersionInfo is the body of GET /api/version
type VersionInfo struct {
	Version        string  `json:"version"`
	GoVersion      string  `json:"go_version"`
	OS             string  `json:"os"`
	Arch           string  `json:"arch"`
	WorkbookFormat string  `json:"workbook_format"`
	APIVersion     string  `json:"api_version"`
	RepoURL        string  `json:"repo_url,omitempty"`
	GitCommit      string  `json:"git_commit,omitempty"`
	BuildTime      string  `json:"build_time,omitempty"`
	BuildID        string  `json:"build_id,omitempty"`
	DatasetVersion int64   `json:"dataset_version,omitempty"`
	Uptime         float64 `json:"uptime"`
	StartTime      string  `json:"start_time"`
}

// NewHealthService creates the service. source and hub may be nil.
func NewHealthService(build BuildInfo, source DatasetSource, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		build:     build,
		dataset:   source,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health")),
	}
}

// HealthCheck always answers ok while the process serves requests
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
	}
}

// ReadinessCheck reports ready once a dataset snapshot is being served
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Services: map[string]ServiceHealth{
			"dataset":   hs.checkDataset(),
			"websocket": hs.checkWebSocket(),
		},
	}

	for name, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "not ready",
				slog.String("service", name),
				slog.String("reason", sh.Message))
		}
	}
	return status
}

// LivenessCheck reports the process uptime and goroutine count
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Runtime: &RuntimeInfo{
			Uptime:     time.Since(hs.startTime).Seconds(),
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
		},
	}
}

// Version describes the binary and the dataset it serves
func (hs *HealthService) Version() VersionInfo {
	info := contracts.GetVersionInfo()
	v := VersionInfo{
		Version:        hs.build.Version,
		GoVersion:      info.GoVersion,
		OS:             info.OS,
		Arch:           info.Architecture,
		WorkbookFormat: info.WorkbookFormat,
		APIVersion:     info.APIVersion,
		RepoURL:        hs.build.RepoURL,
		BuildTime:      hs.build.BuildTime,
		BuildID:        hs.build.BuildID,
		Uptime:         time.Since(hs.startTime).Seconds(),
		StartTime:      hs.startTime.Format(time.RFC3339),
	}
	if info.GitCommit != "unknown" {
		v.GitCommit = info.GitCommit
	}
	if hs.dataset != nil {
		if c := hs.dataset.Current(); c != nil {
			v.DatasetVersion = c.Version
		}
	}
	return v
}

func (hs *HealthService) checkDataset() ServiceHealth {
	if hs.dataset == nil {
		return ServiceHealth{Status: "not_ready", Message: "dataset store not initialized"}
	}

	c := hs.dataset.Current()
	if c == nil {
		path := hs.dataset.Path()
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return ServiceHealth{Status: "not_ready", Message: "workbook not found: " + path}
		}
		return ServiceHealth{Status: "not_ready", Message: "workbook not loaded: " + path}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("dataset v%d loaded from %s", c.Version, c.Workbook.Source),
		Uptime:  time.Since(c.Workbook.LoadedAt).Round(time.Second).String(),
	}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "ready", Message: "WebSocket push disabled"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
	}
}
