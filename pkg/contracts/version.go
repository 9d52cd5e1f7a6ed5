package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current version of the application
	Version = "1.2.0"

	// WorkbookFormatVersion is the layout revision of the indicators workbook
	WorkbookFormatVersion = "v3"

	// APIVersion is the version of the HTTP and WebSocket contracts
	APIVersion = "v1"
)

// GitCommit is set during build using ldflags
var GitCommit = "unknown"

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version        string `json:"version"`
	GitCommit      string `json:"git_commit"`
	GoVersion      string `json:"go_version"`
	OS             string `json:"os"`
	Architecture   string `json:"architecture"`
	WorkbookFormat string `json:"workbook_format"`
	APIVersion     string `json:"api_version"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:        Version,
		GitCommit:      GitCommit,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Architecture:   runtime.GOARCH,
		WorkbookFormat: WorkbookFormatVersion,
		APIVersion:     APIVersion,
	}
}

// GetFullVersionString returns a detailed version string
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf(
		"dash-mercado v%s (commit: %s, go: %s, os: %s/%s, workbook: %s, api: %s)",
		info.Version,
		info.GitCommit,
		info.GoVersion,
		info.OS,
		info.Architecture,
		info.WorkbookFormat,
		info.APIVersion,
	)
}
