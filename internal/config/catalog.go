package config

import (
	"log/slog"
	"os"
	"strconv"
)

// CatalogConfig represents catalog database configuration
type CatalogConfig struct {
	Enabled      bool   `json:"enabled"`       // Whether scans are recorded
	DatabasePath string `json:"database_path"` // Custom database path (empty = XDG cache path)
	Workers      int    `json:"workers"`       // Files probed concurrently during a scan
}

// GetDefaultCatalogConfig returns the default catalog configuration
func GetDefaultCatalogConfig() *CatalogConfig {
	return &CatalogConfig{
		Enabled:      true,
		DatabasePath: "",
		Workers:      4,
	}
}

// ApplyCatalogEnvironmentOverrides applies environment variable overrides to catalog config
func ApplyCatalogEnvironmentOverrides(config *CatalogConfig) *CatalogConfig {
	slog.Debug("applying catalog environment variable overrides")

	result := *config

	// OGGOPUS_CATALOG
	if catalogStr := os.Getenv("OGGOPUS_CATALOG"); catalogStr != "" {
		if enabled, err := strconv.ParseBool(catalogStr); err == nil {
			result.Enabled = enabled
			slog.Debug("applied catalog override from environment", "value", enabled)
		} else {
			slog.Warn("invalid OGGOPUS_CATALOG environment variable", "value", catalogStr, "error", err)
		}
	}

	// OGGOPUS_CATALOG_PATH
	if path := os.Getenv("OGGOPUS_CATALOG_PATH"); path != "" {
		result.DatabasePath = path
		slog.Debug("applied catalog path override from environment", "value", path)
	}

	slog.Debug("catalog environment overrides applied")
	return &result
}
