package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// FileLoggingConfig represents file-based logging configuration
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`      // Whether file logging is enabled
	Filename   string `json:"filename"`     // Log file path (empty = XDG cache path)
	MaxSizeMB  int    `json:"max_size_mb"`  // Max file size in MB before rotation
	MaxBackups int    `json:"max_backups"`  // Max number of backup files to keep
	MaxAgeDays int    `json:"max_age_days"` // Max age in days before deletion
	Compress   bool   `json:"compress"`     // Whether to compress rotated files
}

// DecodeConfig holds the defaults for the decode command
type DecodeConfig struct {
	GainType     string `json:"gain_type"`      // header, track or absolute
	GainOffsetQ8 int    `json:"gain_offset_q8"` // Q7.8 dB offset applied with GainType
	Dither       bool   `json:"dither"`         // Dither when converting to 16 bit
	ChunkSamples int    `json:"chunk_samples"`  // Samples requested per read call
	Stereo       bool   `json:"stereo"`         // Downmix to stereo
	OutputFormat string `json:"output_format"`  // wav, aiff or raw (empty = from extension)
	SampleRate   int    `json:"sample_rate"`    // Output rate (0 = 48000, no resampling)
}

// Config represents oggopus configuration
type Config struct {
	LogLevel    string             `json:"log_level"`              // Log level (debug, info, warn, error)
	FileLogging *FileLoggingConfig `json:"file_logging,omitempty"` // File logging configuration
	Decode      *DecodeConfig      `json:"decode,omitempty"`       // Decode defaults
	Catalog     *CatalogConfig     `json:"catalog,omitempty"`      // Catalog database configuration
}

// XDGInterface defines the interface for XDG directory operations
type XDGInterface interface {
	GetConfigPaths(filename string) []string
	GetCachePath(purpose string) string
}

// ConfigManager handles loading, saving, and validating configuration
type ConfigManager struct {
	xdg XDGInterface
	fs  afero.Fs
}

// NewConfigManager creates a new configuration manager on the OS filesystem
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFilesystem(afero.NewOsFs())
}

// NewConfigManagerWithFilesystem creates a configuration manager on fsys
func NewConfigManagerWithFilesystem(fsys afero.Fs) *ConfigManager {
	slog.Debug("creating new config manager")
	return &ConfigManager{
		xdg: NewXDGDirs(),
		fs:  fsys,
	}
}

// Filesystem returns the filesystem the manager reads and writes.
func (cm *ConfigManager) Filesystem() afero.Fs {
	return cm.fs
}

// SupportedGainTypes lists the gain_type values accepted in configuration.
// Album gain is left out because the session refuses it.
var SupportedGainTypes = []string{"header", "track", "absolute"}

// SupportedOutputFormats lists the output_format values accepted in configuration
var SupportedOutputFormats = []string{"wav", "aiff", "raw"}

// GetDefaultConfig returns the default configuration
func (cm *ConfigManager) GetDefaultConfig() *Config {
	defaultConfig := &Config{
		LogLevel: "warn",
		FileLogging: &FileLoggingConfig{
			Enabled:    false,
			Filename:   "", // Empty = XDG cache path
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Decode: &DecodeConfig{
			GainType:     "header",
			GainOffsetQ8: 0,
			Dither:       true,
			ChunkSamples: 11520, // 120 ms of stereo at 48 kHz
			Stereo:       false,
			OutputFormat: "",
			SampleRate:   0,
		},
		Catalog: GetDefaultCatalogConfig(),
	}

	slog.Debug("generated default config",
		"log_level", defaultConfig.LogLevel,
		"file_logging_enabled", defaultConfig.FileLogging.Enabled,
		"gain_type", defaultConfig.Decode.GainType,
		"catalog_enabled", defaultConfig.Catalog.Enabled)

	return defaultConfig
}

// LoadFromFile loads configuration from a specific file. Sections missing
// from the file keep their defaults.
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("loading config from file", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		slog.Error("failed to read config file", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := cm.GetDefaultConfig()
	err = json.Unmarshal(data, config)
	if err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	err = cm.ValidateConfig(config)
	if err != nil {
		slog.Error("config validation failed", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	slog.Debug("config loaded successfully",
		"file_path", filePath,
		"log_level", config.LogLevel)

	return config, nil
}

// SaveToFile saves configuration to a specific file. On the OS filesystem the
// write happens under an exclusive lock on a sibling ".lock" file.
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	slog.Debug("saving config to file", "file_path", filePath)

	err := cm.ValidateConfig(config)
	if err != nil {
		slog.Error("cannot save invalid config", "error", err)
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(filePath)
	err = cm.fs.MkdirAll(dir, 0755)
	if err != nil {
		slog.Error("failed to create config directory", "directory", dir, "error", err)
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		slog.Error("failed to marshal config", "error", err)
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if _, ok := cm.fs.(*afero.OsFs); ok {
		lock := NewFileLock(filePath + ".lock")
		if err := lock.Lock(); err != nil {
			return fmt.Errorf("failed to lock config file: %w", err)
		}
		defer lock.Unlock()
	}

	err = afero.WriteFile(cm.fs, filePath, data, 0644)
	if err != nil {
		slog.Error("failed to write config file", "file_path", filePath, "error", err)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	slog.Info("config saved successfully", "file_path", filePath)
	return nil
}

// UserConfigPath returns the path config init writes to
func (cm *ConfigManager) UserConfigPath() string {
	return cm.xdg.GetConfigPaths("config.json")[0]
}

// LoadConfig loads configuration using XDG path discovery
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	slog.Debug("loading config using XDG path discovery")

	configPaths := cm.xdg.GetConfigPaths("config.json")

	slog.Debug("searching for config file", "paths", configPaths)

	for i, configPath := range configPaths {
		slog.Debug("checking config path", "path_index", i, "path", configPath)

		if _, err := cm.fs.Stat(configPath); err == nil {
			slog.Debug("found config file", "path", configPath)
			return cm.LoadFromFile(configPath)
		} else {
			slog.Debug("config file not found", "path", configPath, "error", err)
		}
	}

	slog.Debug("no config file found, using defaults")
	return cm.GetDefaultConfig(), nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// ValidateConfig validates configuration values
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	var errors []string

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if config.LogLevel != "" && !contains(validLogLevels, config.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s', must be one of: %s",
			config.LogLevel, strings.Join(validLogLevels, ", ")))
	}

	if config.FileLogging != nil {
		fileLogging := config.FileLogging

		if fileLogging.MaxSizeMB < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_size_mb must be >= 0, got %d", fileLogging.MaxSizeMB))
		}

		if fileLogging.MaxBackups < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_backups must be >= 0, got %d", fileLogging.MaxBackups))
		}

		if fileLogging.MaxAgeDays < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_age_days must be >= 0, got %d", fileLogging.MaxAgeDays))
		}
	}

	if config.Decode != nil {
		decode := config.Decode

		if decode.GainType != "" && !contains(SupportedGainTypes, decode.GainType) {
			errors = append(errors, fmt.Sprintf("invalid gain type '%s', must be one of: %s",
				decode.GainType, strings.Join(SupportedGainTypes, ", ")))
		}

		if decode.GainOffsetQ8 < -32768 || decode.GainOffsetQ8 > 32767 {
			errors = append(errors, fmt.Sprintf("decode gain_offset_q8 must fit in 16 bits, got %d", decode.GainOffsetQ8))
		}

		if decode.ChunkSamples < 0 {
			errors = append(errors, fmt.Sprintf("decode chunk_samples must be >= 0, got %d", decode.ChunkSamples))
		}

		if decode.OutputFormat != "" && !contains(SupportedOutputFormats, decode.OutputFormat) {
			errors = append(errors, fmt.Sprintf("invalid output format '%s', must be one of: %s",
				decode.OutputFormat, strings.Join(SupportedOutputFormats, ", ")))
		}

		if decode.SampleRate < 0 {
			errors = append(errors, fmt.Sprintf("decode sample_rate must be >= 0, got %d", decode.SampleRate))
		}
	}

	if len(errors) > 0 {
		errMsg := strings.Join(errors, "; ")
		slog.Error("config validation failed", "errors", errMsg)
		return fmt.Errorf("config validation failed: %s", errMsg)
	}

	slog.Debug("config validation passed")
	return nil
}

// ApplyEnvironmentOverrides applies environment variable overrides to config
func (cm *ConfigManager) ApplyEnvironmentOverrides(config *Config) *Config {
	slog.Debug("applying environment variable overrides")

	result := *config

	// OGGOPUS_LOG_LEVEL
	if logLevel := os.Getenv("OGGOPUS_LOG_LEVEL"); logLevel != "" {
		result.LogLevel = logLevel
		slog.Debug("applied log level override from environment", "value", logLevel)
	}

	if result.Decode != nil {
		decode := *result.Decode

		// OGGOPUS_GAIN_TYPE
		if gainType := os.Getenv("OGGOPUS_GAIN_TYPE"); gainType != "" {
			if contains(SupportedGainTypes, gainType) {
				decode.GainType = gainType
				slog.Debug("applied gain type override from environment", "value", gainType)
			} else {
				slog.Warn("invalid OGGOPUS_GAIN_TYPE environment variable", "value", gainType)
			}
		}

		// OGGOPUS_GAIN_OFFSET
		if offsetStr := os.Getenv("OGGOPUS_GAIN_OFFSET"); offsetStr != "" {
			if offset, err := strconv.ParseInt(offsetStr, 10, 16); err == nil {
				decode.GainOffsetQ8 = int(offset)
				slog.Debug("applied gain offset override from environment", "value", offset)
			} else {
				slog.Warn("invalid OGGOPUS_GAIN_OFFSET environment variable", "value", offsetStr, "error", err)
			}
		}

		// OGGOPUS_DITHER
		if ditherStr := os.Getenv("OGGOPUS_DITHER"); ditherStr != "" {
			if dither, err := strconv.ParseBool(ditherStr); err == nil {
				decode.Dither = dither
				slog.Debug("applied dither override from environment", "value", dither)
			} else {
				slog.Warn("invalid OGGOPUS_DITHER environment variable", "value", ditherStr, "error", err)
			}
		}

		result.Decode = &decode
	}

	if result.Catalog != nil {
		result.Catalog = ApplyCatalogEnvironmentOverrides(result.Catalog)
	}

	slog.Debug("environment overrides applied")
	return &result
}

// ParseLogLevel converts a configured level name to a slog.Level
func ParseLogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", logLevel)
}

// ApplyLogLevelWithWriter configures slog with the specified log level and writer
func (cm *ConfigManager) ApplyLogLevelWithWriter(logLevel string, writer io.Writer) error {
	if logLevel == "" {
		slog.Debug("no log level specified, keeping current slog configuration")
		return nil
	}

	level, err := ParseLogLevel(logLevel)
	if err != nil {
		slog.Error("invalid log level for slog configuration", "log_level", logLevel, "error", err)
		return err
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	slog.Debug("slog configured successfully with custom writer", "log_level", logLevel, "slog_level", level)
	return nil
}

// ResolveLogFilePath resolves the log file path using XDG cache directory when filename is empty
func (cm *ConfigManager) ResolveLogFilePath(filename string) string {
	if filename != "" {
		return filename
	}

	return filepath.Join(cm.xdg.GetCachePath("logs"), "oggopus.log")
}

// ResolveCatalogPath resolves the catalog database path using XDG cache directory when path is empty
func (cm *ConfigManager) ResolveCatalogPath(path string) string {
	if path != "" {
		return path
	}

	return filepath.Join(cm.xdg.GetCachePath(""), "catalog.db")
}
