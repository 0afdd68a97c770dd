package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runger/hiconvert/internal/widget"
)

// DefaultMaxFileBytes mirrors the server's request ceiling (16 MiB).
const DefaultMaxFileBytes = 16 << 20

// Config represents the hiconvert configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Upload  UploadConfig  `yaml:"upload"`
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig holds the conversion service endpoints.
type ServerConfig struct {
	BaseURL      string `yaml:"base_url"`      // Scheme and host, e.g. http://localhost:10000
	ProcessPath  string `yaml:"process_path"`  // Upload endpoint path
	DownloadPath string `yaml:"download_path"` // Prefix for CSV download links
	AcceptJSON   bool   `yaml:"accept_json"`   // Send Accept: application/json
}

// UploadConfig holds selection and submission settings.
type UploadConfig struct {
	Multiple         bool   `yaml:"multiple"`           // Multi-file mode (files[] field)
	Field            string `yaml:"field"`              // Override the multipart field name
	Filter           string `yaml:"filter"`             // none, pdf-mime, pdf-ext, plan-pdf, custom
	FilterContains   string `yaml:"filter_contains"`    // custom: name substring
	FilterExtension  string `yaml:"filter_extension"`   // custom: name suffix
	FilterMIMEType   string `yaml:"filter_mime_type"`   // custom: MIME type
	FilterUpload     bool   `yaml:"filter_upload"`      // Send only matching files
	ResetAfterSubmit bool   `yaml:"reset_after_submit"` // Clear the selection after each request
	MaxFileBytes     int64  `yaml:"max_file_bytes"`     // Per-file ceiling (0 = unlimited)
	DownloadDir      string `yaml:"download_dir"`       // Where downloaded CSVs are saved
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (overrides default)
}

// HistoryConfig holds submission history settings.
type HistoryConfig struct {
	Enabled       bool `yaml:"enabled"`        // Record submissions in the local database
	ListLimit     int  `yaml:"list_limit"`     // Default rows for `hiconvert history`
	RetentionDays int  `yaml:"retention_days"` // Prune older submissions (0 = keep forever)
}

// DefaultConfig returns the default configuration: the multi-file plan
// variant against a local server.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:      "http://localhost:10000",
			ProcessPath:  "/process",
			DownloadPath: "/download",
			AcceptJSON:   true,
		},
		Upload: UploadConfig{
			Multiple:         true,
			Filter:           widget.FilterPlanPDF,
			FilterUpload:     true,
			ResetAfterSubmit: true,
			MaxFileBytes:     DefaultMaxFileBytes,
			DownloadDir:      "", // Current directory
		},
		Log: LogConfig{
			Level: "info",
			File:  "", // Use default from paths
		},
		History: HistoryConfig{
			Enabled:       true,
			ListLimit:     20,
			RetentionDays: 90,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// A missing file yields the defaults. Environment overrides are applied last.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := LoadFileOnly(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadFileOnly loads the file over the defaults without environment
// overrides. Use it when the result is saved back.
func LoadFileOnly(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key,
// e.g. "server.base_url" or "upload.filter".
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "server":
		return c.getServerField(field)
	case "upload":
		return c.getUploadField(field)
	case "log":
		return c.getLogField(field)
	case "history":
		return c.getHistoryField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "server":
		return c.setServerField(field, value)
	case "upload":
		return c.setUploadField(field, value)
	case "log":
		return c.setLogField(field, value)
	case "history":
		return c.setHistoryField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) getServerField(field string) (string, error) {
	switch field {
	case "base_url":
		return c.Server.BaseURL, nil
	case "process_path":
		return c.Server.ProcessPath, nil
	case "download_path":
		return c.Server.DownloadPath, nil
	case "accept_json":
		return strconv.FormatBool(c.Server.AcceptJSON), nil
	default:
		return "", fmt.Errorf("unknown field: server.%s", field)
	}
}

func (c *Config) setServerField(field, value string) error {
	switch field {
	case "base_url":
		if err := validateBaseURL(value); err != nil {
			return err
		}
		c.Server.BaseURL = value
	case "process_path":
		c.Server.ProcessPath = value
	case "download_path":
		c.Server.DownloadPath = value
	case "accept_json":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for accept_json: %w", err)
		}
		c.Server.AcceptJSON = v
	default:
		return fmt.Errorf("unknown field: server.%s", field)
	}
	return nil
}

func (c *Config) getUploadField(field string) (string, error) {
	switch field {
	case "multiple":
		return strconv.FormatBool(c.Upload.Multiple), nil
	case "field":
		return c.Upload.Field, nil
	case "filter":
		return c.Upload.Filter, nil
	case "filter_contains":
		return c.Upload.FilterContains, nil
	case "filter_extension":
		return c.Upload.FilterExtension, nil
	case "filter_mime_type":
		return c.Upload.FilterMIMEType, nil
	case "filter_upload":
		return strconv.FormatBool(c.Upload.FilterUpload), nil
	case "reset_after_submit":
		return strconv.FormatBool(c.Upload.ResetAfterSubmit), nil
	case "max_file_bytes":
		return strconv.FormatInt(c.Upload.MaxFileBytes, 10), nil
	case "download_dir":
		return c.Upload.DownloadDir, nil
	default:
		return "", fmt.Errorf("unknown field: upload.%s", field)
	}
}

func (c *Config) setUploadField(field, value string) error {
	switch field {
	case "multiple", "filter_upload", "reset_after_submit":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", field, err)
		}
		switch field {
		case "multiple":
			c.Upload.Multiple = v
		case "filter_upload":
			c.Upload.FilterUpload = v
		default:
			c.Upload.ResetAfterSubmit = v
		}
	case "field":
		c.Upload.Field = value
	case "filter":
		if !isValidFilter(value) {
			return fmt.Errorf("invalid filter: %s (must be none, pdf-mime, pdf-ext, plan-pdf, or custom)", value)
		}
		c.Upload.Filter = value
	case "filter_contains":
		c.Upload.FilterContains = value
	case "filter_extension":
		c.Upload.FilterExtension = value
	case "filter_mime_type":
		c.Upload.FilterMIMEType = value
	case "max_file_bytes":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for max_file_bytes: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid max_file_bytes: must be non-negative")
		}
		c.Upload.MaxFileBytes = v
	case "download_dir":
		c.Upload.DownloadDir = value
	default:
		return fmt.Errorf("unknown field: upload.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func (c *Config) getHistoryField(field string) (string, error) {
	switch field {
	case "enabled":
		return strconv.FormatBool(c.History.Enabled), nil
	case "list_limit":
		return strconv.Itoa(c.History.ListLimit), nil
	case "retention_days":
		return strconv.Itoa(c.History.RetentionDays), nil
	default:
		return "", fmt.Errorf("unknown field: history.%s", field)
	}
}

func (c *Config) setHistoryField(field, value string) error {
	switch field {
	case "enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for enabled: %w", err)
		}
		c.History.Enabled = v
	case "list_limit":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for list_limit: %w", err)
		}
		if v < 1 {
			v = 1
		}
		if v > 1000 {
			v = 1000
		}
		c.History.ListLimit = v
	case "retention_days":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for retention_days: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid retention_days: must be non-negative")
		}
		c.History.RetentionDays = v
	default:
		return fmt.Errorf("unknown field: history.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validateBaseURL(c.Server.BaseURL); err != nil {
		return err
	}

	if !strings.HasPrefix(c.Server.ProcessPath, "/") {
		return fmt.Errorf("server.process_path must start with / (got: %s)", c.Server.ProcessPath)
	}

	if !strings.HasPrefix(c.Server.DownloadPath, "/") {
		return fmt.Errorf("server.download_path must start with / (got: %s)", c.Server.DownloadPath)
	}

	if !isValidFilter(c.Upload.Filter) {
		return fmt.Errorf("upload.filter must be none, pdf-mime, pdf-ext, plan-pdf, or custom (got: %s)", c.Upload.Filter)
	}

	if _, err := widget.PredicateFor(c.FilterSpec()); err != nil {
		return fmt.Errorf("upload.filter: %w", err)
	}

	if c.Upload.MaxFileBytes < 0 {
		return errors.New("upload.max_file_bytes must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}

	// Clamp list limit to [1, 1000]
	if c.History.ListLimit < 1 {
		c.History.ListLimit = 1
	}
	if c.History.ListLimit > 1000 {
		c.History.ListLimit = 1000
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("server.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url must be http or https (got: %s)", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("server.base_url must include a host (got: %s)", raw)
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidFilter(name string) bool {
	switch name {
	case "", widget.FilterNone, widget.FilterPDFMIME, widget.FilterPDFExt, widget.FilterPlanPDF, widget.FilterCustom:
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("HICONVERT_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("HICONVERT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("HICONVERT_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"server.base_url",
		"server.process_path",
		"server.download_path",
		"server.accept_json",
		"upload.multiple",
		"upload.field",
		"upload.filter",
		"upload.filter_contains",
		"upload.filter_extension",
		"upload.filter_mime_type",
		"upload.filter_upload",
		"upload.reset_after_submit",
		"upload.max_file_bytes",
		"upload.download_dir",
		"log.level",
		"log.file",
		"history.enabled",
		"history.list_limit",
		"history.retention_days",
	}
}

// ProcessURL returns the absolute URL of the upload endpoint.
func (c *Config) ProcessURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + c.Server.ProcessPath
}

// DownloadBase returns the absolute prefix for download links.
func (c *Config) DownloadBase() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + c.Server.DownloadPath
}

// FilterSpec returns the configured filter as a widget.FilterSpec.
func (c *Config) FilterSpec() widget.FilterSpec {
	return widget.FilterSpec{
		Name:      c.Upload.Filter,
		Contains:  c.Upload.FilterContains,
		Extension: c.Upload.FilterExtension,
		MIMEType:  c.Upload.FilterMIMEType,
	}
}

// WidgetOptions maps the configuration onto widget.Options. Client, opener,
// logger and recorder are left for the caller to fill in.
func (c *Config) WidgetOptions() (widget.Options, error) {
	pred, err := widget.PredicateFor(c.FilterSpec())
	if err != nil {
		return widget.Options{}, err
	}
	return widget.Options{
		Endpoint:         c.ProcessURL(),
		DownloadBase:     c.DownloadBase(),
		FieldName:        c.Upload.Field,
		Multiple:         c.Upload.Multiple,
		AcceptJSON:       c.Server.AcceptJSON,
		Predicate:        pred,
		FilterUpload:     c.Upload.FilterUpload,
		ResetAfterSubmit: c.Upload.ResetAfterSubmit,
		MaxFileBytes:     c.Upload.MaxFileBytes,
	}, nil
}
