// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Server  ServerConfig
	Remote  RemoteConfig
	Shell   ShellConfig
	Push    PushConfig
	Backup  BackupConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// Version tags backup manifests and the user agent.
	Version string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds local persistence configuration.
type StorageConfig struct {
	// DataPath is the base directory for the story database and the asset cache.
	DataPath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// RemoteConfig holds remote story API configuration.
type RemoteConfig struct {
	// BaseURL of the story API, e.g. https://story-api.dicoding.dev/v1
	BaseURL string
	// RequestsPerSecond bounds outbound calls to the remote API.
	RequestsPerSecond float64
	// Burst is the token bucket burst size for outbound calls.
	Burst int
	// Timeout for a single remote call.
	Timeout time.Duration
	// Token is a bearer token for the story API. Empty means guest mode.
	Token string
}

// ShellConfig holds application shell / asset cache configuration.
type ShellConfig struct {
	// Origin is the host the app itself is served on, e.g. cerita.example.com.
	// Requests to other hosts pass through the gateway uncached.
	Origin string
	// StaticDir is the directory holding the app shell and static assets.
	StaticDir string
	// Version identifies the deployed asset set; each version gets its own cache.
	Version string
	// ShellDocument is the path of the document served for navigations.
	ShellDocument string
	// WatchAssets re-installs a new cache version when StaticDir changes.
	WatchAssets bool
}

// PushConfig holds push notification configuration.
type PushConfig struct {
	// VAPIDPublicKey is the base64url-encoded application server key.
	VAPIDPublicKey string
}

// BackupConfig holds backup export configuration.
type BackupConfig struct {
	// Dir is where sqlite snapshots are written (default: {data}/backups).
	Dir string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for local storage")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	remoteBaseURL := flag.String("remote-base-url", "", "Base URL of the remote story API")
	remoteRPS := flag.String("remote-rps", "", "Outbound requests per second to the remote API (default: 2)")
	remoteBurst := flag.String("remote-burst", "", "Outbound burst size (default: 4)")
	remoteTimeout := flag.String("remote-timeout", "", "Remote call timeout (default: 30s)")
	remoteToken := flag.String("remote-token", "", "Bearer token for the remote story API")

	shellOrigin := flag.String("origin", "", "Host the app is served on")
	staticDir := flag.String("static-dir", "", "Directory with app shell and static assets")
	shellVersion := flag.String("shell-version", "", "Asset cache version identifier (default: v1)")
	shellDocument := flag.String("shell-document", "", "App shell document path (default: /index.html)")
	watchAssets := flag.String("watch-assets", "", "Reinstall asset cache on changes (default: true)")

	vapidKey := flag.String("vapid-public-key", "", "Base64url VAPID public key for push")
	backupDir := flag.String("backup-dir", "", "Directory for sqlite snapshots")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			Version:     getConfigValue("", "APP_VERSION", "1.0.0"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Remote: RemoteConfig{
			BaseURL:           getConfigValue(*remoteBaseURL, "REMOTE_BASE_URL", "https://story-api.dicoding.dev/v1"),
			RequestsPerSecond: getFloatConfigValue(*remoteRPS, "REMOTE_RPS", 2),
			Burst:             getIntConfigValue(*remoteBurst, "REMOTE_BURST", 4),
			Token:             getConfigValue(*remoteToken, "REMOTE_TOKEN", ""),
		},
		Shell: ShellConfig{
			Origin:        getConfigValue(*shellOrigin, "SHELL_ORIGIN", ""),
			StaticDir:     getConfigValue(*staticDir, "STATIC_DIR", ""),
			Version:       getConfigValue(*shellVersion, "SHELL_VERSION", "v1"),
			ShellDocument: getConfigValue(*shellDocument, "SHELL_DOCUMENT", "/index.html"),
			WatchAssets:   getBoolConfigValue(*watchAssets, "WATCH_ASSETS", true),
		},
		Push: PushConfig{
			VAPIDPublicKey: getConfigValue(*vapidKey, "VAPID_PUBLIC_KEY", ""),
		},
		Backup: BackupConfig{
			Dir: getConfigValue(*backupDir, "BACKUP_DIR", ""),
		},
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Remote.Timeout, err = parseDurationValue(*remoteTimeout, "REMOTE_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.expandStaticDir(); err != nil {
		return nil, fmt.Errorf("invalid static dir: %w", err)
	}
	if err := cfg.expandBackupDir(); err != nil {
		return nil, fmt.Errorf("invalid backup dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Remote.BaseURL == "" {
		return errors.New("remote base URL is required")
	}

	if c.Remote.RequestsPerSecond <= 0 {
		return fmt.Errorf("remote requests per second must be positive, got %v", c.Remote.RequestsPerSecond)
	}

	if c.Shell.Version == "" {
		return errors.New("shell version is required")
	}

	return nil
}

// DatabasePath returns the directory for the story database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataPath, "db")
}

// CachePath returns the directory for the asset cache database.
func (c *Config) CachePath() string {
	return filepath.Join(c.Storage.DataPath, "cache")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Cerita", "data")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// expandStaticDir expands ~ and makes the path absolute.
// If empty, leaves it empty: the gateway then serves network-only.
func (c *Config) expandStaticDir() error {
	if c.Shell.StaticDir == "" {
		return nil
	}

	expanded, err := expandPath(c.Shell.StaticDir, "")
	if err != nil {
		return err
	}
	c.Shell.StaticDir = expanded
	return nil
}

// expandBackupDir defaults to {data}/backups if not specified.
func (c *Config) expandBackupDir() error {
	defaultPath := filepath.Join(c.Storage.DataPath, "backups")

	expanded, err := expandPath(c.Backup.Dir, defaultPath)
	if err != nil {
		return err
	}
	c.Backup.Dir = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	str := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, str, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
