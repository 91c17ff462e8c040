package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultPlaylistIDs are the Spotify playlists the catalog is built from when
// none are configured.
var DefaultPlaylistIDs = []string{
	"37i9dQZF1DXcZDD7cfEKhW", "37i9dQZF1DX0XUsuxWHRQd", "37i9dQZF1DXcF6B6QPhFDv",
	"37i9dQZF1DX1lVhptIYRda", "37i9dQZF1DWZeKCadgRdKQ", "37i9dQZF1DWWBHeXOYZf74",
	"37i9dQZF1DX4SBhb3fqCJd", "37i9dQZF1DWWxrt1tiKYiX", "37i9dQZF1DWYBO1MoTDhZI",
	"37i9dQZF1DX1UnoGuyf388",
}

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Cache    CacheConfig    `toml:"cache"`
	Graph    GraphConfig    `toml:"graph"`
	Playlist PlaylistConfig `toml:"playlist"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Ollama   OllamaConfig   `toml:"ollama"`
	Worker   WorkerConfig   `toml:"worker"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              string `toml:"port"`
	ReadHeaderTimeout int    `toml:"read_header_timeout_seconds"`
	ShutdownTimeout   int    `toml:"shutdown_timeout_seconds"`
}

// StorageConfig selects and configures the catalog and graph cache
type StorageConfig struct {
	Driver     string `toml:"driver"`
	SQLitePath string `toml:"sqlite_path"`
	BadgerDir  string `toml:"badger_dir"`
}

// CacheConfig names the cached snapshot
type CacheConfig struct {
	Snapshot string `toml:"snapshot"`
}

// GraphConfig contains similarity graph configuration
type GraphConfig struct {
	Threshold float64 `toml:"threshold"`
}

// PlaylistConfig contains playlist generation configuration
type PlaylistConfig struct {
	RequireFull bool `toml:"require_full"`
}

// CatalogConfig lists the source playlists
type CatalogConfig struct {
	PlaylistIDs []string `toml:"playlist_ids"`
}

// SpotifyConfig contains Spotify Web API configuration
type SpotifyConfig struct {
	BaseURL        string `toml:"base_url"`
	TokenURL       string `toml:"token_url"`
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	UserToken      string `toml:"user_token"`
	MaxRetries     int    `toml:"max_retries"`
	RetryBackoffMS int    `toml:"retry_backoff_ms"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// BreakerFailures consecutive failures open the circuit for
	// BreakerTimeoutSeconds.
	BreakerFailures       int `toml:"breaker_failures"`
	BreakerTimeoutSeconds int `toml:"breaker_timeout_seconds"`
}

// OllamaConfig contains the mood classifier configuration
type OllamaConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Model   string `toml:"model"`
}

// WorkerConfig contains preview analysis worker configuration
type WorkerConfig struct {
	Enabled   bool `toml:"enabled"`
	Workers   int  `toml:"workers"`
	QueueSize int  `toml:"queue_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			ReadHeaderTimeout: 15,
			ShutdownTimeout:   10,
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "./moodgraph.db",
			BadgerDir:  "./moodgraph-badger",
		},
		Cache: CacheConfig{
			Snapshot: "default",
		},
		Graph: GraphConfig{
			Threshold: 0.7,
		},
		Playlist: PlaylistConfig{
			RequireFull: false,
		},
		Catalog: CatalogConfig{
			PlaylistIDs: append([]string(nil), DefaultPlaylistIDs...),
		},
		Spotify: SpotifyConfig{
			BaseURL:               "https://api.spotify.com/v1",
			TokenURL:              "https://accounts.spotify.com/api/token",
			MaxRetries:            3,
			RetryBackoffMS:        500,
			TimeoutSeconds:        10,
			BreakerFailures:       5,
			BreakerTimeoutSeconds: 30,
		},
		Ollama: OllamaConfig{
			Enabled: false,
			Host:    "http://localhost:11434",
			Model:   "llama3",
		},
		Worker: WorkerConfig{
			Enabled:   true,
			Workers:   2,
			QueueSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a TOML file, creating it with defaults when
// it does not exist. Variables from a .env file next to the working directory
// and the process environment override file values.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := cfg.SaveToFile(configPath); err != nil {
				return nil, fmt.Errorf("failed to create default config file: %w", err)
			}
		} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads path into the environment if it exists. Variables already
// set are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides configuration values from environment variables.
func (c *Config) ApplyEnv() {
	c.Server.Host = envStr("MOODGRAPH_HOST", c.Server.Host)
	c.Server.Port = envStr("MOODGRAPH_PORT", c.Server.Port)

	c.Storage.Driver = envStr("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.SQLitePath = envStr("MOODGRAPH_SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.BadgerDir = envStr("MOODGRAPH_BADGER_DIR", c.Storage.BadgerDir)

	c.Cache.Snapshot = envStr("MOODGRAPH_SNAPSHOT", c.Cache.Snapshot)
	c.Graph.Threshold = envFloat("MOODGRAPH_THRESHOLD", c.Graph.Threshold)
	c.Playlist.RequireFull = envBool("MOODGRAPH_REQUIRE_FULL", c.Playlist.RequireFull)
	if v := os.Getenv("MOODGRAPH_PLAYLIST_IDS"); v != "" {
		c.Catalog.PlaylistIDs = splitList(v)
	}

	c.Spotify.ClientID = envStr("SPOTIFY_CLIENT_ID", c.Spotify.ClientID)
	c.Spotify.ClientSecret = envStr("SPOTIFY_CLIENT_SECRET", c.Spotify.ClientSecret)
	c.Spotify.UserToken = envStr("SPOTIFY_USER_TOKEN", c.Spotify.UserToken)
	c.Spotify.MaxRetries = envInt("SPOTIFY_MAX_RETRIES", c.Spotify.MaxRetries)
	c.Spotify.RetryBackoffMS = envInt("SPOTIFY_RETRY_BACKOFF_MS", c.Spotify.RetryBackoffMS)

	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.Ollama.Host = v
		c.Ollama.Enabled = true
	}

	c.Logging.Level = envStr("MOODGRAPH_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = envStr("MOODGRAPH_LOG_FORMAT", c.Logging.Format)
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# moodgraph configuration
# Spotify credentials are usually supplied through SPOTIFY_CLIENT_ID,
# SPOTIFY_CLIENT_SECRET and SPOTIFY_USER_TOKEN instead of this file.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	if err := toml.NewEncoder(file).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	case "badger":
		if c.Storage.BadgerDir == "" {
			return fmt.Errorf("badger directory cannot be empty")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s (must be sqlite or badger)", c.Storage.Driver)
	}

	if c.Cache.Snapshot == "" {
		return fmt.Errorf("cache snapshot cannot be empty")
	}
	// scores are unbounded below, so only the ceiling is enforced
	if math.IsNaN(c.Graph.Threshold) || c.Graph.Threshold > 1 {
		return fmt.Errorf("graph threshold must be a number no greater than 1, got %v", c.Graph.Threshold)
	}
	if len(c.Catalog.PlaylistIDs) == 0 {
		return fmt.Errorf("at least one catalog playlist id must be specified")
	}

	if c.Spotify.BaseURL == "" || c.Spotify.TokenURL == "" {
		return fmt.Errorf("spotify base and token urls cannot be empty")
	}
	if c.Spotify.MaxRetries < 0 {
		return fmt.Errorf("spotify max retries cannot be negative")
	}
	if c.Spotify.RetryBackoffMS < 0 {
		return fmt.Errorf("spotify retry backoff cannot be negative")
	}

	if c.Worker.Enabled && (c.Worker.Workers < 1 || c.Worker.QueueSize < 1) {
		return fmt.Errorf("worker count and queue size must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// HasSpotifyCredentials reports whether app credentials are configured.
func (c *Config) HasSpotifyCredentials() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// RetryBackoff returns the base delay between Spotify retries.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Spotify.RetryBackoffMS) * time.Millisecond
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
