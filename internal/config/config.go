// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables (in that order of precedence,
// lowest first).
//
// Configuration Categories:
//
//  1. Watch history (exactly one source): Plex, Jellyfin or Tautulli
//  2. Recommendation sources: TMDB catalog, generative LLM
//  3. Library targets: Radarr (movies), Sonarr (series)
//  4. Engine and schedule: per-run budget, auto-commit, default filters
//  5. Infrastructure: store, server, security, logging
type Config struct {
	History  HistoryConfig  `koanf:"history"`
	Plex     PlexConfig     `koanf:"plex"`
	Jellyfin JellyfinConfig `koanf:"jellyfin"`
	Tautulli TautulliConfig `koanf:"tautulli"`
	TMDB     TMDBConfig     `koanf:"tmdb"`
	LLM      LLMConfig      `koanf:"llm"`
	Radarr   ArrConfig      `koanf:"radarr"`
	Sonarr   ArrConfig      `koanf:"sonarr"`
	Engine   EngineConfig   `koanf:"engine"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Store    StoreConfig    `koanf:"store"`
	Backup   BackupConfig   `koanf:"backup"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// History source identifiers.
const (
	HistorySourcePlex     = "plex"
	HistorySourceJellyfin = "jellyfin"
	HistorySourceTautulli = "tautulli"
)

// HistoryConfig selects the watch-history source and bounds each fetch.
type HistoryConfig struct {
	Source string `koanf:"source"`
	Limit  int    `koanf:"limit"`
}

// PlexConfig holds Plex Media Server connection settings.
type PlexConfig struct {
	URL       string `koanf:"url"`
	Token     string `koanf:"token"`
	AccountID string `koanf:"account_id"` // optional: restrict history to one account
}

// JellyfinConfig holds Jellyfin connection settings. UserID is required
// because played-state is per user.
type JellyfinConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
	UserID string `koanf:"user_id"`
}

// TautulliConfig holds Tautulli connection settings.
type TautulliConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
	User   string `koanf:"user"` // optional user filter for get_history
}

// TMDBConfig configures the content catalog.
type TMDBConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	ImageBaseURL      string        `koanf:"image_base_url"`
	Language          string        `koanf:"language"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	CacheSize         int           `koanf:"cache_size"`
	Timeout           time.Duration `koanf:"timeout"`
}

// LLMConfig configures the generative recommender (OpenRouter-compatible).
type LLMConfig struct {
	Enabled bool          `koanf:"enabled"`
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Referer string        `koanf:"referer"`
	Title   string        `koanf:"title"`
	Timeout time.Duration `koanf:"timeout"`
}

// ArrConfig configures a Radarr or Sonarr library target.
type ArrConfig struct {
	Enabled          bool          `koanf:"enabled"`
	URL              string        `koanf:"url"`
	APIKey           string        `koanf:"api_key"`
	QualityProfileID int           `koanf:"quality_profile_id"`
	RootFolderPath   string        `koanf:"root_folder_path"`
	SearchOnAdd      bool          `koanf:"search_on_add"`
	Timeout          time.Duration `koanf:"timeout"`
}

// EngineConfig tunes a reconciliation run.
type EngineConfig struct {
	MaxPerRun   int           `koanf:"max_per_run"`
	Concurrency int           `koanf:"concurrency"`
	AutoCommit  bool          `koanf:"auto_commit"`
	Filters     FiltersConfig `koanf:"filters"`
}

// FiltersConfig are the default filters used by scheduled runs.
type FiltersConfig struct {
	Genres   []string `koanf:"genres"`
	Language string   `koanf:"language"`
	YearMin  int      `koanf:"year_min"`
	YearMax  int      `koanf:"year_max"`
	Kind     string   `koanf:"kind"`
}

// ScheduleConfig drives the periodic run service.
type ScheduleConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	RunOnStartup bool          `koanf:"run_on_startup"`
	RunTimeout   time.Duration `koanf:"run_timeout"`
}

// StoreConfig configures the embedded BadgerDB store.
type StoreConfig struct {
	Path           string `koanf:"path"`
	InMemory       bool   `koanf:"in_memory"`
	LogBufferSize  int    `koanf:"log_buffer_size"`
	LogRetainCount int    `koanf:"log_retain_count"`
}

// BackupConfig controls scheduled store snapshots.
type BackupConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Dir              string        `koanf:"dir"`
	Interval         time.Duration `koanf:"interval"`
	Retain           int           `koanf:"retain"`            // newest snapshots kept
	CompressionLevel int           `koanf:"compression_level"` // gzip level, -1 for default
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// SecurityConfig holds authentication and request-limiting settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ServerAddr returns host:port for http.Server.
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
