// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/curatarr/config.yaml",
	"/etc/curatarr/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		History: HistoryConfig{
			Source: HistorySourcePlex,
			Limit:  50,
		},
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p/w500",
			Language:          "en-US",
			RequestsPerSecond: 20,
			CacheTTL:          24 * time.Hour,
			CacheSize:         2048,
			Timeout:           15 * time.Second,
		},
		LLM: LLMConfig{
			Enabled: false,
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "openai/gpt-4o-mini",
			Referer: "https://github.com/tomtom215/curatarr",
			Title:   "Curatarr",
			Timeout: 60 * time.Second,
		},
		Radarr: ArrConfig{
			QualityProfileID: 1,
			SearchOnAdd:      true,
			Timeout:          30 * time.Second,
		},
		Sonarr: ArrConfig{
			QualityProfileID: 1,
			SearchOnAdd:      true,
			Timeout:          30 * time.Second,
		},
		Engine: EngineConfig{
			MaxPerRun:   20,
			Concurrency: 4,
			AutoCommit:  false,
			Filters: FiltersConfig{
				Language: "all",
			},
		},
		Schedule: ScheduleConfig{
			Enabled:      false,
			Interval:     24 * time.Hour,
			RunOnStartup: false,
			RunTimeout:   30 * time.Minute,
		},
		Store: StoreConfig{
			Path:           "/data/curatarr",
			InMemory:       false,
			LogBufferSize:  256,
			LogRetainCount: 5000,
		},
		Backup: BackupConfig{
			Enabled:          false,
			Dir:              "/data/backups",
			Interval:         24 * time.Hour,
			Retain:           7,
			CompressionLevel: -1, // gzip.DefaultCompression
		},
		Server: ServerConfig{
			Port:        8687,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from three layers:
//
//  1. struct defaults
//  2. optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables (highest priority)
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"engine.filters.genres",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings translates environment variable names (lower-cased) to koanf
// paths. Unmapped variables are ignored.
var envMappings = map[string]string{
	"history_source": "history.source",
	"history_limit":  "history.limit",

	"plex_url":        "plex.url",
	"plex_token":      "plex.token",
	"plex_account_id": "plex.account_id",

	"jellyfin_url":     "jellyfin.url",
	"jellyfin_api_key": "jellyfin.api_key",
	"jellyfin_user_id": "jellyfin.user_id",

	"tautulli_url":     "tautulli.url",
	"tautulli_api_key": "tautulli.api_key",
	"tautulli_user":    "tautulli.user",

	"tmdb_api_key":             "tmdb.api_key",
	"tmdb_base_url":            "tmdb.base_url",
	"tmdb_image_base_url":      "tmdb.image_base_url",
	"tmdb_language":            "tmdb.language",
	"tmdb_requests_per_second": "tmdb.requests_per_second",
	"tmdb_cache_ttl":           "tmdb.cache_ttl",
	"tmdb_cache_size":          "tmdb.cache_size",
	"tmdb_timeout":             "tmdb.timeout",

	"llm_enabled":  "llm.enabled",
	"llm_api_key":  "llm.api_key",
	"llm_base_url": "llm.base_url",
	"llm_model":    "llm.model",
	"llm_timeout":  "llm.timeout",
	// OpenRouter's conventional variable name
	"openrouter_api_key": "llm.api_key",

	"radarr_enabled":            "radarr.enabled",
	"radarr_url":                "radarr.url",
	"radarr_api_key":            "radarr.api_key",
	"radarr_quality_profile_id": "radarr.quality_profile_id",
	"radarr_root_folder_path":   "radarr.root_folder_path",
	"radarr_search_on_add":      "radarr.search_on_add",
	"radarr_timeout":            "radarr.timeout",

	"sonarr_enabled":            "sonarr.enabled",
	"sonarr_url":                "sonarr.url",
	"sonarr_api_key":            "sonarr.api_key",
	"sonarr_quality_profile_id": "sonarr.quality_profile_id",
	"sonarr_root_folder_path":   "sonarr.root_folder_path",
	"sonarr_search_on_add":      "sonarr.search_on_add",
	"sonarr_timeout":            "sonarr.timeout",

	"engine_max_per_run":      "engine.max_per_run",
	"engine_concurrency":      "engine.concurrency",
	"engine_auto_commit":      "engine.auto_commit",
	"engine_filter_genres":    "engine.filters.genres",
	"engine_filter_language":  "engine.filters.language",
	"engine_filter_year_min":  "engine.filters.year_min",
	"engine_filter_year_max":  "engine.filters.year_max",
	"engine_filter_kind":      "engine.filters.kind",
	"schedule_enabled":        "schedule.enabled",
	"schedule_interval":       "schedule.interval",
	"schedule_run_on_startup": "schedule.run_on_startup",
	"schedule_run_timeout":    "schedule.run_timeout",

	"store_path":             "store.path",
	"store_in_memory":        "store.in_memory",
	"store_log_buffer_size":  "store.log_buffer_size",
	"store_log_retain_count": "store.log_retain_count",

	"backup_enabled":           "backup.enabled",
	"backup_dir":               "backup.dir",
	"backup_interval":          "backup.interval",
	"backup_retain":            "backup.retain",
	"backup_compression_level": "backup.compression_level",

	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_username":      "security.admin_username",
	"admin_password":      "security.admin_password",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps e.g. RADARR_API_KEY -> radarr.api_key.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
