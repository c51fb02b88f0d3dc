// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setMinimalEnv sets the variables required for a configuration to validate.
func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PLEX_URL", "http://plex:32400")
	t.Setenv("PLEX_TOKEN", "plex-token")
	t.Setenv("TMDB_API_KEY", "tmdb-key")
	t.Setenv("AUTH_MODE", "none")
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.History.Source != HistorySourcePlex {
		t.Errorf("History.Source = %q, want plex", cfg.History.Source)
	}
	if cfg.History.Limit != 50 {
		t.Errorf("History.Limit = %d, want 50", cfg.History.Limit)
	}
	if cfg.Engine.MaxPerRun != 20 {
		t.Errorf("Engine.MaxPerRun = %d, want 20", cfg.Engine.MaxPerRun)
	}
	if cfg.Engine.AutoCommit {
		t.Error("Engine.AutoCommit should be false by default")
	}
	if cfg.Engine.Filters.Language != "all" {
		t.Errorf("Engine.Filters.Language = %q, want all", cfg.Engine.Filters.Language)
	}
	if cfg.LLM.Enabled {
		t.Error("LLM.Enabled should be false by default")
	}
	if cfg.Schedule.Interval != 24*time.Hour {
		t.Errorf("Schedule.Interval = %v, want 24h", cfg.Schedule.Interval)
	}
	if cfg.Server.Port != 8687 {
		t.Errorf("Server.Port = %d, want 8687", cfg.Server.Port)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"PLEX_TOKEN", "plex.token"},
		{"RADARR_API_KEY", "radarr.api_key"},
		{"SONARR_ROOT_FOLDER_PATH", "sonarr.root_folder_path"},
		{"OPENROUTER_API_KEY", "llm.api_key"},
		{"ENGINE_FILTER_GENRES", "engine.filters.genres"},
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"UNRELATED_VARIABLE", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("ENGINE_MAX_PER_RUN", "30")
	t.Setenv("ENGINE_AUTO_COMMIT", "true")
	t.Setenv("ENGINE_FILTER_GENRES", "Drama, Thriller ,")
	t.Setenv("SCHEDULE_INTERVAL", "6h")
	t.Setenv("CORS_ORIGINS", "https://a.example.org,https://b.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Plex.Token != "plex-token" {
		t.Errorf("Plex.Token = %q, want plex-token", cfg.Plex.Token)
	}
	if cfg.Engine.MaxPerRun != 30 {
		t.Errorf("Engine.MaxPerRun = %d, want 30", cfg.Engine.MaxPerRun)
	}
	if !cfg.Engine.AutoCommit {
		t.Error("Engine.AutoCommit should be true")
	}
	if len(cfg.Engine.Filters.Genres) != 2 || cfg.Engine.Filters.Genres[1] != "Thriller" {
		t.Errorf("Engine.Filters.Genres = %v, want [Drama Thriller]", cfg.Engine.Filters.Genres)
	}
	if cfg.Schedule.Interval != 6*time.Hour {
		t.Errorf("Schedule.Interval = %v, want 6h", cfg.Schedule.Interval)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v, want 2 entries", cfg.Security.CORSOrigins)
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
history:
  source: jellyfin
  limit: 25
jellyfin:
  url: http://jellyfin:8096
  api_key: jf-key
  user_id: user-1
tmdb:
  api_key: tmdb-key
radarr:
  enabled: true
  url: http://radarr:7878
  api_key: radarr-key
  root_folder_path: /movies
security:
  auth_mode: none
engine:
  max_per_run: 10
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("ENGINE_MAX_PER_RUN", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.History.Source != HistorySourceJellyfin || cfg.History.Limit != 25 {
		t.Errorf("History = %+v, want jellyfin/25", cfg.History)
	}
	if !cfg.Radarr.Enabled || cfg.Radarr.RootFolderPath != "/movies" {
		t.Errorf("Radarr = %+v", cfg.Radarr)
	}
	if cfg.Radarr.QualityProfileID != 1 {
		t.Errorf("Radarr.QualityProfileID = %d, want default 1", cfg.Radarr.QualityProfileID)
	}
	if cfg.Engine.MaxPerRun != 15 {
		t.Errorf("Engine.MaxPerRun = %d, want env override 15", cfg.Engine.MaxPerRun)
	}
}

func TestLoadValidationFailure(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("TMDB_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error without TMDB_API_KEY")
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("history:\n  limit: 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "nope.yaml"))
	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}
}
