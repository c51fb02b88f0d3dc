// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateHistory,
		c.validateTMDB,
		c.validateLLM,
		c.validateArr,
		c.validateEngine,
		c.validateSchedule,
		c.validateStore,
		c.validateBackup,
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Limit < 1 || c.History.Limit > 1000 {
		return fmt.Errorf("HISTORY_LIMIT must be between 1 and 1000")
	}

	switch c.History.Source {
	case HistorySourcePlex:
		if c.Plex.URL == "" || c.Plex.Token == "" {
			return fmt.Errorf("PLEX_URL and PLEX_TOKEN are required when HISTORY_SOURCE=plex")
		}
	case HistorySourceJellyfin:
		if c.Jellyfin.URL == "" || c.Jellyfin.APIKey == "" || c.Jellyfin.UserID == "" {
			return fmt.Errorf("JELLYFIN_URL, JELLYFIN_API_KEY and JELLYFIN_USER_ID are required when HISTORY_SOURCE=jellyfin")
		}
	case HistorySourceTautulli:
		if c.Tautulli.URL == "" || c.Tautulli.APIKey == "" {
			return fmt.Errorf("TAUTULLI_URL and TAUTULLI_API_KEY are required when HISTORY_SOURCE=tautulli")
		}
	default:
		return fmt.Errorf("HISTORY_SOURCE must be one of: plex, jellyfin, tautulli")
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		return fmt.Errorf("TMDB_REQUESTS_PER_SECOND must be positive")
	}
	return nil
}

func (c *Config) validateBackup() error {
	if !c.Backup.Enabled {
		return nil
	}
	if c.Backup.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when BACKUP_ENABLED=true")
	}
	if c.Backup.Retain < 1 {
		return fmt.Errorf("BACKUP_RETAIN must be at least 1")
	}
	if c.Backup.Interval < time.Minute {
		return fmt.Errorf("BACKUP_INTERVAL must be at least 1m")
	}
	if c.Backup.CompressionLevel < -2 || c.Backup.CompressionLevel > 9 {
		return fmt.Errorf("BACKUP_COMPRESSION_LEVEL must be between -2 and 9")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if !c.LLM.Enabled {
		return nil
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required when LLM_ENABLED=true")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL is required when LLM_ENABLED=true")
	}
	return nil
}

func (c *Config) validateArr() error {
	if err := validateArrTarget("RADARR", c.Radarr); err != nil {
		return err
	}
	return validateArrTarget("SONARR", c.Sonarr)
}

//nolint:gocritic // ArrConfig is small and read-only here
func validateArrTarget(prefix string, a ArrConfig) error {
	if !a.Enabled {
		return nil
	}
	if a.URL == "" || a.APIKey == "" {
		return fmt.Errorf("%s_URL and %s_API_KEY are required when %s_ENABLED=true", prefix, prefix, prefix)
	}
	if a.QualityProfileID < 1 {
		return fmt.Errorf("%s_QUALITY_PROFILE_ID must be a positive profile id", prefix)
	}
	if a.RootFolderPath == "" {
		return fmt.Errorf("%s_ROOT_FOLDER_PATH is required when %s_ENABLED=true", prefix, prefix)
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.MaxPerRun < 1 || c.Engine.MaxPerRun > 500 {
		return fmt.Errorf("ENGINE_MAX_PER_RUN must be between 1 and 500")
	}
	if c.Engine.Concurrency < 1 || c.Engine.Concurrency > 32 {
		return fmt.Errorf("ENGINE_CONCURRENCY must be between 1 and 32")
	}

	f := c.Engine.Filters
	if f.YearMin != 0 && f.YearMax != 0 && f.YearMin > f.YearMax {
		return fmt.Errorf("ENGINE_FILTER_YEAR_MIN must not exceed ENGINE_FILTER_YEAR_MAX")
	}
	switch f.Kind {
	case "", "movie", "series":
	default:
		return fmt.Errorf("ENGINE_FILTER_KIND must be one of: movie, series")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if !c.Schedule.Enabled {
		return nil
	}
	if c.Schedule.Interval < time.Minute {
		return fmt.Errorf("SCHEDULE_INTERVAL must be at least 1m")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	if c.Store.LogBufferSize < 1 {
		return fmt.Errorf("STORE_LOG_BUFFER_SIZE must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

var validAuthModes = map[string]bool{
	"none":  true,
	"jwt":   true,
	"basic": true,
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt, basic")
	}
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}

	switch c.Security.AuthMode {
	case "jwt":
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
		return c.validateAdminCredentials()
	case "basic":
		return c.validateAdminCredentials()
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate one with: openssl rand -base64 32")
	}
	return nil
}

func (c *Config) validateAdminCredentials() error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE is %s", c.Security.AuthMode)
	}
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when AUTH_MODE is %s", c.Security.AuthMode)
	}
	if len(c.Security.AdminPassword) < 12 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 12 characters")
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a real password")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

var (
	validLogLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
)

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
