// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package main

import (
	"errors"
	"fmt"

	"github.com/tomtom215/curatarr/internal/api"
	"github.com/tomtom215/curatarr/internal/auth"
	"github.com/tomtom215/curatarr/internal/catalog"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/generative"
	"github.com/tomtom215/curatarr/internal/history"
	"github.com/tomtom215/curatarr/internal/library"
	"github.com/tomtom215/curatarr/internal/logging"
	"github.com/tomtom215/curatarr/internal/recommend"
)

// clients are the external collaborators of the engine. Optional ones are
// left as nil interfaces, never as typed nil pointers.
type clients struct {
	history    recommend.HistorySource
	catalog    recommend.CatalogRecommender
	generative recommend.GenerativeRecommender
	movies     recommend.LibraryTarget
	series     recommend.LibraryTarget
}

func buildClients(cfg *config.Config) (*clients, error) {
	c := &clients{}

	src, err := history.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("history source: %w", err)
	}
	c.history = src
	logging.Info().Str("source", src.Name()).Msg("History source configured")

	tmdb, err := catalog.New(cfg.TMDB)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c.catalog = tmdb

	if llm, err := generative.New(cfg.LLM); err == nil {
		c.generative = llm
		logging.Info().Str("model", cfg.LLM.Model).Msg("Generative recommender enabled")
	} else if !errors.Is(err, generative.ErrNotConfigured) {
		return nil, fmt.Errorf("generative recommender: %w", err)
	} else if cfg.LLM.Enabled {
		logging.Warn().Msg("LLM enabled without an API key; generative recommendations disabled")
	}

	if radarr, err := library.NewRadarr(cfg.Radarr); err == nil {
		c.movies = radarr
		logging.Info().Str("url", cfg.Radarr.URL).Msg("Radarr target enabled")
	} else if !errors.Is(err, library.ErrNotConfigured) {
		return nil, fmt.Errorf("radarr: %w", err)
	}

	if sonarr, err := library.NewSonarr(cfg.Sonarr); err == nil {
		c.series = sonarr
		logging.Info().Str("url", cfg.Sonarr.URL).Msg("Sonarr target enabled")
	} else if !errors.Is(err, library.ErrNotConfigured) {
		return nil, fmt.Errorf("sonarr: %w", err)
	}

	return c, nil
}

// buildAuth creates the managers for the configured mode. The admin
// credentials back both Basic auth and the JWT login endpoint.
func buildAuth(cfg *config.Config) (*auth.Middleware, *auth.JWTManager, *auth.BasicAuthManager, error) {
	mode := auth.AuthMode(cfg.Security.AuthMode)

	var jwtManager *auth.JWTManager
	if mode == auth.AuthModeJWT {
		var err error
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("jwt manager: %w", err)
		}
	}

	var adminManager *auth.BasicAuthManager
	if cfg.Security.AdminUsername != "" && cfg.Security.AdminPassword != "" {
		var err error
		adminManager, err = auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("admin credentials: %w", err)
		}
	}

	mw, err := auth.NewMiddleware(jwtManager, adminManager, mode, api.AuthDenied)
	if err != nil {
		return nil, nil, nil, err
	}

	switch mode {
	case auth.AuthModeJWT:
		logging.Info().Msg("JWT authentication enabled")
	case auth.AuthModeBasic:
		logging.Info().Msg("Basic authentication enabled")
		logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")
	case auth.AuthModeNone:
		logging.Warn().Msg("SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none); use only on isolated networks")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}
	return mw, jwtManager, adminManager, nil
}
