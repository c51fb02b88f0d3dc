// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package main is the entry point for the Curatarr server.
//
// Curatarr reads recent watch history from Plex, Jellyfin or Tautulli,
// gathers recommendations from TMDB and optionally an LLM, drops anything
// already in Radarr or Sonarr, and stores the rest for review. Approved
// recommendations are committed to the library on request, or automatically
// when auto-commit is enabled.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Store: BadgerDB for recommendations, runs and the run log
//  3. Clients: history source, TMDB, optional LLM, Radarr and Sonarr
//  4. Events: in-process Watermill bus forwarded to the WebSocket hub
//  5. Engine: the reconciliation pass and commit logic
//  6. Authentication: JWT, Basic Auth, or none
//  7. HTTP Server: Chi router under /api/v1
//  8. Supervisor tree: data, engine and API layers (suture v4); the data
//     layer also takes scheduled snapshots when backups are enabled
//
// # Configuration
//
// Common environment variables:
//
//	HISTORY_SOURCE=plex|jellyfin|tautulli
//	PLEX_URL, PLEX_TOKEN
//	TMDB_API_KEY
//	LLM_ENABLED=true, LLM_API_KEY (or OPENROUTER_API_KEY)
//	RADARR_ENABLED=true, RADARR_URL, RADARR_API_KEY
//	SONARR_ENABLED=true, SONARR_URL, SONARR_API_KEY
//	SCHEDULE_ENABLED=true, SCHEDULE_INTERVAL=24h
//	BACKUP_ENABLED=true, BACKUP_DIR=/data/backups, BACKUP_RETAIN=7
//	AUTH_MODE=jwt, JWT_SECRET (32+ characters), ADMIN_USERNAME, ADMIN_PASSWORD
//
// # Example Usage
//
//	export PLEX_URL=http://plex:32400
//	export PLEX_TOKEN=your-plex-token
//	export TMDB_API_KEY=your-tmdb-key
//	export RADARR_ENABLED=true
//	export RADARR_URL=http://radarr:7878
//	export RADARR_API_KEY=your-radarr-key
//	export AUTH_MODE=none  # For development
//	./curatarr
//
// # Signal Handling
//
// SIGINT and SIGTERM stop the supervisor tree. The HTTP server drains
// in-flight requests, the log sink flushes buffered entries, and the event
// bus and store are closed last.
package main
