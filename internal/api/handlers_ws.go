// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package api

import (
	"net/http"
	"time"

	ws "github.com/tomtom215/curatarr/internal/websocket"
)

const hubRegisterTimeout = 5 * time.Second

// WebSocket upgrades the connection and registers it with the hub, which
// then streams run and status events to it. Origins are checked against
// the CORS allow list.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("event stream not available")
		return
	}

	upgrader := ws.NewUpgrader(h.config.Security.CORSOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	client := ws.NewClient(h.hub, conn)
	select {
	case h.hub.Register <- client:
		client.Start()
	case <-h.hub.Done():
		_ = conn.Close()
	case <-time.After(hubRegisterTimeout):
		_ = conn.Close()
	}
}
