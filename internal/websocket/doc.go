// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

/*
Package websocket pushes engine events to connected dashboards.

A Hub owns the client set and fans out messages; each Client runs a read
goroutine (pings in, unregister on failure) and a write goroutine (messages
out, keepalive pings). The hub never blocks a publisher: BroadcastJSON drops
the message when the queue is full, and a client whose send buffer is full is
disconnected.

Messages use the envelope {"type": ..., "data": ...}. Event messages carry
the bus topic as the type:

  - run.started: a reconciliation run began (run record without result)
  - run.completed: a run finished (run record with result)
  - recommendation.status: a recommendation changed status

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	upgrader := websocket.NewUpgrader(cfg.Security.CORSOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
	    return
	}
	client := websocket.NewClient(hub, conn)
	hub.Register <- client
	client.Start()

In the server the hub runs under the supervisor tree and the events
forwarder calls BroadcastJSON.
*/
package websocket
