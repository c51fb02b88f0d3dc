// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

/*
Package supervisor runs the long-lived components under a suture tree.

Tree layout:

	curatarr (root)
	├── data-layer
	│   ├── log-sink
	│   ├── store-gc
	│   └── backup (when backup.enabled)
	├── engine-layer
	│   ├── websocket-hub
	│   ├── event-forwarder
	│   └── run-scheduler (when schedule.enabled)
	└── api-layer
	    └── http-server

Each layer is its own supervisor, so restarts and backoff are scoped to the
layer that failed. Supervisor events (restarts, backoff, panics) are logged
through sutureslog into the application's slog logger, which itself writes
through zerolog.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewLogSinkService(sink))
	tree.AddEngineService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh

Service wrappers live in the services subpackage; they depend only on small
interfaces so this package never imports the components it supervises.
*/
package supervisor
