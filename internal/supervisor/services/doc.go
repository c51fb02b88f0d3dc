// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

/*
Package services provides suture.Service wrappers for Curatarr components.

Each wrapper translates a component's lifecycle into suture's
Serve(ctx) error and names itself through fmt.Stringer:

  - HTTPServerService: ListenAndServe/Shutdown with a drain timeout
  - WebSocketHubService, EventForwarderService, LogSinkService: components
    that already expose RunWithContext
  - RunSchedulerService: periodic reconciliation runs with the default filters
  - StoreGCService: periodic BadgerDB value-log garbage collection
  - BackupService: scheduled store snapshots

Wrappers depend on small interfaces rather than concrete components, so
they can be tested with plain mocks.
*/
package services
