// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultDrainTimeout = 10 * time.Second

// HTTPServer is satisfied by *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
}

// HTTPServerService runs the API server under supervision.
//
// On cancellation it drains for up to drainTimeout. A manual run holds its
// POST /runs response open, so a drain can outlast the timeout; the server
// is then closed hard. The run itself is detached from its request and is
// not interrupted by the close.
type HTTPServerService struct {
	server       HTTPServer
	drainTimeout time.Duration
	logger       zerolog.Logger
	name         string
}

// NewHTTPServerService wraps server. A non-positive drainTimeout uses 10s.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHTTPServerService(server HTTPServer, drainTimeout time.Duration, logger zerolog.Logger) *HTTPServerService {
	if drainTimeout <= 0 {
		drainTimeout = defaultDrainTimeout
	}
	return &HTTPServerService{
		server:       server,
		drainTimeout: drainTimeout,
		logger:       logger.With().Str("service", "http-server").Logger(),
		name:         "http-server",
	}
}

// Serve implements suture.Service. Listen failures are returned so the
// supervisor can restart the server with backoff.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		err := s.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drainTimeout)
	defer cancel()

	if err := s.server.Shutdown(drainCtx); err != nil {
		s.logger.Warn().Err(err).Dur("drain_timeout", s.drainTimeout).Msg("drain incomplete, closing open connections")
		if cerr := s.server.Close(); cerr != nil {
			return fmt.Errorf("close after failed drain: %w", errors.Join(err, cerr))
		}
	}
	<-done
	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *HTTPServerService) String() string {
	return s.name
}
