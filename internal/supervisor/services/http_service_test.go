// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// fakeServer blocks in ListenAndServe until released by Shutdown or Close.
type fakeServer struct {
	listenErr   error
	shutdownErr error

	started   chan struct{}
	released  chan struct{}
	listens   atomic.Int32
	shutdowns atomic.Int32
	closes    atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		started:  make(chan struct{}, 4),
		released: make(chan struct{}),
	}
}

func (f *fakeServer) ListenAndServe() error {
	f.listens.Add(1)
	f.started <- struct{}{}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.released
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	if f.shutdownErr != nil {
		return f.shutdownErr
	}
	close(f.released)
	return nil
}

func (f *fakeServer) Close() error {
	f.closes.Add(1)
	close(f.released)
	return nil
}

func serveAsync(ctx context.Context, svc *HTTPServerService) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return errCh
}

func TestNewHTTPServerService_DrainTimeout(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)

	for _, tt := range []struct {
		in, want time.Duration
	}{
		{3 * time.Second, 3 * time.Second},
		{0, defaultDrainTimeout},
		{-time.Second, defaultDrainTimeout},
	} {
		svc := NewHTTPServerService(newFakeServer(), tt.in, zerolog.Nop())
		if svc.drainTimeout != tt.want {
			t.Errorf("NewHTTPServerService(%v).drainTimeout = %v, want %v", tt.in, svc.drainTimeout, tt.want)
		}
	}
}

func TestHTTPServerService_GracefulDrain(t *testing.T) {
	server := newFakeServer()
	svc := NewHTTPServerService(server, time.Second, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := serveAsync(ctx, svc)

	<-server.started
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if server.shutdowns.Load() != 1 || server.closes.Load() != 0 {
		t.Errorf("shutdowns = %d, closes = %d; want 1, 0", server.shutdowns.Load(), server.closes.Load())
	}
}

func TestHTTPServerService_ForceClosesAfterFailedDrain(t *testing.T) {
	server := newFakeServer()
	server.shutdownErr = context.DeadlineExceeded
	svc := NewHTTPServerService(server, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := serveAsync(ctx, svc)

	<-server.started
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after a failed drain")
	}
	if server.closes.Load() != 1 {
		t.Errorf("closes = %d, want 1", server.closes.Load())
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	server := newFakeServer()
	server.listenErr = &net.OpError{Op: "listen", Net: "tcp", Err: errors.New("address already in use")}
	svc := NewHTTPServerService(server, time.Second, zerolog.Nop())

	err := svc.Serve(context.Background())
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("Serve() = %v, want wrapped *net.OpError", err)
	}
}

func TestHTTPServerService_RealServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	}
	svc := NewHTTPServerService(server, time.Second, zerolog.Nop())

	sup := suture.New("test", suture.Spec{FailureBackoff: 10 * time.Millisecond, Timeout: 2 * time.Second})
	sup.Add(svc)
	ctx, cancel := context.WithCancel(context.Background())
	supErr := sup.ServeBackground(ctx)

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get("http://" + addr + "/")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	<-supErr
	if _, err := http.Get("http://" + addr + "/"); err == nil {
		t.Error("server still answering after supervisor stopped")
	}
}
