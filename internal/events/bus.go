// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package events carries run lifecycle and recommendation status changes over
// an in-process Watermill pub/sub, so the engine never waits on UI clients.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
)

// Topics published by the engine.
const (
	TopicRunStarted           = "run.started"
	TopicRunCompleted         = "run.completed"
	TopicRecommendationStatus = "recommendation.status"
)

// AllTopics lists every topic, in publish order of a typical run.
var AllTopics = []string{TopicRunStarted, TopicRecommendationStatus, TopicRunCompleted}

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus closed")

const metadataPublishedAt = "published_at"

// Bus is a thin typed wrapper around a Watermill GoChannel.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus. bufferSize is the per-subscriber output buffer.
func NewBus(bufferSize int64, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: bufferSize,
		}, logger),
		logger: logger,
	}
}

// Publish encodes payload as JSON and publishes it on topic. Messages without
// subscribers are discarded.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metadataPublishedAt, time.Now().UTC().Format(time.RFC3339Nano))
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns the message channel for topic. The channel closes when
// ctx is canceled or the bus is closed. Each message must be acked.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	msgs, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return msgs, nil
}

// Close stops the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
