// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/logging"
)

// Broadcaster pushes a typed message to every connected UI client.
// Satisfied by *websocket.Hub.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Forwarder relays every bus topic to a Broadcaster, using the topic name as
// the message type.
type Forwarder struct {
	bus    *Bus
	sink   Broadcaster
	topics []string
}

// NewForwarder creates a forwarder for topics, or for AllTopics when none are
// given.
func NewForwarder(bus *Bus, sink Broadcaster, topics ...string) *Forwarder {
	if len(topics) == 0 {
		topics = AllTopics
	}
	return &Forwarder{bus: bus, sink: sink, topics: topics}
}

// RunWithContext forwards until ctx is canceled.
func (f *Forwarder) RunWithContext(ctx context.Context) error {
	merged := make(chan fwdMessage)
	for _, topic := range f.topics {
		msgs, err := f.bus.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("forwarder: %w", err)
		}
		go func(topic string, msgs <-chan *message.Message) {
			for msg := range msgs {
				select {
				case merged <- fwdMessage{topic: topic, msg: msg}:
				case <-ctx.Done():
					msg.Nack()
					return
				}
			}
		}(topic, msgs)
	}

	logging.Debug().Strs("topics", f.topics).Msg("Event forwarder started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-merged:
			f.forward(m)
		}
	}
}

type fwdMessage struct {
	topic string
	msg   *message.Message
}

func (f *Forwarder) forward(m fwdMessage) {
	defer m.msg.Ack()

	var data json.RawMessage
	if err := json.Unmarshal(m.msg.Payload, &data); err != nil {
		logging.Warn().Err(err).Str("topic", m.topic).Msg("Dropping undecodable event")
		return
	}
	f.sink.BroadcastJSON(m.topic, data)
}
