// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus fans player signals out to asynchronous consumers such as the
// HTTP control surface. Synchronous listeners attach to the player directly.
package bus

import "context"

// Message is an opaque event payload; players publish typed player.Event values.
type Message interface{}

type Subscriber interface {
	// C returns a read-only message channel.
	C() <-chan Message
	// Close unsubscribes.
	Close() error
}

// Bus is the signal transport abstraction.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	// Offer publishes without blocking; subscribers that are full miss msg.
	Offer(topic string, msg Message) int
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// PlayerTopic is the topic a player's signals are published on.
func PlayerTopic(id string) string {
	return "player." + id
}
