// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/metrics"
)

// MemoryBus is an in-process pub/sub. It is not durable; a subscriber that
// stops draining its channel loses messages once the buffer is full.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Message
	buffer int
}

const (
	dropLogEvery  = 100
	defaultBuffer = 64
)

var dropCount atomic.Uint64

func NewMemoryBus() *MemoryBus {
	return NewMemoryBusWithBuffer(defaultBuffer)
}

// NewMemoryBusWithBuffer sets the per-subscriber channel capacity.
func NewMemoryBusWithBuffer(n int) *MemoryBus {
	if n <= 0 {
		n = defaultBuffer
	}
	return &MemoryBus{subs: make(map[string][]chan Message), buffer: n}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) snapshot(topic string) []chan Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]chan Message(nil), b.subs[topic]...)
}

// Publish delivers msg to every subscriber of topic, blocking on full
// subscribers until ctx is done.
func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	delivered := 0
	defer func() { metrics.AddBusDelivered(topic, delivered) }()
	for _, ch := range b.snapshot(topic) {
		select {
		case ch <- msg:
			delivered++
		case <-ctx.Done():
			reason := publishDropReason(ctx.Err())
			b.recordDrop(topic, reason)
			return fmt.Errorf("publish topic %q: %w", topic, ctx.Err())
		}
	}
	return nil
}

// Offer delivers msg to every subscriber with room and returns how many
// received it. It never blocks, so the control loop can call it.
func (b *MemoryBus) Offer(topic string, msg Message) int {
	delivered, dropped := 0, 0
	b.mu.RLock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- msg:
			delivered++
		default:
			dropped++
		}
	}
	b.mu.RUnlock()
	metrics.AddBusDelivered(topic, delivered)
	for i := 0; i < dropped; i++ {
		b.recordDrop(topic, "full")
	}
	return delivered
}

func (b *MemoryBus) recordDrop(topic, reason string) {
	metrics.IncBusDropReason(topic, reason)
	count := dropCount.Add(1)
	if count%dropLogEvery == 1 {
		log.L().Warn().
			Str("topic", topic).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("memory bus dropped a message")
	}
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	ch := make(chan Message, b.buffer)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	metrics.BusSubscribed(topic, 1)

	return &memSub{b: b, topic: topic, ch: ch}, nil
}

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message
	once  sync.Once
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()

		lst := s.b.subs[s.topic]
		out := lst[:0]
		for _, c := range lst {
			if c != s.ch {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		close(s.ch)
		metrics.BusSubscribed(s.topic, -1)
	})
	return nil
}

var _ Bus = (*MemoryBus)(nil)
