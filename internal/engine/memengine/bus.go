// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package memengine

import (
	"sync"

	"github.com/ManuGH/gstbackend/internal/engine"
)

const busQueueSize = 256

// Bus delivers pipeline messages either inline or from its own goroutine.
type Bus struct {
	mu       sync.Mutex
	watchers map[int]func(engine.Message)
	seq      int

	async bool
	queue chan engine.Message
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func newBus(async bool) *Bus {
	b := &Bus{
		watchers: make(map[int]func(engine.Message)),
		async:    async,
		done:     make(chan struct{}),
	}
	if async {
		b.queue = make(chan engine.Message, busQueueSize)
		b.wg.Add(1)
		go b.run()
	}
	return b
}

func (b *Bus) Watch(fn func(engine.Message)) func() {
	b.mu.Lock()
	id := b.seq
	b.seq++
	b.watchers[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
	}
}

func (b *Bus) post(msg engine.Message) {
	if !b.async {
		b.deliver(msg)
		return
	}
	select {
	case b.queue <- msg:
	case <-b.done:
	}
}

// flush drops queued messages, as a native bus does once its pipeline is NULL.
func (b *Bus) flush() {
	if !b.async {
		return
	}
	for {
		select {
		case <-b.queue:
		default:
			return
		}
	}
}

func (b *Bus) deliver(msg engine.Message) {
	b.mu.Lock()
	fns := make([]func(engine.Message), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (b *Bus) run() {
	defer b.wg.Done()
	for {
		select {
		case msg := <-b.queue:
			b.deliver(msg)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) close() {
	b.once.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
}
