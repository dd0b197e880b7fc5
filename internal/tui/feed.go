package tui

import (
	"sync"

	"github.com/kixxauth/treadwell"
)

const defaultFeedCapacity = 256

// Feed buffers runner events for the progress view. Listeners on the bus run
// on task goroutines, so delivery never blocks: when the buffer is full the
// oldest buffered start event makes room first, and the rest keep their order.
type Feed struct {
	ch     chan treadwell.Event
	sub    treadwell.Subscription
	mu     sync.Mutex
	closed bool
}

// Watch subscribes a new feed to bus.
func Watch(bus *treadwell.Bus, capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultFeedCapacity
	}
	f := &Feed{ch: make(chan treadwell.Event, capacity)}
	f.sub = bus.Subscribe(f.deliver)
	return f
}

// Events is closed by Close.
func (f *Feed) Events() <-chan treadwell.Event {
	return f.ch
}

// Close unsubscribes the feed and closes its channel.
func (f *Feed) Close() {
	f.sub.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}

func (f *Feed) deliver(event treadwell.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- event:
		return
	default:
	}

	// Full. Only deliver adds to the channel, so draining and refilling under
	// f.mu cannot block even while the reader keeps taking events.
	buffered := make([]treadwell.Event, 0, cap(f.ch)+1)
	for drained := false; !drained; {
		select {
		case queued := <-f.ch:
			buffered = append(buffered, queued)
		default:
			drained = true
		}
	}
	buffered = append(buffered, event)
	if len(buffered) > cap(f.ch) {
		buffered = removeAt(buffered, dropIndex(buffered))
	}
	for _, queued := range buffered {
		f.ch <- queued
	}
}

// dropIndex picks the oldest start event, or the oldest event when only end
// and error events are buffered.
func dropIndex(events []treadwell.Event) int {
	for i, event := range events {
		if event.Type == treadwell.EventStart {
			return i
		}
	}
	return 0
}

func removeAt(events []treadwell.Event, i int) []treadwell.Event {
	return append(events[:i], events[i+1:]...)
}
