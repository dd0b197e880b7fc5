package treadwell

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType names a task lifecycle notification.
type EventType string

const (
	// EventStart fires before a task resolves its dependencies.
	EventStart EventType = "start"
	// EventEnd fires after a task body succeeds.
	EventEnd EventType = "end"
	// EventError fires when a task fails.
	EventError EventType = "error"
)

// Event is delivered to listeners for every task invocation.
type Event struct {
	Type  EventType
	Key   string
	RunID string
	Time  time.Time
	Err   error
	// Discarded marks an error from a parallel member that finished after
	// another member of its group had already failed the group.
	Discarded bool
}

// Listener receives events. Listeners run on the goroutine executing the
// task and must not block for long.
type Listener func(Event)

// Subscription is an active listener registration.
type Subscription struct {
	cancel func()
}

// Close removes the listener. It is safe to call more than once.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

type subscriber struct {
	listener Listener
	types    map[EventType]struct{}
}

func (s *subscriber) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus fans task events out to subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	order       []*subscriber
}

// NewBus returns a bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subscribers: map[*subscriber]struct{}{}}
}

// Subscribe registers listener for the given event types, or for every type
// when none are given.
func (b *Bus) Subscribe(listener Listener, types ...EventType) Subscription {
	if listener == nil {
		return Subscription{}
	}
	sub := &subscriber{listener: listener}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.order = append(b.order, sub)
	b.mu.Unlock()
	var once sync.Once
	return Subscription{cancel: func() {
		once.Do(func() { b.remove(sub) })
	}}
}

func (b *Bus) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	for i, s := range b.order {
		if s == sub {
			b.order = append(b.order[:i:i], b.order[i+1:]...)
			break
		}
	}
}

// UnsubscribeAll removes every listener.
func (b *Bus) UnsubscribeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = map[*subscriber]struct{}{}
	b.order = nil
}

// Len reports how many listeners are registered.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Publish delivers event to every interested listener in subscription order.
func (b *Bus) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.order))
	for _, sub := range b.order {
		if sub.wants(event.Type) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()
	for _, sub := range targets {
		sub.listener(event)
	}
}

// LogListener writes task events to logger: starts and ends at debug level,
// failures at error level.
func LogListener(logger *Logger) Listener {
	return func(e Event) {
		fields := []zap.Field{zap.String("key", e.Key), zap.String("run", e.RunID)}
		switch e.Type {
		case EventStart:
			logger.Debug("task start", fields...)
		case EventEnd:
			logger.Debug("task end", fields...)
		case EventError:
			if e.Discarded {
				logger.Debug("discarded task failed", append(fields, zap.Error(e.Err))...)
				return
			}
			logger.Error("task failed", append(fields, zap.Error(e.Err))...)
		}
	}
}
