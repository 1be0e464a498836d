package eventbus

import (
	"context"
	"log"
	"sync"
)

// HandlerFunc processes one event. Handler errors are logged and do not stop
// other subscribers.
type HandlerFunc func(ctx context.Context, event Event) error

// Middleware intercepts events before and after fan-out.
type Middleware interface {
	// Before is called before fan-out. Returns the (possibly modified) event,
	// or nil to abort publication.
	Before(ctx context.Context, event Event) (Event, error)

	// After is called after fan-out with the first subscriber error, if any.
	After(ctx context.Context, event Event, err error) error
}

// InMemoryBus is a thread-safe event bus for single-process deployments.
//
// Usage:
//
//	bus := NewInMemoryBus()
//	unsubscribe := bus.Subscribe("StageCompleted", progressHandler)
//	bus.Publish(ctx, &StageCompleted{...})
type InMemoryBus struct {
	subscribers map[string][]*subscription
	middleware  []Middleware
	nextID      int
	mu          sync.RWMutex
}

type subscription struct {
	id      int
	handler HandlerFunc
}

// NewInMemoryBus creates a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string][]*subscription),
		middleware:  make([]Middleware, 0),
	}
}

// Publish publishes an event to all subscribers.
// Subscribers run concurrently; Publish returns after all of them finish.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) error {
	eventType := event.EventType()

	processed, err := b.runMiddlewareBefore(ctx, event)
	if err != nil {
		return err
	}
	if processed == nil {
		log.Printf("Event %s aborted by middleware", eventType)
		return nil
	}

	b.mu.RLock()
	subs := make([]*subscription, len(b.subscribers[eventType]))
	copy(subs, b.subscribers[eventType])
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.runMiddlewareAfter(ctx, event, nil)
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(subs))

	for i, sub := range subs {
		wg.Add(1)
		go func(idx int, h HandlerFunc) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Subscriber %d panicked for %s: %v", idx, eventType, r)
				}
			}()
			if err := h(ctx, processed); err != nil {
				errs[idx] = err
				log.Printf("Subscriber %d failed for %s: %v", idx, eventType, err)
			}
		}(i, sub.handler)
	}

	wg.Wait()

	var firstErr error
	for _, e := range errs {
		if e != nil {
			firstErr = e
			break
		}
	}
	b.runMiddlewareAfter(ctx, event, firstErr)
	return nil
}

// Subscribe subscribes to an event type.
// Returns an unsubscribe function for cleanup.
func (b *InMemoryBus) Subscribe(eventType string, handler HandlerFunc) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], &subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// AddMiddleware adds middleware to the bus.
// Middleware is executed in registration order before fan-out and in reverse
// order after.
func (b *InMemoryBus) AddMiddleware(mw Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, mw)
}

// SubscriberCount returns the number of subscribers for an event type.
func (b *InMemoryBus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}

// Clear removes all subscribers and middleware. Useful for testing.
func (b *InMemoryBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string][]*subscription)
	b.middleware = make([]Middleware, 0)
}

func (b *InMemoryBus) runMiddlewareBefore(ctx context.Context, event Event) (Event, error) {
	b.mu.RLock()
	mws := make([]Middleware, len(b.middleware))
	copy(mws, b.middleware)
	b.mu.RUnlock()

	current := event
	for _, mw := range mws {
		result, err := mw.Before(ctx, current)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, nil
		}
		current = result
	}
	return current, nil
}

func (b *InMemoryBus) runMiddlewareAfter(ctx context.Context, event Event, err error) {
	b.mu.RLock()
	mws := make([]Middleware, len(b.middleware))
	copy(mws, b.middleware)
	b.mu.RUnlock()

	for i := len(mws) - 1; i >= 0; i-- {
		if afterErr := mws[i].After(ctx, event, err); afterErr != nil {
			log.Printf("Middleware after failed for %s: %v", event.EventType(), afterErr)
		}
	}
}
