package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus()

	var mu sync.Mutex
	var got []string

	bus.Subscribe("StageCompleted", func(ctx context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "first:"+event.(*StageCompleted).Stage)
		return nil
	})
	bus.Subscribe("StageCompleted", func(ctx context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "second:"+event.(*StageCompleted).Stage)
		return nil
	})

	err := bus.Publish(context.Background(), &StageCompleted{RunID: "r1", Stage: "plan"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"first:plan", "second:plan"}, got)
}

func TestPublishNoSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus()
	assert.NoError(t, bus.Publish(context.Background(), &PipelineStarted{RunID: "r1"}))
}

func TestSubscriberErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryBus()

	var reached bool
	bus.Subscribe("StageFailed", func(ctx context.Context, event Event) error {
		return errors.New("sink down")
	})
	bus.Subscribe("StageFailed", func(ctx context.Context, event Event) error {
		reached = true
		return nil
	})

	err := bus.Publish(context.Background(), &StageFailed{Stage: "build", Error: "boom"})
	require.NoError(t, err)
	assert.True(t, reached)
}

func TestSubscriberPanicIsContained(t *testing.T) {
	bus := NewInMemoryBus()
	bus.Subscribe("PipelineCompleted", func(ctx context.Context, event Event) error {
		panic("bad subscriber")
	})

	assert.NotPanics(t, func() {
		_ = bus.Publish(context.Background(), &PipelineCompleted{RunID: "r1", Status: "completed"})
	})
}

func TestUnsubscribe(t *testing.T) {
	bus := NewInMemoryBus()

	var calls int
	unsubscribe := bus.Subscribe("StageStarted", func(ctx context.Context, event Event) error {
		calls++
		return nil
	})
	require.Equal(t, 1, bus.SubscriberCount("StageStarted"))

	require.NoError(t, bus.Publish(context.Background(), &StageStarted{Stage: "plan"}))
	unsubscribe()
	require.Equal(t, 0, bus.SubscriberCount("StageStarted"))

	require.NoError(t, bus.Publish(context.Background(), &StageStarted{Stage: "plan"}))
	assert.Equal(t, 1, calls)
}

// abortMiddleware drops every event whose type matches.
type abortMiddleware struct {
	drop string
	seen []string
}

func (m *abortMiddleware) Before(ctx context.Context, event Event) (Event, error) {
	m.seen = append(m.seen, event.EventType())
	if event.EventType() == m.drop {
		return nil, nil
	}
	return event, nil
}

func (m *abortMiddleware) After(ctx context.Context, event Event, err error) error { return nil }

func TestMiddlewareCanAbortPublication(t *testing.T) {
	bus := NewInMemoryBus()
	mw := &abortMiddleware{drop: "StageFailed"}
	bus.AddMiddleware(mw)

	var delivered int
	bus.Subscribe("StageFailed", func(ctx context.Context, event Event) error {
		delivered++
		return nil
	})
	bus.Subscribe("StageStarted", func(ctx context.Context, event Event) error {
		delivered++
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), &StageFailed{Stage: "x"}))
	require.NoError(t, bus.Publish(context.Background(), &StageStarted{Stage: "x"}))

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"StageFailed", "StageStarted"}, mw.seen)
}

func TestClear(t *testing.T) {
	bus := NewInMemoryBus()
	bus.Subscribe("StageStarted", func(ctx context.Context, event Event) error { return nil })
	bus.Clear()
	assert.Equal(t, 0, bus.SubscriberCount("StageStarted"))
}
