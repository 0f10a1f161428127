// Package progress carries run progress and log events from the worker to
// clients watching a run.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"neomentor/internal/domain"
)

// ChannelPrefix namespaces run channels on the shared Redis instance.
const ChannelPrefix = "neomentor:runs:"

// Channel returns the pub/sub channel of a run.
func Channel(runID string) string { return ChannelPrefix + runID }

// Publisher emits run events.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Subscriber streams the events of one run until ctx ends or the returned
// close func is called.
type Subscriber interface {
	Subscribe(ctx context.Context, runID string) (<-chan domain.Event, func() error, error)
}

// RedisBus publishes events as JSON on per-run Redis channels.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, Channel(event.RunID), payload).Err(); err != nil {
		return fmt.Errorf("progress: publish: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, runID string) (<-chan domain.Event, func() error, error) {
	sub := b.client.Subscribe(ctx, Channel(runID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("progress: subscribe: %w", err)
	}
	out := make(chan domain.Event, 16)
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}

// MemoryBus is an in-process bus for the CLI and tests.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.Event]struct{}

	// watchers counts goroutines waiting to close a subscription.
	watchers sync.WaitGroup
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[string]map[chan domain.Event]struct{}{}}
}

// Publish drops events for subscribers that are not keeping up.
func (b *MemoryBus) Publish(_ context.Context, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[event.RunID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, runID string) (<-chan domain.Event, func() error, error) {
	ch := make(chan domain.Event, 64)
	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = map[chan domain.Event]struct{}{}
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	closeFn := func() error {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[runID], ch)
			if len(b.subs[runID]) == 0 {
				delete(b.subs, runID)
			}
			b.mu.Unlock()
			close(ch)
			close(done)
		})
		return nil
	}
	b.watchers.Add(1)
	go func() {
		defer b.watchers.Done()
		select {
		case <-ctx.Done():
			_ = closeFn()
		case <-done:
		}
	}()
	return ch, closeFn, nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, domain.Event) error { return nil }

var (
	_ Publisher  = (*RedisBus)(nil)
	_ Subscriber = (*RedisBus)(nil)
	_ Publisher  = (*MemoryBus)(nil)
	_ Subscriber = (*MemoryBus)(nil)
	_ Publisher  = Discard{}
)
