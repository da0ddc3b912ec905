package events

import (
	"context"
	"sync"
)

// Bus is the in-process event channel. Connected pages subscribe to it
// so a finished submission can repaint feeds without a full reload.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(FeedRefreshed)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(FeedRefreshed))}
}

// Subscribe registers fn for every future event. The returned function
// removes the subscription.
func (b *Bus) Subscribe(fn func(FeedRefreshed)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// PublishFeedRefreshed delivers e to every subscriber synchronously.
func (b *Bus) PublishFeedRefreshed(_ context.Context, e FeedRefreshed) error {
	b.mu.Lock()
	fns := make([]func(FeedRefreshed), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
	return nil
}

var _ Publisher = (*Bus)(nil)
