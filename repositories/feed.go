package repositories

import (
	"context"
	"sync"

	"portal-dm/domain/event"
	"portal-dm/errors"
)

// ChangeFeed distributes store change events to any number of subscriptions.
// Publishing never blocks the writer that caused the event: each subscription
// buffers its own pending queue and drains it at its own pace. Events are
// delivered in publication order and are never dropped; consumers still have
// to treat them as at-least-once.
type ChangeFeed struct {
	mu   sync.Mutex
	subs map[*FeedSubscription]struct{}
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: make(map[*FeedSubscription]struct{})}
}

func (f *ChangeFeed) Subscribe() *FeedSubscription {
	sub := &FeedSubscription{
		feed:   f,
		signal: make(chan struct{}, 1),
	}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *ChangeFeed) Publish(e event.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		sub.push(e)
	}
}

// Close terminates every subscription, e.g. on store shutdown.
func (f *ChangeFeed) Close() {
	f.mu.Lock()
	subs := make([]*FeedSubscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

func (f *ChangeFeed) remove(sub *FeedSubscription) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
}

// FeedSubscription is one consumer's view of the change stream.
type FeedSubscription struct {
	feed    *ChangeFeed
	mu      sync.Mutex
	pending []event.ChangeEvent
	closed  bool
	signal  chan struct{}
}

func (s *FeedSubscription) push(e event.ChangeEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, e)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available, the context is cancelled,
// or the subscription is closed (errors.ErrFeedClosed).
func (s *FeedSubscription) Next(ctx context.Context) (event.ChangeEvent, error) {
	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			e := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return e, nil
		}
		if s.closed {
			s.mu.Unlock()
			return nil, errors.ErrFeedClosed
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.signal:
		}
	}
}

// Close releases the subscription immediately. It never blocks and never
// requires the pending queue to be drained first.
func (s *FeedSubscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
	s.feed.remove(s)
}
