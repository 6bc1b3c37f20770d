package projection

import (
	"fmt"
	"log/slog"
	"sync"

	"portal-dm/domain"
	"portal-dm/domain/event"
)

// Loader fetches a user's full message history, typically the message
// repository's ListForUser. Injected as a function to keep the projection
// testable without a live store.
type Loader func(user string) ([]domain.Message, error)

// Aggregator caches one Inbox per viewing user, materialized lazily on first
// access. Unrelated users' state is independent, so locking is per user, not
// global: a rebuild for one viewer never stalls another's delta stream.
type Aggregator struct {
	log    *slog.Logger
	loader Loader

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	mu    sync.Mutex
	inbox *Inbox
}

func NewAggregator(log *slog.Logger, loader Loader) *Aggregator {
	return &Aggregator{
		log:    log,
		loader: loader,
		users:  make(map[string]*userState),
	}
}

func (a *Aggregator) state(user string) *userState {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.users[user]
	if !ok {
		st = &userState{}
		a.users[user] = st
	}
	return st
}

// Snapshot returns the user's conversation list, loading the history on first
// access. A user with zero messages gets an empty list, not an error.
func (a *Aggregator) Snapshot(user string) ([]domain.Conversation, error) {
	st := a.state(user)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := a.materialize(st, user); err != nil {
		return nil, err
	}
	return st.inbox.Snapshot(), nil
}

// SnapshotAndDo runs fn with the fresh snapshot while still holding the user
// lock. The notifier applies events under the same lock, so a subscriber
// registered inside fn can never miss a delta between snapshot and
// registration, nor see one twice.
func (a *Aggregator) SnapshotAndDo(user string, fn func(conversations []domain.Conversation)) error {
	st := a.state(user)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := a.materialize(st, user); err != nil {
		return err
	}
	fn(st.inbox.Snapshot())
	return nil
}

// Apply folds one change event into the user's cached inbox. Users that were
// never materialized are skipped: no background work is spent on viewers who
// are not looking at their messages. Returns the refreshed conversation and
// whether anything changed.
func (a *Aggregator) Apply(user string, e event.ChangeEvent) (domain.Conversation, bool) {
	a.mu.Lock()
	st, cached := a.users[user]
	a.mu.Unlock()
	if !cached {
		return domain.Conversation{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.inbox == nil {
		return domain.Conversation{}, false
	}
	return st.inbox.Apply(e)
}

// Rebuild discards the user's cached state and reloads it from the store.
// This is the StaleCache answer: suspected inconsistency is resolved by
// recomputation, never reported as a fault.
func (a *Aggregator) Rebuild(user string) ([]domain.Conversation, error) {
	st := a.state(user)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.inbox = nil
	if err := a.materialize(st, user); err != nil {
		return nil, err
	}
	return st.inbox.Snapshot(), nil
}

// UnreadTotal reports the summed unread count of a cached user, zero if the
// user was never materialized.
func (a *Aggregator) UnreadTotal(user string) int {
	a.mu.Lock()
	st, cached := a.users[user]
	a.mu.Unlock()
	if !cached {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.inbox == nil {
		return 0
	}
	return st.inbox.UnreadTotal()
}

// materialize loads the inbox if needed. Caller holds the user lock.
func (a *Aggregator) materialize(st *userState, user string) error {
	if st.inbox != nil {
		return nil
	}
	history, err := a.loader(user)
	if err != nil {
		return err
	}
	st.inbox = NewInbox(user, history)
	a.log.Debug(fmt.Sprintf("Materialized inbox for %s with %d messages", user, len(history)))
	return nil
}
