package runtime

import (
	"sync"

	"portal-dm/contract"
)

type Set map[string]struct{}

// Registry tracks live conversation-list subscribers per viewing user.
// One user may hold several subscriptions at once (several open tabs),
// each identified by its own subscription id.
type Registry struct {
	mu        sync.RWMutex
	Sessions  map[string]contract.DeltaSink // subscription id -> sink
	UserSubs  map[string]Set                // user id -> subscription ids
	userOfSub map[string]string             // subscription id -> user id
}

func NewRegistry() *Registry {
	return &Registry{
		Sessions:  make(map[string]contract.DeltaSink),
		UserSubs:  make(map[string]Set),
		userOfSub: make(map[string]string),
	}
}

// GetSinksForUser resolves every active sink watching the given user's inbox.
// Returns nil if nobody is watching.
func (r *Registry) GetSinksForUser(userID string) []contract.DeltaSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, ok := r.UserSubs[userID]
	if !ok {
		return nil
	}
	var activeSinks []contract.DeltaSink
	for subscriptionID := range subs {
		if sink, exists := r.Sessions[subscriptionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a live subscription for the user's inbox.
// If the user has no subscription set yet, it is initialized on the fly.
func (r *Registry) Subscribe(subscriptionID string, userID string, sink contract.DeltaSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Sessions[subscriptionID] = sink
	r.userOfSub[subscriptionID] = userID

	if _, ok := r.UserSubs[userID]; !ok {
		r.UserSubs[userID] = make(Set)
	}
	r.UserSubs[userID][subscriptionID] = struct{}{}
}

// Unsubscribe removes one subscription. It cleans up the session and ensures
// no empty sets are left in the user map to prevent memory leaks over time.
func (r *Registry) Unsubscribe(subscriptionID string, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.Sessions, subscriptionID)
	delete(r.userOfSub, subscriptionID)

	if subs, ok := r.UserSubs[userID]; ok {
		delete(subs, subscriptionID)

		// If nothing is watching this user anymore, remove the entry entirely
		if len(subs) == 0 {
			delete(r.UserSubs, userID)
		}
	}
}

// Users lists every user with at least one live subscription.
// The notifier walks this set during a full resynchronization.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.UserSubs))
	for userID := range r.UserSubs {
		users = append(users, userID)
	}
	return users
}
