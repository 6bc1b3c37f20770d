// Package projection builds per-viewer conversation lists from the message log.
// Everything here is derived state: it can be discarded and rebuilt from the
// store at any time without losing information.
package projection

import (
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"portal-dm/domain"
	"portal-dm/domain/event"
)

// Inbox is the conversation list of one viewing user, keyed by counterpart.
//
// Unread state is a set of message ids rather than a counter: applying the
// same MessageInserted twice is then a no-op, and a ReadUpdated reset can
// never drive the count negative, whatever order events arrive in.
// Inbox is not safe for concurrent use; the Aggregator serializes access.
type Inbox struct {
	Owner         string
	conversations map[string]*inboxEntry
}

type inboxEntry struct {
	last   domain.Message
	unread map[uuid.UUID]struct{}
}

// NewInbox builds the projection from the viewer's full message history in a
// single pass. The result is deterministic for a fixed message set: the last
// message is picked by the (CreatedAt, ID) total order, not by slice order.
func NewInbox(owner string, history []domain.Message) *Inbox {
	inbox := &Inbox{
		Owner:         owner,
		conversations: make(map[string]*inboxEntry),
	}
	for _, message := range history {
		inbox.applyInserted(event.MessageInserted{Message: message})
	}
	return inbox
}

// Apply folds one change event into the inbox. It returns the refreshed
// conversation and true when the event touched this viewer's state.
func (i *Inbox) Apply(e event.ChangeEvent) (domain.Conversation, bool) {
	switch evt := e.(type) {
	case event.MessageInserted:
		return i.applyInserted(evt)
	case event.ReadUpdated:
		return i.applyReadUpdated(evt)
	}
	return domain.Conversation{}, false
}

func (i *Inbox) applyInserted(evt event.MessageInserted) (domain.Conversation, bool) {
	message := evt.Message
	if message.SenderID != i.Owner && message.ReceiverID != i.Owner {
		return domain.Conversation{}, false
	}

	counterpart := message.Counterpart(i.Owner)
	entry, ok := i.conversations[counterpart]
	if !ok {
		entry = &inboxEntry{unread: make(map[uuid.UUID]struct{})}
		i.conversations[counterpart] = entry
	}

	if message.ReceiverID == i.Owner && !message.Read {
		entry.unread[message.ID] = struct{}{}
	}

	// Re-derive the last message by total-order comparison instead of
	// assuming arrival order equals store order.
	if entry.last.ID == uuid.Nil || entry.last.Before(message) {
		entry.last = message
	}

	return i.conversation(counterpart, entry), true
}

func (i *Inbox) applyReadUpdated(evt event.ReadUpdated) (domain.Conversation, bool) {
	if evt.ReceiverID != i.Owner {
		return domain.Conversation{}, false
	}
	entry, ok := i.conversations[evt.SenderID]
	if !ok {
		return domain.Conversation{}, false
	}
	// Point reset, not a decrement: MarkRead clears the whole bucket and we
	// must not trust any locally assumed prior count.
	entry.unread = make(map[uuid.UUID]struct{})
	return i.conversation(evt.SenderID, entry), true
}

// Snapshot returns every conversation sorted by recency, most recent first.
func (i *Inbox) Snapshot() []domain.Conversation {
	conversations := lo.MapToSlice(i.conversations,
		func(counterpart string, entry *inboxEntry) domain.Conversation {
			return i.conversation(counterpart, entry)
		})
	sort.Slice(conversations, func(a, b int) bool {
		return conversations[b].LastMessage.Before(conversations[a].LastMessage)
	})
	return conversations
}

// UnreadTotal sums unread counts across every conversation of the viewer.
func (i *Inbox) UnreadTotal() int {
	total := 0
	for _, entry := range i.conversations {
		total += len(entry.unread)
	}
	return total
}

func (i *Inbox) conversation(counterpart string, entry *inboxEntry) domain.Conversation {
	return domain.Conversation{
		Counterpart: counterpart,
		LastMessage: entry.last,
		UnreadCount: len(entry.unread),
	}
}
