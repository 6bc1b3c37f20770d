// Package domain contains core concepts of the direct-messaging system.
// This file defines the Message record and its total order.
// A message is immutable once stored, except for its read flag.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message represents one unit of content from one sender to one receiver.
type Message struct {
	ID         uuid.UUID // unique identifier, assigned by the store
	SenderID   string
	ReceiverID string
	Content    string
	CreatedAt  time.Time
	Read       bool
}

// Before reports whether m precedes other in the (CreatedAt, ID) total order.
// The ID comparison breaks ties between messages stored at the same instant,
// so the order is deterministic regardless of arrival order.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return strings.Compare(m.ID.String(), other.ID.String()) < 0
}

// Counterpart returns the other participant relative to the viewing user.
func (m Message) Counterpart(viewer string) string {
	if m.SenderID == viewer {
		return m.ReceiverID
	}
	return m.SenderID
}

// PairKey builds the canonical identifier of a two-party conversation.
// Both orderings of the participants map to the same key.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
