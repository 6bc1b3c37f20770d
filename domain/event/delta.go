package event

import (
	"portal-dm/domain"
)

// Delta is one element of a live conversation-list stream.
// A subscriber receives exactly one InboxSnapshot first, then
// ConversationUpdated increments for every later change.
type Delta interface {
	Viewer() string
}

// InboxSnapshot carries the full conversation list of the viewer,
// sorted by recency, at subscription time or after a resynchronization.
type InboxSnapshot struct {
	Owner         string
	Conversations []domain.Conversation
}

func (d InboxSnapshot) Viewer() string { return d.Owner }

// ConversationUpdated carries one refreshed conversation entry.
type ConversationUpdated struct {
	Owner        string
	Conversation domain.Conversation
}

func (d ConversationUpdated) Viewer() string { return d.Owner }
