package domain

// Conversation is the derived, per-viewer aggregate of all messages
// exchanged with one counterpart. It is never stored: the projection
// rebuilds it from the message log at any time.
type Conversation struct {
	Counterpart string
	LastMessage Message
	UnreadCount int
}
