package event

import (
	"portal-dm/domain"
)

// ChangeEvent is a store-emitted notification: a message was inserted
// or had its read flag cleared. Delivery is at-least-once, so every
// consumer must apply these idempotently.
type ChangeEvent interface {
	// AffectedUsers lists the viewers whose conversation state changes.
	AffectedUsers() []string
}

// MessageInserted is emitted after a successful append.
type MessageInserted struct {
	Message domain.Message
}

func (e MessageInserted) AffectedUsers() []string {
	return []string{e.Message.SenderID, e.Message.ReceiverID}
}

// ReadUpdated is emitted after MarkRead flipped at least one message.
// Cleared is the number of rows updated by that call, not a running total.
// Only the receiver's view changes: the sender's last message and unread
// count are unaffected by the counterpart reading something.
type ReadUpdated struct {
	SenderID   string
	ReceiverID string
	Cleared    int
}

func (e ReadUpdated) AffectedUsers() []string {
	return []string{e.ReceiverID}
}
