package domain

// SendMessageCommand carries a messaging intent from an authenticated actor.
// The actor identity is explicit: the core never reads ambient session state.
type SendMessageCommand struct {
	Actor   string
	Target  string
	Content string
}

// MarkReadCommand clears every unread message the actor received from the counterpart.
type MarkReadCommand struct {
	Actor       string
	Counterpart string
}
