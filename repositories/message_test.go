package repositories

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"portal-dm/domain/event"
	"portal-dm/errors"
	"portal-dm/projection"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func Test_Append_And_ListBetween_Order(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	// Given three messages exchanged in both directions
	first, err := repository.Append("alice", "bob", "salut")
	req.NoError(err)
	second, err := repository.Append("bob", "alice", "hello")
	req.NoError(err)
	third, err := repository.Append("alice", "bob", "ça va ?")
	req.NoError(err)

	// When listing the pair, in either participant order
	messages, err := repository.ListBetween("bob", "alice")
	req.NoError(err)

	// Then messages come back ascending by (CreatedAt, ID)
	req.Len(messages, 3)
	req.Equal(first.ID, messages[0].ID)
	req.Equal(second.ID, messages[1].ID)
	req.Equal(third.ID, messages[2].ID)
	req.True(messages[0].Before(messages[1]))
	req.True(messages[1].Before(messages[2]))
}

func Test_Append_Rejects_Invalid_Input(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	_, err := repository.Append("alice", "bob", "   ")
	req.ErrorIs(err, errors.ErrEmptyContent)

	_, err = repository.Append("alice", "alice", "talking to myself")
	req.ErrorIs(err, errors.ErrSelfMessage)
}

func Test_ListForUser_Spans_Conversations(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	_, err := repository.Append("alice", "bob", "hi bob")
	req.NoError(err)
	_, err = repository.Append("clara", "alice", "hi alice")
	req.NoError(err)
	_, err = repository.Append("bob", "clara", "not alice's business")
	req.NoError(err)

	messages, err := repository.ListForUser("alice")
	req.NoError(err)

	// Alice sees what she sent and what she received, nothing else
	req.Len(messages, 2)
	for _, m := range messages {
		req.True(m.SenderID == "alice" || m.ReceiverID == "alice")
	}

	// A user with no history gets an empty list, not an error
	none, err := repository.ListForUser("nobody")
	req.NoError(err)
	req.Empty(none)
}

func Test_MarkRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	_, err := repository.Append("alice", "bob", "one")
	req.NoError(err)
	_, err = repository.Append("alice", "bob", "two")
	req.NoError(err)
	_, err = repository.Append("bob", "alice", "reply")
	req.NoError(err)

	// When bob reads his conversation with alice
	cleared, err := repository.MarkRead("bob", "alice")
	req.NoError(err)

	// Then only the two messages bob received flipped
	req.Equal(2, cleared)

	// And repeating the call clears nothing and is not an error
	cleared, err = repository.MarkRead("bob", "alice")
	req.NoError(err)
	req.Zero(cleared)

	// Alice's own unread message from bob is untouched
	messages, err := repository.ListBetween("alice", "bob")
	req.NoError(err)
	for _, m := range messages {
		if m.ReceiverID == "alice" {
			req.False(m.Read)
		} else {
			req.True(m.Read)
		}
	}
}

func Test_Changes_Are_Published_In_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	sub := repository.SubscribeChanges()
	defer sub.Close()

	sent, err := repository.Append("alice", "bob", "ping")
	req.NoError(err)
	cleared, err := repository.MarkRead("bob", "alice")
	req.NoError(err)
	req.Equal(1, cleared)

	first, err := sub.Next(ctx)
	req.NoError(err)
	inserted, ok := first.(event.MessageInserted)
	req.True(ok)
	req.Equal(sent.ID, inserted.Message.ID)

	second, err := sub.Next(ctx)
	req.NoError(err)
	read, ok := second.(event.ReadUpdated)
	req.True(ok)
	req.Equal("bob", read.ReceiverID)
	req.Equal("alice", read.SenderID)
	req.Equal(1, read.Cleared)
}

func Test_MarkRead_Without_Effect_Publishes_Nothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	_, err := repository.Append("alice", "bob", "ping")
	req.NoError(err)

	sub := repository.SubscribeChanges()
	defer sub.Close()

	// Alice marking the conversation flips nothing, she is the sender
	cleared, err := repository.MarkRead("alice", "bob")
	req.NoError(err)
	req.Zero(cleared)

	// The feed stays silent: closing it is the only event the consumer sees
	repository.CloseFeed()
	_, err = sub.Next(ctx)
	req.ErrorIs(err, errors.ErrFeedClosed)
}

func Test_Feed_Order_Matches_Commit_Order_Under_Concurrency(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	sub := repository.SubscribeChanges()
	defer sub.Close()

	// Given appends and read-clears racing on the same conversation
	const rounds = 500
	var wg sync.WaitGroup
	var appendErr, markErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := repository.Append("alice", "bob", "ping"); err != nil {
				appendErr = err
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := repository.MarkRead("bob", "alice"); err != nil {
				markErr = err
				return
			}
		}
	}()
	wg.Wait()
	req.NoError(appendErr)
	req.NoError(markErr)

	// When the whole feed is replayed into a fresh projection. Every event is
	// already buffered: a publish completes before its mutation call returns,
	// so once the deadline fires the queue has been fully drained.
	inbox := projection.NewInbox("bob", nil)
	drainCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	for {
		e, err := sub.Next(drainCtx)
		if err != nil {
			req.ErrorIs(err, context.DeadlineExceeded)
			break
		}
		inbox.Apply(e)
	}

	// Then the projection agrees with the store: a ReadUpdated must never
	// have overtaken the MessageInserted of an earlier commit
	messages, err := repository.ListBetween("alice", "bob")
	req.NoError(err)
	req.Len(messages, rounds)
	unread := 0
	for _, m := range messages {
		if m.ReceiverID == "bob" && !m.Read {
			unread++
		}
	}
	req.Equal(unread, inbox.UnreadTotal())
}
