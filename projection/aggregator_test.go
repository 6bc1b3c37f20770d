package projection

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"portal-dm/domain"
	"portal-dm/domain/event"
	"portal-dm/errors"
)

func Test_Aggregator_Materializes_On_First_Access(t *testing.T) {
	req := require.New(t)
	loads := 0
	at := time.Now().UTC()
	loader := func(user string) ([]domain.Message, error) {
		loads++
		return []domain.Message{
			message("11111111-1111-1111-1111-111111111111", "alice", user, "hi", at),
		}, nil
	}
	aggregator := NewAggregator(slog.Default(), loader)

	conversations, err := aggregator.Snapshot("bob")
	req.NoError(err)
	req.Len(conversations, 1)
	req.Equal(1, conversations[0].UnreadCount)

	// Second snapshot reads the cache, not the store
	_, err = aggregator.Snapshot("bob")
	req.NoError(err)
	req.Equal(1, loads)
}

func Test_Aggregator_Snapshot_Propagates_Loader_Error(t *testing.T) {
	req := require.New(t)
	loader := func(user string) ([]domain.Message, error) {
		return nil, errors.ErrStoreUnavailable
	}
	aggregator := NewAggregator(slog.Default(), loader)

	_, err := aggregator.Snapshot("bob")
	req.ErrorIs(err, errors.ErrStoreUnavailable)
}

func Test_Aggregator_Apply_Skips_Cold_Users(t *testing.T) {
	req := require.New(t)
	aggregator := NewAggregator(slog.Default(), func(string) ([]domain.Message, error) {
		return nil, nil
	})

	// Nobody materialized dan, his events cost nothing
	_, changed := aggregator.Apply("dan", event.MessageInserted{
		Message: domain.Message{ID: uuid.New(), SenderID: "alice", ReceiverID: "dan", CreatedAt: time.Now().UTC()},
	})
	req.False(changed)
	req.Zero(aggregator.UnreadTotal("dan"))
}

func Test_Aggregator_Apply_Updates_Warm_Users(t *testing.T) {
	req := require.New(t)
	aggregator := NewAggregator(slog.Default(), func(string) ([]domain.Message, error) {
		return nil, nil
	})
	_, err := aggregator.Snapshot("bob")
	req.NoError(err)

	conversation, changed := aggregator.Apply("bob", event.MessageInserted{
		Message: domain.Message{ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", Content: "hi", CreatedAt: time.Now().UTC()},
	})
	req.True(changed)
	req.Equal("alice", conversation.Counterpart)
	req.Equal(1, conversation.UnreadCount)
	req.Equal(1, aggregator.UnreadTotal("bob"))
}

func Test_Aggregator_Rebuild_Discards_Cached_State(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()
	history := []domain.Message{
		message("11111111-1111-1111-1111-111111111111", "alice", "bob", "hi", at),
	}
	aggregator := NewAggregator(slog.Default(), func(string) ([]domain.Message, error) {
		return history, nil
	})
	_, err := aggregator.Snapshot("bob")
	req.NoError(err)

	// Pollute the cache with an event the store never recorded
	aggregator.Apply("bob", event.MessageInserted{
		Message: message("99999999-9999-9999-9999-999999999999", "ghost", "bob", "phantom", at.Add(time.Hour)),
	})
	req.Equal(2, aggregator.UnreadTotal("bob"))

	// Rebuild resolves the suspicion by recomputing from the store
	conversations, err := aggregator.Rebuild("bob")
	req.NoError(err)
	req.Len(conversations, 1)
	req.Equal("alice", conversations[0].Counterpart)
	req.Equal(1, aggregator.UnreadTotal("bob"))
}

func Test_Aggregator_SnapshotAndDo_Runs_Under_User_Lock(t *testing.T) {
	req := require.New(t)
	aggregator := NewAggregator(slog.Default(), func(string) ([]domain.Message, error) {
		return nil, nil
	})

	applied := make(chan struct{})
	err := aggregator.SnapshotAndDo("bob", func(conversations []domain.Conversation) {
		req.Empty(conversations)

		// An event applied while fn runs must wait for the lock
		go func() {
			aggregator.Apply("bob", event.MessageInserted{
				Message: domain.Message{ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", CreatedAt: time.Now().UTC()},
			})
			close(applied)
		}()

		select {
		case <-applied:
			req.Fail("Apply ran while the snapshot callback held the user lock")
		case <-time.After(50 * time.Millisecond):
		}
	})
	req.NoError(err)

	select {
	case <-applied:
		// The event lands once the callback released the lock
	case <-time.After(2 * time.Second):
		req.Fail("Apply never completed after SnapshotAndDo returned")
	}
	req.Equal(1, aggregator.UnreadTotal("bob"))
}
