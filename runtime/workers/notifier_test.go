package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"portal-dm/contract"
	"portal-dm/domain"
	"portal-dm/domain/event"
	"portal-dm/mocks"
	"portal-dm/projection"
	"portal-dm/repositories"
)

type channelSink struct {
	deltas chan event.Delta
}

func newChannelSink() *channelSink {
	return &channelSink{deltas: make(chan event.Delta, 16)}
}

func (s *channelSink) Consume(_ context.Context, d event.Delta) error {
	s.deltas <- d
	return nil
}

func waitDelta(t *testing.T, s *channelSink) event.Delta {
	t.Helper()
	select {
	case d := <-s.deltas:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout: no delta reached the sink")
		return nil
	}
}

func TestChangeNotifier_Pushes_Deltas_To_Watchers(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	feed := repositories.NewChangeFeed()
	store := mocks.NewMockIMessageRepository(ctrl)
	store.EXPECT().SubscribeChanges().DoAndReturn(feed.Subscribe).Times(1)

	aggregator := projection.NewAggregator(log, func(string) ([]domain.Message, error) {
		return nil, nil
	})
	// Given bob watching his inbox with a warm projection
	_, err := aggregator.Snapshot("bob")
	req.NoError(err)
	bobSink := newChannelSink()
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().GetSinksForUser("bob").Return([]contract.DeltaSink{bobSink}).AnyTimes()
	registry.EXPECT().GetSinksForUser("alice").Return(nil).AnyTimes()
	notifier := NewChangeNotifier(log, store, aggregator, registry, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = notifier.Run(ctx) }()

	// When alice's message lands in the store feed
	sent := domain.Message{
		ID: uuid.New(), SenderID: "alice", ReceiverID: "bob",
		Content: "hello", CreatedAt: time.Now().UTC(),
	}
	feed.Publish(event.MessageInserted{Message: sent})

	// Then bob receives one refreshed conversation entry
	delta := waitDelta(t, bobSink)
	updated, ok := delta.(event.ConversationUpdated)
	req.True(ok)
	req.Equal("bob", updated.Owner)
	req.Equal("alice", updated.Conversation.Counterpart)
	req.Equal(1, updated.Conversation.UnreadCount)
	req.Equal(sent.ID, updated.Conversation.LastMessage.ID)
}

func TestChangeNotifier_Feeds_Change_Sinks(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	feed := repositories.NewChangeFeed()
	store := mocks.NewMockIMessageRepository(ctrl)
	store.EXPECT().SubscribeChanges().DoAndReturn(feed.Subscribe).Times(1)

	aggregator := projection.NewAggregator(log, func(string) ([]domain.Message, error) {
		return nil, nil
	})
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().GetSinksForUser(gomock.Any()).Return(nil).AnyTimes()

	consumed := make(chan event.ChangeEvent, 1)
	changeSink := mocks.NewMockChangeSink(ctrl)
	changeSink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.ChangeEvent) error {
			consumed <- e
			return nil
		}).
		Times(1)

	notifier := NewChangeNotifier(log, store, aggregator, registry, time.Second).
		AddChangeSinks(changeSink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = notifier.Run(ctx) }()

	// Change sinks see every event even with zero live subscribers
	feed.Publish(event.MessageInserted{Message: domain.Message{
		ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", CreatedAt: time.Now().UTC(),
	}})

	select {
	case e := <-consumed:
		_, ok := e.(event.MessageInserted)
		req.True(ok)
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: change sink never consumed the event")
	}
}

func TestChangeNotifier_Resyncs_After_Feed_Loss(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lostFeed := repositories.NewChangeFeed()
	healthyFeed := repositories.NewChangeFeed()
	store := mocks.NewMockIMessageRepository(ctrl)
	first := store.EXPECT().SubscribeChanges().DoAndReturn(lostFeed.Subscribe).Times(1)
	store.EXPECT().SubscribeChanges().DoAndReturn(healthyFeed.Subscribe).Times(1).After(first)

	at := time.Now().UTC()
	history := []domain.Message{{
		ID: uuid.New(), SenderID: "alice", ReceiverID: "bob",
		Content: "missed while disconnected", CreatedAt: at,
	}}
	aggregator := projection.NewAggregator(log, func(string) ([]domain.Message, error) {
		return history, nil
	})
	bobSink := newChannelSink()
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().Users().Return([]string{"bob"}).AnyTimes()
	registry.EXPECT().GetSinksForUser("bob").Return([]contract.DeltaSink{bobSink}).AnyTimes()
	notifier := NewChangeNotifier(log, store, aggregator, registry, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = notifier.Run(ctx) }()

	// When the store's feed dies under the notifier
	time.Sleep(50 * time.Millisecond)
	lostFeed.Close()

	// Then bob gets a full snapshot rebuilt from the store, no gap assumed
	delta := waitDelta(t, bobSink)
	snapshot, ok := delta.(event.InboxSnapshot)
	req.True(ok)
	req.Equal("bob", snapshot.Owner)
	req.Len(snapshot.Conversations, 1)
	req.Equal("alice", snapshot.Conversations[0].Counterpart)
	req.Equal(1, snapshot.Conversations[0].UnreadCount)
}
