// Package runtime wires the messaging core together: store, projection,
// change notifier, subscriber registry, and supervised workers. It
// orchestrates the system without containing domain rules itself.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"portal-dm/contract"
	"portal-dm/domain"
	"portal-dm/domain/event"
	"portal-dm/projection"
	"portal-dm/repositories"
	"portal-dm/runtime/workers"
	"portal-dm/sink"
)

// Subscription is a live conversation-list stream handed to one viewer.
// The first delta on the channel is always a full snapshot.
type Subscription struct {
	ID     string
	UserID string
	Deltas <-chan event.Delta
}

type Orchestrator struct {
	mu                   sync.Mutex
	log                  *slog.Logger
	store                *repositories.MessageRepository
	aggregator           *projection.Aggregator
	registry             contract.IRegistry
	supervisor           contract.ISupervisor
	notifier             *workers.ChangeNotifier
	connectionBufferSize int
	metricInterval       time.Duration
	started              bool
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, store *repositories.MessageRepository,
	connectionBufferSize int, sinkTimeout, metricInterval time.Duration) *Orchestrator {
	aggregator := projection.NewAggregator(log, store.ListForUser)
	return &Orchestrator{
		log:                  log,
		store:                store,
		aggregator:           aggregator,
		registry:             registry,
		supervisor:           supervisor,
		notifier:             workers.NewChangeNotifier(log, store, aggregator, registry, sinkTimeout),
		connectionBufferSize: connectionBufferSize,
		metricInterval:       metricInterval,
	}
}

// AddChangeSinks registers extra consumers of the raw change stream,
// e.g. the search index. Must be called before Start.
func (o *Orchestrator) AddChangeSinks(sinks ...contract.ChangeSink) {
	o.notifier.AddChangeSinks(sinks...)
}

// Start registers the supervised workers and launches the supervision loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil
	}
	o.started = true
	o.supervisor.Add(o.notifier)
	if o.metricInterval > 0 {
		o.supervisor.Add(workers.NewTelemetryWorker(o.log, o.metricInterval))
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
	return nil
}

// ListConversations returns the viewer's conversation list, most recent
// first, materializing the projection on first access.
func (o *Orchestrator) ListConversations(user string) ([]domain.Conversation, error) {
	return o.aggregator.Snapshot(user)
}

// Subscribe opens a live stream for the viewer. The snapshot is taken and
// the sink registered under the viewer's projection lock, so no delta can
// fall between the snapshot and the registration.
func (o *Orchestrator) Subscribe(user string) (*Subscription, error) {
	streamSink := sink.NewStreamSink(o.log, o.connectionBufferSize)
	subscriptionID := uuid.NewString()

	err := o.aggregator.SnapshotAndDo(user, func(conversations []domain.Conversation) {
		_ = streamSink.Consume(context.Background(), event.InboxSnapshot{
			Owner:         user,
			Conversations: conversations,
		})
		o.registry.Subscribe(subscriptionID, user, streamSink)
	})
	if err != nil {
		return nil, err
	}

	o.log.Debug(fmt.Sprintf("Subscription %s opened for %s", subscriptionID, user))
	return &Subscription{ID: subscriptionID, UserID: user, Deltas: streamSink.Deltas}, nil
}

// Unsubscribe releases a live stream immediately. Pending deltas in the
// sink's queue are simply abandoned; the change feed itself is untouched.
func (o *Orchestrator) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	o.registry.Unsubscribe(sub.ID, sub.UserID)
	o.log.Debug(fmt.Sprintf("Subscription %s closed for %s", sub.ID, sub.UserID))
}

// Stop initiates a graceful shutdown: workers are cancelled and the store's
// change feed closed so the notifier's subscription drains out.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
	o.store.CloseFeed()
}
