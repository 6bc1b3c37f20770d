package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"portal-dm/contract"
	"portal-dm/domain/event"
	"portal-dm/errors"
	"portal-dm/projection"
	"portal-dm/repositories"
)

// Ensure *ChangeNotifier implements the contract.Worker interface at compile time.
var _ contract.Worker = (*ChangeNotifier)(nil)

// ChangeNotifier bridges the store's change stream to the per-user
// subscriber sinks. A single goroutine consumes the feed, folds each event
// into the cached projections, and pushes one delta per affected viewer, so
// deltas for a given counterpart always leave in the store's emission order.
//
// If the feed subscription is lost, the notifier resubscribes and performs a
// full resynchronization instead of assuming no events were missed.
type ChangeNotifier struct {
	log         *slog.Logger
	store       repositories.IMessageRepository
	aggregator  *projection.Aggregator
	registry    contract.IRegistry
	changeSinks []contract.ChangeSink
	sinkTimeout time.Duration
}

func NewChangeNotifier(
	log *slog.Logger,
	store repositories.IMessageRepository,
	aggregator *projection.Aggregator,
	registry contract.IRegistry,
	sinkTimeout time.Duration,
) *ChangeNotifier {
	return &ChangeNotifier{
		log:         log,
		store:       store,
		aggregator:  aggregator,
		registry:    registry,
		sinkTimeout: sinkTimeout,
	}
}

// AddChangeSinks registers consumers of raw change events, e.g. the search
// index. They see every event, independent of who is subscribed.
func (w *ChangeNotifier) AddChangeSinks(sinks ...contract.ChangeSink) *ChangeNotifier {
	w.changeSinks = append(w.changeSinks, sinks...)
	return w
}

func (w *ChangeNotifier) Run(ctx context.Context) error {
	sub := w.store.SubscribeChanges()
	// sub is reassigned after a feed loss, close whichever is current on exit
	defer func() { sub.Close() }()

	for {
		evt, err := sub.Next(ctx)
		switch {
		case err == nil:
			w.handle(ctx, evt)
		case ctx.Err() != nil:
			w.log.Debug("Context done, stopping change notifier")
			return nil
		case err == errors.ErrFeedClosed:
			w.log.Warn("Change feed lost, resubscribing and resynchronizing")
			sub.Close()
			sub = w.store.SubscribeChanges()
			w.Resync(ctx)
		default:
			return err
		}
	}
}

func (w *ChangeNotifier) handle(ctx context.Context, evt event.ChangeEvent) {
	for _, changeSink := range w.changeSinks {
		if err := changeSink.Consume(ctx, evt); err != nil {
			w.log.Error("Change sink failed", "error", err)
		}
	}

	for _, user := range evt.AffectedUsers() {
		conversation, changed := w.aggregator.Apply(user, evt)
		if !changed {
			// Viewer never materialized: nothing cached to refresh,
			// a later snapshot call reads the store directly.
			continue
		}
		w.push(ctx, user, event.ConversationUpdated{
			Owner:        user,
			Conversation: conversation,
		})
	}
}

// Resync rebuilds every currently-subscribed viewer from the store and
// re-pushes a fresh snapshot, the recovery path after feed loss.
func (w *ChangeNotifier) Resync(ctx context.Context) {
	for _, user := range w.registry.Users() {
		conversations, err := w.aggregator.Rebuild(user)
		if err != nil {
			w.log.Error("Resync rebuild failed", "user", user, "error", err)
			continue
		}
		w.push(ctx, user, event.InboxSnapshot{
			Owner:         user,
			Conversations: conversations,
		})
	}
}

func (w *ChangeNotifier) push(ctx context.Context, user string, delta event.Delta) {
	sinks := w.registry.GetSinksForUser(user)
	if len(sinks) == 0 {
		return
	}
	deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	for _, deltaSink := range sinks {
		if err := deltaSink.Consume(deliveryCtx, delta); err != nil {
			w.log.Debug(fmt.Sprintf("Delta delivery failed for %s : %v", user, err))
		}
	}
}
