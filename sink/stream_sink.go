package sink

import (
	"context"
	"log/slog"

	"portal-dm/domain/event"
)

// StreamSink bridges the notifier to one live subscriber through a bounded
// queue. When the subscriber lags and the queue fills up, the oldest delta is
// dropped to make room: the client eventually catches up on fresher state,
// and a slow consumer never blocks delivery to anyone else.
type StreamSink struct {
	log    *slog.Logger
	Deltas chan event.Delta
}

func NewStreamSink(log *slog.Logger, bufferSize int) *StreamSink {
	return &StreamSink{log: log, Deltas: make(chan event.Delta, bufferSize)}
}

// Consume is called by the notifier. It never blocks on a full queue.
func (s *StreamSink) Consume(ctx context.Context, d event.Delta) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s.Deltas <- d:
			return nil
		default:
		}

		select {
		case dropped := <-s.Deltas:
			s.log.Debug("Subscriber queue full, dropping oldest delta",
				"viewer", dropped.Viewer())
		default:
		}
	}
}
