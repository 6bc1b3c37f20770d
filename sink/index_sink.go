package sink

import (
	"context"
	"fmt"
	"log/slog"

	"portal-dm/domain/event"
	"portal-dm/repositories"
)

// IndexSink feeds the full-text search index from the store's change stream.
type IndexSink struct {
	repository repositories.ISearchRepository
	log        *slog.Logger
}

func NewIndexSink(repository repositories.ISearchRepository, log *slog.Logger) IndexSink {
	return IndexSink{repository: repository, log: log}
}

func (s IndexSink) Consume(_ context.Context, e event.ChangeEvent) error {
	switch evt := e.(type) {
	case event.MessageInserted:
		return s.repository.Index(evt.Message)
	default:
		s.log.Debug(fmt.Sprintf("Not an indexable event : %v", evt))
		return nil
	}
}
