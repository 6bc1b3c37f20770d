//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_search_repository.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"portal-dm/domain"
	"portal-dm/errors"
)

type ISearchRepository interface {
	Index(message domain.Message) error
	Search(ctx context.Context, actor, terms string, limit int) ([]SearchHit, uint64, error)
}

// SearchRepository maintains a Bluge full-text index over message content.
// Every hit is scoped to conversations the actor participates in, so a user
// can never surface someone else's messages through search.
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger) *SearchRepository {
	return &SearchRepository{writer: writer, log: log}
}

// SearchHit is one search result, denormalized so callers don't need a
// second round-trip to the message store.
type SearchHit struct {
	MessageID uuid.UUID
	SenderID  string
	Content   string
	At        time.Time
}

// Index upserts one message document. Indexing is idempotent by message id,
// which matters because inserts reach us through an at-least-once feed.
func (s *SearchRepository) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("participant", message.SenderID)).
		AddField(bluge.NewKeywordField("participant", message.ReceiverID)).
		AddField(bluge.NewStoredOnlyField("sender", []byte(message.SenderID))).
		AddField(bluge.NewStoredOnlyField("at_ns", []byte(strconv.FormatInt(message.CreatedAt.UnixNano(), 10))))

	if err := s.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return nil
}

// Search runs a match query over message content, restricted to the actor's
// own conversations, and returns up to limit hits plus the total match count.
func (s *SearchRepository) Search(ctx context.Context, actor, terms string, limit int) ([]SearchHit, uint64, error) {
	if strings.TrimSpace(terms) == "" {
		return nil, 0, errors.ErrEmptyQuery
	}

	reader, err := s.writer.Reader()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Failed to close bluge reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(bluge.NewTermQuery(actor).SetField("participant"))

	request := bluge.NewTopNSearch(limit, query).WithStandardAggregations()
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	var hits []SearchHit
	match, err := iterator.Next()
	for err == nil && match != nil {
		hit := SearchHit{}
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID, _ = uuid.Parse(string(value))
			case "content":
				hit.Content = string(value)
			case "sender":
				hit.SenderID = string(value)
			case "at_ns":
				if ns, convErr := strconv.ParseInt(string(value), 10, 64); convErr == nil {
					hit.At = time.Unix(0, ns).UTC()
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, 0, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	return hits, iterator.Aggregations().Count(), nil
}
