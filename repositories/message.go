//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"portal-dm/domain"
	"portal-dm/domain/event"
	"portal-dm/errors"
)

type IMessageRepository interface {
	Append(sender, receiver, content string) (domain.Message, error)
	ListBetween(userA, userB string) ([]domain.Message, error)
	ListForUser(user string) ([]domain.Message, error)
	MarkRead(user, counterpart string) (int, error)
	SubscribeChanges() *FeedSubscription
}

// MessageRepository persists direct messages in BadgerDB and emits a change
// event after every successful mutation. It is the only component allowed to
// mutate message records; everything downstream is a rebuildable projection.
type MessageRepository struct {
	db   *badger.DB
	log  *slog.Logger
	feed *ChangeFeed

	// writeMu holds each commit and its publication together, so events reach
	// the feed in commit order. Without it a ReadUpdated could overtake the
	// MessageInserted of an earlier commit and leave cached unread counts wrong.
	writeMu sync.Mutex
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, feed: NewChangeFeed()}
}

// diskMessage is the stored representation of a message.
type diskMessage struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	At         int64     `json:"at"` // UnixNano, UTC
	Read       bool      `json:"read"`
}

// messageKey formats the primary key as "msg:{pair}:{timestamp_padded}:{uuid}" to:
//  1. Group both directions of a pair under one prefix.
//  2. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  3. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		domain.PairKey(m.SenderID, m.ReceiverID),
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}

// userKey is the secondary index entry "usr:{user}:{timestamp_padded}:{uuid}".
// Its value is the primary key, so ListForUser resolves in two hops.
func userKey(user string, m domain.Message) []byte {
	return []byte(fmt.Sprintf("usr:%s:%019d:%s", user, m.CreatedAt.UnixNano(), m.ID))
}

// Append validates and persists a new message, then publishes MessageInserted.
// The id and timestamp are assigned here, never by the caller, so the
// (CreatedAt, ID) total order is owned by the store.
func (r *MessageRepository) Append(sender, receiver, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if sender == receiver {
		return domain.Message{}, errors.ErrSelfMessage
	}

	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}

	primary := messageKey(message)
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(primary, bytes); err != nil {
			return err
		}
		if err := txn.Set(userKey(sender, message), primary); err != nil {
			return err
		}
		return txn.Set(userKey(receiver, message), primary)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	r.feed.Publish(event.MessageInserted{Message: message})
	return message, nil
}

// ListBetween returns every message of the pair in ascending (CreatedAt, ID)
// order. The padded timestamp in the key makes the badger iteration order
// exactly the total order, uuid string compare included.
func (r *MessageRepository) ListBetween(userA, userB string) ([]domain.Message, error) {
	var raws [][]byte
	prefix := []byte(fmt.Sprintf("msg:%s:", domain.PairKey(userA, userB)))

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(value []byte) error {
				raws = append(raws, append([]byte(nil), value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return decodeMessages(raws)
}

// ListForUser returns every message the user sent or received, in ascending
// order of the user index. It is used once per viewer to seed the projection.
func (r *MessageRepository) ListForUser(user string) ([]domain.Message, error) {
	var raws [][]byte
	prefix := []byte(fmt.Sprintf("usr:%s:", user))

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var primary []byte
			if err := it.Item().Value(func(value []byte) error {
				primary = append([]byte(nil), value...)
				return nil
			}); err != nil {
				return err
			}
			item, err := txn.Get(primary)
			if err != nil {
				return err
			}
			if err := item.Value(func(value []byte) error {
				raws = append(raws, append([]byte(nil), value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return decodeMessages(raws)
}

// MarkRead flips read=true on every unread message the user received from the
// counterpart and returns how many rows changed. Calling it again is a no-op,
// not an error. A ReadUpdated event is published only when something flipped.
func (r *MessageRepository) MarkRead(user, counterpart string) (int, error) {
	cleared := 0
	prefix := []byte(fmt.Sprintf("msg:%s:", domain.PairKey(user, counterpart)))

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	err := r.db.Update(func(txn *badger.Txn) error {
		cleared = 0
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var dm diskMessage
			if err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &dm)
			}); err != nil {
				return err
			}
			if dm.ReceiverID != user || dm.Read {
				continue
			}
			dm.Read = true
			bytes, err := json.Marshal(dm)
			if err != nil {
				return err
			}
			if err := txn.Set(append([]byte(nil), item.Key()...), bytes); err != nil {
				return err
			}
			cleared++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	if cleared > 0 {
		r.feed.Publish(event.ReadUpdated{
			SenderID:   counterpart,
			ReceiverID: user,
			Cleared:    cleared,
		})
	}
	return cleared, nil
}

// SubscribeChanges opens an order-preserving view of the change stream.
// The caller must Close it when done.
func (r *MessageRepository) SubscribeChanges() *FeedSubscription {
	return r.feed.Subscribe()
}

// CloseFeed terminates every change subscription, used on shutdown.
func (r *MessageRepository) CloseFeed() {
	r.feed.Close()
}

func decodeMessages(raws [][]byte) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(raws))
	for _, raw := range raws {
		var dm diskMessage
		if err := json.Unmarshal(raw, &dm); err != nil {
			return nil, err
		}
		messages = append(messages, toMessage(dm))
	}
	return messages, nil
}

func fromMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		At:         m.CreatedAt.UnixNano(),
		Read:       m.Read,
	}
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:         dm.ID,
		SenderID:   dm.SenderID,
		ReceiverID: dm.ReceiverID,
		Content:    dm.Content,
		CreatedAt:  time.Unix(0, dm.At).UTC(),
		Read:       dm.Read,
	}
}

// ToMessages is exposed for tooling that reads raw badger values directly.
func ToMessages(raws [][]byte) ([]domain.Message, error) {
	return decodeMessages(raws)
}
