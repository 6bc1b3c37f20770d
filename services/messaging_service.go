package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abadojack/whatlanggo"

	"portal-dm/auth"
	"portal-dm/domain"
	"portal-dm/errors"
	"portal-dm/moderation"
	"portal-dm/repositories"
	"portal-dm/runtime"
)

type IMessagingService interface {
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	MarkConversationRead(ctx context.Context, cmd domain.MarkReadCommand) (int, error)
	ListConversations(ctx context.Context, user string) ([]domain.Conversation, error)
	Subscribe(ctx context.Context, user string) (*runtime.Subscription, error)
	Unsubscribe(sub *runtime.Subscription)
	SearchMessages(ctx context.Context, actor, terms string, limit int) ([]repositories.SearchHit, uint64, error)
}

// MessagingService is the outbound surface of the messaging core. Every call
// names its actor explicitly and is cross-checked against the session gate
// before any store operation, so the core stays testable without a live
// auth system and a forged actor field cannot impersonate anyone.
type MessagingService struct {
	log       *slog.Logger
	gate      auth.ISessionGate
	store     repositories.IMessageRepository
	search    repositories.ISearchRepository
	moderator moderation.Moderator
	orch      *runtime.Orchestrator
}

func NewMessagingService(log *slog.Logger, gate auth.ISessionGate,
	store repositories.IMessageRepository, search repositories.ISearchRepository,
	moderator moderation.Moderator, orch *runtime.Orchestrator) *MessagingService {
	return &MessagingService{
		log:       log,
		gate:      gate,
		store:     store,
		search:    search,
		moderator: moderator,
		orch:      orch,
	}
}

// Send validates, authorizes, and moderates a message before appending it.
// A failed send mutates nothing and therefore produces no delta anywhere.
func (s *MessagingService) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := s.authorize(ctx, cmd.Actor); err != nil {
		return domain.Message{}, err
	}
	if cmd.Actor == cmd.Target {
		return domain.Message{}, errors.ErrSelfMessage
	}
	if err := auth.ValidateSend(auth.SendRequest{Target: cmd.Target, Content: cmd.Content}); err != nil {
		if len([]rune(cmd.Content)) > auth.MaxContentLength {
			return domain.Message{}, errors.ErrContentTooLong
		}
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrEmptyContent, err)
	}
	if !s.gate.CanMessage(cmd.Actor, cmd.Target) {
		return domain.Message{}, errors.ErrNotAllowed
	}

	censored, foundWords := s.moderator.Censor(cmd.Content)
	if len(foundWords) > 0 {
		info := whatlanggo.Detect(cmd.Content)
		s.log.Warn("Censored outgoing message",
			"actor", cmd.Actor,
			"lang", info.Lang.Iso6391(),
			"words", len(foundWords))
	}

	return s.store.Append(cmd.Actor, cmd.Target, censored)
}

// MarkConversationRead clears every unread message the actor received from
// the counterpart and returns how many were flipped. Repeating the call
// clears zero rows and is not an error.
func (s *MessagingService) MarkConversationRead(ctx context.Context, cmd domain.MarkReadCommand) (int, error) {
	if err := s.authorize(ctx, cmd.Actor); err != nil {
		return 0, err
	}
	return s.store.MarkRead(cmd.Actor, cmd.Counterpart)
}

// ListConversations returns the viewer's conversation list, newest first.
func (s *MessagingService) ListConversations(ctx context.Context, user string) ([]domain.Conversation, error) {
	if err := s.authorize(ctx, user); err != nil {
		return nil, err
	}
	return s.orch.ListConversations(user)
}

// Subscribe opens a live conversation-list stream: one snapshot, then deltas.
func (s *MessagingService) Subscribe(ctx context.Context, user string) (*runtime.Subscription, error) {
	if err := s.authorize(ctx, user); err != nil {
		return nil, err
	}
	return s.orch.Subscribe(user)
}

// Unsubscribe releases the stream immediately.
func (s *MessagingService) Unsubscribe(sub *runtime.Subscription) {
	s.orch.Unsubscribe(sub)
}

// SearchMessages runs a full-text query over the actor's own conversations.
func (s *MessagingService) SearchMessages(ctx context.Context, actor, terms string, limit int) ([]repositories.SearchHit, uint64, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, 0, err
	}
	return s.search.Search(ctx, actor, terms, limit)
}

// authorize resolves the session identity and requires it to match the
// claimed actor.
func (s *MessagingService) authorize(ctx context.Context, actor string) error {
	current, err := s.gate.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if current != actor {
		return errors.ErrUnauthorized
	}
	return nil
}
