// Package services – ChatService
//
// This file implements the conversation engine: durable message append,
// thread pagination, read state, and the per-partner conversation index.
// A send is ordered strictly as durable write, then inbox entry, then live
// push: the stored message is the source of truth and everything after the
// write is a best-effort derivative that clients can reconcile by polling.
//
// Observability: send and conversation-index operations are OpenTelemetry-
// instrumented.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/cache"
	"github.com/roomatch/go-roomatch-backend/internal/domain"
	"github.com/roomatch/go-roomatch-backend/internal/presence"
	"github.com/roomatch/go-roomatch-backend/internal/repo"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageNotifier receives inbox entries for newly delivered messages.
type MessageNotifier interface {
	NotifyMessage(ctx context.Context, ownerID, senderName string) error
}

// Publisher pushes live events to a user's connected channels. Publishing
// must never block; the return value is the number of channels reached.
type Publisher interface {
	Publish(userID string, ev presence.Event) int
}

// ConversationSummary is one row of the recent-conversations index: the
// counterpart, the newest message in the thread regardless of direction,
// and the thread-specific unread count.
type ConversationSummary struct {
	Partner     domain.Profile `json:"partner"`
	LastMessage domain.Message `json:"last_message"`
	FromMe      bool           `json:"from_me"`
	UnreadCount int64          `json:"unread_count"`
}

// threadReadEvent is the payload of a messages-marked-read live event.
type threadReadEvent struct {
	OtherUserID string `json:"other_user_id"`
	Marked      int64  `json:"marked"`
}

// ChatService coordinates message persistence, read state, and fan-out.
// Presence, Notifier, and Unread are all optional; a nil dependency simply
// disables that side effect.
type ChatService struct {
	DB       *gorm.DB
	Notifier MessageNotifier
	Presence Publisher
	Unread   *cache.RedisCache

	// MaxBodyRunes caps message bodies; 0 disables the cap.
	MaxBodyRunes int
}

// NewChatService constructs a ChatService with the default body cap.
func NewChatService(db *gorm.DB, notifier MessageNotifier, pub Publisher, unread *cache.RedisCache) *ChatService {
	return &ChatService{
		DB:           db,
		Notifier:     notifier,
		Presence:     pub,
		Unread:       unread,
		MaxBodyRunes: 4000,
	}
}

// Send validates and persists a directed message, then fans out the inbox
// entry and live events. Failures after the durable write are logged and
// absorbed; the message always wins.
func (s *ChatService) Send(ctx context.Context, senderID, receiverID, body, kind string) (*domain.Message, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("user.id", senderID),
			attribute.String("peer.id", receiverID),
		),
	)
	defer span.End()

	if senderID == receiverID {
		return nil, ErrSelfMessage
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrMessageTooLong
	}
	if kind == "" {
		kind = domain.MessageKindText
	}

	sender, err := repo.GetProfile(ctx, s.DB, senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if _, err := repo.GetProfile(ctx, s.DB, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	m, err := repo.CreateMessage(ctx, s.DB, senderID, receiverID, body, kind)
	if err != nil {
		return nil, err
	}

	// Everything below is best-effort: the message is already durable.
	if s.Notifier != nil {
		if err := s.Notifier.NotifyMessage(ctx, receiverID, sender.Name); err != nil {
			log.Warn().Err(err).Str("user_id", receiverID).Msg("message notification failed")
		}
	}
	s.invalidateUnread(ctx, receiverID)
	if s.Presence != nil {
		s.Presence.Publish(receiverID, presence.Event{Name: presence.EventMessageReceived, Payload: m})
		s.Presence.Publish(senderID, presence.Event{Name: presence.EventMessageSentAck, Payload: m})
	}
	return m, nil
}

// Conversation returns one page of the thread between userID and otherID in
// chronological order, plus the total thread length. Page 1 holds the most
// recent pageSize messages; walking pages upward moves back in time, and
// each page is reversed so consecutive pages concatenate into reading
// order. Out-of-range pages yield an empty page, never an error.
func (s *ChatService) Conversation(ctx context.Context, userID, otherID string, page, pageSize int) ([]domain.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	total, err := repo.CountThread(ctx, s.DB, userID, otherID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	msgs, err := repo.ListThreadPage(ctx, s.DB, userID, otherID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}

	// Newest-first storage order -> chronological reading order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, total, nil
}

// UnreadCount returns the total number of unread messages addressed to
// userID, cache-first with a database fallback.
func (s *ChatService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if s.Unread != nil {
		if n, hit, err := s.Unread.GetUnreadCount(ctx, userID); err == nil && hit {
			return n, nil
		} else if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("unread cache read failed")
		}
	}

	n, err := repo.CountUnread(ctx, s.DB, userID)
	if err != nil {
		return 0, err
	}
	if s.Unread != nil {
		if err := s.Unread.SetUnreadCount(ctx, userID, n); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("unread cache write failed")
		}
	}
	return n, nil
}

// MarkRead marks every unread message from otherID to userID as read.
// Idempotent; the opposite direction is untouched. A live
// messages-marked-read event tells the reader's other devices to clear
// their badges.
func (s *ChatService) MarkRead(ctx context.Context, userID, otherID string) error {
	marked, err := repo.MarkThreadRead(ctx, s.DB, userID, otherID)
	if err != nil {
		return err
	}

	s.invalidateUnread(ctx, userID)
	if s.Presence != nil {
		s.Presence.Publish(userID, presence.Event{
			Name:    presence.EventThreadRead,
			Payload: threadReadEvent{OtherUserID: otherID, Marked: marked},
		})
	}
	return nil
}

// RecentConversations builds the per-partner index for userID: for every
// distinct partner, the newest message in that thread (either direction)
// with the thread's unread count, ordered most-recent-first.
//
// The scan arrives newest-first, so the first message seen per canonical
// pair is that thread's head and the output inherits the ordering for free.
func (s *ChatService) RecentConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "RecentConversations",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	msgs, err := repo.ListUserMessages(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	type pairKey struct{ a, b string }
	seen := make(map[pairKey]struct{})
	out := make([]ConversationSummary, 0)

	for i := range msgs {
		m := msgs[i]
		a, b := m.ConversationKey()
		key := pairKey{a, b}
		if _, done := seen[key]; done {
			continue
		}
		seen[key] = struct{}{}

		partnerID := m.SenderID
		if partnerID == userID {
			partnerID = m.ReceiverID
		}

		partner, err := repo.GetProfile(ctx, s.DB, partnerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // partner profile removed; hide the thread
			}
			return nil, err
		}
		unread, err := repo.CountUnreadFrom(ctx, s.DB, userID, partnerID)
		if err != nil {
			return nil, err
		}

		out = append(out, ConversationSummary{
			Partner:     *partner,
			LastMessage: m,
			FromMe:      m.SenderID == userID,
			UnreadCount: unread,
		})
	}

	span.SetAttributes(attribute.Int("conversations.count", len(out)))
	return out, nil
}

// invalidateUnread drops the cached unread total for userID, logging (not
// propagating) failures.
func (s *ChatService) invalidateUnread(ctx context.Context, userID string) {
	if s.Unread == nil {
		return
	}
	if err := s.Unread.InvalidateUnread(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("unread cache invalidation failed")
	}
}
