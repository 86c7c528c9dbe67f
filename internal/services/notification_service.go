// Package services – NotificationService
//
// This file implements the durable per-user inbox. Entries are created by
// the chat and matching flows as a side effect of their durable writes, and
// only the owning user can read, mark, or delete them. Creation is
// best-effort from the caller's point of view: a failed inbox write never
// rolls back the message or match that triggered it.
package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
	"github.com/roomatch/go-roomatch-backend/internal/repo"
)

// NotificationService owns the inbox lifecycle.
type NotificationService struct {
	DB *gorm.DB
}

// NotifyMessage records a new-message entry for the receiver.
func (s *NotificationService) NotifyMessage(ctx context.Context, ownerID, senderName string) error {
	_, err := repo.CreateNotification(ctx, s.DB, ownerID,
		"New message",
		fmt.Sprintf("You have a new message from %s", senderName),
		domain.NotificationKindMessage)
	return err
}

// NotifyMatchRequest records a match-request entry for the target user.
func (s *NotificationService) NotifyMatchRequest(ctx context.Context, ownerID, requesterName string) error {
	_, err := repo.CreateNotification(ctx, s.DB, ownerID,
		"New roommate request",
		fmt.Sprintf("%s wants to match with you", requesterName),
		domain.NotificationKindMatch)
	return err
}

// NotifyMatchAccepted records an acceptance entry for the original requester.
func (s *NotificationService) NotifyMatchAccepted(ctx context.Context, ownerID, accepterName string) error {
	_, err := repo.CreateNotification(ctx, s.DB, ownerID,
		"Match accepted",
		fmt.Sprintf("%s accepted your roommate request", accepterName),
		domain.NotificationKindMatch)
	return err
}

// ListPage returns one page of the owner's inbox, newest first, plus the
// total entry count. Invalid page/pageSize values fall back to defaults.
func (s *NotificationService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := repo.CountNotifications(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Notification{}, 0, nil
	}

	items, err := repo.ListNotificationsPage(ctx, s.DB, userID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// UnreadCount returns how many unread entries the owner has.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return repo.CountUnreadNotifications(ctx, s.DB, userID)
}

// MarkRead marks one entry read. Unknown IDs and entries owned by someone
// else both yield ErrNotificationNotFound: the inbox never confirms the
// existence of another user's entries.
func (s *NotificationService) MarkRead(ctx context.Context, id int64, userID string) error {
	ok, err := repo.MarkNotificationRead(ctx, s.DB, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread entry of the owner. Idempotent.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	_, err := repo.MarkAllNotificationsRead(ctx, s.DB, userID)
	return err
}

// Delete removes one owner-scoped entry.
func (s *NotificationService) Delete(ctx context.Context, id int64, userID string) error {
	ok, err := repo.DeleteNotification(ctx, s.DB, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}
