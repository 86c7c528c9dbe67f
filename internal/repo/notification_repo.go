// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
)

// CreateNotification appends an inbox entry for userID.
func CreateNotification(ctx context.Context, db *gorm.DB, userID, title, body, kind string) (*domain.Notification, error) {
	n := &domain.Notification{
		UserID:    userID,
		Title:     title,
		Body:      body,
		Kind:      kind,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotificationsPage returns one page of userID's inbox, newest first.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountNotifications returns the total inbox size for pagination metadata.
func CountNotifications(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// CountUnreadNotifications counts unread inbox entries.
func CountUnreadNotifications(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&total).Error
	return total, err
}

// MarkNotificationRead flips the read flag on a single entry. The owner is
// part of the WHERE clause, so a non-owner (or unknown ID) affects zero rows.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id int64, userID string) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkAllNotificationsRead flips every unread entry of userID. Idempotent.
func MarkAllNotificationsRead(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// DeleteNotification removes a single owner-scoped entry.
func DeleteNotification(ctx context.Context, db *gorm.DB, id int64, userID string) (bool, error) {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Notification{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
