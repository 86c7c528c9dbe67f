// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// MessageReceipt model used to implement safe-retry semantics for
// send-message requests.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
)

// ErrDuplicateReceipt indicates that a receipt already exists for the given
// (user_id, key) tuple.
var ErrDuplicateReceipt = errors.New("duplicate receipt")

// GetReceipt returns a non-expired receipt for (userID, key), or
// gorm.ErrRecordNotFound.
func GetReceipt(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.MessageReceipt, error) {
	var rec domain.MessageReceipt
	err := db.WithContext(ctx).
		Where("user_id = ? AND key = ? AND expires_at > ?", userID, key, now).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateReceipt inserts a receipt and returns ErrDuplicateReceipt on a unique
// violation (a concurrent retry already stored one).
func CreateReceipt(ctx context.Context, db *gorm.DB, userID, key string, messageID int64, ttl time.Duration) (*domain.MessageReceipt, error) {
	now := time.Now().UTC()
	rec := &domain.MessageReceipt{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       key,
		MessageID: messageID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite sometimes reports UNIQUE violations as plain text.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicateReceipt
		}
		return nil, err
	}
	return rec, nil
}
