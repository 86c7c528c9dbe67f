// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model: append, thread pagination, read state, and the per-partner scan
// backing conversation summaries.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
)

// CreateMessage appends a directed message. The auto-increment ID assigned by
// the store is the monotone sequence; rows are never reordered afterwards.
func CreateMessage(ctx context.Context, db *gorm.DB, senderID, receiverID, body, kind string) (*domain.Message, error) {
	m := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		Kind:       kind,
		Read:       false,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id int64) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// threadScope selects both directions of the thread between two users.
func threadScope(db *gorm.DB, userA, userB string) *gorm.DB {
	return db.Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userA, userB, userB, userA,
	)
}

// ListThreadPage returns one page of the thread between userA and userB,
// newest first (CreatedAt DESC, ID DESC). Page 1 holds the most recent
// messages; callers reverse each page into chronological order before
// returning it. Out-of-range offsets yield an empty slice.
func ListThreadPage(ctx context.Context, db *gorm.DB, userA, userB string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := threadScope(db.WithContext(ctx).Model(&domain.Message{}), userA, userB).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountThread returns the total number of messages in the thread.
func CountThread(ctx context.Context, db *gorm.DB, userA, userB string) (int64, error) {
	var total int64
	err := threadScope(db.WithContext(ctx).Model(&domain.Message{}), userA, userB).
		Count(&total).Error
	return total, err
}

// ThreadStats returns the message count, the highest message ID, and the
// number of messages still unread by userID for the thread with otherID. The
// triple is cheap to compute and changes on every append and on every
// mark-read, which makes it a good weak-ETag source for conversation pages:
// read-flag flips invalidate cached pages too.
func ThreadStats(ctx context.Context, db *gorm.DB, userID, otherID string) (count int64, maxID int64, unread int64, err error) {
	row := threadScope(db.WithContext(ctx).Model(&domain.Message{}), userID, otherID).
		Select(
			"COUNT(*) AS count, COALESCE(MAX(id), 0) AS max_id, "+
				"COALESCE(SUM(CASE WHEN receiver_id = ? AND read = ? THEN 1 ELSE 0 END), 0) AS unread",
			userID, false,
		).Row()
	err = row.Scan(&count, &maxID, &unread)
	return count, maxID, unread, err
}

// CountUnread counts all unread messages addressed to userID.
func CountUnread(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Where("receiver_id = ? AND read = ?", userID, false).
		Count(&total).Error
	return total, err
}

// CountUnreadFrom counts unread messages from otherID to userID, i.e. the
// per-thread unread figure shown on conversation summaries.
func CountUnreadFrom(ctx context.Context, db *gorm.DB, userID, otherID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read = ?", otherID, userID, false).
		Count(&total).Error
	return total, err
}

// MarkThreadRead flips the read flag on all unread messages from otherID to
// userID. It is a single UPDATE, so it is idempotent and never touches the
// opposite direction; messages committed after the statement starts stay
// unread, which is the documented concurrency contract. Returns the number
// of rows flipped.
func MarkThreadRead(ctx context.Context, db *gorm.DB, userID, otherID string) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read = ?", otherID, userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// ListUserMessages returns every message sent or received by userID, newest
// first (CreatedAt DESC, ID DESC). The conversation index reduces this scan
// to the top-1 message per canonical pair; doing the grouping in Go keeps the
// query portable across storage engines.
func ListUserMessages(ctx context.Context, db *gorm.DB, userID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}
