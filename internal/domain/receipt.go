package domain

import "time"

// MessageReceipt records the outcome of an idempotent send-message request.
// A client retrying with the same Idempotency-Key within the TTL receives the
// originally stored message instead of creating a duplicate.
type MessageReceipt struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_receipt_user_key,priority:1"`
	Key       string    `json:"key"        gorm:"type:varchar(200);not null;uniqueIndex:ux_receipt_user_key,priority:2"`
	MessageID int64     `json:"message_id" gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for MessageReceipt.
func (MessageReceipt) TableName() string { return "message_receipts" }
