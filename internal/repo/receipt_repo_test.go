package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
)

func TestCreateReceipt_AndReplayLookup(t *testing.T) {
	db := newRepoDB(t, &domain.MessageReceipt{})
	ctx := context.Background()

	rec, err := CreateReceipt(ctx, db, "u1", "key-1", 42, time.Hour)
	if err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}
	if rec.MessageID != 42 || rec.UserID != "u1" || rec.Key != "key-1" {
		t.Fatalf("unexpected receipt: %+v", rec)
	}

	got, err := GetReceipt(ctx, db, "u1", "key-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if got.MessageID != 42 {
		t.Fatalf("MessageID = %d, want 42", got.MessageID)
	}
}

func TestCreateReceipt_DuplicateKey(t *testing.T) {
	db := newRepoDB(t, &domain.MessageReceipt{})
	ctx := context.Background()

	if _, err := CreateReceipt(ctx, db, "u1", "key-1", 1, time.Hour); err != nil {
		t.Fatalf("first CreateReceipt: %v", err)
	}
	if _, err := CreateReceipt(ctx, db, "u1", "key-1", 2, time.Hour); !errors.Is(err, ErrDuplicateReceipt) {
		t.Fatalf("expected ErrDuplicateReceipt, got %v", err)
	}

	// Same key for a different user is a distinct tuple.
	if _, err := CreateReceipt(ctx, db, "u2", "key-1", 3, time.Hour); err != nil {
		t.Fatalf("other-user CreateReceipt: %v", err)
	}
}

func TestGetReceipt_ExpiredIsNotFound(t *testing.T) {
	db := newRepoDB(t, &domain.MessageReceipt{})
	ctx := context.Background()

	if _, err := CreateReceipt(ctx, db, "u1", "key-1", 1, time.Millisecond); err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}

	_, err := GetReceipt(ctx, db, "u1", "key-1", time.Now().UTC().Add(time.Second))
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for expired receipt, got %v", err)
	}
}
