package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
)

// newRepoDB opens a throwaway SQLite database and migrates the given models.
// TranslateError is enabled so unique violations surface as
// gorm.ErrDuplicatedKey, exactly as in production.
func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateMatch_CanonicalizesPair(t *testing.T) {
	db := newRepoDB(t, &domain.Match{})

	m, err := CreateMatch(context.Background(), db, "zed", "amy")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if m.UserAID != "amy" || m.UserBID != "zed" {
		t.Fatalf("pair not canonical: %+v", m)
	}
	if m.RequesterID != "zed" {
		t.Fatalf("requester lost: %+v", m)
	}
	if m.Status != domain.MatchPending {
		t.Fatalf("new match should be pending, got %q", m.Status)
	}
	if m.ID == "" {
		t.Fatal("ID not assigned")
	}
}

func TestCreateMatch_DuplicatePair_EitherOrder(t *testing.T) {
	db := newRepoDB(t, &domain.Match{})
	ctx := context.Background()

	if _, err := CreateMatch(ctx, db, "u1", "u2"); err != nil {
		t.Fatalf("first CreateMatch: %v", err)
	}

	// Same pair, same order.
	if _, err := CreateMatch(ctx, db, "u1", "u2"); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected ErrDuplicatedKey, got %v", err)
	}
	// Same pair, reversed order collides on the same unique index.
	if _, err := CreateMatch(ctx, db, "u2", "u1"); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected ErrDuplicatedKey for reversed pair, got %v", err)
	}
}

func TestTransitionMatch_SingleTransitionWins(t *testing.T) {
	db := newRepoDB(t, &domain.Match{})
	ctx := context.Background()

	m, err := CreateMatch(ctx, db, "u1", "u2")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	ok, err := TransitionMatch(ctx, db, m.ID, domain.MatchAccepted)
	if err != nil || !ok {
		t.Fatalf("first transition: ok=%v err=%v", ok, err)
	}

	// A second transition (even to the same status) must not apply.
	ok, err = TransitionMatch(ctx, db, m.ID, domain.MatchRejected)
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if ok {
		t.Fatal("second transition reported success")
	}

	got, err := GetMatch(ctx, db, m.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if got.Status != domain.MatchAccepted {
		t.Fatalf("status = %q, want accepted", got.Status)
	}
}

func TestTransitionMatch_UnknownID(t *testing.T) {
	db := newRepoDB(t, &domain.Match{})

	ok, err := TransitionMatch(context.Background(), db, "missing", domain.MatchAccepted)
	if err != nil {
		t.Fatalf("TransitionMatch: %v", err)
	}
	if ok {
		t.Fatal("transition of a missing match reported success")
	}
}

func TestPairExists(t *testing.T) {
	db := newRepoDB(t, &domain.Match{})
	ctx := context.Background()

	exists, err := PairExists(ctx, db, "u1", "u2")
	if err != nil || exists {
		t.Fatalf("empty table: exists=%v err=%v", exists, err)
	}

	if _, err := CreateMatch(ctx, db, "u1", "u2"); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		exists, err := PairExists(ctx, db, pair[0], pair[1])
		if err != nil {
			t.Fatalf("PairExists(%v): %v", pair, err)
		}
		if !exists {
			t.Fatalf("PairExists(%v) = false, want true", pair)
		}
	}
}

func TestListMatches_OrderAndFilter(t *testing.T) {
	db := newRepoDB(t, &domain.Match{})
	ctx := context.Background()

	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	seed := []domain.Match{
		{ID: "m2", UserAID: "u1", UserBID: "u3", RequesterID: "u3", Status: domain.MatchPending, CreatedAt: t1.Add(time.Hour)},
		{ID: "m1", UserAID: "u1", UserBID: "u2", RequesterID: "u1", Status: domain.MatchAccepted, CreatedAt: t1},
		{ID: "mx", UserAID: "u4", UserBID: "u5", RequesterID: "u4", Status: domain.MatchPending, CreatedAt: t1},
	}
	for _, m := range seed {
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed %s: %v", m.ID, err)
		}
	}

	got, err := ListMatches(ctx, db, "u1")
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("unexpected matches: %+v", got)
	}
}

func TestListMatchedUserIDs_AllStatusesCount(t *testing.T) {
	db := newRepoDB(t, &domain.Match{})
	ctx := context.Background()

	for i, pair := range []struct {
		other, status string
	}{
		{"u2", domain.MatchPending},
		{"u3", domain.MatchAccepted},
		{"u4", domain.MatchRejected},
	} {
		m := domain.Match{
			ID: fmt.Sprintf("m%d", i), UserAID: "u1", UserBID: pair.other,
			RequesterID: "u1", Status: pair.status,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	ids, err := ListMatchedUserIDs(ctx, db, "u1")
	if err != nil {
		t.Fatalf("ListMatchedUserIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("linked ids = %v, want u2,u3,u4", ids)
	}
}
