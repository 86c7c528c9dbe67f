// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Match model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
)

// CreateMatch inserts a pending match between requester and target. The pair
// is canonicalized before insert; a concurrent insert for the same pair (in
// either order) fails with gorm.ErrDuplicatedKey via the ux_match_pair
// unique index.
func CreateMatch(ctx context.Context, db *gorm.DB, requesterID, targetID string) (*domain.Match, error) {
	a, b := domain.CanonicalPair(requesterID, targetID)
	now := time.Now().UTC()
	m := &domain.Match{
		ID:          uuid.NewString(),
		UserAID:     a,
		UserBID:     b,
		RequesterID: requesterID,
		Status:      domain.MatchPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMatch fetches a match by ID.
func GetMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Match, error) {
	var m domain.Match
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// PairExists reports whether any match row exists for the canonical pair,
// regardless of status. This is an early-exit optimization only; the unique
// index is the actual duplicate guard.
func PairExists(ctx context.Context, db *gorm.DB, userA, userB string) (bool, error) {
	a, b := domain.CanonicalPair(userA, userB)
	var count int64
	err := db.WithContext(ctx).Model(&domain.Match{}).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		Count(&count).Error
	return count > 0, err
}

// TransitionMatch applies a single guarded status transition. The WHERE
// clause pins the current status to pending, so two concurrent responders
// cannot both succeed: the second sees zero rows affected.
func TransitionMatch(ctx context.Context, db *gorm.DB, id, newStatus string) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Match{}).
		Where("id = ? AND status = ?", id, domain.MatchPending).
		Updates(map[string]any{
			"status":     newStatus,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListMatches returns all matches where userID is a participant, in creation
// order (CreatedAt ASC, ID ASC for stability).
func ListMatches(ctx context.Context, db *gorm.DB, userID string) ([]domain.Match, error) {
	var out []domain.Match
	err := db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListMatchedUserIDs returns every identifier already linked to userID by a
// match row in any status. Candidate discovery excludes all of them so a
// rejected pair never resurfaces.
func ListMatchedUserIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	matches, err := ListMatches(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for i := range matches {
		ids = append(ids, matches[i].Counterpart(userID))
	}
	return ids, nil
}
