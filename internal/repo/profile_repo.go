// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only access to the profile store.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
)

// GetProfile fetches a profile by user ID.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CandidateQuery narrows the raw candidate scan before scoring. Zero values
// mean "no constraint". Budget and location filters are applied in the
// service layer: budgets are raw strings that need normalization, and
// location matching uses Unicode case folding that SQL LOWER() cannot do.
type CandidateQuery struct {
	Gender string
	MinAge int
	MaxAge int
}

// ListCandidateProfiles returns every profile matching q, excluding the given
// IDs. The full filtered set is returned (no internal sampling window) so the
// caller can score all of it before truncating; ordering is by ID for
// deterministic iteration.
func ListCandidateProfiles(ctx context.Context, db *gorm.DB, exclude []string, q CandidateQuery) ([]domain.Profile, error) {
	tx := db.WithContext(ctx).Model(&domain.Profile{})
	if len(exclude) > 0 {
		tx = tx.Where("id NOT IN ?", exclude)
	}
	if q.Gender != "" {
		tx = tx.Where("gender = ?", q.Gender)
	}
	if q.MinAge > 0 {
		tx = tx.Where("age >= ?", q.MinAge)
	}
	if q.MaxAge > 0 {
		tx = tx.Where("age <= ?", q.MaxAge)
	}

	var out []domain.Profile
	err := tx.Order("id ASC").Find(&out).Error
	return out, err
}
