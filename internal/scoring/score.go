// Package scoring implements the pure compatibility function used to rank
// roommate candidates. It has no I/O and never returns an error: malformed
// attribute data (unparseable budgets, broken tag lists) degrades the
// affected term to zero instead of failing the whole score.
package scoring

import (
	"strconv"
	"strings"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
)

// Term weights. Habits weigh slightly more than interests because shared
// living habits matter more than shared hobbies for cohabitation.
const (
	ageTermMax      = 20
	genderBonus     = 10
	occupationBonus = 10
	budgetTermMax   = 20
	habitWeight     = 5
	interestWeight  = 4
)

// Compatibility scores how well two profiles fit as roommates. Higher is
// better; the result is always >= 0 and is not capped.
//
// The age term uses the linear falloff max(0, 20 - |ageA - ageB|); a wider
// age gap never increases the score. Callers pass the querying user first,
// although the current terms happen to be symmetric.
func Compatibility(a, b *domain.Profile) float64 {
	var score float64

	if a.Age > 0 && b.Age > 0 {
		diff := a.Age - b.Age
		if diff < 0 {
			diff = -diff
		}
		if diff < ageTermMax {
			score += float64(ageTermMax - diff)
		}
	}

	if a.Gender == b.Gender {
		score += genderBonus
	}
	if a.Occupation == b.Occupation {
		score += occupationBonus
	}

	if ba, okA := NormalizeBudget(a.Budget); okA {
		if bb, okB := NormalizeBudget(b.Budget); okB {
			diff := ba - bb
			if diff < 0 {
				diff = -diff
			}
			if t := budgetTermMax - diff/1000; t > 0 {
				score += float64(t)
			}
		}
	}

	score += float64(habitWeight * intersectionSize(a.HabitTags(), b.HabitTags()))
	score += float64(interestWeight * intersectionSize(a.InterestTags(), b.InterestTags()))

	return score
}

// NormalizeBudget parses a free-form budget string into a plain integer
// amount. Currency symbols and thousands separators are stripped, and a
// trailing "k"/"K" multiplies by 1000, so "8000", "₹8000" and "8k" all
// normalize to 8000. The second return value is false when the remainder is
// not a number.
func NormalizeBudget(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	// Strip common currency markers anywhere in the string.
	for _, sym := range []string{"₹", "$", "€", "£", ",", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}

	mult := int64(1)
	if strings.HasSuffix(s, "k") || strings.HasSuffix(s, "K") {
		mult = 1000
		s = s[:len(s)-1]
	}
	if s == "" {
		return 0, false
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n * mult, true
}

// intersectionSize counts tags present in both lists. Duplicates within one
// list count once.
func intersectionSize(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	n := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			n++
			delete(set, t)
		}
	}
	return n
}
