// Package services – MatchService
//
// This file implements the candidate matching engine: it ranks prospective
// roommates with the pure scoring function and owns the match lifecycle
// (request, respond, list). The existence check before an insert is only an
// early exit; the unique index on the canonical pair is what actually
// prevents duplicate matches under concurrency.
//
// Observability: candidate discovery is OpenTelemetry-instrumented; spans
// carry the requester ID and the filtered/returned set sizes.
package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
	"github.com/roomatch/go-roomatch-backend/internal/repo"
	"github.com/roomatch/go-roomatch-backend/internal/scoring"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
)

// MatchNotifier receives inbox entries triggered by match lifecycle events.
// Implementations must treat calls as best-effort side effects.
type MatchNotifier interface {
	NotifyMatchRequest(ctx context.Context, ownerID, requesterName string) error
	NotifyMatchAccepted(ctx context.Context, ownerID, accepterName string) error
}

// CandidateFilters narrows candidate discovery. Zero values mean "no
// constraint". Budget is an exact bucket (normalized before comparison, so
// "8k" matches "8000"); BudgetMin/BudgetMax select a normalized range.
// Location matches as a case-folded substring.
type CandidateFilters struct {
	Gender    string
	MinAge    int
	MaxAge    int
	Budget    string
	BudgetMin int64
	BudgetMax int64
	Location  string
}

// Candidate pairs a profile with its compatibility score for the requester.
type Candidate struct {
	Profile domain.Profile `json:"profile"`
	Score   float64        `json:"score"`
}

// MatchSummary is one row of a user's match list. Counterpart is nil when
// the other participant's profile has been removed.
type MatchSummary struct {
	Match       domain.Match    `json:"match"`
	Counterpart *domain.Profile `json:"counterpart,omitempty"`
}

// MatchService owns candidate ranking and the match state machine.
type MatchService struct {
	DB       *gorm.DB
	Notifier MatchNotifier

	// DefaultLimit applies when the caller passes limit <= 0; MaxLimit caps
	// any requested limit.
	DefaultLimit int
	MaxLimit     int
}

// NewMatchService constructs a MatchService with the default result window.
func NewMatchService(db *gorm.DB, notifier MatchNotifier) *MatchService {
	return &MatchService{
		DB:           db,
		Notifier:     notifier,
		DefaultLimit: 20,
		MaxLimit:     100,
	}
}

// foldCaser performs Unicode case folding for caseless location matching.
var foldCaser = cases.Fold()

// FindCandidates returns up to limit candidates for requesterID, ordered by
// descending compatibility score with ties broken by candidate ID ascending.
// The requester and every user already linked by a match row (any status)
// are excluded. Every profile surviving the filters is scored before the
// list is truncated.
func (s *MatchService) FindCandidates(ctx context.Context, requesterID string, f CandidateFilters, limit int) ([]Candidate, error) {
	tr := otel.Tracer("services/MatchService")
	ctx, span := tr.Start(ctx, "FindCandidates",
		trace.WithAttributes(attribute.String("user.id", requesterID)),
	)
	defer span.End()

	if err := f.validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}

	requester, err := repo.GetProfile(ctx, s.DB, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	linked, err := repo.ListMatchedUserIDs(ctx, s.DB, requesterID)
	if err != nil {
		return nil, err
	}
	exclude := append(linked, requesterID)

	profiles, err := repo.ListCandidateProfiles(ctx, s.DB, exclude, repo.CandidateQuery{
		Gender: f.Gender,
		MinAge: f.MinAge,
		MaxAge: f.MaxAge,
	})
	if err != nil {
		return nil, err
	}

	wantBudget, haveBudget := int64(0), false
	if f.Budget != "" {
		// validate() already guaranteed this parses.
		wantBudget, _ = scoring.NormalizeBudget(f.Budget)
		haveBudget = true
	}
	locQuery := ""
	if f.Location != "" {
		locQuery = foldCaser.String(f.Location)
	}

	candidates := make([]Candidate, 0, len(profiles))
	for i := range profiles {
		p := profiles[i]
		if locQuery != "" && !strings.Contains(foldCaser.String(p.Location), locQuery) {
			continue
		}
		if haveBudget || f.BudgetMin > 0 || f.BudgetMax > 0 {
			b, ok := scoring.NormalizeBudget(p.Budget)
			if !ok {
				continue
			}
			if haveBudget && b != wantBudget {
				continue
			}
			if f.BudgetMin > 0 && b < f.BudgetMin {
				continue
			}
			if f.BudgetMax > 0 && b > f.BudgetMax {
				continue
			}
		}
		candidates = append(candidates, Candidate{
			Profile: p,
			Score:   scoring.Compatibility(requester, &p),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Profile.ID < candidates[j].Profile.ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	span.SetAttributes(
		attribute.Int("candidates.filtered", len(profiles)),
		attribute.Int("candidates.returned", len(candidates)),
	)
	return candidates, nil
}

// validate rejects malformed filters instead of silently returning an empty
// result, so callers can distinguish "nobody matched" from "bad request".
func (f CandidateFilters) validate() error {
	if f.MinAge < 0 || f.MaxAge < 0 {
		return ErrInvalidFilters
	}
	if f.MinAge > 0 && f.MaxAge > 0 && f.MinAge > f.MaxAge {
		return ErrInvalidFilters
	}
	if f.BudgetMin < 0 || f.BudgetMax < 0 {
		return ErrInvalidFilters
	}
	if f.BudgetMin > 0 && f.BudgetMax > 0 && f.BudgetMin > f.BudgetMax {
		return ErrInvalidFilters
	}
	if f.Budget != "" {
		if _, ok := scoring.NormalizeBudget(f.Budget); !ok {
			return ErrInvalidFilters
		}
	}
	return nil
}

// RequestMatch creates a pending match between requester and target and
// drops a match-request entry into the target's inbox. A pair that already
// has a match row in any status fails with ErrDuplicateMatch.
func (s *MatchService) RequestMatch(ctx context.Context, requesterID, targetID string) (*domain.Match, error) {
	if requesterID == targetID {
		return nil, ErrSelfMatch
	}

	requester, err := repo.GetProfile(ctx, s.DB, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if _, err := repo.GetProfile(ctx, s.DB, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	// Advisory early exit; the unique index still guards the race below.
	if exists, err := repo.PairExists(ctx, s.DB, requesterID, targetID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicateMatch
	}

	m, err := repo.CreateMatch(ctx, s.DB, requesterID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateMatch
		}
		return nil, err
	}

	if s.Notifier != nil {
		if err := s.Notifier.NotifyMatchRequest(ctx, targetID, requester.Name); err != nil {
			log.Warn().Err(err).Str("user_id", targetID).Msg("match request notification failed")
		}
	}
	return m, nil
}

// RespondToMatch applies accept/reject on behalf of actingUserID. Only a
// participant may respond, only pending matches may transition, and both
// terminal states are final.
func (s *MatchService) RespondToMatch(ctx context.Context, matchID, actingUserID, newStatus string) (*domain.Match, error) {
	if newStatus != domain.MatchAccepted && newStatus != domain.MatchRejected {
		return nil, ErrInvalidTransition
	}

	m, err := repo.GetMatch(ctx, s.DB, matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if !m.Involves(actingUserID) {
		return nil, ErrNotParticipant
	}
	if m.Status != domain.MatchPending {
		return nil, ErrInvalidTransition
	}

	// Guarded single-statement transition: a concurrent responder that wins
	// the race leaves zero rows for this update.
	ok, err := repo.TransitionMatch(ctx, s.DB, matchID, newStatus)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	m.Status = newStatus

	if newStatus == domain.MatchAccepted && s.Notifier != nil {
		counterpartID := m.Counterpart(actingUserID)
		if accepter, err := repo.GetProfile(ctx, s.DB, actingUserID); err == nil {
			if err := s.Notifier.NotifyMatchAccepted(ctx, counterpartID, accepter.Name); err != nil {
				log.Warn().Err(err).Str("user_id", counterpartID).Msg("match accepted notification failed")
			}
		}
	}
	return m, nil
}

// ListMatches returns all matches involving userID in creation order, each
// joined with the counterpart's profile.
func (s *MatchService) ListMatches(ctx context.Context, userID string) ([]MatchSummary, error) {
	matches, err := repo.ListMatches(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	out := make([]MatchSummary, 0, len(matches))
	for i := range matches {
		summary := MatchSummary{Match: matches[i]}
		counterpart, err := repo.GetProfile(ctx, s.DB, matches[i].Counterpart(userID))
		if err == nil {
			summary.Counterpart = counterpart
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}
