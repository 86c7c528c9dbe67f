// Match HTTP handlers.
//
// This file exposes REST endpoints for roommate matching:
//   - GET  /matches/candidates   (ranked candidate discovery)
//   - POST /matches              (send a match request)
//   - PUT  /matches/{id}/status  (accept or reject a pending request)
//   - GET  /matches              (list the caller's matches)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (query filters, JSON payloads, UUID shapes)
//   - delegate to application services (MatchService)
//   - translate service sentinel errors into stable HTTP error codes
//
// This file also hosts the service interfaces and the Handlers wiring shared
// by every handler in the package.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
	"github.com/roomatch/go-roomatch-backend/internal/http/middleware"
	"github.com/roomatch/go-roomatch-backend/internal/presence"
	"github.com/roomatch/go-roomatch-backend/internal/services"
	"github.com/roomatch/go-roomatch-backend/internal/utils"
)

//
// Service interfaces
//

// MatchService defines candidate discovery and match lifecycle operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MatchService interface {
	// FindCandidates returns up to limit ranked candidates for requesterID.
	FindCandidates(ctx context.Context, requesterID string, f services.CandidateFilters, limit int) ([]services.Candidate, error)
	// RequestMatch creates a pending match between requester and target.
	RequestMatch(ctx context.Context, requesterID, targetID string) (*domain.Match, error)
	// RespondToMatch accepts or rejects a pending match on behalf of actingUserID.
	RespondToMatch(ctx context.Context, matchID, actingUserID, newStatus string) (*domain.Match, error)
	// ListMatches returns every match involving userID with counterpart profiles.
	ListMatches(ctx context.Context, userID string) ([]services.MatchSummary, error)
}

// ChatService defines message delivery and conversation retrieval operations.
type ChatService interface {
	// Send persists a message and pushes best-effort live events.
	Send(ctx context.Context, senderID, receiverID, body, kind string) (*domain.Message, error)
	// Conversation returns one chronological page of the two-party thread.
	Conversation(ctx context.Context, userID, otherID string, page, pageSize int) ([]domain.Message, int64, error)
	// UnreadCount returns the caller's total unread message count.
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkRead marks every message from otherID to userID as read.
	MarkRead(ctx context.Context, userID, otherID string) error
	// RecentConversations returns one summary per partner, newest first.
	RecentConversations(ctx context.Context, userID string) ([]services.ConversationSummary, error)
}

// NotificationService defines inbox retrieval and maintenance operations.
type NotificationService interface {
	// ListPage returns a page of the caller's notifications and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int64, error)
	// UnreadCount returns the caller's unread notification count.
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkRead marks one owned notification as read.
	MarkRead(ctx context.Context, id int64, userID string) error
	// MarkAllRead marks every notification of the caller as read.
	MarkAllRead(ctx context.Context, userID string) error
	// Delete removes one owned notification.
	Delete(ctx context.Context, id int64, userID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for matching, chat, and notifications.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic. The presence hub is held directly because
// the websocket endpoint is transport through and through.
type Handlers struct {
	matchSvc MatchService
	chatSvc  ChatService
	notifSvc NotificationService
	hub      *presence.Hub
}

// New constructs and returns a Handlers instance bound to the given services.
func New(matchSvc MatchService, chatSvc ChatService, notifSvc NotificationService, hub *presence.Hub) *Handlers {
	return &Handlers{matchSvc: matchSvc, chatSvc: chatSvc, notifSvc: notifSvc, hub: hub}
}

// userID extracts the authenticated user id from Gin context (set by the
// RequireUser middleware). It falls back to the raw header so handler tests
// can exercise endpoints without the full middleware chain.
func userID(c *gin.Context) string {
	if v := middleware.UserID(c); v != "" {
		return v
	}
	if c != nil && c.Request != nil {
		return strings.TrimSpace(c.GetHeader(middleware.HeaderUserID))
	}
	return ""
}

//
// DTOs
//

// Pagination carries page metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// CandidatesResponse wraps the ranked candidate list.
type CandidatesResponse struct {
	Candidates []services.Candidate `json:"candidates"`
}

// CreateMatchRequest is the JSON payload for sending a match request.
type CreateMatchRequest struct {
	// TargetUserID identifies the profile being requested.
	TargetUserID string `json:"target_user_id" binding:"required,min=1" example:"user-42"`
}

// UpdateMatchStatusRequest is the JSON payload for responding to a request.
type UpdateMatchStatusRequest struct {
	// Status must be "accepted" or "rejected".
	Status string `json:"status" binding:"required" example:"accepted"`
}

// MatchResponse is the JSON envelope for a single match row.
type MatchResponse struct {
	Match *domain.Match `json:"match"`
}

// ListMatchesResponse wraps the caller's match list.
type ListMatchesResponse struct {
	Matches []services.MatchSummary `json:"matches"`
}

//
// Helpers
//

// int64Query parses an int64 query parameter, returning ok=false when the
// parameter is present but malformed.
func int64Query(c *gin.Context, name string) (int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

//
// Handlers
//

// GetCandidates godoc
// @ID          getCandidates
// @Summary     Discover ranked roommate candidates
// @Description Returns candidate profiles ranked by compatibility with the caller.
// @Description Users already linked by a match in any status are excluded.
// @Tags        Matches
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Caller's user ID"  example(user-1)
// @Param       gender     query   string  false  "Exact gender filter"
// @Param       min_age    query   int     false  "Minimum age (inclusive)"
// @Param       max_age    query   int     false  "Maximum age (inclusive)"
// @Param       budget     query   string  false  "Exact budget bucket (normalized, '8k' matches '8000')"
// @Param       budget_min query   int     false  "Minimum normalized budget"
// @Param       budget_max query   int     false  "Maximum normalized budget"
// @Param       location   query   string  false  "Case-insensitive location substring"
// @Param       limit      query   int     false  "Maximum results"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.CandidatesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid filters"
// @Failure     404  {object}  handlers.ErrorResponse  "Caller profile not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /matches/candidates [get]
func (h *Handlers) GetCandidates(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	budgetMin, okMin := int64Query(c, "budget_min")
	budgetMax, okMax := int64Query(c, "budget_max")
	if !okMin || !okMax {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "budget bounds must be non-negative integers")
		return
	}

	filters := services.CandidateFilters{
		Gender:    strings.TrimSpace(c.Query("gender")),
		MinAge:    utils.AtoiDefault(c.Query("min_age"), 0),
		MaxAge:    utils.AtoiDefault(c.Query("max_age"), 0),
		Budget:    strings.TrimSpace(c.Query("budget")),
		BudgetMin: budgetMin,
		BudgetMax: budgetMax,
		Location:  strings.TrimSpace(c.Query("location")),
	}
	limit := utils.AtoiDefault(c.Query("limit"), 0)

	candidates, err := h.matchSvc.FindCandidates(ctx, currentUser, filters, limit)
	if err != nil {
		switch err {
		case services.ErrInvalidFilters:
			fail(c, http.StatusBadRequest, ErrCodeValidation, "invalid candidate filters")
		case services.ErrProfileNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		default:
			failServer(c, ErrCodeInternal, err)
		}
		return
	}

	ok(c, http.StatusOK, CandidatesResponse{Candidates: candidates})
}

// PostMatch godoc
// @ID          postMatch
// @Summary     Send a roommate match request
// @Description Creates a pending match between the caller and the target user.
// @Description A pair with an existing match in any status conflicts.
// @Tags        Matches
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-1)
// @Param       body       body    handlers.CreateMatchRequest  true  "Match request payload"
//
// @Success     201  {object}  handlers.MatchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / self match"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate match"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /matches [post]
func (h *Handlers) PostMatch(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	var req CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "target_user_id required")
		return
	}

	m, err := h.matchSvc.RequestMatch(ctx, currentUser, strings.TrimSpace(req.TargetUserID))
	if err != nil {
		switch err {
		case services.ErrSelfMatch:
			fail(c, http.StatusBadRequest, ErrCodeInvalidParticipants, "cannot match with yourself")
		case services.ErrProfileNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		case services.ErrDuplicateMatch:
			fail(c, http.StatusConflict, ErrCodeDuplicateMatch, "a match already exists for this pair")
		default:
			failServer(c, ErrCodeInternal, err)
		}
		return
	}

	ok(c, http.StatusCreated, MatchResponse{Match: m})
}

// PutMatchStatus godoc
// @ID          putMatchStatus
// @Summary     Accept or reject a match request
// @Description Transitions a pending match to accepted or rejected. Only a
// @Description participant may respond, and only one transition ever succeeds.
// @Tags        Matches
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-2)
// @Param       id         path    string  true  "Match ID (UUID)"   format(uuid)
// @Param       body       body    handlers.UpdateMatchStatusRequest  true  "New status"
//
// @Success     200  {object}  handlers.MatchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / invalid transition"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a participant"
// @Failure     404  {object}  handlers.ErrorResponse  "Match not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Match already resolved"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /matches/{id}/status [put]
func (h *Handlers) PutMatchStatus(c *gin.Context) {
	ctx := c.Request.Context()
	matchID := c.Param("id")

	if _, err := uuid.Parse(matchID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "match id must be a UUID")
		return
	}

	var req UpdateMatchStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}

	m, err := h.matchSvc.RespondToMatch(ctx, matchID, userID(c), strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		switch err {
		case services.ErrMatchNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "match not found")
		case services.ErrNotParticipant:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "caller is not a participant of this match")
		case services.ErrInvalidTransition:
			fail(c, http.StatusConflict, ErrCodeInvalidTransition, "match is not pending or status is invalid")
		default:
			failServer(c, ErrCodeInternal, err)
		}
		return
	}

	ok(c, http.StatusOK, MatchResponse{Match: m})
}

// ListMatches godoc
// @ID          listMatches
// @Summary     List the caller's matches
// @Description Returns every match involving the caller, oldest first, with
// @Description the counterpart profile attached when it still exists.
// @Tags        Matches
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-1)
//
// @Success     200  {object}  handlers.ListMatchesResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /matches [get]
func (h *Handlers) ListMatches(c *gin.Context) {
	ctx := c.Request.Context()

	matches, err := h.matchSvc.ListMatches(ctx, userID(c))
	if err != nil {
		failServer(c, ErrCodeInternal, err)
		return
	}
	if matches == nil {
		matches = []services.MatchSummary{}
	}

	ok(c, http.StatusOK, ListMatchesResponse{Matches: matches})
}
