// Chat HTTP handlers.
//
// This file exposes REST endpoints for direct messages:
//   - POST /messages                      (send a message to another user)
//   - GET  /conversations                 (recent conversation list)
//   - GET  /conversations/{userId}        (paginated two-party thread)
//   - POST /conversations/{userId}/read   (mark a thread read)
//   - GET  /messages/unread-count         (total unread messages)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (ChatService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// send exists for (user, key), the handler returns that recorded message and
// sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
	"github.com/roomatch/go-roomatch-backend/internal/http/middleware"
	"github.com/roomatch/go-roomatch-backend/internal/repo"
	"github.com/roomatch/go-roomatch-backend/internal/services"
	"github.com/roomatch/go-roomatch-backend/internal/utils"
)

// receiptTTL bounds how long a send receipt keeps replaying the same result.
const receiptTTL = 24 * time.Hour

//
// DTOs
//

// SendMessageRequest is the JSON payload for sending a direct message.
//
// Body is normalized by the handler (line endings and excessive blank lines)
// before being passed to the service layer. The service also enforces a
// maximum rune count, which can be configured in ChatService.
type SendMessageRequest struct {
	// ReceiverID identifies the message recipient.
	ReceiverID string `json:"receiver_id" binding:"required,min=1" example:"user-42"`
	// Body is the message text. It must be non-empty.
	Body string `json:"body" binding:"required,min=1" example:"Hey, is the room still available?"`
	// Kind optionally overrides the message kind; defaults to "text".
	Kind string `json:"kind,omitempty" example:"text"`
}

// SendMessageResponse is the JSON envelope for a stored message.
type SendMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ConversationResponse contains one chronological page of a two-party thread.
type ConversationResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// ConversationsResponse wraps the recent-conversations list.
type ConversationsResponse struct {
	Conversations []services.ConversationSummary `json:"conversations"`
}

// UnreadCountResponse reports the caller's total unread message count.
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

//
// Helpers
//

// clampChatPagination parses page/page_size from query parameters, applies
// sane defaults and caps, and returns the validated (page, pageSize).
func clampChatPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeBody normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeBody(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxBodyRunes inspects the concrete ChatService for a configured
// body-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxBodyRunes(chatSvc ChatService) int {
	const fallback = 4000
	if cs, ok := chatSvc.(*services.ChatService); ok {
		if cs.MaxBodyRunes > 0 {
			return cs.MaxBodyRunes
		}
	}
	return fallback
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a direct message
// @Description Stores the message, then pushes best-effort live events to the
// @Description recipient and an ack to the sender. Supports idempotency via
// @Description the Idempotency-Key header (same key → same stored message).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true   "Sender's user ID"  example(user-1)
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.SendMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.SendMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / self message / too long"
// @Failure     404  {object}  handlers.ErrorResponse  "Sender or receiver profile not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "receiver_id and body required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	body := sanitizeBody(req.Body)
	maxRunes := discoverMaxBodyRunes(h.chatSvc)
	if maxRunes > 0 && utf8.RuneCountInString(body) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeValidation, fmt.Sprintf("body too long: max %d runes", maxRunes))
		return
	}
	if body == "" {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "body required")
		return
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.chatSvc.(*services.ChatService); okSvc && svc.DB != nil {
			if rec, err := repo.GetReceipt(ctx, svc.DB, currentUser, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(ctx, svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, SendMessageResponse{Message: prev})
					return
				}
			}
		}
	}

	m, err := h.chatSvc.Send(ctx, currentUser, strings.TrimSpace(req.ReceiverID), body, strings.TrimSpace(req.Kind))
	if err != nil {
		switch err {
		case services.ErrSelfMessage:
			fail(c, http.StatusBadRequest, ErrCodeInvalidParticipants, "cannot message yourself")
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeValidation, "body required")
		case services.ErrMessageTooLong:
			fail(c, http.StatusBadRequest, ErrCodeValidation, fmt.Sprintf("body too long: max %d runes", maxRunes))
		case services.ErrProfileNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
		default:
			failServer(c, ErrCodeStoreUnavailable, err)
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.chatSvc.(*services.ChatService); okSvc && svc.DB != nil {
			_, _ = repo.CreateReceipt(ctx, svc.DB, currentUser, idemKey, m.ID, receiptTTL)
		}
	}

	ok(c, http.StatusCreated, SendMessageResponse{Message: m})
}

// GetConversation godoc
// @ID          getConversation
// @Summary     Read a two-party conversation
// @Description Returns one page of the thread between the caller and the
// @Description given user, in chronological order within the page.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Caller's user ID"   example(user-1)
// @Param       userId     path    string  true   "Other participant"  example(user-42)
// @Param       page       query   int     false  "Page number"        minimum(1) default(1)
// @Param       page_size  query   int     false  "Messages per page"  minimum(1) maximum(200) default(50)
//
// @Success     200  {object}  handlers.ConversationResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{userId} [get]
func (h *Handlers) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)
	otherID := strings.TrimSpace(c.Param("userId"))
	if otherID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id required")
		return
	}

	// ETag pre-check (best effort). A thread's weak validator is its message
	// count, highest message id, and the caller's unread figure, so both
	// appends and read-flag flips invalidate cached pages.
	if svc, okSvc := h.chatSvc.(*services.ChatService); okSvc && svc.DB != nil {
		count, maxID, unread, err := repo.ThreadStats(ctx, svc.DB, currentUser, otherID)
		if err == nil {
			etag := fmt.Sprintf(`W/"thread:%s:%s:%d:%d:%d"`, currentUser, otherID, count, maxID, unread)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampChatPagination(c)

	items, total, err := h.chatSvc.Conversation(ctx, currentUser, otherID, page, pageSize)
	if err != nil {
		failServer(c, ErrCodeInternal, err)
		return
	}
	if items == nil {
		items = []domain.Message{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ConversationResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List recent conversations
// @Description Returns one summary per conversation partner, ordered by most
// @Description recent message, with per-thread unread counts.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-1)
//
// @Success     200  {object}  handlers.ConversationsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()

	convs, err := h.chatSvc.RecentConversations(ctx, userID(c))
	if err != nil {
		failServer(c, ErrCodeInternal, err)
		return
	}
	if convs == nil {
		convs = []services.ConversationSummary{}
	}

	ok(c, http.StatusOK, ConversationsResponse{Conversations: convs})
}

// PostConversationRead godoc
// @ID          postConversationRead
// @Summary     Mark a conversation read
// @Description Marks every message from the given user to the caller as read
// @Description and pushes a read event to the caller's live sessions.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"   example(user-1)
// @Param       userId     path    string  true  "Other participant"  example(user-42)
//
// @Success     204  "Marked"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{userId}/read [post]
func (h *Handlers) PostConversationRead(c *gin.Context) {
	ctx := c.Request.Context()
	otherID := strings.TrimSpace(c.Param("userId"))
	if otherID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id required")
		return
	}

	if err := h.chatSvc.MarkRead(ctx, userID(c), otherID); err != nil {
		failServer(c, ErrCodeInternal, err)
		return
	}

	noContent(c)
}

// GetUnreadCount godoc
// @ID          getUnreadCount
// @Summary     Total unread message count
// @Description Returns the caller's total number of unread messages across
// @Description all conversations. Served cache-first with a store fallback.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-1)
//
// @Success     200  {object}  handlers.UnreadCountResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages/unread-count [get]
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	ctx := c.Request.Context()

	n, err := h.chatSvc.UnreadCount(ctx, userID(c))
	if err != nil {
		failServer(c, ErrCodeInternal, err)
		return
	}

	ok(c, http.StatusOK, UnreadCountResponse{Unread: n})
}
