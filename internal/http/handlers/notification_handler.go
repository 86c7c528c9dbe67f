// Notification HTTP handlers.
//
// This file exposes REST endpoints for the per-user notification inbox:
//   - GET    /notifications               (paginated inbox, newest first)
//   - GET    /notifications/unread-count  (unread inbox count)
//   - PUT    /notifications/{id}/read     (mark one entry read)
//   - PUT    /notifications/read-all      (mark every entry read)
//   - DELETE /notifications/{id}          (remove one entry)
//
// Ownership is enforced in the service layer: acting on someone else's
// notification reports not_found rather than leaking its existence.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
	"github.com/roomatch/go-roomatch-backend/internal/services"
	"github.com/roomatch/go-roomatch-backend/internal/utils"
)

// ListNotificationsResponse wraps a page of inbox entries.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Pagination    Pagination            `json:"pagination"`
}

// NotificationUnreadResponse reports the unread inbox count.
type NotificationUnreadResponse struct {
	Unread int64 `json:"unread"`
}

// notificationID parses the {id} path parameter as a positive int64.
func notificationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List the caller's notifications
// @Description Returns a page of inbox entries, newest first.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Caller's user ID"  example(user-1)
// @Param       page       query   int     false  "Page number"       minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"    minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()

	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page := utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize := utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := h.notifSvc.ListPage(ctx, userID(c), page, pageSize)
	if err != nil {
		failServer(c, ErrCodeInternal, err)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListNotificationsResponse{
		Notifications: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetNotificationUnreadCount godoc
// @ID          getNotificationUnreadCount
// @Summary     Unread notification count
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-1)
//
// @Success     200  {object}  handlers.NotificationUnreadResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/unread-count [get]
func (h *Handlers) GetNotificationUnreadCount(c *gin.Context) {
	ctx := c.Request.Context()

	n, err := h.notifSvc.UnreadCount(ctx, userID(c))
	if err != nil {
		failServer(c, ErrCodeInternal, err)
		return
	}

	ok(c, http.StatusOK, NotificationUnreadResponse{Unread: n})
}

// PutNotificationRead godoc
// @ID          putNotificationRead
// @Summary     Mark one notification read
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-1)
// @Param       id         path    int     true  "Notification ID"   minimum(1)
//
// @Success     204  "Marked"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found or not owned"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/{id}/read [put]
func (h *Handlers) PutNotificationRead(c *gin.Context) {
	ctx := c.Request.Context()

	id, okID := notificationID(c)
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notification id must be a positive integer")
		return
	}

	if err := h.notifSvc.MarkRead(ctx, id, userID(c)); err != nil {
		switch err {
		case services.ErrNotificationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
		default:
			failServer(c, ErrCodeInternal, err)
		}
		return
	}

	noContent(c)
}

// PutNotificationsReadAll godoc
// @ID          putNotificationsReadAll
// @Summary     Mark every notification read
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-1)
//
// @Success     204  "Marked"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/read-all [put]
func (h *Handlers) PutNotificationsReadAll(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.notifSvc.MarkAllRead(ctx, userID(c)); err != nil {
		failServer(c, ErrCodeInternal, err)
		return
	}

	noContent(c)
}

// DeleteNotification godoc
// @ID          deleteNotification
// @Summary     Delete a notification
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-1)
// @Param       id         path    int     true  "Notification ID"   minimum(1)
//
// @Success     204  "Deleted"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found or not owned"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/{id} [delete]
func (h *Handlers) DeleteNotification(c *gin.Context) {
	ctx := c.Request.Context()

	id, okID := notificationID(c)
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notification id must be a positive integer")
		return
	}

	if err := h.notifSvc.Delete(ctx, id, userID(c)); err != nil {
		switch err {
		case services.ErrNotificationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
		default:
			failServer(c, ErrCodeInternal, err)
		}
		return
	}

	noContent(c)
}
