// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the acting user for each request. Authentication itself
// is an external concern: a trusted gateway (the identity provider) verifies
// credentials and forwards the opaque user identifier in the X-User-ID
// header. This service only requires the header to be present.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// userIDCtxKey is the Gin context key holding the acting user identifier.
	userIDCtxKey = "userID"
	// HeaderUserID carries the authenticated user identifier set by the
	// upstream identity provider.
	HeaderUserID = "X-User-ID"
)

// RequireUser extracts the trusted user identifier from X-User-ID and stores
// it in the Gin context. Requests without an identity are rejected with 401
// before reaching any handler.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing user identity",
			})
			return
		}
		c.Set(userIDCtxKey, uid)
		c.Next()
	}
}

// UserID returns the acting user identifier stored by RequireUser, or ""
// when the request carried no identity.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDCtxKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
