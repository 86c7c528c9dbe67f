// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for send-message requests. It
// validates an Idempotency-Key request header, optionally consults a lookup
// to detect previously completed sends, and annotates the request context so
// downstream handlers can read the normalized key, detect replays, and let
// replays bypass rate limiting.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients use to make retries of
// unsafe operations (message sends) safe to repeat.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the validated idempotency key stored by
// IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether this request replays a previously completed send.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IsRateBypass reports whether the rate limiter should skip this request
// (set for detected replays so retries never consume tokens).
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyLookup answers whether a still-valid receipt exists for
// (userID, key) at the given time. Lookup failures must not block normal
// processing; return an error only for diagnostics.
type IdempotencyLookup func(ctx context.Context, userID, key string, now time.Time) (exists bool, err error)

// idemKeyRE is a conservative RFC-7230-ish token pattern.
var idemKeyRE = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// maxIdemKeyLen caps accepted key lengths; matches the receipt column width.
const maxIdemKeyLen = 200

// IdempotencyValidator validates the Idempotency-Key header when present,
// stashes the normalized key, and marks replay + rate-bypass flags when the
// lookup finds a prior receipt. Requests without the header pass through
// untouched; malformed keys are rejected with 400.
//
// The middleware never serves a cached payload itself; the send handler
// stays in control of replaying the stored message.
func IdempotencyValidator(lookup IdempotencyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdemKeyLen || !idemKeyRE.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		// The validator runs engine-wide, ahead of RequireUser, so the acting
		// user must come from the trusted header rather than the context.
		uid := UserID(c)
		if uid == "" {
			uid = strings.TrimSpace(c.GetHeader(HeaderUserID))
		}

		if lookup != nil && uid != "" {
			if exists, _ := lookup(c.Request.Context(), uid, key, time.Now().UTC()); exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
