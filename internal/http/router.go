// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/roomatch/go-roomatch-backend/internal/cache"
	"github.com/roomatch/go-roomatch-backend/internal/config"
	"github.com/roomatch/go-roomatch-backend/internal/http/handlers"
	"github.com/roomatch/go-roomatch-backend/internal/http/middleware"
	"github.com/roomatch/go-roomatch-backend/internal/presence"
	"github.com/roomatch/go-roomatch-backend/internal/repo"
	"github.com/roomatch/go-roomatch-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS, gzip, and security headers
//
// unread may be nil; the chat service then always falls back to the store.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, hub *presence.Hub, unread *cache.RedisCache, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetReceipt(ctx, db, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderUserID, middleware.HeaderIdempotencyKey,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Response compression; websocket upgrades and metrics scrapes are
	// excluded because both bypass the normal response writer.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})))

	// Security headers (HSTS only when explicitly enabled behind TLS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityConfig{
		EnableHSTS:        cfg.Security.EnableHSTS,
		HSTSMaxAgeSeconds: cfg.Security.HSTSMaxAge,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Interactive API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db/hub/cache
	notifSvc := &services.NotificationService{DB: db}
	matchSvc := services.NewMatchService(db, notifSvc)
	chatSvc := services.NewChatService(db, notifSvc, hub, unread)
	if cfg.Chat.MaxBodyRunes > 0 {
		chatSvc.MaxBodyRunes = cfg.Chat.MaxBodyRunes
	}
	if cfg.Match.DefaultLimit > 0 {
		matchSvc.DefaultLimit = cfg.Match.DefaultLimit
	}
	if cfg.Match.MaxLimit > 0 {
		matchSvc.MaxLimit = cfg.Match.MaxLimit
	}
	h := handlers.New(matchSvc, chatSvc, notifSvc, hub)

	// Live events (identity-gated, outside the versioned API prefix)
	r.GET("/ws", middleware.RequireUser(), h.Websocket)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.RequireUser())
	{
		// Matching
		api.GET("/matches/candidates", h.GetCandidates)
		api.POST("/matches", h.PostMatch)
		api.PUT("/matches/:id/status", h.PutMatchStatus)
		api.GET("/matches", h.ListMatches)

		// Messages
		api.POST("/messages", h.PostMessage)
		api.GET("/messages/unread-count", h.GetUnreadCount)

		// Conversations
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:userId", h.GetConversation)
		api.POST("/conversations/:userId/read", h.PostConversationRead)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/unread-count", h.GetNotificationUnreadCount)
		api.PUT("/notifications/read-all", h.PutNotificationsReadAll)
		api.PUT("/notifications/:id/read", h.PutNotificationRead)
		api.DELETE("/notifications/:id", h.DeleteNotification)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
