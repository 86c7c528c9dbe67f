package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roomatch/go-roomatch-backend/internal/config"
	"github.com/roomatch/go-roomatch-backend/internal/domain"
	"github.com/roomatch/go-roomatch-backend/internal/presence"
)

func newRouter(t *testing.T) (*gin.Engine, *gorm.DB, *presence.Hub) {
	t.Helper()
	return newRouterWithRate(t, 100, 100)
}

func newRouterWithRate(t *testing.T, rps float64, burst int) (*gin.Engine, *gorm.DB, *presence.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("router_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(
		&domain.Profile{}, &domain.Match{}, &domain.Message{},
		&domain.Notification{}, &domain.MessageReceipt{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{
		GinMode:     gin.TestMode,
		APIBasePath: "/api/v1",
		RateRPS:     rps,
		RateBurst:   burst,
		OTEL:        config.OTELConfig{ServiceName: "go-roomatch-backend"},
		Chat:        config.ChatConfig{MaxBodyRunes: 4000},
		Match:       config.MatchConfig{DefaultLimit: 20, MaxLimit: 100},
	}

	hub := presence.NewHub()
	r := gin.New()
	RegisterRoutes(r, db, hub, nil, cfg)
	return r, db, hub
}

func TestRouter_HealthAndFallbacks(t *testing.T) {
	r, _, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/health = %d", w.Code)
	}

	// Unknown routes get the standard error envelope.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", w.Code)
	}
	var env map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, w.Body.String())
	}
	if env["code"] != "not_found" {
		t.Fatalf("envelope code = %v", env["code"])
	}

	// Wrong verb on a known route.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong verb = %d", w.Code)
	}
}

func TestRouter_APIRequiresIdentity(t *testing.T) {
	r, _, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/matches", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	var env map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env["code"] != "unauthorized" {
		t.Fatalf("code = %v", env["code"])
	}

	// Responses carry a correlation id even on rejection.
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestRouter_SecurityHeadersPresent(t *testing.T) {
	r, _, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS should be off by default")
	}
}

// TestRouter_RetryUnderRateLimit exercises the receipt-backed replay path end
// to end: with a single-token bucket, retrying a send with the same
// idempotency key must return the stored message instead of a 429.
func TestRouter_RetryUnderRateLimit(t *testing.T) {
	r, db, _ := newRouterWithRate(t, 0, 1)

	for _, p := range []domain.Profile{
		{ID: "alice", Name: "Alice", Age: 25},
		{ID: "bob", Name: "Bob", Age: 27},
	} {
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("seed %s: %v", p.ID, err)
		}
	}

	send := func() *httptest.ResponseRecorder {
		body := `{"receiver_id":"alice","body":"are you there?"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "bob")
		req.Header.Set("Idempotency-Key", "send-retry-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send()
	if w.Code != http.StatusCreated {
		t.Fatalf("first send status = %d body=%s", w.Code, w.Body.String())
	}

	// The bucket is empty now, but the retry is a recognized replay: it must
	// bypass the limiter and return the stored message.
	w = send()
	if w.Code != http.StatusOK {
		t.Fatalf("retry status = %d body=%s, want 200", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatal("retry missing Idempotency-Replayed header")
	}

	// A send without a key has no replay to fall back on and is limited.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages",
		strings.NewReader(`{"receiver_id":"alice","body":"again"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "bob")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("keyless send status = %d, want 429", rec.Code)
	}

	var count int64
	if err := db.Model(&domain.Message{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("stored messages = %d, want 1", count)
	}
}

// TestRouter_WebsocketDelivery drives the whole path: an authenticated
// websocket subscription, a durable send over the REST API, and the resulting
// live frame on the recipient's connection.
func TestRouter_WebsocketDelivery(t *testing.T) {
	r, db, hub := newRouter(t)

	for _, p := range []domain.Profile{
		{ID: "alice", Name: "Alice", Age: 25},
		{ID: "bob", Name: "Bob", Age: 27},
	} {
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("seed %s: %v", p.ID, err)
		}
	}

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{}
	header.Set("X-User-ID", "alice")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		defer resp.Body.Close()
	}

	// Wait for the session to register with the hub.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections("alice") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Bob sends Alice a message over REST.
	payload, _ := json.Marshal(map[string]string{"receiver_id": "alice", "body": "hello there"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/messages", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "bob")
	restResp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	defer restResp.Body.Close()
	if restResp.StatusCode != http.StatusCreated {
		t.Fatalf("send status = %d", restResp.StatusCode)
	}

	// The frame arrives on Alice's live connection.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev struct {
		Name    string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if ev.Name != presence.EventMessageReceived {
		t.Fatalf("event = %q", ev.Name)
	}
	var msg domain.Message
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if msg.SenderID != "bob" || msg.Body != "hello there" {
		t.Fatalf("payload = %+v", msg)
	}
}
