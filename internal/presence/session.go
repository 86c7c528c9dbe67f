package presence

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Websocket keepalive tuning. pingPeriod must be shorter than pongWait so
// the peer always sees a ping before its read deadline expires.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Session binds one websocket connection to a hub subscription and pumps
// events until either side goes away.
type Session struct {
	hub  *Hub
	sub  *Subscriber
	conn *websocket.Conn
}

// NewSession subscribes the connection's user on the hub and returns the
// session ready to Run.
func NewSession(hub *Hub, conn *websocket.Conn, userID string) *Session {
	return &Session{hub: hub, sub: hub.Subscribe(userID), conn: conn}
}

// Run serves the connection until it closes, then removes the delivery
// target. It blocks; callers run it on the request goroutine after the
// upgrade. Inbound frames are drained only to observe connection health --
// all mutations go through the REST API, never the socket.
func (s *Session) Run() {
	done := make(chan struct{})
	go s.readPump(done)
	s.writePump(done)

	s.hub.Unsubscribe(s.sub)
	_ = s.conn.Close()
}

// readPump discards inbound frames and refreshes the read deadline on pongs.
// It closes done when the peer disconnects.
func (s *Session) readPump(done chan<- struct{}) {
	defer close(done)

	s.conn.SetReadLimit(1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Str("user_id", s.sub.UserID()).Err(err).Msg("websocket read closed")
			}
			return
		}
	}
}

// writePump forwards hub events as JSON frames and pings on an interval.
func (s *Session) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-s.sub.C():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
