// Websocket handler.
//
// GET /ws upgrades the connection and attaches it to the presence hub under
// the caller's user id. Events published to that user (message-received,
// message-sent-ack, messages-marked-read) are forwarded as JSON frames until
// the client disconnects or goes silent past the pong deadline.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/roomatch/go-roomatch-backend/internal/http/middleware"
	"github.com/roomatch/go-roomatch-backend/internal/presence"
)

// wsUpgrader performs the HTTP -> websocket upgrade. Origin checking is left
// permissive here; cross-origin policy is enforced by the CORS middleware in
// front of the API, and the identity header gates who can subscribe.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Websocket godoc
// @ID          websocket
// @Summary     Subscribe to live events
// @Description Upgrades to a websocket and streams the caller's live events
// @Description as JSON frames of the form {"event": ..., "payload": ...}.
// @Tags        Live
//
// @Param       X-User-ID  header  string  true  "Caller's user ID"  example(user-1)
//
// @Success     101  "Switching Protocols"
// @Failure     400  {object}  handlers.ErrorResponse  "Upgrade failed"
// @Router      /ws [get]
func (h *Handlers) Websocket(c *gin.Context) {
	currentUser := userID(c)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own response; just log.
		middleware.LoggerFrom(c).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	middleware.WSSessionOpened()
	defer middleware.WSSessionClosed()

	middleware.LoggerFrom(c).Info().
		Str("user_id", currentUser).
		Int("connections", h.hub.Connections(currentUser)+1).
		Msg("websocket session opened")

	presence.NewSession(h.hub, conn, currentUser).Run()
}
