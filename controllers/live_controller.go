package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ashtongoh/korii-pos-sys/live"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced by the middleware; the ws handshake accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type LiveController struct {
	Hub *live.Hub
}

func NewLiveController(hub *live.Hub) *LiveController {
	return &LiveController{Hub: hub}
}

// HandleWebSocket -> upgrade a staff display connection and keep it
// registered until the client goes away
func (lc *LiveController) HandleWebSocket(c *gin.Context) {
	role := c.Param("role")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade for %s: %v", role, err)
		return
	}

	lc.Hub.RegisterClient(conn, role)
	utils.InfoLogger.Printf("websocket client connected (role=%s)", role)

	// Clients only listen; reads just detect disconnects.
	go func() {
		defer lc.Hub.UnregisterClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
