package live

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
	readLimit   = 512
	pingMessage = "ping"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the dashboard is served from a different origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request, sends the current snapshot and then streams
// hub messages. A text "ping" from the client is answered with a fresh
// snapshot.
func (s *Service) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	id, messages := s.hub.Subscribe()
	slog.Info("live client connected", "clients", s.hub.ClientCount())

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	requests := make(chan struct{}, 1)
	go s.readPump(conn, requests, cancel)

	s.writePump(ctx, conn, messages, requests)

	s.hub.Unsubscribe(id)
	conn.Close()
	slog.Info("live client disconnected", "clients", s.hub.ClientCount())
}

func (s *Service) readPump(conn *websocket.Conn, requests chan<- struct{}, done context.CancelFunc) {
	defer done()

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if string(data) == pingMessage {
			select {
			case requests <- struct{}{}:
			default:
			}
		}
	}
}

func (s *Service) writePump(ctx context.Context, conn *websocket.Conn, messages <-chan []byte, requests <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(msg []byte) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, msg) == nil
	}
	snapshot := func() bool {
		msg, err := s.SnapshotMessage(ctx)
		if err != nil {
			slog.Error("failed to build snapshot", "error", err)
			return true
		}
		return write(msg)
	}

	if !snapshot() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg, ok := <-messages:
			if !ok {
				conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			if !write(msg) {
				return
			}
		case <-requests:
			if !snapshot() {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
