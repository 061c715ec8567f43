package handler

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tabletop-backend/internal/auth"
	"tabletop-backend/internal/config"
	"tabletop-backend/internal/game"
	"tabletop-backend/internal/scene"
)

// GameWSHandler 게임 WebSocket 핸들러
type GameWSHandler struct {
	hub        *game.Hub
	jwtManager *auth.JWTManager
	cfg        config.WebSocketConfig
}

// NewGameWSHandler 생성자
func NewGameWSHandler(hub *game.Hub, jwtManager *auth.JWTManager, cfg config.WebSocketConfig) *GameWSHandler {
	return &GameWSHandler{hub: hub, jwtManager: jwtManager, cfg: cfg}
}

// Upgrade 업그레이드 전 신원과 방 정보를 Locals 에 저장
//
// 인증이 없어도 연결은 받아들이고, 이후 Join 이 redirect 를 보낸다.
func (h *GameWSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	username := ""
	if token := c.Cookies(auth.CookieName); token != "" {
		if claims, err := h.jwtManager.ValidateAccessToken(token); err == nil {
			username = claims.Username
		}
	}

	c.Locals(auth.LocalsUsername, username)
	c.Locals("creator", c.Params("creator"))
	c.Locals("room", c.Params("room"))
	return c.Next()
}

// Handler websocket.New 로 감싼 핸들러
func (h *GameWSHandler) Handler() fiber.Handler {
	return websocket.New(h.HandleWebSocket, websocket.Config{
		ReadBufferSize:  h.cfg.ReadBufferSize,
		WriteBufferSize: h.cfg.WriteBufferSize,
	})
}

// HandleWebSocket 연결 하나의 수명 주기
func (h *GameWSHandler) HandleWebSocket(c *websocket.Conn) {
	username, _ := c.Locals(auth.LocalsUsername).(string)
	creator, _ := c.Locals("creator").(string)
	roomName, _ := c.Locals("room").(string)
	key := scene.RoomKey{Creator: creator, Name: roomName}

	client := newWSClient(c, h.cfg.SendBuffer)
	go client.writePump(h.cfg.WriteTimeout)
	defer client.shutdown()

	ctx := context.Background()
	if _, err := h.hub.Join(ctx, client, username, key); err != nil {
		log.Printf("🚫 [GameWS] join %s by %q rejected: %v", key, username, err)
		return
	}
	defer h.hub.Leave(ctx, client.ID())

	// 메시지 수신 루프
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ [GameWS] read error (%s): %v", client.ID(), err)
			}
			return
		}
		h.handle(ctx, client.ID(), msg)
	}
}

// handle 핸들러 하나의 패닉이 연결 전체를 끊지 않도록
func (h *GameWSHandler) handle(ctx context.Context, connID string, msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 [GameWS] panic handling frame from %s: %v\n%s", connID, r, debug.Stack())
		}
	}()
	h.hub.HandleMessage(ctx, connID, msg)
}

// wsClient session.Peer 구현. 전송은 큐에 넣기만 하고 writePump 가 쓴다
type wsClient struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
	done   chan struct{}
}

func newWSClient(conn *websocket.Conn, buffer int) *wsClient {
	if buffer <= 0 {
		buffer = 256
	}
	return &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (w *wsClient) ID() string {
	return w.id
}

// Send 큐가 가득 차거나 닫혔으면 false (블로킹하지 않음)
func (w *wsClient) Send(frame []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.send <- frame:
		return true
	default:
		log.Printf("⚠️ [GameWS] send queue full, dropping frame for %s", w.id)
		return false
	}
}

// close 큐를 닫아 writePump 가 남은 프레임을 쓰고 끝나게 한다
func (w *wsClient) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.send)
	}
}

// shutdown close 후 writePump 종료 대기
func (w *wsClient) shutdown() {
	w.close()
	<-w.done
}

func (w *wsClient) writePump(timeout time.Duration) {
	defer close(w.done)
	for frame := range w.send {
		if timeout > 0 {
			_ = w.conn.SetWriteDeadline(time.Now().Add(timeout))
		}
		if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("⚠️ [GameWS] write failed (%s): %v", w.id, err)
			w.close()
			// 남은 프레임 비우기
			for range w.send {
			}
			return
		}
	}
	_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
