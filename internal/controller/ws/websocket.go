package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/service/chat"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	pingPeriod     = (pongWait * 9) / 10
	pongWait       = 60 * time.Second
)

// Client is one websocket connection. It is the live channel registered for the identity
// it joined as, so several Clients may share one identity.
type Client struct {
	Conn *websocket.Conn
	hub  *Hub
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// Push queues msg as a receive_message frame. It never blocks: a client whose buffer is
// full is skipped for this message.
func (c *Client) Push(_ context.Context, msg models.Message) error {
	frame, err := NewWsMessage(TypeReceiveMessage, msg)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

func (c *Client) enqueue(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrChannelClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return models.ErrChannelBackoff
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := &Client{
		Conn: conn,
		hub:  hub,
		send: make(chan []byte, hub.sendBuffer),
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	defer func() {
		hub.chat.Leave(client)
		select {
		case hub.unregister <- client:
		case <-hub.done:
		}
		client.close()
		client.Conn.Close()
	}()

	go client.writePump()
	client.readPump(r.Context())
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context) {
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("unexpected websocket close error", "error", err)
			}
			break
		}

		var msg WsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.log.Debug("failed to unmarshal message", "error", err)
			c.reply(TypeError, ErrorResponse{Message: "malformed message"})
			continue
		}

		switch msg.Type {
		case TypeJoin:
			c.handleJoin(ctx, msg.Payload)

		case TypeAuth:
			c.handleAuth(ctx, msg.Payload)

		case TypeSendMessage:
			c.handleSendMessage(ctx, msg.Payload)

		case TypeGetHistory:
			c.handleGetHistory(ctx, msg.Payload)

		default:
			c.reply(TypeError, ErrorResponse{Request: msg.Type, Message: "unknown message type"})
		}
	}
}

func (c *Client) handleJoin(ctx context.Context, payload json.RawMessage) {
	var req JoinRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.reply(TypeJoinStatus, JoinResponse{Success: false, Message: "invalid join payload"})
		return
	}

	if _, err := c.hub.chat.Handle(ctx, c, chat.JoinEvent{Identity: req.UserID}); err != nil {
		c.reply(TypeJoinStatus, JoinResponse{Success: false, Message: err.Error()})
		return
	}

	identity, _ := c.hub.chat.Registry().IdentityOf(c)
	c.reply(TypeJoinStatus, JoinResponse{Success: true, UserID: identity, Message: "joined"})
}

// handleAuth joins the channel as the subject of a verified token.
func (c *Client) handleAuth(ctx context.Context, payload json.RawMessage) {
	var req AuthRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.reply(TypeAuthStatus, AuthResponse{Success: false, Message: "invalid auth payload"})
		return
	}

	if c.hub.tokens == nil {
		c.reply(TypeAuthStatus, AuthResponse{Success: false, Message: "token authentication is disabled"})
		return
	}

	userID, err := c.hub.tokens.ParseToken(req.Token)
	if err != nil {
		c.reply(TypeAuthStatus, AuthResponse{Success: false, Message: "Invalid token"})
		return
	}

	identity := models.IdentityFromInt(userID)
	if _, err := c.hub.chat.Handle(ctx, c, chat.JoinEvent{Identity: identity}); err != nil {
		c.reply(TypeAuthStatus, AuthResponse{Success: false, Message: err.Error()})
		return
	}

	c.hub.log.Debug("client authenticated", "identity", identity)
	c.reply(TypeAuthStatus, AuthResponse{Success: true, UserID: identity, Message: "Authentication successful"})
}

func (c *Client) handleSendMessage(ctx context.Context, payload json.RawMessage) {
	var req SendMessageRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.reply(TypeError, ErrorResponse{Request: TypeSendMessage, Message: "invalid send_message payload"})
		return
	}

	// The sender's own channels are echoed by the fan-out, so there is nothing to reply on success.
	_, err := c.hub.chat.Handle(ctx, c, chat.SendEvent{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
	})
	if err != nil {
		c.replyError(TypeSendMessage, err)
	}
}

func (c *Client) handleGetHistory(ctx context.Context, payload json.RawMessage) {
	var req GetHistoryRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.reply(TypeError, ErrorResponse{Request: TypeGetHistory, Message: "invalid get_history payload"})
		return
	}

	self, ok := c.hub.chat.Registry().IdentityOf(c)
	if !ok {
		c.reply(TypeError, ErrorResponse{Request: TypeGetHistory, Message: "join before requesting history"})
		return
	}

	history, err := c.hub.chat.GetHistory(ctx, self, req.UserID)
	if err != nil {
		c.replyError(TypeGetHistory, err)
		return
	}

	c.reply(TypeHistory, HistoryResponse{UserID: req.UserID, Messages: history})
}

func (c *Client) replyError(request string, err error) {
	resp := ErrorResponse{Request: request, Message: "internal error"}

	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		resp.Field = vErr.Field
		resp.Message = vErr.Error()
	} else {
		c.hub.log.Error("websocket request failed", "request", request, "error", err)
	}

	c.reply(TypeError, resp)
}

func (c *Client) reply(typ string, payload interface{}) {
	frame, err := NewWsMessage(typ, payload)
	if err != nil {
		c.hub.log.Error("failed to create ws message", "type", typ, "error", err)
		return
	}
	if err := c.enqueue(frame); err != nil {
		c.hub.log.Warn("dropping reply for client", "type", typ, "error", err)
	}
}
