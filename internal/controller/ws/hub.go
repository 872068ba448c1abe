package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/service/chat"
	"github.com/redis/go-redis/v9"
)

const defaultSendBuffer = 256

// TokenParser resolves a bearer token to the user id it was issued for.
type TokenParser interface {
	ParseToken(token string) (int64, error)
}

// Hub tracks the open websocket clients of this instance. Identity bindings live in the
// chat service's registry; the hub only owns connection lifecycles.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	chat       *chat.ChatService
	redis      *redis.Client
	tokens     TokenParser
	log        *slog.Logger
	sendBuffer int
}

func NewHub(chatService *chat.ChatService, redisClient *redis.Client, tokens TokenParser, log *slog.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		chat:       chatService,
		redis:      redisClient,
		tokens:     tokens,
		log:        log,
		sendBuffer: sendBuffer,
	}
}

// Run serves register and unregister requests until ctx is cancelled, then closes every
// client still connected.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("client registered", "remote", client.Conn.RemoteAddr().String())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.log.Debug("client unregistered", "remote", client.Conn.RemoteAddr().String())
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.chat.Leave(client)
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// ClientCount is the number of connections currently registered with the hub.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscribeToMessages runs the local fan-out for messages persisted by any instance.
// It returns immediately when no Redis client is configured, in which case the chat
// service delivers in-process.
func (h *Hub) SubscribeToMessages(ctx context.Context) {
	if h.redis == nil {
		return
	}

	pubsub := h.redis.Subscribe(ctx, chat.MessagesChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg models.Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				h.log.Error("failed to unmarshal message from redis", "error", err)
				continue
			}
			h.chat.Deliver(ctx, msg)
		}
	}
}
