package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"studyhub/logger"
	"studyhub/models"
)

const (
	EventChatMessage           = "chat_message"
	EventConnectionEstablished = "connection_established"
	EventError                 = "error"
)

// ErrNotDelivered reports a message that was stored but could not be
// published to the live members. Clients must not resend it.
var ErrNotDelivered = errors.New("message saved but not delivered")

// ChatEvent is a message broadcast to every connection of one chat.
type ChatEvent struct {
	Type      string `json:"type"`
	ChatID    uint   `json:"chat"`
	UserID    uint   `json:"user_id"`
	MessageID uint   `json:"message_id"`
	Content   string `json:"content"`
	Accepted  bool   `json:"accepted"`
}

type ackEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type rejectEvent struct {
	Type     string `json:"type"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error"`
}

// MessageStore persists chat messages for the hub.
type MessageStore interface {
	PostMessage(ctx context.Context, chatID, authorID uint, content string) (*models.Message, error)
}

type HubConfig struct {
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub keeps the chat groups of live connections. The run loop is the only
// writer of the registry and the only sender on client queues.
type Hub struct {
	groups     map[uint]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan ChatEvent
	direct     chan directMessage
	done       chan struct{}
	mutex      sync.RWMutex

	chatLocksMu sync.Mutex
	chatLocks   map[uint]*sync.Mutex

	store MessageStore
	bus   Bus
	cfg   HubConfig
	log   *logger.Logger
}

// NewHub builds a hub. bus may be nil, in which case events are delivered
// in process only.
func NewHub(store MessageStore, bus Bus, cfg HubConfig, log *logger.Logger) *Hub {
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	return &Hub{
		groups:     make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan ChatEvent, 64),
		direct:     make(chan directMessage, 64),
		done:       make(chan struct{}),
		chatLocks:  make(map[uint]*sync.Mutex),
		store:      store,
		bus:        bus,
		cfg:        cfg,
		log:        log.With("service", "ChatHub"),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. All
// client queues are closed on return.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mutex.Lock()
		for chatID, group := range h.groups {
			for client := range group {
				close(client.send)
			}
			delete(h.groups, chatID)
		}
		h.mutex.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			group, ok := h.groups[client.chatID]
			if !ok {
				group = make(map[*Client]struct{})
				h.groups[client.chatID] = group
			}
			group[client] = struct{}{}
			size := len(group)
			h.mutex.Unlock()
			h.enqueue(client, mustJSON(ackEvent{Type: EventConnectionEstablished, Message: "You are now connected!"}))
			h.log.Debug("client joined chat", "client_id", client.id, "chat_id", client.chatID, "user_id", client.userID, "group_size", size)

		case client := <-h.unregister:
			h.drop(client)

		case ev := <-h.broadcast:
			data := mustJSON(ev)
			h.mutex.RLock()
			members := make([]*Client, 0, len(h.groups[ev.ChatID]))
			for client := range h.groups[ev.ChatID] {
				members = append(members, client)
			}
			h.mutex.RUnlock()
			for _, client := range members {
				h.enqueue(client, data)
			}

		case msg := <-h.direct:
			if h.isMember(msg.client) {
				h.enqueue(msg.client, msg.data)
			}
		}
	}
}

// enqueue must only be called from the run loop. A client whose queue is
// full is dropped.
func (h *Hub) enqueue(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.log.Warn("client send buffer full, closing connection", "client_id", client.id, "chat_id", client.chatID)
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	group, ok := h.groups[client.chatID]
	if !ok {
		return
	}
	if _, ok := group[client]; !ok {
		return
	}
	delete(group, client)
	close(client.send)
	if len(group) == 0 {
		delete(h.groups, client.chatID)
	}
	h.log.Debug("client left chat", "client_id", client.id, "chat_id", client.chatID, "group_size", len(group))
}

func (h *Hub) isMember(client *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, ok := h.groups[client.chatID][client]
	return ok
}

// GroupSize returns the number of live connections joined to a chat.
func (h *Hub) GroupSize(chatID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.groups[chatID])
}

// ConnectedUsers lists the user ids behind the connections of a chat.
// Anonymous connections are reported as 0.
func (h *Hub) ConnectedUsers(chatID uint) []uint {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	users := make([]uint, 0, len(h.groups[chatID]))
	for client := range h.groups[chatID] {
		users = append(users, client.userID)
	}
	return users
}

// Serve joins conn to the group of chatID and starts its pumps. userID is
// the authenticated user behind the connection, or 0. ctx scopes message
// persistence and must outlive the connection, so request contexts need
// context.WithoutCancel.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, chatID, userID uint) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, 256),
		chatID: chatID,
		userID: userID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return client
	}

	go client.writePump()
	go client.readPump(ctx)
	return client
}

// Deliver hands an event to the local groups. It is the forwarder target of
// a Bus.
func (h *Hub) Deliver(ev ChatEvent) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

func (h *Hub) publish(ctx context.Context, ev ChatEvent) error {
	if h.bus != nil {
		return h.bus.Publish(ctx, ev)
	}
	h.Deliver(ev)
	return nil
}

func (h *Hub) reply(client *Client, data []byte) {
	select {
	case h.direct <- directMessage{client: client, data: data}:
	case <-h.done:
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) chatLock(chatID uint) *sync.Mutex {
	h.chatLocksMu.Lock()
	defer h.chatLocksMu.Unlock()
	l, ok := h.chatLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		h.chatLocks[chatID] = l
	}
	return l
}

// Post persists a message and publishes it while holding the chat lock, so
// members see messages of one chat in persistence order. When only the
// publish fails the stored event is returned with ErrNotDelivered.
func (h *Hub) Post(ctx context.Context, chatID, userID uint, content string) (ChatEvent, error) {
	lock := h.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := h.store.PostMessage(ctx, chatID, userID, content)
	if err != nil {
		return ChatEvent{}, err
	}
	ev := ChatEvent{
		Type:      EventChatMessage,
		ChatID:    msg.ChatID,
		UserID:    msg.OwnerID,
		MessageID: msg.ID,
		Content:   msg.Content,
		Accepted:  true,
	}
	if err := h.publish(ctx, ev); err != nil {
		h.log.Error("publish chat event failed", "chat_id", chatID, "message_id", msg.ID, "error", err)
		return ev, fmt.Errorf("%w: %v", ErrNotDelivered, err)
	}
	return ev, nil
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Only plain structs pass through here.
		panic(err)
	}
	return data
}
