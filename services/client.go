package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"studyhub/apperrors"
)

// Client is one websocket connection joined to a chat group.
type Client struct {
	hub    *Hub
	id     string
	conn   *websocket.Conn
	send   chan []byte
	chatID uint
	userID uint
}

func (c *Client) ID() string { return c.id }

type inboundMessage struct {
	Content *string `json:"content"`
	ChatID  *uint   `json:"chat_id"`
	UserID  *uint   `json:"user_id"`
}

// validate checks an inbound post. Anonymous connections only listen.
func (m inboundMessage) validate(chatID, principal uint) error {
	switch {
	case m.Content == nil || strings.TrimSpace(*m.Content) == "":
		return errors.New("content is required")
	case m.ChatID == nil:
		return errors.New("chat_id is required")
	case m.UserID == nil:
		return errors.New("user_id is required")
	case *m.ChatID != chatID:
		return errors.New("chat_id does not match the connected chat")
	case principal == 0:
		return errors.New("authentication required to post")
	case *m.UserID != principal:
		return errors.New("user_id does not match the authenticated user")
	}
	return nil
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	pongWait := c.hub.cfg.PongWait
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", "client_id", c.id, "chat_id", c.chatID, "error", err)
			}
			return
		}
		c.handle(ctx, raw)
	}
}

func (c *Client) handle(ctx context.Context, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reject("malformed message")
		return
	}
	if err := msg.validate(c.chatID, c.userID); err != nil {
		c.reject(err.Error())
		return
	}

	if _, err := c.hub.Post(ctx, c.chatID, *msg.UserID, *msg.Content); err != nil {
		var appErr *apperrors.Error
		switch {
		case errors.Is(err, ErrNotDelivered):
			c.reject(ErrNotDelivered.Error())
		case errors.Is(err, apperrors.ErrForbidden):
			c.reject("forbidden")
		case errors.As(err, &appErr):
			c.reject(appErr.Message)
		default:
			c.hub.log.Error("post chat message failed", "client_id", c.id, "chat_id", c.chatID, "error", err)
			c.reject("message could not be delivered")
		}
	}
}

func (c *Client) reject(reason string) {
	c.hub.reply(c, mustJSON(rejectEvent{Type: EventError, Accepted: false, Error: reason}))
}

func (c *Client) writePump() {
	pingPeriod := c.hub.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
