package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"studyhub/apperrors"
	"studyhub/logger"
	"studyhub/middleware"
	"studyhub/models"
	"studyhub/services"
)

type ChatHandler struct {
	chats    *services.ChatService
	hub      *services.Hub
	upgrader websocket.Upgrader
	paging   Paging
	log      *logger.Logger
}

type chatDetail struct {
	*models.PersonalChat
	Messages pageResponse `json:"messages"`
}

// NewChatHandler builds the chat endpoints. allowedOrigins limits websocket
// upgrades; an empty list accepts any origin.
func NewChatHandler(chats *services.ChatService, hub *services.Hub, allowedOrigins []string, paging Paging, log *logger.Logger) *ChatHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &ChatHandler{
		chats: chats,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
		paging: paging,
		log:    log.With("handler", "ChatHandler"),
	}
}

func (h *ChatHandler) principal(c *gin.Context) (models.Principal, bool) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		respondError(c, h.log, apperrors.ErrUnauthenticated)
	}
	return principal, ok
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var req services.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}

	chat, err := h.chats.CreateChat(c.Request.Context(), principal, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	page, err := h.paging.parse(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.chats.ListChats(c.Request.Context(), principal, boolQuery(c, "is_deleted"), page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paginated(c, result))
}

// GetChat returns the chat with one page of its messages, newest first.
func (h *ChatHandler) GetChat(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	chatID, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	page, err := h.paging.parse(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	ctx := c.Request.Context()
	chat, err := h.chats.GetChat(ctx, principal, chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	messages, err := h.chats.ListMessages(ctx, principal, chatID, page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, chatDetail{PersonalChat: chat, Messages: paginated(c, messages)})
}

// PostMessage stores a message and broadcasts it to the live members of the
// chat. A stored message that could not be broadcast answers 202.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	chatID, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req services.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}

	ev, err := h.hub.Post(c.Request.Context(), chatID, principal.ID, req.Content)
	if errors.Is(err, services.ErrNotDelivered) {
		c.JSON(http.StatusAccepted, ev)
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	chatID, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.chats.DeleteChat(c.Request.Context(), principal, chatID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	chatID, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	messageID, err := uintParam(c, "messageID")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.chats.DeleteMessage(c.Request.Context(), principal, chatID, messageID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Connect upgrades the request to a websocket joined to the chat group. The
// chat must exist; authenticated callers must take part in it.
func (h *ChatHandler) Connect(c *gin.Context) {
	chatID, err := uintParam(c, "chatID")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	ctx := c.Request.Context()
	var userID uint
	if principal, ok := middleware.PrincipalFrom(c); ok {
		if _, err := h.chats.GetChat(ctx, principal, chatID); err != nil {
			respondError(c, h.log, err)
			return
		}
		userID = principal.ID
	} else {
		exists, err := h.chats.ChatExists(ctx, chatID)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		if !exists {
			respondError(c, h.log, apperrors.NotFound("chat", chatID))
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the handshake error.
		h.log.Warn("websocket upgrade failed", "chat_id", chatID, "error", err)
		return
	}
	client := h.hub.Serve(context.WithoutCancel(ctx), conn, chatID, userID)
	h.log.Debug("websocket connected", "chat_id", chatID, "user_id", userID, "client_id", client.ID())
}
