package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyhub/logger"
	"studyhub/services"
)

type TeachingHandler struct {
	teaching *services.TeachingService
	log      *logger.Logger
}

func NewTeachingHandler(teaching *services.TeachingService, log *logger.Logger) *TeachingHandler {
	return &TeachingHandler{teaching: teaching, log: log.With("handler", "TeachingHandler")}
}

// ChangeSubscription expects {"previous": id|null, "next": id|null}.
func (h *TeachingHandler) ChangeSubscription(c *gin.Context) {
	teacherID, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var change services.SubscriptionChange
	if err := c.ShouldBindJSON(&change); err != nil {
		bindError(c, h.log, err)
		return
	}
	change.TeacherID = teacherID

	outcome, err := h.teaching.ChangeSubscription(c.Request.Context(), change)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *TeachingHandler) ListSubscriptions(c *gin.Context) {
	subs, err := h.teaching.ListSubscriptions(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}
