package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studyhub/apperrors"
	"studyhub/logger"
	"studyhub/middleware"
	"studyhub/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
	paging  Paging
	log     *logger.Logger
}

func NewCatalogHandler(catalog *services.CatalogService, paging Paging, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		paging:  paging,
		log:     log.With("handler", "CatalogHandler"),
	}
}

// optionalUintQuery reads a positive id filter; a missing value is 0.
func optionalUintQuery(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation(name, "invalid %s %q", name, raw)
	}
	return uint(id), nil
}

func (h *CatalogHandler) ListQuizTypes(c *gin.Context) {
	principal, _ := middleware.PrincipalFrom(c)
	types, err := h.catalog.ListQuizTypes(c.Request.Context(), principal, boolQuery(c, "is_deleted"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (h *CatalogHandler) ListClassSubjects(c *gin.Context) {
	classID, err := optionalUintQuery(c, "class_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	subjects, err := h.catalog.ListClassSubjects(c.Request.Context(), classID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

func (h *CatalogHandler) ListTopics(c *gin.Context) {
	classSubjectID, err := optionalUintQuery(c, "class_subject_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	page, err := h.paging.parse(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	result, err := h.catalog.ListTopics(c.Request.Context(), classSubjectID, page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paginated(c, result))
}

func (h *CatalogHandler) GetQuestion(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	question, err := h.catalog.GetQuestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *CatalogHandler) CreateGeneralSubject(c *gin.Context) {
	var req services.CreateGeneralSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	subject, err := h.catalog.CreateGeneralSubject(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, subject)
}

func (h *CatalogHandler) CreateClass(c *gin.Context) {
	var req services.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	class, err := h.catalog.CreateClass(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

func (h *CatalogHandler) CreateClassSubject(c *gin.Context) {
	var req services.CreateClassSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	subject, err := h.catalog.CreateClassSubject(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, subject)
}

func (h *CatalogHandler) CreateTopic(c *gin.Context) {
	var req services.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	topic, err := h.catalog.CreateTopic(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, topic)
}

func (h *CatalogHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	question, err := h.catalog.CreateQuestion(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// Delete soft-deletes one row of the catalog table named by :kind.
func (h *CatalogHandler) Delete(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	kind := services.CatalogKind(c.Param("kind"))
	if err := h.catalog.SoftDelete(c.Request.Context(), kind, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
