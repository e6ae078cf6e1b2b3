package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyhub/apperrors"
	"studyhub/logger"
	"studyhub/middleware"
	"studyhub/models"
	"studyhub/services"
)

type QuizHandler struct {
	quizService *services.QuizService
	identity    *services.IdentityService
	paging      Paging
	log         *logger.Logger
}

func NewQuizHandler(quizService *services.QuizService, identity *services.IdentityService, paging Paging, log *logger.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		identity:    identity,
		paging:      paging,
		log:         log.With("handler", "QuizHandler"),
	}
}

// student resolves the student behind the authenticated caller.
func (h *QuizHandler) student(c *gin.Context) (*models.Student, bool) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		respondError(c, h.log, apperrors.ErrUnauthenticated)
		return nil, false
	}
	student, err := h.identity.StudentForUser(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	return student, true
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	student, ok := h.student(c)
	if !ok {
		return
	}

	var req services.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), student.ID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	student, ok := h.student(c)
	if !ok {
		return
	}
	page, err := h.paging.parse(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.quizService.ListQuizzes(c.Request.Context(), student.ID, page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, paginated(c, result))
}

func (h *QuizHandler) GetQuiz(c *gin.Context) {
	student, ok := h.student(c)
	if !ok {
		return
	}
	quizID, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	quiz, err := h.quizService.GetQuiz(c.Request.Context(), student.ID, quizID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) UploadAnswers(c *gin.Context) {
	student, ok := h.student(c)
	if !ok {
		return
	}
	quizID, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var req services.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}

	result, err := h.quizService.SubmitAnswers(c.Request.Context(), quizID, student.ID, req.Questions)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	student, ok := h.student(c)
	if !ok {
		return
	}
	quizID, err := uintParam(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.quizService.DeleteQuiz(c.Request.Context(), student.ID, quizID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
