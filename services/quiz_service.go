package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyhub/apperrors"
	"studyhub/logger"
	"studyhub/models"
)

type QuizService struct {
	db      *gorm.DB
	sampler Sampler
	log     *logger.Logger
}

func NewQuizService(db *gorm.DB, sampler Sampler, log *logger.Logger) *QuizService {
	return &QuizService{db: db, sampler: sampler, log: log.With("service", "QuizService")}
}

// CreateQuizRequest carries exactly one scope id, the one matching QuizType.
type CreateQuizRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	QuizType    uint   `json:"quiz_type" binding:"required"`
	SubjectID   *uint  `json:"subject_id"`
	ClassNumber *uint  `json:"class_number"`
	TopicID     *uint  `json:"topic_id"`
}

func (r *CreateQuizRequest) scope() (models.QuizTypeKind, uint, error) {
	kind := models.QuizTypeKind(r.QuizType)
	var (
		id    *uint
		field string
	)
	switch kind {
	case models.QuizTypeSubject:
		id, field = r.SubjectID, "subject_id"
	case models.QuizTypeTopic:
		id, field = r.TopicID, "topic_id"
	case models.QuizTypeClass:
		id, field = r.ClassNumber, "class_number"
	default:
		return 0, 0, apperrors.Validation("quiz_type", "unknown quiz type %d", r.QuizType)
	}
	if id == nil || *id == 0 {
		return 0, 0, apperrors.Validation(field, "%s is required for a %s quiz", field, kind)
	}
	return kind, *id, nil
}

type SubmitItem struct {
	Quiz       uint `json:"quiz"`
	Question   uint `json:"question" binding:"required"`
	UserAnswer uint `json:"user_answer" binding:"required"`
}

type SubmitAnswersRequest struct {
	Questions []SubmitItem `json:"questions" binding:"required,dive"`
}

type SubmitResult struct {
	QuizID           uint               `json:"quiz_id"`
	Total            int                `json:"total"`
	CorrectQuestions int                `json:"correct_questions"`
	Items            []SubmitResultItem `json:"items"`
}

type SubmitResultItem struct {
	Question   uint `json:"question"`
	UserAnswer uint `json:"user_answer"`
	IsCorrect  bool `json:"is_correct"`
}

// QuizDetail is the read model of one quiz. Correctness of the attached
// answers is only revealed once the quiz is completed.
type QuizDetail struct {
	ID                uint                        `json:"id"`
	Name              string                      `json:"name"`
	Student           uint                        `json:"student"`
	QuizType          models.QuizType             `json:"quiz_type"`
	CreatedAt         time.Time                   `json:"datetime_created"`
	AttachedQuestions []QuestionView              `json:"attached_questions"`
	QuizQuestions     []models.QuizQuestionAnswer `json:"quiz_questions"`
	CorrectQuestions  int                         `json:"correct_questions"`
	Completed         bool                        `json:"completed"`
}

type QuestionView struct {
	ID      uint         `json:"id"`
	Name    string       `json:"name"`
	TopicID uint         `json:"topic_id"`
	Answers []AnswerView `json:"answers"`
}

type AnswerView struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

func newQuizDetail(quiz *models.Quiz) *QuizDetail {
	completed := len(quiz.QuizQuestions) > 0
	detail := &QuizDetail{
		ID:                quiz.ID,
		Name:              quiz.Name,
		Student:           quiz.StudentID,
		QuizType:          quiz.QuizType,
		CreatedAt:         quiz.CreatedAt,
		AttachedQuestions: make([]QuestionView, 0, len(quiz.AttachedQuestions)),
		QuizQuestions:     quiz.QuizQuestions,
		Completed:         completed,
	}
	if detail.QuizQuestions == nil {
		detail.QuizQuestions = []models.QuizQuestionAnswer{}
	}
	for _, q := range quiz.AttachedQuestions {
		view := QuestionView{ID: q.ID, Name: q.Name, TopicID: q.TopicID, Answers: make([]AnswerView, 0, len(q.Answers))}
		for _, a := range q.Answers {
			av := AnswerView{ID: a.ID, Name: a.Name}
			if completed {
				correct := a.IsCorrect
				av.IsCorrect = &correct
			}
			view.Answers = append(view.Answers, av)
		}
		detail.AttachedQuestions = append(detail.AttachedQuestions, view)
	}
	for _, qa := range quiz.QuizQuestions {
		if qa.UserAnswer.IsCorrect {
			detail.CorrectQuestions++
		}
	}
	return detail
}

// CreateQuiz samples the question set for a new quiz and stores the quiz
// together with its attachment rows. An empty pool is rejected.
func (s *QuizService) CreateQuiz(ctx context.Context, studentID uint, req *CreateQuizRequest) (*QuizDetail, error) {
	kind, scopeID, err := req.scope()
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist[models.QuizType](tx, "quiz type", uint(kind)); err != nil {
			return err
		}
		pool, err := questionPool(tx, kind, scopeID)
		if err != nil {
			return err
		}
		if len(pool) == 0 {
			return apperrors.ErrEmptyQuestionPool
		}

		quiz = models.Quiz{Name: req.Name, StudentID: studentID, QuizTypeID: uint(kind)}
		if err := tx.Omit(clause.Associations).Create(&quiz).Error; err != nil {
			return err
		}

		picks := s.sampler.Sample(len(pool), kind.SampleSize())
		edges := make([]models.QuizAttachedQuestion, 0, len(picks))
		for _, i := range picks {
			edges = append(edges, models.QuizAttachedQuestion{QuizID: quiz.ID, QuestionID: pool[i]})
		}
		return tx.Create(&edges).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quiz created",
		"quiz_id", quiz.ID,
		"student_id", studentID,
		"quiz_type", kind.String(),
		"scope_id", scopeID,
	)
	return s.GetQuiz(ctx, studentID, quiz.ID)
}

func (s *QuizService) loadQuiz(db *gorm.DB, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := db.
		Preload("QuizType", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("AttachedQuestions", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped().Order("questions.id")
		}).
		Preload("AttachedQuestions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped().Order("answers.id")
		}).
		Preload("QuizQuestions", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_question_answers.id")
		}).
		Preload("QuizQuestions.Question", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("QuizQuestions.UserAnswer", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&quiz, quizID).Error
	if err != nil {
		return nil, notFoundAs(err, "quiz", quizID)
	}
	return &quiz, nil
}

// GetQuiz returns the quiz when it belongs to studentID.
func (s *QuizService) GetQuiz(ctx context.Context, studentID, quizID uint) (*QuizDetail, error) {
	quiz, err := s.loadQuiz(s.db.WithContext(ctx), quizID)
	if err != nil {
		return nil, err
	}
	if quiz.StudentID != studentID {
		return nil, apperrors.ErrNotQuizOwner
	}
	return newQuizDetail(quiz), nil
}

func (s *QuizService) ListQuizzes(ctx context.Context, studentID uint, page Page) (PageResult[models.Quiz], error) {
	query := s.db.WithContext(ctx).Model(&models.Quiz{}).Where("student_id = ?", studentID)
	return paginate[models.Quiz](query, page, func(db *gorm.DB) *gorm.DB {
		return db.Preload("QuizType", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			Order("created_at DESC").Order("id DESC")
	})
}

// DeleteQuiz removes the quiz with its attachment and answer rows.
func (s *QuizService) DeleteQuiz(ctx context.Context, studentID, quizID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quiz models.Quiz
		if err := tx.First(&quiz, quizID).Error; err != nil {
			return notFoundAs(err, "quiz", quizID)
		}
		if quiz.StudentID != studentID {
			return apperrors.ErrNotQuizOwner
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizQuestionAnswer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizAttachedQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&quiz).Error; err != nil {
			return err
		}
		s.log.Info("quiz deleted", "quiz_id", quizID, "student_id", studentID)
		return nil
	})
}

// SubmitAnswers validates a full answer batch and stores it once. Nothing is
// written unless every item is valid. A lost race against a concurrent
// submission surfaces as ErrAlreadySubmitted.
func (s *QuizService) SubmitAnswers(ctx context.Context, quizID, studentID uint, items []SubmitItem) (*SubmitResult, error) {
	result := &SubmitResult{QuizID: quizID, Total: len(items), Items: make([]SubmitResultItem, 0, len(items))}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quiz models.Quiz
		if err := tx.First(&quiz, quizID).Error; err != nil {
			return notFoundAs(err, "quiz", quizID)
		}
		if quiz.StudentID != studentID {
			return apperrors.ErrNotQuizOwner
		}

		var submitted int64
		if err := tx.Model(&models.QuizQuestionAnswer{}).Where("quiz_id = ?", quizID).Count(&submitted).Error; err != nil {
			return err
		}
		if submitted > 0 {
			return apperrors.ErrAlreadySubmitted
		}

		var attached []uint
		if err := tx.Model(&models.QuizAttachedQuestion{}).Where("quiz_id = ?", quizID).Pluck("question_id", &attached).Error; err != nil {
			return err
		}
		if len(items) != len(attached) {
			return apperrors.ErrIncompleteSubmission
		}

		answers, err := answersByID(tx, items)
		if err != nil {
			return err
		}
		rows, err := buildAnswerRows(quizID, attached, answers, items)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).CreateInBatches(&rows, 100).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrAlreadySubmitted
			}
			return err
		}

		for _, row := range rows {
			correct := answers[row.UserAnswerID].IsCorrect
			if correct {
				result.CorrectQuestions++
			}
			result.Items = append(result.Items, SubmitResultItem{
				Question:   row.QuestionID,
				UserAnswer: row.UserAnswerID,
				IsCorrect:  correct,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("answers submitted",
		"quiz_id", quizID,
		"student_id", studentID,
		"total", result.Total,
		"correct", result.CorrectQuestions,
	)
	return result, nil
}

func answersByID(tx *gorm.DB, items []SubmitItem) (map[uint]models.Answer, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.UserAnswer)
	}
	var answers []models.Answer
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&answers).Error; err != nil {
			return nil, err
		}
	}
	byID := make(map[uint]models.Answer, len(answers))
	for _, a := range answers {
		byID[a.ID] = a
	}
	return byID, nil
}

func buildAnswerRows(quizID uint, attached []uint, answers map[uint]models.Answer, items []SubmitItem) ([]models.QuizQuestionAnswer, error) {
	inQuiz := make(map[uint]bool, len(attached))
	for _, id := range attached {
		inQuiz[id] = true
	}
	seen := make(map[uint]bool, len(items))
	rows := make([]models.QuizQuestionAnswer, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("questions[%d]", i)
		if item.Quiz != 0 && item.Quiz != quizID {
			return nil, apperrors.Validation(field+".quiz", "question %d is submitted for quiz %d, not %d", item.Question, item.Quiz, quizID)
		}
		if !inQuiz[item.Question] {
			return nil, apperrors.Validation(field+".question", "question %d is not part of this quiz", item.Question)
		}
		if seen[item.Question] {
			return nil, apperrors.Validation(field+".question", "question %d is answered twice", item.Question)
		}
		seen[item.Question] = true
		answer, ok := answers[item.UserAnswer]
		if !ok || answer.QuestionID != item.Question {
			return nil, apperrors.Validation(field+".user_answer", "answer %d does not belong to question %d", item.UserAnswer, item.Question)
		}
		rows = append(rows, models.QuizQuestionAnswer{
			QuizID:       quizID,
			QuestionID:   item.Question,
			UserAnswerID: item.UserAnswer,
		})
	}
	return rows, nil
}
