package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"studyhub/apperrors"
	"studyhub/logger"
	"studyhub/models"
)

// CatalogService manages the read-mostly reference data quizzes are built
// from: subjects, classes, topics, questions and answers.
type CatalogService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogService(db *gorm.DB, log *logger.Logger) *CatalogService {
	return &CatalogService{db: db, log: log.With("service", "CatalogService")}
}

type CreateGeneralSubjectRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

type CreateClassRequest struct {
	Number int `json:"number" binding:"required,min=1"`
}

type CreateClassSubjectRequest struct {
	Name             string `json:"name" binding:"required,max=200"`
	GeneralSubjectID uint   `json:"general_subject_id" binding:"required"`
	ClassID          uint   `json:"class_id" binding:"required"`
}

type CreateTopicRequest struct {
	Name           string `json:"name" binding:"required,max=240"`
	Content        string `json:"content" binding:"required"`
	VideoURL       string `json:"video_url" binding:"omitempty,url,max=250"`
	ClassSubjectID uint   `json:"class_subject_id" binding:"required"`
}

type CreateQuestionRequest struct {
	Name    string                `json:"name" binding:"required,max=240"`
	TopicID uint                  `json:"topic_id" binding:"required"`
	Answers []CreateAnswerRequest `json:"answers" binding:"required,min=2,dive"`
}

type CreateAnswerRequest struct {
	Name      string `json:"name" binding:"required,max=250"`
	IsCorrect bool   `json:"is_correct"`
}

// CatalogKind names a soft-deletable catalog table in routes.
type CatalogKind string

const (
	KindGeneralSubject CatalogKind = "subjects"
	KindClass          CatalogKind = "classes"
	KindClassSubject   CatalogKind = "class-subjects"
	KindTopic          CatalogKind = "topics"
	KindQuestion       CatalogKind = "questions"
	KindAnswer         CatalogKind = "answers"
	KindQuizType       CatalogKind = "quiz-types"
)

func (k CatalogKind) model() (interface{}, bool) {
	switch k {
	case KindGeneralSubject:
		return &models.GeneralSubject{}, true
	case KindClass:
		return &models.Class{}, true
	case KindClassSubject:
		return &models.ClassSubject{}, true
	case KindTopic:
		return &models.Topic{}, true
	case KindQuestion:
		return &models.Question{}, true
	case KindAnswer:
		return &models.Answer{}, true
	case KindQuizType:
		return &models.QuizType{}, true
	}
	return nil, false
}

func (s *CatalogService) CreateGeneralSubject(ctx context.Context, req *CreateGeneralSubjectRequest) (*models.GeneralSubject, error) {
	subject := models.GeneralSubject{Name: strings.TrimSpace(req.Name)}
	if err := s.db.WithContext(ctx).Create(&subject).Error; err != nil {
		return nil, duplicateAs(err, "subject %q already exists", subject.Name)
	}
	return &subject, nil
}

func (s *CatalogService) CreateClass(ctx context.Context, req *CreateClassRequest) (*models.Class, error) {
	if req.Number < 1 {
		return nil, apperrors.Validation("number", "class number can not be negative or zero")
	}
	class := models.Class{Number: req.Number}
	if err := s.db.WithContext(ctx).Create(&class).Error; err != nil {
		return nil, duplicateAs(err, "class %d already exists", class.Number)
	}
	return &class, nil
}

func (s *CatalogService) CreateClassSubject(ctx context.Context, req *CreateClassSubjectRequest) (*models.ClassSubject, error) {
	db := s.db.WithContext(ctx)
	if err := mustExist[models.GeneralSubject](db, "subject", req.GeneralSubjectID); err != nil {
		return nil, err
	}
	if err := mustExist[models.Class](db, "class", req.ClassID); err != nil {
		return nil, err
	}
	cs := models.ClassSubject{
		Name:             strings.TrimSpace(req.Name),
		GeneralSubjectID: req.GeneralSubjectID,
		ClassID:          req.ClassID,
	}
	if err := db.Create(&cs).Error; err != nil {
		return nil, duplicateAs(err, "class subject %q already exists", cs.Name)
	}
	return &cs, nil
}

func (s *CatalogService) CreateTopic(ctx context.Context, req *CreateTopicRequest) (*models.Topic, error) {
	db := s.db.WithContext(ctx)
	if err := mustExist[models.ClassSubject](db, "class subject", req.ClassSubjectID); err != nil {
		return nil, err
	}
	topic := models.Topic{
		Name:           strings.TrimSpace(req.Name),
		Content:        req.Content,
		VideoURL:       req.VideoURL,
		ClassSubjectID: req.ClassSubjectID,
	}
	if err := db.Create(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// CreateQuestion stores a question with its answers in one transaction. A
// question needs at least two answers, at least one of them correct, and
// answer names must be unique within the question.
func (s *CatalogService) CreateQuestion(ctx context.Context, req *CreateQuestionRequest) (*models.Question, error) {
	if len(req.Answers) < 2 {
		return nil, apperrors.Validation("answers", "a question needs at least two answers")
	}
	seen := make(map[string]bool, len(req.Answers))
	correct := 0
	answers := make([]models.Answer, 0, len(req.Answers))
	for i, a := range req.Answers {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return nil, apperrors.Validation(fmt.Sprintf("answers[%d].name", i), "answer text is required")
		}
		if seen[name] {
			return nil, apperrors.Validation(fmt.Sprintf("answers[%d].name", i), "answer %q is listed twice", name)
		}
		seen[name] = true
		if a.IsCorrect {
			correct++
		}
		answers = append(answers, models.Answer{Name: name, IsCorrect: a.IsCorrect})
	}
	if correct == 0 {
		return nil, apperrors.Validation("answers", "a question needs at least one correct answer")
	}

	question := models.Question{Name: strings.TrimSpace(req.Name), TopicID: req.TopicID, Answers: answers}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist[models.Topic](tx, "topic", req.TopicID); err != nil {
			return err
		}
		if err := tx.Create(&question).Error; err != nil {
			return duplicateAs(err, "question %q already exists", question.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("question created", "question_id", question.ID, "topic_id", question.TopicID, "answers", len(answers))
	return &question, nil
}

func (s *CatalogService) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := s.db.WithContext(ctx).Preload("Answers").First(&question, id).Error; err != nil {
		return nil, notFoundAs(err, "question", id)
	}
	return &question, nil
}

// ListClassSubjects returns the subjects of one class, or of every class
// when classID is 0.
func (s *CatalogService) ListClassSubjects(ctx context.Context, classID uint) ([]models.ClassSubject, error) {
	query := s.db.WithContext(ctx).Preload("GeneralSubject").Preload("Class").Order("updated_at DESC")
	if classID != 0 {
		query = query.Where("class_id = ?", classID)
	}
	var out []models.ClassSubject
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CatalogService) ListTopics(ctx context.Context, classSubjectID uint, page Page) (PageResult[models.Topic], error) {
	query := s.db.WithContext(ctx).Model(&models.Topic{})
	if classSubjectID != 0 {
		query = query.Where("class_subject_id = ?", classSubjectID)
	}
	return paginate[models.Topic](query, page, func(db *gorm.DB) *gorm.DB {
		return db.Order("updated_at DESC").Order("id DESC")
	})
}

// ListQuizTypes returns live quiz types, or soft-deleted ones for
// superusers when deletedOnly is set.
func (s *CatalogService) ListQuizTypes(ctx context.Context, principal models.Principal, deletedOnly bool) ([]models.QuizType, error) {
	query := s.db.WithContext(ctx)
	if deletedOnly {
		if !principal.IsSuperuser {
			return nil, apperrors.ErrDeletedOnlyForbidden
		}
		query = models.DeletedOnly(query)
	}
	var out []models.QuizType
	if err := query.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SoftDelete stamps the deletion time of one catalog row.
func (s *CatalogService) SoftDelete(ctx context.Context, kind CatalogKind, id uint) error {
	model, ok := kind.model()
	if !ok {
		return apperrors.Validation("kind", "unknown catalog kind %q", kind)
	}
	res := s.db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(string(kind), id)
	}
	s.log.Info("catalog row soft deleted", "kind", kind, "id", id)
	return nil
}

// HardDelete physically removes a row. Nothing routes to it; it exists for
// maintenance jobs.
func (s *CatalogService) HardDelete(ctx context.Context, kind CatalogKind, id uint) error {
	model, ok := kind.model()
	if !ok {
		return apperrors.Validation("kind", "unknown catalog kind %q", kind)
	}
	res := s.db.WithContext(ctx).Unscoped().Delete(model, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(string(kind), id)
	}
	return nil
}

// QuestionPool resolves the candidate questions for a quiz of the given kind
// and scope, ordered by id. Only non-deleted rows take part at every level,
// and the scope root itself must exist.
func (s *CatalogService) QuestionPool(ctx context.Context, kind models.QuizTypeKind, scopeID uint) ([]uint, error) {
	return questionPool(s.db.WithContext(ctx), kind, scopeID)
}

func questionPool(db *gorm.DB, kind models.QuizTypeKind, scopeID uint) ([]uint, error) {
	var topicIDs []uint
	switch kind {
	case models.QuizTypeTopic:
		if err := mustExist[models.Topic](db, "topic", scopeID); err != nil {
			return nil, err
		}
		topicIDs = []uint{scopeID}
	case models.QuizTypeClass:
		if err := mustExist[models.Class](db, "class", scopeID); err != nil {
			return nil, err
		}
		var classSubjectIDs []uint
		if err := db.Model(&models.ClassSubject{}).Where("class_id = ?", scopeID).Pluck("id", &classSubjectIDs).Error; err != nil {
			return nil, err
		}
		if len(classSubjectIDs) == 0 {
			return []uint{}, nil
		}
		if err := db.Model(&models.Topic{}).Where("class_subject_id IN ?", classSubjectIDs).Pluck("id", &topicIDs).Error; err != nil {
			return nil, err
		}
	case models.QuizTypeSubject:
		if err := mustExist[models.ClassSubject](db, "class subject", scopeID); err != nil {
			return nil, err
		}
		if err := db.Model(&models.Topic{}).Where("class_subject_id = ?", scopeID).Pluck("id", &topicIDs).Error; err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.Validation("quiz_type", "unknown quiz type %d", kind)
	}
	if len(topicIDs) == 0 {
		return []uint{}, nil
	}

	var questionIDs []uint
	if err := db.Model(&models.Question{}).
		Where("topic_id IN ?", topicIDs).
		Order("id").
		Pluck("id", &questionIDs).Error; err != nil {
		return nil, err
	}
	return questionIDs, nil
}

func mustExist[T any](db *gorm.DB, entity string, id uint) error {
	var count int64
	if err := db.Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound(entity, id)
	}
	return nil
}

func notFoundAs(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(entity, id)
	}
	return err
}

func duplicateAs(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict(format, args...)
	}
	return err
}
