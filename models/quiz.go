package models

import (
	"time"

	"gorm.io/gorm"
)

type QuizTypeKind uint

const (
	QuizTypeSubject QuizTypeKind = 1
	QuizTypeTopic   QuizTypeKind = 2
	QuizTypeClass   QuizTypeKind = 3
)

// SampleSize is the number of questions a quiz of this kind attaches when
// the pool is large enough.
func (k QuizTypeKind) SampleSize() int {
	switch k {
	case QuizTypeSubject:
		return 20
	case QuizTypeTopic:
		return 5
	case QuizTypeClass:
		return 10
	}
	return 0
}

func (k QuizTypeKind) Valid() bool { return k.SampleSize() > 0 }

func (k QuizTypeKind) String() string {
	switch k {
	case QuizTypeSubject:
		return "subject"
	case QuizTypeTopic:
		return "topic"
	case QuizTypeClass:
		return "class"
	}
	return "unknown"
}

type QuizType struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
	Timestamped
}

func (t QuizType) Kind() QuizTypeKind { return QuizTypeKind(t.ID) }

type Quiz struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"not null"`
	StudentID  uint      `json:"student" gorm:"not null;index"`
	QuizTypeID uint      `json:"quiz_type_id" gorm:"not null"`
	CreatedAt  time.Time `json:"datetime_created"`

	// Relationships
	QuizType          QuizType             `json:"quiz_type"`
	AttachedQuestions []Question           `json:"attached_questions,omitempty" gorm:"many2many:quiz_attached_questions;joinForeignKey:QuizID;joinReferences:QuestionID"`
	QuizQuestions     []QuizQuestionAnswer `json:"quiz_questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
}

// QuizAttachedQuestion is one edge of the sampled question set. Rows are
// written once, in the transaction that creates the quiz.
type QuizAttachedQuestion struct {
	QuizID     uint `gorm:"primaryKey"`
	QuestionID uint `gorm:"primaryKey"`
}

func (QuizAttachedQuestion) TableName() string { return "quiz_attached_questions" }

type QuizQuestionAnswer struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	QuizID       uint `json:"quiz" gorm:"not null;uniqueIndex:idx_quiz_question"`
	QuestionID   uint `json:"question_id" gorm:"not null;uniqueIndex:idx_quiz_question"`
	UserAnswerID uint `json:"user_answer_id" gorm:"not null"`

	Question   Question `json:"question"`
	UserAnswer Answer   `json:"user_answer"`
}

func SetupJoinTables(db *gorm.DB) error {
	return db.SetupJoinTable(&Quiz{}, "AttachedQuestions", &QuizAttachedQuestion{})
}
