package models

type Question struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Name    string `json:"name" gorm:"uniqueIndex;not null"`
	TopicID uint   `json:"topic_id" gorm:"not null;index"`
	Timestamped

	// Relationships
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}

type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"not null;uniqueIndex:idx_answer_name_question"`
	QuestionID uint   `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_name_question"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`
	Timestamped
}
