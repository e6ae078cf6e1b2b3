package models

type GeneralSubject struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
	Timestamped
}

type Class struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	Number int  `json:"number" gorm:"uniqueIndex;not null"`
	Timestamped
}

// ClassSubject is a subject as taught in one class; it is the "subject"
// scope a quiz can be generated for.
type ClassSubject struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	Name             string `json:"name" gorm:"uniqueIndex;not null"`
	GeneralSubjectID uint   `json:"general_subject_id" gorm:"not null;index"`
	ClassID          uint   `json:"class_id" gorm:"not null;index"`
	Timestamped

	GeneralSubject *GeneralSubject `json:"general_subject,omitempty"`
	Class          *Class          `json:"class,omitempty"`
}

type Topic struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Name           string `json:"name" gorm:"not null"`
	Content        string `json:"content"`
	VideoURL       string `json:"video_url"`
	ClassSubjectID uint   `json:"class_subject_id" gorm:"not null;index"`
	Timestamped

	ClassSubject *ClassSubject `json:"class_subject,omitempty"`
}
