package models

type PersonalChat struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	StudentID uint `json:"student_id" gorm:"not null;uniqueIndex:idx_student_teacher_chat"`
	TeacherID uint `json:"teacher_id" gorm:"not null;uniqueIndex:idx_student_teacher_chat"`
	Timestamped

	Student Student `json:"student"`
	Teacher Teacher `json:"teacher"`
}

// HasMember reports whether the user takes part in the chat. Student and
// Teacher must be loaded.
func (c PersonalChat) HasMember(userID uint) bool {
	return c.Student.UserID == userID || c.Teacher.UserID == userID
}

type Message struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Content string `json:"content" gorm:"type:text;not null"`
	OwnerID uint   `json:"owner_id" gorm:"not null;index"`
	ChatID  uint   `json:"chat_id" gorm:"not null;index"`
	Timestamped

	Owner User `json:"owner"`
}
