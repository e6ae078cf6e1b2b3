package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"studyhub/models"
)

var seq atomic.Int64

func next() int64 { return seq.Add(1) }

func SeedUser(tb testing.TB, db *gorm.DB, superuser bool) *models.User {
	tb.Helper()
	n := next()
	u := &models.User{
		Email:       fmt.Sprintf("user%d@test.local", n),
		FirstName:   "User",
		LastName:    fmt.Sprint(n),
		IsActive:    true,
		IsSuperuser: superuser,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedStudent(tb testing.TB, db *gorm.DB) *models.Student {
	tb.Helper()
	u := SeedUser(tb, db, false)
	s := &models.Student{UserID: u.ID}
	if err := db.Create(s).Error; err != nil {
		tb.Fatalf("seed student: %v", err)
	}
	s.User = *u
	return s
}

func SeedTeacher(tb testing.TB, db *gorm.DB) *models.Teacher {
	tb.Helper()
	u := SeedUser(tb, db, false)
	return SeedTeacherFor(tb, db, u)
}

// SeedTeacherFor makes an existing user a teacher too.
func SeedTeacherFor(tb testing.TB, db *gorm.DB, u *models.User) *models.Teacher {
	tb.Helper()
	teacher := &models.Teacher{UserID: u.ID}
	if err := db.Create(teacher).Error; err != nil {
		tb.Fatalf("seed teacher: %v", err)
	}
	teacher.User = *u
	return teacher
}

func SeedClass(tb testing.TB, db *gorm.DB) *models.Class {
	tb.Helper()
	c := &models.Class{Number: int(next())}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed class: %v", err)
	}
	return c
}

func SeedClassSubject(tb testing.TB, db *gorm.DB, classID uint) *models.ClassSubject {
	tb.Helper()
	n := next()
	gs := &models.GeneralSubject{Name: fmt.Sprintf("Subject %d", n)}
	if err := db.Create(gs).Error; err != nil {
		tb.Fatalf("seed general subject: %v", err)
	}
	cs := &models.ClassSubject{Name: fmt.Sprintf("Class subject %d", n), GeneralSubjectID: gs.ID, ClassID: classID}
	if err := db.Create(cs).Error; err != nil {
		tb.Fatalf("seed class subject: %v", err)
	}
	return cs
}

func SeedTopic(tb testing.TB, db *gorm.DB, classSubjectID uint) *models.Topic {
	tb.Helper()
	t := &models.Topic{Name: fmt.Sprintf("Topic %d", next()), Content: "text", ClassSubjectID: classSubjectID}
	if err := db.Create(t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

// SeedQuestions creates n questions on the topic, each with one correct and
// two wrong answers. Correct answers come first in Answers.
func SeedQuestions(tb testing.TB, db *gorm.DB, topicID uint, n int) []models.Question {
	tb.Helper()
	out := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		q := models.Question{
			Name:    fmt.Sprintf("Question %d", next()),
			TopicID: topicID,
			Answers: []models.Answer{
				{Name: "right", IsCorrect: true},
				{Name: "wrong a"},
				{Name: "wrong b"},
			},
		}
		if err := db.Create(&q).Error; err != nil {
			tb.Fatalf("seed question: %v", err)
		}
		out = append(out, q)
	}
	return out
}

func SeedChat(tb testing.TB, db *gorm.DB, student *models.Student, teacher *models.Teacher) *models.PersonalChat {
	tb.Helper()
	c := &models.PersonalChat{StudentID: student.ID, TeacherID: teacher.ID}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed chat: %v", err)
	}
	c.Student = *student
	c.Teacher = *teacher
	return c
}
