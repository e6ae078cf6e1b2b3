// Package seeds writes reference data and optional demo data.
package seeds

import (
	"fmt"
	"math/rand/v2"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyhub/logger"
	"studyhub/models"
)

var quizTypes = []models.QuizType{
	{ID: uint(models.QuizTypeSubject), Name: "subject"},
	{ID: uint(models.QuizTypeTopic), Name: "topic"},
	{ID: uint(models.QuizTypeClass), Name: "class"},
}

var subscriptionStatuses = []models.SubscriptionStatus{
	{ID: models.SubscriptionStatusActive, Name: "active"},
	{ID: 2, Name: "expired"},
}

// EnsureReferenceData upserts the rows the services rely on by id. It is
// safe to run on every start.
func EnsureReferenceData(db *gorm.DB) error {
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&quizTypes).Error; err != nil {
		return fmt.Errorf("seed quiz types: %w", err)
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&subscriptionStatuses).Error; err != nil {
		return fmt.Errorf("seed subscription statuses: %w", err)
	}
	return nil
}

var answerTemplates = []string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9",
	"Hello", "Kazakhstan", "Germany", "Turkey", "Europe", "Asia", "World",
	"Mouse", "Cat", "Phone", "Apple", "Android", "Python", "Golang",
	"JavaScript", "Java", "Number", "NaN", "String", "Boolean", "Float",
	"Keyboard", "Screen", "America", "Canada", "France", "Italy",
}

var generalSubjects = []string{"Mathematics", "Physics", "History", "Literature"}

// DemoSize controls how much demo data DemoData writes.
type DemoSize struct {
	Classes           int
	TopicsPerSubject  int
	QuestionsPerTopic int
	Students          int
	Teachers          int
}

var DefaultDemoSize = DemoSize{Classes: 3, TopicsPerSubject: 3, QuestionsPerTopic: 8, Students: 5, Teachers: 2}

// DemoData fills an empty database with a browsable catalog, users and
// chats. It does nothing when users already exist.
func DemoData(db *gorm.DB, rng *rand.Rand, size DemoSize, log *logger.Logger) error {
	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		log.Info("demo data skipped, database is not empty", "users", users)
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		subjects := make([]models.GeneralSubject, 0, len(generalSubjects))
		for _, name := range generalSubjects {
			subjects = append(subjects, models.GeneralSubject{Name: name})
		}
		if err := tx.Create(&subjects).Error; err != nil {
			return err
		}

		questionNo := 0
		for n := 1; n <= size.Classes; n++ {
			class := models.Class{Number: n}
			if err := tx.Create(&class).Error; err != nil {
				return err
			}
			for _, subject := range subjects {
				cs := models.ClassSubject{
					Name:             fmt.Sprintf("%s %d", subject.Name, n),
					GeneralSubjectID: subject.ID,
					ClassID:          class.ID,
				}
				if err := tx.Create(&cs).Error; err != nil {
					return err
				}
				for i := 1; i <= size.TopicsPerSubject; i++ {
					topic := models.Topic{
						Name:           fmt.Sprintf("%s: topic %d", cs.Name, i),
						Content:        "Reading material for " + cs.Name,
						VideoURL:       "https://video.example.com/" + fmt.Sprint(cs.ID, "-", i),
						ClassSubjectID: cs.ID,
					}
					if err := tx.Create(&topic).Error; err != nil {
						return err
					}
					for q := 0; q < size.QuestionsPerTopic; q++ {
						questionNo++
						question := models.Question{
							Name:    fmt.Sprintf("Question #%d", questionNo),
							TopicID: topic.ID,
							Answers: demoAnswers(rng),
						}
						if err := tx.Create(&question).Error; err != nil {
							return err
						}
					}
				}
			}
		}

		subs := []models.Subscription{
			{Name: "Basic", Description: "Chat with students", Duration: 3},
			{Name: "Pro", Description: "Unlimited chats", Duration: 12},
		}
		if err := tx.Create(&subs).Error; err != nil {
			return err
		}

		var students []models.Student
		for i := 1; i <= size.Students; i++ {
			u := models.User{Email: fmt.Sprintf("student%d@studyhub.local", i), FirstName: "Student", LastName: fmt.Sprint(i), IsActive: true}
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
			s := models.Student{UserID: u.ID}
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
			students = append(students, s)
		}
		for i := 1; i <= size.Teachers; i++ {
			u := models.User{Email: fmt.Sprintf("teacher%d@studyhub.local", i), FirstName: "Teacher", LastName: fmt.Sprint(i), IsActive: true}
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
			teacher := models.Teacher{UserID: u.ID}
			if err := tx.Create(&teacher).Error; err != nil {
				return err
			}
			for _, s := range students {
				if rng.IntN(2) == 0 {
					continue
				}
				chat := models.PersonalChat{StudentID: s.ID, TeacherID: teacher.ID}
				if err := tx.Create(&chat).Error; err != nil {
					return err
				}
			}
		}
		admin := models.User{Email: "admin@studyhub.local", FirstName: "Admin", IsActive: true, IsSuperuser: true}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		log.Info("demo data created", "questions", questionNo, "students", len(students), "teachers", size.Teachers)
		return nil
	})
}

// demoAnswers returns 4 to 7 distinct answers, exactly one of them correct.
func demoAnswers(rng *rand.Rand) []models.Answer {
	n := 4 + rng.IntN(4)
	perm := rng.Perm(len(answerTemplates))[:n]
	correct := rng.IntN(n)
	answers := make([]models.Answer, n)
	for i, idx := range perm {
		answers[i] = models.Answer{Name: answerTemplates[idx], IsCorrect: i == correct}
	}
	return answers
}
