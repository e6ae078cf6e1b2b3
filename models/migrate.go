package models

import "gorm.io/gorm"

// All lists every model in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Subscription{},
		&SubscriptionStatus{},
		&Student{},
		&Teacher{},
		&GeneralSubject{},
		&Class{},
		&ClassSubject{},
		&Topic{},
		&Question{},
		&Answer{},
		&QuizType{},
		&Quiz{},
		&QuizAttachedQuestion{},
		&QuizQuestionAnswer{},
		&PersonalChat{},
		&Message{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := SetupJoinTables(db); err != nil {
		return err
	}
	return db.AutoMigrate(All()...)
}
