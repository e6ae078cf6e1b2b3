package models

import "time"

type User struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Email       string `json:"email" gorm:"uniqueIndex;not null"`
	FirstName   string `json:"first_name" gorm:"not null"`
	LastName    string `json:"last_name"`
	IsActive    bool   `json:"is_active" gorm:"not null"`
	IsSuperuser bool   `json:"is_superuser" gorm:"not null;default:false"`
	Timestamped
}

// Principal is the authenticated caller as seen by the services.
type Principal struct {
	ID          uint
	IsSuperuser bool
	IsActive    bool
	IsDeleted   bool
}

func (u User) Principal() Principal {
	return Principal{
		ID:          u.ID,
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
		IsDeleted:   u.IsDeleted(),
	}
}

type Student struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"user_id" gorm:"uniqueIndex;not null"`
	Points int  `json:"points" gorm:"not null;default:0"`

	User User `json:"user,omitempty"`
}

type Teacher struct {
	ID                   uint       `json:"id" gorm:"primaryKey"`
	UserID               uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	SubscriptionID       *uint      `json:"subscription_id"`
	SubscriptionStatusID *uint      `json:"subscription_status_id"`
	SubscribedAt         *time.Time `json:"subscribed_at"`

	User               User                `json:"user,omitempty"`
	Subscription       *Subscription       `json:"subscription,omitempty"`
	SubscriptionStatus *SubscriptionStatus `json:"subscription_status,omitempty"`
}

type Subscription struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	Duration    int    `json:"duration" gorm:"not null;default:3"` // months
	Timestamped
}

type SubscriptionStatus struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
	Timestamped
}

const SubscriptionStatusActive uint = 1
