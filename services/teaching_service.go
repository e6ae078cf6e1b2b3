package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"studyhub/apperrors"
	"studyhub/logger"
	"studyhub/models"
)

type TeachingService struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewTeachingService(db *gorm.DB, log *logger.Logger) *TeachingService {
	return &TeachingService{db: db, log: log.With("service", "TeachingService"), now: time.Now}
}

// SubscriptionChange moves a teacher from the Previous subscription to Next.
// A nil id means no subscription.
type SubscriptionChange struct {
	TeacherID uint  `json:"-"`
	Previous  *uint `json:"previous"`
	Next      *uint `json:"next"`
}

type SubscriptionOutcome struct {
	Changed bool            `json:"changed"`
	Teacher *models.Teacher `json:"teacher"`
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ChangeSubscription applies the change when Previous still matches the
// stored subscription. Taking a new subscription stamps the subscription
// time and activates it; dropping it clears status and time.
func (s *TeachingService) ChangeSubscription(ctx context.Context, change SubscriptionChange) (*SubscriptionOutcome, error) {
	outcome := &SubscriptionOutcome{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var teacher models.Teacher
		if err := tx.First(&teacher, change.TeacherID).Error; err != nil {
			return notFoundAs(err, "teacher", change.TeacherID)
		}
		if !sameID(teacher.SubscriptionID, change.Previous) {
			return apperrors.ErrStaleSubscription
		}

		if !sameID(change.Previous, change.Next) {
			updates := map[string]interface{}{
				"subscription_id":        nil,
				"subscription_status_id": nil,
				"subscribed_at":          nil,
			}
			if change.Next != nil {
				if err := mustExist[models.Subscription](tx, "subscription", *change.Next); err != nil {
					return err
				}
				updates["subscription_id"] = *change.Next
				updates["subscription_status_id"] = models.SubscriptionStatusActive
				updates["subscribed_at"] = s.now().UTC()
			}

			guard := tx.Model(&models.Teacher{}).Where("id = ?", teacher.ID)
			if change.Previous == nil {
				guard = guard.Where("subscription_id IS NULL")
			} else {
				guard = guard.Where("subscription_id = ?", *change.Previous)
			}
			res := guard.Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperrors.ErrStaleSubscription
			}
			outcome.Changed = true
		}

		var fresh models.Teacher
		if err := tx.Preload("User").Preload("Subscription").Preload("SubscriptionStatus").
			First(&fresh, teacher.ID).Error; err != nil {
			return err
		}
		outcome.Teacher = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome.Changed {
		s.log.Info("teacher subscription changed",
			"teacher_id", change.TeacherID,
			"previous", change.Previous,
			"next", change.Next,
		)
	}
	return outcome, nil
}

func (s *TeachingService) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	var out []models.Subscription
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
