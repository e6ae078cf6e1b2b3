package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"studyhub/apperrors"
	"studyhub/logger"
	"studyhub/models"
)

// IdentityService resolves authenticated users and their roles. It never
// touches credentials.
type IdentityService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdentityService(db *gorm.DB, log *logger.Logger) *IdentityService {
	return &IdentityService{db: db, log: log.With("service", "IdentityService")}
}

// Principal loads the user including soft-deleted ones, so callers can
// tell a deleted account from an unknown one.
func (s *IdentityService) Principal(ctx context.Context, userID uint) (models.Principal, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Unscoped().First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Principal{}, apperrors.NotFound("user", userID)
		}
		return models.Principal{}, err
	}
	return user.Principal(), nil
}

func (s *IdentityService) StudentForUser(ctx context.Context, userID uint) (*models.Student, error) {
	var student models.Student
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Forbidden("only students can take quizzes")
		}
		return nil, err
	}
	return &student, nil
}
