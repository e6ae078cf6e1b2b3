package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyhub/apperrors"
	"studyhub/logger"
	"studyhub/models"
)

// ChatService stores personal student-teacher chats and their messages.
type ChatService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatService(db *gorm.DB, log *logger.Logger) *ChatService {
	return &ChatService{db: db, log: log.With("service", "ChatService")}
}

type CreateChatRequest struct {
	StudentID uint `json:"student" binding:"required"`
	TeacherID uint `json:"teacher" binding:"required"`
}

type PostMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// CreateChat opens the chat between a student and a teacher. The pair is
// unique across live and soft-deleted chats.
func (s *ChatService) CreateChat(ctx context.Context, principal models.Principal, req *CreateChatRequest) (*models.PersonalChat, error) {
	var chat models.PersonalChat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var student models.Student
		if err := tx.Preload("User").First(&student, req.StudentID).Error; err != nil {
			return notFoundAs(err, "student", req.StudentID)
		}
		var teacher models.Teacher
		if err := tx.Preload("User").First(&teacher, req.TeacherID).Error; err != nil {
			return notFoundAs(err, "teacher", req.TeacherID)
		}
		if student.UserID == teacher.UserID {
			return apperrors.ErrSelfChat
		}
		if !principal.IsSuperuser && principal.ID != student.UserID && principal.ID != teacher.UserID {
			return apperrors.Forbidden("you can only open chats you take part in")
		}

		var existing int64
		if err := tx.Unscoped().Model(&models.PersonalChat{}).
			Where("student_id = ? AND teacher_id = ?", student.ID, teacher.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.ErrDuplicateChat
		}

		chat = models.PersonalChat{StudentID: student.ID, TeacherID: teacher.ID}
		if err := tx.Omit(clause.Associations).Create(&chat).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrDuplicateChat
			}
			return err
		}
		chat.Student = student
		chat.Teacher = teacher
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("chat created", "chat_id", chat.ID, "student_id", chat.StudentID, "teacher_id", chat.TeacherID)
	return &chat, nil
}

func (s *ChatService) loadChat(db *gorm.DB, chatID uint) (*models.PersonalChat, error) {
	var chat models.PersonalChat
	if err := db.Preload("Student.User").Preload("Teacher.User").First(&chat, chatID).Error; err != nil {
		return nil, notFoundAs(err, "chat", chatID)
	}
	return &chat, nil
}

func canAccess(chat *models.PersonalChat, principal models.Principal) bool {
	return principal.IsSuperuser || chat.HasMember(principal.ID)
}

// GetChat returns a live chat the principal takes part in.
func (s *ChatService) GetChat(ctx context.Context, principal models.Principal, chatID uint) (*models.PersonalChat, error) {
	chat, err := s.loadChat(s.db.WithContext(ctx), chatID)
	if err != nil {
		return nil, err
	}
	if !canAccess(chat, principal) {
		return nil, apperrors.ErrNotChatMember
	}
	return chat, nil
}

func (s *ChatService) ChatExists(ctx context.Context, chatID uint) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.PersonalChat{}).Where("id = ?", chatID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListChats returns the chats of the principal. Superusers see every chat
// and may ask for soft-deleted ones only.
func (s *ChatService) ListChats(ctx context.Context, principal models.Principal, deletedOnly bool, page Page) (PageResult[models.PersonalChat], error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.PersonalChat{})
	if deletedOnly {
		if !principal.IsSuperuser {
			return PageResult[models.PersonalChat]{}, apperrors.ErrDeletedOnlyForbidden
		}
		query = models.DeletedOnly(query)
	}
	if !principal.IsSuperuser {
		query = query.Where("(student_id IN (?) OR teacher_id IN (?))",
			db.Model(&models.Student{}).Select("id").Where("user_id = ?", principal.ID),
			db.Model(&models.Teacher{}).Select("id").Where("user_id = ?", principal.ID),
		)
	}
	return paginate[models.PersonalChat](query, page, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Student.User").Preload("Teacher.User").Order("updated_at DESC").Order("id DESC")
	})
}

// ListMessages returns the live messages of a chat, newest first.
func (s *ChatService) ListMessages(ctx context.Context, principal models.Principal, chatID uint, page Page) (PageResult[models.Message], error) {
	if _, err := s.GetChat(ctx, principal, chatID); err != nil {
		return PageResult[models.Message]{}, err
	}
	query := s.db.WithContext(ctx).Model(&models.Message{}).Where("chat_id = ?", chatID)
	return paginate[models.Message](query, page, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Owner").Order("created_at DESC").Order("id DESC")
	})
}

// PostMessage appends a message written by authorID. The author must take
// part in the chat or be a superuser.
func (s *ChatService) PostMessage(ctx context.Context, chatID, authorID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.Validation("content", "message content is required")
	}

	var msg models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chat, err := s.loadChat(tx, chatID)
		if err != nil {
			return err
		}
		var author models.User
		if err := tx.First(&author, authorID).Error; err != nil {
			return notFoundAs(err, "user", authorID)
		}
		if !canAccess(chat, author.Principal()) {
			return apperrors.ErrNotChatMember
		}

		msg = models.Message{Content: content, OwnerID: author.ID, ChatID: chat.ID}
		if err := tx.Omit(clause.Associations).Create(&msg).Error; err != nil {
			return err
		}
		msg.Owner = author
		// Touch the chat so listings order by latest activity.
		return tx.Model(chat).Omit(clause.Associations).Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("message posted", "chat_id", chatID, "message_id", msg.ID, "owner_id", authorID)
	return &msg, nil
}

func (s *ChatService) DeleteChat(ctx context.Context, principal models.Principal, chatID uint) error {
	chat, err := s.GetChat(ctx, principal, chatID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(chat).Error; err != nil {
		return err
	}
	s.log.Info("chat deleted", "chat_id", chatID, "by", principal.ID)
	return nil
}

// DeleteMessage soft deletes a message. Authors may delete their own
// messages and superusers any message.
func (s *ChatService) DeleteMessage(ctx context.Context, principal models.Principal, chatID, messageID uint) error {
	if _, err := s.GetChat(ctx, principal, chatID); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	var msg models.Message
	if err := db.Where("chat_id = ?", chatID).First(&msg, messageID).Error; err != nil {
		return notFoundAs(err, "message", messageID)
	}
	if msg.OwnerID != principal.ID && !principal.IsSuperuser {
		return apperrors.Forbidden("you can only delete your own messages")
	}
	return db.Delete(&msg).Error
}
