package models

import (
	"time"

	"gorm.io/gorm"
)

// Timestamped is embedded by every soft-deletable entity. gorm excludes rows
// with a non-null DeletedAt from ordinary reads; Unscoped reads see them.
type Timestamped struct {
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (t Timestamped) IsDeleted() bool {
	return t.DeletedAt.Valid
}

// DeletedOnly restricts a query to soft-deleted rows.
func DeletedOnly(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Where("deleted_at IS NOT NULL")
}
