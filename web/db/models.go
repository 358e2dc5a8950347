package db

import (
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        string `gorm:"primaryKey;size:36"` // uuid
	Email     string `gorm:"uniqueIndex;size:255;not null"`
	Password  string `gorm:"not null" json:"-"` // bcrypt hash
	Name      string `gorm:"size:120"`
	Role      Role   `gorm:"size:16;not null;default:student"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
