package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *Users) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = RoleStudent
	}
	err := u.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (u *Users) ByID(ctx context.Context, id string) (*User, error) {
	return u.first(ctx, "id = ?", id)
}

func (u *Users) ByEmail(ctx context.Context, email string) (*User, error) {
	return u.first(ctx, "email = ?", NormalizeEmail(email))
}

func (u *Users) first(ctx context.Context, query string, arg string) (*User, error) {
	var user User
	err := u.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// SetRole promotes or demotes an existing user.
func (u *Users) SetRole(ctx context.Context, id string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	res := u.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("update role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Email satisfies the receipt notifier's address lookup.
func (u *Users) Email(ctx context.Context, id string) (string, error) {
	user, err := u.ByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
