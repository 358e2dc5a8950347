package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"go-college/web/db"
	"go-college/web/middleware"
)

const bcryptCost = 10

type Auth struct {
	users  *db.Users
	secret string
	ttl    time.Duration
	log    *zap.Logger
}

func NewAuth(users *db.Users, secret string, ttl time.Duration, log *zap.Logger) *Auth {
	return &Auth{users: users, secret: secret, ttl: ttl, log: log}
}

type profile struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Role  db.Role `json:"role"`
}

func profileOf(u *db.User) profile {
	return profile{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(hash), err
}

type signupRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

func (a *Auth) Signup(c *gin.Context) {
	var body signupRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Name, a valid email and a password of at least 8 characters are required")
		return
	}

	hash, err := HashPassword(body.Password)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to hash password.")
		return
	}

	user := &db.User{Email: body.Email, Password: hash, Name: body.Name, Role: db.RoleStudent}
	if err := a.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			fail(c, http.StatusConflict, "Email already registered")
			return
		}
		a.log.Error("create user failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": profileOf(user)})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *Auth) Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Failed to read body")
		return
	}

	user, err := a.users.ByEmail(c.Request.Context(), body.Email)
	if err != nil && !errors.Is(err, db.ErrUserNotFound) {
		a.log.Error("load user failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)) != nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := middleware.IssueToken(a.secret, user, a.ttl, time.Now())
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to create token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": profileOf(user)})
}

func (a *Auth) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "user": profileOf(middleware.CurrentUser(c))})
}
