// handlers/auth_handlers.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"thelook/api/middleware"
	"thelook/api/models"
	"thelook/api/store"
)

// UserRepository is the part of store.UserStore the auth handlers need.
type UserRepository interface {
	CreateUser(ctx context.Context, email string, hashedPassword []byte) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Generate(user *models.User) (string, error)
}

type AuthHandlers struct {
	Users        UserRepository
	Tokens       TokenIssuer
	logger       *logrus.Logger
	cookieTTL    time.Duration
	secureCookie bool
}

func NewAuthHandlers(users UserRepository, tokens TokenIssuer, secureCookie bool, logger *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		Users:        users,
		Tokens:       tokens,
		logger:       logger,
		cookieTTL:    24 * time.Hour,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	_, err := h.Users.GetUserByEmail(c.Request.Context(), req.Email)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		h.logger.WithError(err).Error("Database error during signup email check")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check user existence"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user, err := h.Users.CreateUser(c.Request.Context(), req.Email, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		h.logger.WithError(err).Error("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_email": user.Email})
}

// Login checks the credentials and sets the jwt_token cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.Users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.WithError(err).WithField("email", req.Email).Info("Login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		h.logger.WithField("email", req.Email).Info("Login failed: password mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := h.Tokens.Generate(user)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to generate JWT")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(
		middleware.TokenCookie,
		tokenString,
		int(h.cookieTTL/time.Second),
		"/",
		"",
		h.secureCookie,
		true,
	)

	h.logger.WithField("user_id", user.ID).Info("User logged in")
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user_email": user.Email,
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Profile echoes the authenticated identity.
func (h *AuthHandlers) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":    c.GetInt(middleware.ContextUserID),
		"user_email": c.GetString(middleware.ContextUserEmail),
		"ip_address": c.ClientIP(),
	})
}
