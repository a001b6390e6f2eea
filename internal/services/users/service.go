// Package users manages accounts and password login.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/utils"
	"github.com/xelth-com/cspsgo/internal/workflow"
	"gorm.io/gorm"
)

// Tokens is a freshly issued access/refresh pair
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserInput is the accepted shape of a new account
type UserInput struct {
	Username  string      `json:"username" validate:"required,min=3"`
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required,min=8"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Phone     string      `json:"phone"`
	Role      models.Role `json:"role" validate:"required,oneof=admin coordinator"`
}

// Service handles accounts
type Service struct {
	db     *database.DB
	secret string
	region string
	now    func() time.Time
	log    *logrus.Entry
}

// NewService creates a new user service
func NewService(db *database.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		secret: cfg.JWTSecret,
		region: cfg.DefaultRegion,
		now:    time.Now,
		log:    config.GetLogger().WithField("module", "users"),
	}
}

// Login checks the password of an active account and issues tokens.
// Unknown emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*models.UserAuth, *Tokens, error) {
	var user models.UserAuth
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.Internal("load user", err)
	}
	if err != nil || !utils.CheckPasswordHash(password, user.Password) {
		return nil, nil, apperr.Unauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, nil, apperr.Unauthorized("account is disabled")
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		s.log.WithError(err).WithField("userId", user.ID).Warn("Failed to record last login")
	}
	user.LastLogin = &now

	access, refresh, err := utils.GenerateTokens(&user, s.secret)
	if err != nil {
		return nil, nil, apperr.Internal("generate tokens", err)
	}

	s.log.WithField("userId", user.ID).Info("User logged in")
	return &user, &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// Authenticate resolves an access token to the active user it was issued to
func (s *Service) Authenticate(ctx context.Context, token string) (*models.UserAuth, error) {
	claims, err := utils.ValidateToken(token, s.secret)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	if typ, _ := claims["type"].(string); typ != "access" {
		return nil, apperr.Unauthorized("access token required")
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return nil, apperr.Unauthorized("invalid token")
	}

	var user models.UserAuth
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("unknown user")
		}
		return nil, apperr.Internal("load user", err)
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("account is disabled")
	}
	return &user, nil
}

// Create adds an account. Only the CLI bootstrap passes a nil actor.
func (s *Service) Create(ctx context.Context, actor *workflow.Actor, in UserInput) (*models.UserAuth, error) {
	if actor != nil {
		if err := workflow.Require(*actor, workflow.CapManageUsers); err != nil {
			return nil, err
		}
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	var taken int64
	err := s.db.WithContext(ctx).Model(&models.UserAuth{}).
		Where("username = ? OR email = ?", in.Username, in.Email).
		Count(&taken).Error
	if err != nil {
		return nil, apperr.Internal("check user", err)
	}
	if taken > 0 {
		return nil, apperr.Validation("username or email already in use")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	user := &models.UserAuth{
		Username:  in.Username,
		Email:     in.Email,
		Password:  hash,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     utils.NormalizePhone(in.Phone, s.region),
		Role:      in.Role,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperr.Internal("create user", err)
	}

	s.log.WithFields(logrus.Fields{"userId": user.ID, "role": user.Role}).Info("User created")
	return user, nil
}

// List returns every account, optionally restricted to one role
func (s *Service) List(ctx context.Context, actor workflow.Actor, role models.Role) ([]models.UserAuth, error) {
	if err := workflow.Require(actor, workflow.CapManageUsers); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Order("last_name, first_name, username")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.UserAuth
	if err := q.Find(&users).Error; err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return users, nil
}

// Get returns one account. Users may always read their own.
func (s *Service) Get(ctx context.Context, actor workflow.Actor, id string) (*models.UserAuth, error) {
	if actor.ID != id {
		if err := workflow.Require(actor, workflow.CapManageUsers); err != nil {
			return nil, err
		}
	}
	return s.find(ctx, "id = ?", id)
}

// FindByEmail looks up an account for command line tools
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.UserAuth, error) {
	return s.find(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) find(ctx context.Context, query string, arg string) (*models.UserAuth, error) {
	var user models.UserAuth
	if err := s.db.WithContext(ctx).First(&user, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal("load user", err)
	}
	return &user, nil
}
