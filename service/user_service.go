package service

import (
	"context"
	"errors"
	"fmt"

	"campusride/pkg/apperr"
	"campusride/pkg/auth"
	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/storage"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgNotVerified        = "Account not verified by admin yet"
	msgNotUniversityEmail = "Must use university email (.edu)"
	msgDuplicateAccount   = "Username, email, or student ID already exists"
)

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (string, *models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (string, *models.UserProfile, error)
	Get(ctx context.Context, id int64) (*models.User, error)
}

type userService struct {
	users    storage.IUserStorage
	drivers  storage.IDriverStorage
	tokens   *auth.Issuer
	notifier AdminNotifier
	log      logger.ILogger
}

func NewUserService(stg storage.IStorage, opts Options, log logger.ILogger) UserService {
	return &userService{
		users:    stg.User(),
		drivers:  stg.Driver(),
		tokens:   opts.Tokens,
		notifier: opts.Notifier,
		log:      log,
	}
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (string, *models.User, error) {
	if err := validateRequest(req); err != nil {
		return "", nil, err
	}
	if !isUniversityEmail(req.Email) {
		return "", nil, apperr.Validation(msgNotUniversityEmail)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		StudentID:    req.StudentID,
		University:   req.University,
		Major:        req.Major,
		Phone:        req.Phone,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return "", nil, apperr.Conflict(msgDuplicateAccount)
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email, false)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	s.log.Info("student registered", logger.Int64("user_id", user.ID), logger.String("email", user.Email))
	s.notifier.StudentRegistered(user)
	return token, user, nil
}

// Login checks verification before the password so an unverified account
// is refused the same way whether or not the password is right.
func (s *userService) Login(ctx context.Context, req models.LoginRequest) (string, *models.UserProfile, error) {
	if err := validateRequest(req); err != nil {
		return "", nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return "", nil, apperr.Unauthorized(msgInvalidCredentials)
	}
	if !user.CanLogin() {
		return "", nil, apperr.Forbidden(msgNotVerified)
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return "", nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	app, err := s.drivers.GetByUserID(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("get driver application: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, models.NewUserProfile(user, app), nil
}

func (s *userService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}
