package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/auth"
	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/repository"
	"github.com/RubachokBoss/classroom-assignments/internal/validation"
)

type UserService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	// SaveUser creates a user, or with overwrite set replaces the name,
	// position and password of the user holding the same email.
	SaveUser(ctx context.Context, req *models.CreateUserRequest, overwrite bool) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	logger   zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, tokens *auth.TokenManager, logger zerolog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := validation.ValidateLogin(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.CheckPassword(req.Password) != nil {
		s.logger.Warn().Str("email", req.Email).Msg("Failed login attempt")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("position", user.Position).Msg("User logged in")

	return &models.LoginResponse{AccessToken: token, User: *user}, nil
}

func (s *userService) SaveUser(ctx context.Context, req *models.CreateUserRequest, overwrite bool) (*models.User, error) {
	if err := validation.ValidateUser(req); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil && !overwrite {
		return nil, validation.New(validation.FieldError{Field: "email", Error: "email is already taken"})
	}

	now := time.Now().UTC()
	user := existing
	if user == nil {
		user = &models.User{ID: uuid.New().String(), Email: email, CreatedAt: now}
	}
	user.Name = req.Name
	user.Position = req.Position
	user.UpdatedAt = now
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if existing != nil {
		err = s.userRepo.Update(ctx, user)
	} else {
		err = s.userRepo.Create(ctx, user)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, validation.New(validation.FieldError{Field: "email", Error: "email is already taken"})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("position", user.Position).Msg("User saved")

	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return user, nil
}
