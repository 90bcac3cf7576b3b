package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Predefined service errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// FindByEmail finds a user by their email address.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID finds a user by their internal ID.
	FindByID(ctx context.Context, id string) (*User, error)

	// Create creates a new user.
	Create(ctx context.Context, user *User) error
}

// RefreshTokenRepository defines the interface for refresh token operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token.
	Create(ctx context.Context, token *RefreshToken) error

	// FindByToken finds a refresh token by its value.
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)

	// Revoke marks a refresh token as revoked.
	Revoke(ctx context.Context, token string) error

	// RevokeAllForUser revokes all refresh tokens for a user.
	RevokeAllForUser(ctx context.Context, userID string) error
}

// Service provides authentication operations.
type Service struct {
	jwtService  *JWTService
	userRepo    UserRepository
	refreshRepo RefreshTokenRepository
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService  *JWTService
	UserRepo    UserRepository
	RefreshRepo RefreshTokenRepository
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwtService:  cfg.JWTService,
		userRepo:    cfg.UserRepo,
		refreshRepo: cfg.RefreshRepo,
	}
}

// AuthenticateWithPassword verifies an email/password pair and returns
// API tokens. Unknown emails and wrong passwords both come back as
// ErrInvalidCredentials.
func (s *Service) AuthenticateWithPassword(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validation error: %s", errs[0].Message)
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}

	if err := VerifyPassword(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokens(ctx, user)
}

// Register creates a new user account and returns API tokens.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*TokenResponse, error) {
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &User{
		ID:           generateUserID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return s.generateTokens(ctx, user)
}

// RefreshAccessToken refreshes an access token using a refresh token.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshTokenStr string) (*TokenResponse, error) {
	refreshToken, err := s.refreshRepo.FindByToken(ctx, refreshTokenStr)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if refreshToken.RevokedAt != nil {
		return nil, ErrInvalidRefreshToken
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	// Rotation: the presented token is revoked before new ones are issued.
	if err := s.refreshRepo.Revoke(ctx, refreshTokenStr); err != nil {
		return nil, fmt.Errorf("revoking old refresh token: %w", err)
	}

	return s.generateTokens(ctx, user)
}

// ValidateAccessToken validates an access token and returns the user ID.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// RevokeRefreshToken revokes a specific refresh token.
func (s *Service) RevokeRefreshToken(ctx context.Context, refreshTokenStr string) error {
	return s.refreshRepo.Revoke(ctx, refreshTokenStr)
}

// RevokeAllTokens revokes all refresh tokens for a user (logout everywhere).
func (s *Service) RevokeAllTokens(ctx context.Context, userID string) error {
	return s.refreshRepo.RevokeAllForUser(ctx, userID)
}

// generateTokens generates both access and refresh tokens for a user.
func (s *Service) generateTokens(ctx context.Context, user *User) (*TokenResponse, error) {
	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	refreshTokenStr, err := GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	refreshToken := &RefreshToken{
		ID:        uuid.New().String(),
		Token:     refreshTokenStr,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(RefreshTokenExpiry),
		CreatedAt: time.Now(),
	}

	if err := s.refreshRepo.Create(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(expiresAt).Seconds()),
		RefreshToken: refreshTokenStr,
		User:         user,
	}, nil
}

// generateUserID generates a unique user ID with prefix.
func generateUserID() string {
	return "usr_" + uuid.New().String()[:22]
}
