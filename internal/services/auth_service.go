// file: internal/services/auth_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"platewise/internal/config"
	"platewise/internal/events"
	"platewise/internal/models"
	"platewise/internal/repositories"
	"platewise/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// authService implements AuthService with bcrypt password hashing and
// HS256 JWTs
type authService struct {
	userRepo repositories.UserRepository
	badges   BadgeService
	events   events.EventBus
	cfg      config.AuthConfig
	logger   *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo repositories.UserRepository,
	badges BadgeService,
	eventBus events.EventBus,
	cfg config.AuthConfig,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo: userRepo,
		badges:   badges,
		events:   eventBus,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register creates a new account and initializes its badge progress
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid registration request", err)
	}
	if len(req.Password) < s.cfg.MinPasswordLength {
		return nil, NewValidationError(
			fmt.Sprintf("password must be at least %d characters", s.cfg.MinPasswordLength), nil)
	}

	if existing, _ := s.userRepo.GetByEmail(ctx, req.Email); existing != nil {
		return nil, EntityAlreadyExistsError("user", "email", req.Email)
	}
	if existing, _ := s.userRepo.GetByUsername(ctx, req.Username); existing != nil {
		return nil, EntityAlreadyExistsError("user", "username", req.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BCryptCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, NewInternalError("failed to process password")
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		DietaryTags:  req.DietaryTags,
		Role:         "user",
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, EntityAlreadyExistsError("user", "email", req.Email)
		}
		s.logger.Error("Failed to create user", zap.Error(err), zap.String("email", req.Email))
		return nil, NewInternalError("failed to create user")
	}

	// A fresh account starts tracking every active badge. Failure here
	// never fails the registration; init is repeatable.
	if _, err := s.badges.InitializeProgress(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to initialize badge progress for new user",
			zap.Error(err), zap.Int64("user_id", user.ID))
	}

	if err := s.events.Publish(ctx, events.NewUserRegisteredEvent(user.ID, user.Email, user.Username)); err != nil {
		s.logger.Warn("Failed to publish user registered event", zap.Error(err))
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
	)

	user.PasswordHash = ""
	return s.issueToken(user)
}

// Login authenticates an existing account
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid login request", err)
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewUnauthorizedError("invalid email or password")
		}
		s.logger.Error("Failed to load user for login", zap.Error(err))
		return nil, NewInternalError("failed to authenticate")
	}
	if !user.IsActive {
		return nil, NewUnauthorizedError("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewUnauthorizedError("invalid email or password")
	}

	if err := s.userRepo.UpdateLastSeen(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to update last seen", zap.Error(err), zap.Int64("user_id", user.ID))
	}

	if err := s.events.Publish(ctx, events.NewUserLoggedInEvent(user.ID, req.IPAddress)); err != nil {
		s.logger.Warn("Failed to publish login event", zap.Error(err))
	}

	user.PasswordHash = ""
	return s.issueToken(user)
}

// ValidateToken verifies a JWT and extracts its identity claims
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, NewUnauthorizedError("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, NewUnauthorizedError("invalid token claims")
	}

	userID, ok := claims["sub"].(float64)
	if !ok || userID <= 0 {
		return nil, NewUnauthorizedError("invalid token subject")
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)

	return &TokenClaims{
		UserID:   int64(userID),
		Username: username,
		Role:     role,
	}, nil
}

// issueToken signs a fresh HS256 JWT for the user
func (s *authService) issueToken(user *models.User) (*AuthResponse, error) {
	expiresAt := time.Now().Add(s.cfg.JWTExpiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"iat":      time.Now().Unix(),
		"exp":      expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err), zap.Int64("user_id", user.ID))
		return nil, NewInternalError("failed to issue token")
	}

	return &AuthResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
