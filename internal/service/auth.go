package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercium-dev/storefront/internal/hash"
	"github.com/commercium-dev/storefront/internal/logging"
	"github.com/commercium-dev/storefront/internal/models"
	"github.com/commercium-dev/storefront/internal/repo"
	"github.com/commercium-dev/storefront/internal/tokens"
)

type AuthService struct {
	Repo     *repo.GormRepo
	Tokens   *tokens.Service
	Producer EventPublisher
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *AuthService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password required: %w", ErrValidation)
	}

	exists, err := s.Repo.UserExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: pwHash,
		Role:         "user",
		IsActive:     true,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	publish(ctx, s.Producer, TopicUserEvents, user.ID.String(), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password required: %w", ErrValidation)
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	res, err := s.issuePair(ctx, user, "")
	if err != nil {
		l.Error("login_failed", "error", err)
		return nil, err
	}

	publish(ctx, s.Producer, TopicUserEvents, user.ID.String(), map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
	})
	l.Info("login_successful", "user_id", user.ID)
	return res, nil
}

// Refresh rotates the pair. Identity claims are re-read from the user store
// rather than trusted from the 7-day-old token, so role changes and account
// disabling take effect at the next rotation. Every failure collapses to
// ErrTokenRefresh: the caller clears both cookies either way.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Tokens.VerifyRefreshToken(rawRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenRefresh, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrTokenRefresh)
	}

	user, err := s.Repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown user", ErrTokenRefresh)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrTokenRefresh)
	}

	res, err := s.issuePair(ctx, user, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh token reuse or revoked", "jti", claims.ID, "user_id", user.ID)
			return nil, fmt.Errorf("%w: token revoked", ErrTokenRefresh)
		}
		return nil, err
	}

	l.Info("token pair rotated", "user_id", user.ID)
	return res, nil
}

// issuePair signs a new access/refresh pair and records the refresh JTI.
// With oldJTI set the record replaces the previous one atomically.
func (s *AuthService) issuePair(ctx context.Context, user *models.User, oldJTI string) (*LoginResult, error) {
	now := s.Repo.Now()
	accessExp := now.Add(tokens.AccessTTL)
	refreshExp := now.Add(tokens.RefreshTTL)

	accessToken, err := s.Tokens.SignAccessToken(user.ID, user.Email, user.Role, user.Name, accessExp)
	if err != nil {
		return nil, err
	}

	refreshToken, jti, err := s.Tokens.SignRefreshToken(user.ID, refreshExp)
	if err != nil {
		return nil, err
	}

	row := models.RefreshToken{
		JTI:       jti,
		TokenHash: tokens.Sha256Hex(refreshToken),
		UserID:    user.ID,
		ExpiresAt: refreshExp.Unix(),
	}
	if oldJTI == "" {
		err = s.Repo.SaveRefreshToken(ctx, &row)
	} else {
		err = s.Repo.RotateRefreshToken(ctx, oldJTI, row)
	}
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Logout revokes the stored refresh token when one is presented. It never
// fails: the transport clears both cookies unconditionally.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) {
	if rawRefresh == "" {
		return
	}
	claims, err := s.Tokens.VerifyRefreshToken(rawRefresh)
	if err != nil {
		return
	}
	if err := s.Repo.RevokeRefreshToken(ctx, claims.ID); err != nil {
		logging.FromContext(ctx).Error("logout revoke error", "error", err)
	}
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.Repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	return user, nil
}
