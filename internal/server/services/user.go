// Package services contains server-side business logic. This file implements
// UserService: registration, login, request authentication, and the
// refresh-token rotation lifecycle.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vettta06/devteam-ai/internal/common"
	"github.com/vettta06/devteam-ai/internal/dbx"
	"github.com/vettta06/devteam-ai/internal/server/auth"
	"github.com/vettta06/devteam-ai/internal/server/config"
	"github.com/vettta06/devteam-ai/internal/server/models"
	"github.com/vettta06/devteam-ai/internal/server/repositories/repomanager"
	"github.com/vettta06/devteam-ai/internal/server/security"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService owns the session-token lifecycle and user account operations:
//   - Register / ConfirmEmail: account creation
//   - Login: verify credentials and mint a token pair
//   - Authenticate: validate an access token and load its user
//   - Refresh: single-use refresh-token rotation
//   - Logout: refresh-token revocation
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a new user with a hashed password and a fresh email
// confirmation token. A taken email yields common.ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      hash,
		IsActive:          true,
		ConfirmationToken: uuid.NewString(),
	}

	repo := s.repomanager.Users(s.db)
	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Login verifies the credentials and, on success, mints and persists a new
// token pair. Unknown email and wrong password return the same error so the
// response cannot be used to probe which accounts exist.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	ok, err := security.CheckPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, common.ErrorUnauthorized
	}

	return s.generateTokenPair(ctx, user.ID, s.db)
}

// Authenticate validates an access token and loads the user it names. Every
// protected operation passes through here. Any failure, including a token for
// a user that no longer exists, yields common.ErrorUnauthenticated.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret, auth.TokenAccess)
	if err != nil {
		return nil, common.ErrorUnauthenticated
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// Refresh rotates a refresh token: verify, burn the stored record, mint and
// persist a new pair, all inside one transaction so a crash can never leave
// two live tokens for one lineage. A token that is forged, expired, or already
// consumed fails identically with common.ErrorUnauthenticated.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := auth.GetUserIDFromToken(refreshToken, s.jwtSecret, auth.TokenRefresh)
	if err != nil {
		return nil, common.ErrorUnauthenticated
	}

	repo := s.repomanager.RefreshTokens(s.db)

	record, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// never issued or already rotated; both are rejected the same way
			return nil, common.ErrorUnauthenticated
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if record.UserID != userID {
		return nil, common.ErrorUnauthenticated
	}

	if record.Expires.Before(time.Now()) {
		// bound store growth: the record can never become valid again
		_ = repo.Delete(ctx, refreshToken)
		return nil, common.ErrorUnauthenticated
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Consume reports whether this transaction removed the row; a
		// concurrent rotation that lost the race gets ErrorNotFound here and
		// never mints a second pair.
		if err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthenticated
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, record.UserID, tx)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes a refresh token. Deleting an absent, expired, or already
// consumed token is a no-op, so calling Logout twice never fails.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	return s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
}

// ConfirmEmail activates the account matching the confirmation token and
// clears the token.
func (s *UserService) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByConfirmationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	user.IsActive = true
	user.ConfirmationToken = ""
	if err := repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail returns the user registered under email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByEmail(ctx, email)
}

// UpdateProfileParams carries optional profile changes; nil fields are left
// untouched.
type UpdateProfileParams struct {
	Email    *string
	Password *string
}

// UpdateProfile applies the given changes to the user's own account.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if params.Email != nil {
		user.Email = *params.Email
	}
	if params.Password != nil {
		hash, err := security.HashPassword(*params.Password)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns a page of users. Intended for admin use; the authorization
// check lives at the HTTP layer.
func (s *UserService) List(ctx context.Context, skip, limit int) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx, skip, limit)
}

// Delete removes a user by id. Their tasks and refresh tokens go with them
// via foreign keys.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	return s.repomanager.Users(s.db).Delete(ctx, userID)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, auth.TokenAccess, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refresh, err := auth.GenerateToken(userID, auth.TokenRefresh, s.jwtSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	expiresAt := time.Now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, refresh, expiresAt); err != nil {
		if errors.Is(err, common.ErrDuplicateToken) {
			return nil, err
		}
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
