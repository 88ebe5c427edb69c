// Package services contains the backend's business logic. UserService
// handles accounts and sessions: sign-up, password sign-in, rotating
// refresh tokens and password recovery.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/dbx"
	"github.com/dmitrijs2005/socialhub/internal/logging"
	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/server/auth"
	"github.com/dmitrijs2005/socialhub/internal/server/config"
	smodels "github.com/dmitrijs2005/socialhub/internal/server/models"
	"github.com/dmitrijs2005/socialhub/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		logger:                       logger.With("module", "user_service"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// SignUp creates the account, its user_profiles record and a first
// session in one transaction. data is stored as user metadata and copied
// into the profile.
func (s *UserService) SignUp(ctx context.Context, email, password string, data map[string]any) (*models.AuthResponse, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", common.ErrInvalidCredentials)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password shorter than %d characters", common.ErrInvalidCredentials, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrInternal, err)
	}

	var session *models.Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &smodels.User{Email: email, PasswordHash: hash, Metadata: data})
		if err != nil {
			return err
		}

		now := s.now()
		profile := models.Record{}
		for k, v := range data {
			profile[k] = v
		}
		profile[common.FieldID] = user.ID
		profile["email"] = user.Email
		profile[common.FieldCreatedAt] = timestamp(now)

		records := s.repomanager.Records(tx)
		if _, err := records.Insert(ctx, common.CollectionProfiles, user.ID, profile); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if err := records.Notify(ctx, notice(common.CollectionProfiles, user.ID, models.EventInsert, now)); err != nil {
			return err
		}

		session, err = s.generateTokenPair(ctx, user, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user signed up", "user_id", session.User.ID)
	return &models.AuthResponse{User: session.User, Session: session}, nil
}

// SignInWithPassword verifies the credentials. Unknown emails and wrong
// passwords both yield common.ErrInvalidCredentials.
func (s *UserService) SignInWithPassword(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrInvalidCredentials
	}

	session, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: session.User, Session: session}, nil
}

// RefreshToken validates a refresh token and rotates it transactionally.
// Unknown, used and expired tokens yield common.ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrRefreshTokenExpired
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		if _, err := repo.Delete(ctx, refreshToken); err != nil {
			s.logger.Warn(ctx, "could not delete expired refresh token", "error", err)
		}
		return nil, common.ErrRefreshTokenExpired
	}

	var session *models.Session
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !deleted {
			// rotated concurrently
			return common.ErrRefreshTokenExpired
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		session, err = s.generateTokenPair(ctx, user, tx)
		return err
	}); err != nil {
		return nil, err
	}
	return session, nil
}

// SignOut revokes refreshToken. Unknown tokens are not an error.
func (s *UserService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if _, err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return err
	}
	return nil
}

// ResetPassword records a recovery token for the account. It succeeds for
// unknown emails too, so callers cannot probe which accounts exist.
func (s *UserService) ResetPassword(ctx context.Context, email string) error {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Debug(ctx, "password recovery for unknown email")
			return nil
		}
		return err
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInternal, err)
	}
	if err := repo.SetRecoveryToken(ctx, user.ID, token, s.now()); err != nil {
		return err
	}
	s.logger.Info(ctx, "password recovery requested", "user_id", user.ID)
	return nil
}

// GetUser returns the account of userID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}
	return apiUser(user), nil
}

// Authenticate resolves an access token to its user id.
func (s *UserService) Authenticate(accessToken string) (string, error) {
	return auth.GetUserIDFromToken(accessToken, s.jwtSecret)
}

// --- helpers below ---

func (s *UserService) generateTokenPair(ctx context.Context, user *smodels.User, tx dbx.DBTX) (*models.Session, error) {
	access, expires, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %w", common.ErrInternal, err)
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, s.now().Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, err
	}
	return &models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expires,
		User:         apiUser(user),
	}, nil
}

func apiUser(u *smodels.User) *models.User {
	return &models.User{ID: u.ID, Email: u.Email, Metadata: u.Metadata, CreatedAt: u.CreatedAt}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
