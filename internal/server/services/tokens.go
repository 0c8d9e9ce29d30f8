package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/server/auth"
	"github.com/dmitrijs2005/axiomvault/internal/server/config"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/axiomvault/internal/timex"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer mints session credentials for an authenticated account.
type TokenIssuer interface {
	Issue(ctx context.Context, accountID string) (*TokenPair, error)
}

// TokenService issues JWT access tokens and server-stored refresh tokens,
// rotates refresh tokens and validates access tokens.
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	clock                        timex.Clock
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, clock timex.Clock) *TokenService {
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		clock:                        clock,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Issue mints a fresh pair for accountID.
func (s *TokenService) Issue(ctx context.Context, accountID string) (*TokenPair, error) {
	pair, err := s.generateTokenPair(ctx, accountID, s.db)
	if err != nil && !errors.Is(err, common.ErrorInternal) {
		return nil, transient(err)
	}
	return pair, err
}

// Refresh validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens are removed and yield
// ErrRefreshTokenExpired; unknown ones yield ErrInvalidToken.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)

		token, err := repo.Find(ctx, refreshToken)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !token.Expires.After(s.clock.Now()) {
			return nil
		}

		pair, err = s.generateTokenPair(ctx, token.UserID, tx)
		return err
	})

	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil, common.ErrInvalidToken
	case errors.Is(err, common.ErrorInternal):
		return nil, err
	case err != nil:
		return nil, transient(err)
	case pair == nil:
		return nil, common.ErrRefreshTokenExpired
	}
	return pair, nil
}

// Validate checks an access token and returns the account id it was issued for.
func (s *TokenService) Validate(accessToken string) (string, error) {
	return auth.GetUserIDFromToken(accessToken, s.jwtSecret, s.clock.Now())
}

func (s *TokenService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	now := s.clock.Now()

	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration, now)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, refresh, now.Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
