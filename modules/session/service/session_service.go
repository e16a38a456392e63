package service

import (
	"context"
	"time"

	"household-api/core/errors"
	"household-api/core/logger"
	"household-api/core/utils"
)

// TokenRevoker is the part of the cache logout needs.
type TokenRevoker interface {
	AddToTokenBlacklist(ctx context.Context, token string, ttl time.Duration) error
}

type SessionServiceInterface interface {
	Logout(ctx context.Context, token string, claims *utils.TokenClaims) *errors.AppError
}

type SessionService struct {
	revoker TokenRevoker
	now     func() time.Time
}

func NewSessionService(revoker TokenRevoker) *SessionService {
	return &SessionService{revoker: revoker, now: time.Now}
}

// Logout blacklists the token until it would have expired anyway.
func (s *SessionService) Logout(ctx context.Context, token string, claims *utils.TokenClaims) *errors.AppError {
	ttl := time.Minute
	if claims != nil && claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.revoker.AddToTokenBlacklist(ctx, token, ttl); err != nil {
		logger.Error("SessionService:Logout - blacklist", err)
		return errors.NewAppError(errors.ErrInternalServer, "failed to revoke token", err)
	}
	if claims != nil {
		logger.Info("SessionService:Logout", "user_id", claims.UserID)
	}
	return nil
}
