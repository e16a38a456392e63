package service

import (
	"context"
	"testing"
	"time"

	"household-api/core/errors"
	"household-api/core/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRevoker struct {
	token string
	ttl   time.Duration
	err   error
}

func (r *recordingRevoker) AddToTokenBlacklist(_ context.Context, token string, ttl time.Duration) error {
	if r.err != nil {
		return r.err
	}
	r.token, r.ttl = token, ttl
	return nil
}

var logoutNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func claimsExpiringAt(at time.Time) *utils.TokenClaims {
	return &utils.TokenClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(at)}}
}

func newTestService(r *recordingRevoker) *SessionService {
	svc := NewSessionService(r)
	svc.now = func() time.Time { return logoutNow }
	return svc
}

func TestLogout_BlacklistsForRemainingLifetime(t *testing.T) {
	r := &recordingRevoker{}
	appErr := newTestService(r).Logout(context.Background(), "tok", claimsExpiringAt(logoutNow.Add(45*time.Minute)))
	require.Nil(t, appErr)
	assert.Equal(t, "tok", r.token)
	assert.Equal(t, 45*time.Minute, r.ttl)
}

func TestLogout_ExpiredTokenIsNoop(t *testing.T) {
	r := &recordingRevoker{}
	appErr := newTestService(r).Logout(context.Background(), "tok", claimsExpiringAt(logoutNow.Add(-time.Second)))
	require.Nil(t, appErr)
	assert.Empty(t, r.token)
}

func TestLogout_NoExpiryUsesDefault(t *testing.T) {
	r := &recordingRevoker{}
	require.Nil(t, newTestService(r).Logout(context.Background(), "tok", nil))
	assert.Equal(t, time.Minute, r.ttl)
}

func TestLogout_CacheFailure(t *testing.T) {
	r := &recordingRevoker{err: errors.New("redis down")}
	appErr := newTestService(r).Logout(context.Background(), "tok", claimsExpiringAt(logoutNow.Add(time.Hour)))
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInternalServer, appErr.Code)
}
