// Copyright (c) 2026 Trackly. All rights reserved.

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackly/trackly/internal/platform/sec"
)

func newTokenService(t *testing.T, accessTTL time.Duration) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService("access-secret", "refresh-secret", "trackly.test", accessTTL, 24*time.Hour)
	require.NoError(t, err)
	return service
}

/*
TestNewTokenService verifies that missing or identical secrets are rejected
at construction time.
*/
func TestNewTokenService(t *testing.T) {
	testCases := []struct {
		name          string
		accessSecret  string
		refreshSecret string
	}{
		{name: "missing access secret", accessSecret: "", refreshSecret: "b"},
		{name: "missing refresh secret", accessSecret: "a", refreshSecret: ""},
		{name: "identical secrets", accessSecret: "same", refreshSecret: "same"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sec.NewTokenService(tc.accessSecret, tc.refreshSecret, "trackly.test", time.Minute, time.Hour)
			assert.Error(t, err)
		})
	}
}

/*
TestTokenService_RoundTrip verifies that issued tokens carry the expected
claims and verify under the matching secret.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newTokenService(t, 15*time.Minute)

	accessToken, err := service.IssueAccessToken("user-1", sec.RoleManager, "m@trackly.test")
	require.NoError(t, err)

	claims, err := service.VerifyAccessToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, string(sec.RoleManager), claims.Role)
	assert.Equal(t, "m@trackly.test", claims.Email)

	refreshToken, err := service.IssueRefreshToken("user-1")
	require.NoError(t, err)

	refreshClaims, err := service.VerifyRefreshToken(refreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
}

/*
TestTokenService_SecretsNotInterchangeable verifies the class separation: an
access token never verifies as a refresh token and vice versa.
*/
func TestTokenService_SecretsNotInterchangeable(t *testing.T) {
	service := newTokenService(t, 15*time.Minute)

	accessToken, err := service.IssueAccessToken("user-1", sec.RoleUser, "")
	require.NoError(t, err)
	refreshToken, err := service.IssueRefreshToken("user-1")
	require.NoError(t, err)

	_, err = service.VerifyRefreshToken(accessToken)
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)

	_, err = service.VerifyAccessToken(refreshToken)
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)
}

/*
TestTokenService_Expiry verifies that an expired token fails with the
distinct expiry sentinel, not the malformed one.
*/
func TestTokenService_Expiry(t *testing.T) {
	service := newTokenService(t, -time.Minute) // already expired at issue

	accessToken, err := service.IssueAccessToken("user-1", sec.RoleUser, "")
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(accessToken)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
}

/*
TestTokenService_TamperedToken verifies signature enforcement.
*/
func TestTokenService_TamperedToken(t *testing.T) {
	service := newTokenService(t, 15*time.Minute)

	// Same layout, different secret pair.
	otherService, err := sec.NewTokenService("other-access", "other-refresh", "trackly.test", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	foreign, err := otherService.IssueAccessToken("user-1", sec.RoleUser, "")
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(foreign)
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)

	_, err = service.VerifyAccessToken("garbage.token.value")
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)
}

/*
TestTokenService_UnknownRoleRejected verifies that a token minted with a role
outside the closed enum fails verification.
*/
func TestTokenService_UnknownRoleRejected(t *testing.T) {
	service := newTokenService(t, 15*time.Minute)

	token, err := service.IssueAccessToken("user-1", sec.Role("Superuser"), "")
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(token)
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)
}

/*
TestDecodeAccessClaimsUnverified verifies the client-side claim peek.
*/
func TestDecodeAccessClaimsUnverified(t *testing.T) {
	service := newTokenService(t, 15*time.Minute)

	token, err := service.IssueAccessToken("user-1", sec.RoleUser, "")
	require.NoError(t, err)

	claims, err := sec.DecodeAccessClaimsUnverified(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	_, err = sec.DecodeAccessClaimsUnverified("not-a-jwt")
	assert.Error(t, err)
}
