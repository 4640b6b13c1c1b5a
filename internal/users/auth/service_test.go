// Copyright (c) 2026 Trackly. All rights reserved.

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackly/trackly/internal/platform/apperr"
	"github.com/trackly/trackly/internal/platform/sec"
	"github.com/trackly/trackly/internal/users/auth"
)

// countingThrottle counts hits in memory, mirroring the Redis fixed window.
type countingThrottle struct {
	counts map[string]int64
}

func (t *countingThrottle) Hit(_ context.Context, subject string) (int64, error) {
	if t.counts == nil {
		t.counts = make(map[string]int64)
	}
	t.counts[subject]++
	return t.counts[subject], nil
}

func newTestTokenService(t *testing.T) *sec.TokenService {
	t.Helper()
	tokenService, err := sec.NewTokenService(
		"access-secret-for-tests",
		"refresh-secret-for-tests",
		"trackly.test",
		15*time.Minute,
		7*24*time.Hour,
	)
	require.NoError(t, err)
	return tokenService
}

func newTestAuthService(t *testing.T) (*auth.Service, *auth.MemoryUserRepository, *sec.TokenService) {
	t.Helper()
	repo := auth.NewMemoryUserRepository()
	tokens := newTestTokenService(t)
	service := auth.NewService(repo, &countingThrottle{}, tokens, 4) // low bcrypt cost keeps tests fast
	return service, repo, tokens
}

func register(t *testing.T, service *auth.Service, email string) {
	t.Helper()
	_, err := service.Register(context.Background(), auth.RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "correct-horse",
	})
	require.NoError(t, err)
}

/*
TestService_Register verifies enrollment rules, in particular that a
duplicate email conflicts without touching the first account.
*/
func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds and defaults the role", func(t *testing.T) {
		service, repo, _ := newTestAuthService(t)

		user, err := service.Register(ctx, auth.RegisterInput{
			Name:     "Alice",
			Email:    "alice@trackly.test",
			Password: "correct-horse",
		})
		require.NoError(t, err)
		assert.Equal(t, sec.RoleUser, user.Role)
		assert.NotEmpty(t, user.ID)

		stored, err := repo.FindByEmail(ctx, "alice@trackly.test")
		require.NoError(t, err)

		// The password is stored hashed, never in the clear.
		assert.NotEqual(t, "correct-horse", stored.PasswordHash)
		assert.NotEmpty(t, stored.PasswordHash)
	})

	t.Run("duplicate email conflicts and keeps the original hash", func(t *testing.T) {
		service, repo, _ := newTestAuthService(t)
		register(t, service, "alice@trackly.test")

		original, err := repo.FindByEmail(ctx, "alice@trackly.test")
		require.NoError(t, err)

		_, err = service.Register(ctx, auth.RegisterInput{
			Name:     "Impostor",
			Email:    "alice@trackly.test",
			Password: "different-password",
		})

		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeConflict, appErr.Code)

		// First registration is untouched.
		after, err := repo.FindByEmail(ctx, "alice@trackly.test")
		require.NoError(t, err)
		assert.Equal(t, original.PasswordHash, after.PasswordHash)
	})

	t.Run("mixed-case duplicate email conflicts", func(t *testing.T) {
		service, repo, _ := newTestAuthService(t)
		register(t, service, "Alice@Trackly.Test")

		// The entity is folded to lowercase on write.
		stored, err := repo.FindByEmail(ctx, "alice@trackly.test")
		require.NoError(t, err)
		assert.Equal(t, "alice@trackly.test", stored.Email)

		// A differently-cased registration hits the same account.
		_, err = service.Register(ctx, auth.RegisterInput{
			Name:     "Impostor",
			Email:    "ALICE@TRACKLY.TEST",
			Password: "different-password",
		})
		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeConflict, appErr.Code)
	})

	t.Run("rejects short passwords and bad emails", func(t *testing.T) {
		service, _, _ := newTestAuthService(t)

		_, err := service.Register(ctx, auth.RegisterInput{
			Name:     "Alice",
			Email:    "not-an-email",
			Password: "short",
		})

		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeValidation, appErr.Code)

		// Both offending fields are reported.
		fields := make([]string, 0, len(appErr.Details))
		for _, detail := range appErr.Details {
			fields = append(fields, detail.Field)
		}
		assert.Contains(t, fields, auth.FieldEmail)
		assert.Contains(t, fields, auth.FieldPassword)
	})
}

/*
TestService_Login verifies credential checking and session establishment.
*/
func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues tokens and stores the refresh token", func(t *testing.T) {
		service, repo, tokens := newTestAuthService(t)
		register(t, service, "alice@trackly.test")

		session, err := service.Login(ctx, auth.LoginInput{
			Email:    "alice@trackly.test",
			Password: "correct-horse",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)

		// The issued access token verifies against the access secret.
		claims, err := tokens.VerifyAccessToken(session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, claims.UserID)

		// The refresh token is stored on the user record.
		stored, err := repo.FindByID(ctx, session.User.ID)
		require.NoError(t, err)
		assert.Equal(t, session.RefreshToken, stored.RefreshToken)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		service, _, _ := newTestAuthService(t)
		register(t, service, "alice@trackly.test")

		_, unknownErr := service.Login(ctx, auth.LoginInput{
			Email:    "nobody@trackly.test",
			Password: "correct-horse",
		})
		_, wrongErr := service.Login(ctx, auth.LoginInput{
			Email:    "alice@trackly.test",
			Password: "wrong-password",
		})

		require.Error(t, unknownErr)
		require.Error(t, wrongErr)
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
		assert.Equal(t, apperr.CodeUnauthorized, apperr.As(unknownErr).Code)
		assert.Equal(t, apperr.CodeUnauthorized, apperr.As(wrongErr).Code)
	})

	t.Run("throttles after the attempt limit", func(t *testing.T) {
		service, _, _ := newTestAuthService(t)
		register(t, service, "alice@trackly.test")

		var lastErr error
		for i := 0; i < auth.LoginAttemptLimit+1; i++ {
			_, lastErr = service.Login(ctx, auth.LoginInput{
				Email:    "alice@trackly.test",
				Password: "wrong-password",
			})
		}

		appErr := apperr.As(lastErr)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeRateLimited, appErr.Code)
	})

	t.Run("second login revokes the first session", func(t *testing.T) {
		service, _, _ := newTestAuthService(t)
		register(t, service, "alice@trackly.test")

		first, err := service.Login(ctx, auth.LoginInput{Email: "alice@trackly.test", Password: "correct-horse"})
		require.NoError(t, err)

		second, err := service.Login(ctx, auth.LoginInput{Email: "alice@trackly.test", Password: "correct-horse"})
		require.NoError(t, err)

		// The older refresh token still verifies cryptographically but no
		// longer matches the stored value.
		_, err = service.Refresh(ctx, first.RefreshToken)
		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)

		// The newer one works.
		accessToken, err := service.Refresh(ctx, second.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, accessToken)
	})
}

/*
TestService_Refresh verifies the exchange rules: wrong token class fails,
revoked tokens fail, and the refresh token itself is never rotated.
*/
func TestService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects an access token presented as a refresh token", func(t *testing.T) {
		service, _, _ := newTestAuthService(t)
		register(t, service, "alice@trackly.test")

		session, err := service.Login(ctx, auth.LoginInput{Email: "alice@trackly.test", Password: "correct-horse"})
		require.NoError(t, err)

		// The access token is signed with the other secret; class confusion
		// must always fail.
		_, err = service.Refresh(ctx, session.AccessToken)
		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		service, _, _ := newTestAuthService(t)

		_, err := service.Refresh(ctx, "not-a-jwt")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)
	})

	t.Run("does not rotate the refresh token", func(t *testing.T) {
		service, repo, _ := newTestAuthService(t)
		register(t, service, "alice@trackly.test")

		session, err := service.Login(ctx, auth.LoginInput{Email: "alice@trackly.test", Password: "correct-horse"})
		require.NoError(t, err)

		_, err = service.Refresh(ctx, session.RefreshToken)
		require.NoError(t, err)

		// Same token exchanges again; the stored value is unchanged.
		_, err = service.Refresh(ctx, session.RefreshToken)
		require.NoError(t, err)

		stored, err := repo.FindByID(ctx, session.User.ID)
		require.NoError(t, err)
		assert.Equal(t, session.RefreshToken, stored.RefreshToken)
	})
}

/*
TestService_Logout verifies revocation and idempotency.
*/
func TestService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh fails after logout", func(t *testing.T) {
		service, _, _ := newTestAuthService(t)
		register(t, service, "alice@trackly.test")

		session, err := service.Login(ctx, auth.LoginInput{Email: "alice@trackly.test", Password: "correct-horse"})
		require.NoError(t, err)

		require.NoError(t, service.Logout(ctx, session.RefreshToken))

		_, err = service.Refresh(ctx, session.RefreshToken)
		appErr := apperr.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)
	})

	t.Run("unknown token logs out successfully", func(t *testing.T) {
		service, _, _ := newTestAuthService(t)

		assert.NoError(t, service.Logout(ctx, "token-nobody-holds"))
	})
}
