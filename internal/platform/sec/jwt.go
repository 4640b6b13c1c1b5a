// Copyright (c) 2026 Trackly. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via narrow interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel verification failures.
//
// # Protocol Contract
//
// The distinction matters at the HTTP boundary: an expired access token maps
// to 401 (the client may attempt a refresh), while a malformed or
// wrongly-signed token maps to 403 (terminal for that credential).
var (
	// ErrTokenExpired is returned when a token verifies but is past expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenMalformed is returned when the signature or structure is invalid.
	ErrTokenMalformed = errors.New("sec: token malformed")
)

// AccessClaims represents the payload embedded inside a JWT Access Token.
//
// # Why custom claims?
//
// By embedding the UserID, Role, and Email directly inside the JWT, the
// authentication middleware can reconstruct the active user context WITHOUT
// querying the database on every single API request.
type AccessClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID string `json:"uid"`
	Role   string `json:"rol"`
	Email  string `json:"eml,omitempty"`
}

// RefreshClaims represents the payload embedded inside a JWT Refresh Token.
//
// It intentionally carries only the user identity: role and email must be
// re-read from the credential store when the token is exchanged, so a role
// change takes effect on the next refresh.
type RefreshClaims struct {
	jwt.RegisteredClaims

	UserID string `json:"uid"`
}

// TokenService issues and verifies HMAC-signed JWT tokens.
//
// Two separate signing secrets are held: one for short-lived access tokens
// and one for long-lived refresh tokens. A token signed with one secret can
// never verify under the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a new TokenService.
//
// A missing secret is a wiring mistake, not a runtime condition, so the
// constructor fails and startup must abort.
func NewTokenService(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" {
		return nil, errors.New("sec: access token signing secret is not configured")
	}
	if refreshSecret == "" {
		return nil, errors.New("sec: refresh token signing secret is not configured")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("sec: access and refresh signing secrets must differ")
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// IssueAccessToken creates a signed short-lived access token for a user.
func (service *TokenService) IssueAccessToken(userID string, role Role, email string) (string, error) {
	currentTime := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.accessTTL)),
		},
		UserID: userID,
		Role:   string(role),
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// IssueRefreshToken creates a signed long-lived refresh token for a user.
func (service *TokenService) IssueRefreshToken(userID string) (string, error) {
	currentTime := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.refreshTTL)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return signedToken, nil
}

// VerifyAccessToken checks the signature and validity of an access token.
//
// The embedded role is re-validated against the closed enum so a forged or
// legacy token can never smuggle an unknown role into the request context.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := service.verify(tokenString, service.accessSecret, claims); err != nil {
		return nil, err
	}
	if _, err := ParseRole(claims.Role); err != nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifyRefreshToken checks the signature and validity of a refresh token.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := service.verify(tokenString, service.refreshSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// verify parses a token against one specific secret and classifies failures.
func (service *TokenService) verify(tokenString string, secret []byte, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenMalformed
	}

	if !token.Valid {
		return ErrTokenMalformed
	}

	return nil
}

// DecodeAccessClaimsUnverified extracts claims WITHOUT verifying the signature.
//
// # Usage
//
// Client-side only: the realtime subscriber needs its own user id for display
// before the server has re-validated anything. Server code must never call
// this — verification is the server's job.
func DecodeAccessClaimsUnverified(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
