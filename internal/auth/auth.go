// Package auth validates the bearer credential presented at connection time
// and resolves it to a user identity. Authentication completes before any
// event is processed; no presence or status mutation happens here.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/guildhub/guildhub/internal/store"
)

// Authentication failure reasons.
var (
	ErrMissingToken = errors.New("missing authorization token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrUnknownUser  = errors.New("user no longer exists")
)

// UserSource resolves an authenticated user id to its identity record.
type UserSource interface {
	GetUser(id string) (*store.User, error)
}

// Authenticator validates HMAC-signed JWTs and resolves the user identity.
type Authenticator struct {
	secret []byte
	users  UserSource
}

// New creates an Authenticator with the given signing secret and user source.
func New(secret string, users UserSource) *Authenticator {
	return &Authenticator{secret: []byte(secret), users: users}
}

// Authenticate validates the token and returns the user it identifies.
func (a *Authenticator) Authenticate(tokenString string) (*store.User, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	user, err := a.users.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if user == nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}

// TokenFromRequest extracts the bearer token from the Authorization header
// or, for WebSocket upgrades, the "token" query parameter.
func TokenFromRequest(r *http.Request) string {
	bearerToken := r.Header.Get("Authorization")
	if strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimPrefix(bearerToken, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Sign mints a token for the given user id, valid for ttl. Used by the
// surrounding auth flow and by tests.
func Sign(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
