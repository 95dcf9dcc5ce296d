package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guildhub/guildhub/internal/store"
)

type fakeUsers map[string]*store.User

func (f fakeUsers) GetUser(id string) (*store.User, error) {
	return f[id], nil
}

const secret = "test-secret"

func TestAuthenticateValidToken(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Username: "alice"}}
	a := New(secret, users)

	token, err := Sign(secret, "u1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	user, err := a.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != "u1" || user.Username != "alice" {
		t.Errorf("got %+v", user)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Username: "alice"}}
	a := New(secret, users)

	expired, err := Sign(secret, "u1", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	wrongKey, err := Sign("other-secret", "u1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	ghost, err := Sign(secret, "deleted-user", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		desc  string
		token string
		want  error
	}{
		{"missing token", "", ErrMissingToken},
		{"garbage token", "not.a.jwt", ErrInvalidToken},
		{"expired token", expired, ErrExpiredToken},
		{"wrong signing key", wrongKey, ErrInvalidToken},
		{"user no longer exists", ghost, ErrUnknownUser},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := a.Authenticate(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer abc")
	if got := TokenFromRequest(r); got != "abc" {
		t.Errorf("header token = %q, want abc", got)
	}

	r = httptest.NewRequest("GET", "/ws?token=xyz", nil)
	if got := TokenFromRequest(r); got != "xyz" {
		t.Errorf("query token = %q, want xyz", got)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	if got := TokenFromRequest(r); got != "" {
		t.Errorf("token = %q, want empty", got)
	}
}
