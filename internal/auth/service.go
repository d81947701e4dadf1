// Package auth runs the sign-in, registration and sign-out flows against the
// backend and commits the result to the session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/5w1tchy/library-client/internal/api/client"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/query"
	"github.com/5w1tchy/library-client/internal/session"
	"github.com/5w1tchy/library-client/internal/store/shared"
	"github.com/5w1tchy/library-client/internal/validate"
)

var (
	ErrNotAuthenticated = errors.New("auth: credentials rejected")
	ErrSignedOut        = errors.New("auth: not signed in")
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResult struct {
	Token         string `json:"token"`
	Authenticated bool   `json:"authenticated"`
}

type Service struct {
	d     shared.Deps
	state *session.State
}

func New(d shared.Deps, state *session.State) *Service {
	return &Service{d: d, state: state}
}

// Login exchanges credentials for a token, loads the profile with it and only
// then commits the session, so a failed profile load leaves no half session.
func (s *Service) Login(ctx context.Context, username, password string) (models.User, error) {
	var v validate.Errors
	username = strings.TrimSpace(username)
	v.Required("username", username, "Username is required")
	v.Required("password", password, "Password is required")
	if err := v.Err(); err != nil {
		return models.User{}, err
	}

	var res loginResult
	if err := s.d.API.Do(ctx, http.MethodPost, "/auth", nil, loginRequest{username, password}, &res); err != nil {
		return models.User{}, fmt.Errorf("auth: login: %w", err)
	}
	if !res.Authenticated || res.Token == "" {
		return models.User{}, ErrNotAuthenticated
	}

	var me models.User
	if err := s.d.API.Do(client.WithToken(ctx, res.Token), http.MethodGet, "/users/getMyInfor", nil, nil, &me); err != nil {
		return models.User{}, fmt.Errorf("auth: load profile: %w", err)
	}
	if err := s.state.SignIn(ctx, res.Token, me); err != nil {
		return models.User{}, err
	}
	s.d.Cache.Mutated(ctx, query.SessionChange)
	return me, nil
}

// Register creates an account. It does not sign in.
func (s *Service) Register(ctx context.Context, f RegisterForm) (models.User, validate.Strength, error) {
	strength, err := f.Validate()
	if err != nil {
		return models.User{}, strength, err
	}
	var out models.User
	if err := s.d.API.Do(ctx, http.MethodPost, "/users", nil, f.RegisterInput, &out); err != nil {
		return models.User{}, strength, fmt.Errorf("auth: register: %w", err)
	}
	s.d.Cache.Mutated(ctx, query.UserWrite)
	return out, strength, nil
}

// Logout tells the backend to revoke the token and always clears the local
// session, even when that call fails.
func (s *Service) Logout(ctx context.Context) error {
	tok := s.state.Token()
	if tok != "" {
		body := map[string]string{"token": tok}
		if err := s.d.API.Do(ctx, http.MethodPost, "/auth/logout", nil, body, nil); err != nil {
			log.Printf("[auth] server logout failed: %v", err)
		}
	}
	err := s.state.SignOut(ctx)
	s.d.Cache.Mutated(ctx, query.SessionChange)
	return err
}

// Me returns the signed-in user's profile.
func (s *Service) Me(ctx context.Context) (models.User, error) {
	if !s.state.Authenticated() {
		return models.User{}, ErrSignedOut
	}
	return shared.Get[models.User](ctx, s.d, query.Me, "me", "/users/getMyInfor", nil)
}

// Unauthorized is the client's 401 hook: the token is no longer accepted.
func Unauthorized(state *session.State, cache *query.Client) func() {
	return func() {
		ctx := context.Background()
		if err := state.SignOut(ctx); err != nil {
			log.Printf("[auth] clear session: %v", err)
		}
		cache.Mutated(ctx, query.SessionChange)
	}
}
