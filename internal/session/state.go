// Package session holds who is signed in. State has one writer path
// (SignIn/SignOut/Restore) and any number of readers.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/5w1tchy/library-client/internal/models"
)

// Snapshot is an immutable view of the session handed to subscribers.
type Snapshot struct {
	Authenticated bool
	UserID        string
	Username      string
	StudentCode   string
	Admin         bool
}

type State struct {
	mu     sync.RWMutex
	store  CredentialStore
	cred   Credentials
	claims Claims
	now    func() time.Time

	subMu sync.Mutex
	subs  map[int]func(Snapshot)
	next  int
}

func New(store CredentialStore) *State {
	if store == nil {
		store = NewMemoryStore()
	}
	return &State{store: store, now: time.Now, subs: make(map[int]func(Snapshot))}
}

// WithClock replaces the clock used for expiry checks.
func (s *State) WithClock(now func() time.Time) *State {
	s.now = now
	return s
}

// Restore loads persisted credentials. An unreadable or expired token is
// discarded and the session starts signed out.
func (s *State) Restore(ctx context.Context) error {
	c, ok, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if !ok || c.Token == "" {
		return nil
	}
	claims, err := ParseClaims(c.Token)
	if err != nil || claims.Expired(s.now()) {
		log.Printf("[session] discarding stored token: expired or unreadable")
		return s.store.Clear(ctx)
	}
	s.mu.Lock()
	s.cred, s.claims = c, claims
	s.mu.Unlock()
	s.notify()
	return nil
}

// SignIn replaces the session and persists it.
func (s *State) SignIn(ctx context.Context, token string, u models.User) error {
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}
	c := Credentials{
		Token:       token,
		UserID:      u.ID,
		Username:    u.Username,
		StudentCode: u.StudentCode,
		SavedAt:     s.now().UTC(),
	}
	if c.UserID == "" {
		c.UserID = claims.Subject
	}
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("session: persist: %w", err)
	}
	s.mu.Lock()
	s.cred, s.claims = c, claims
	s.mu.Unlock()
	s.notify()
	return nil
}

// SignOut clears memory first so readers stop sending the token even if the
// store fails.
func (s *State) SignOut(ctx context.Context) error {
	s.mu.Lock()
	was := s.cred.Token != ""
	s.cred, s.claims = Credentials{}, Claims{}
	s.mu.Unlock()
	err := s.store.Clear(ctx)
	if was {
		s.notify()
	}
	return err
}

// Token implements client.TokenSource. An expired token reads as "".
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred.Token == "" || s.claims.Expired(s.now()) {
		return ""
	}
	return s.cred.Token
}

func (s *State) Authenticated() bool { return s.Token() != "" }

func (s *State) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.UserID
}

func (s *State) Claims() Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

func (s *State) IsAdmin() bool {
	return s.Authenticated() && s.Claims().HasRole(models.RoleAdmin)
}

func (s *State) Snapshot() Snapshot {
	auth := s.Authenticated()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !auth {
		return Snapshot{}
	}
	return Snapshot{
		Authenticated: true,
		UserID:        s.cred.UserID,
		Username:      s.cred.Username,
		StudentCode:   s.cred.StudentCode,
		Admin:         s.claims.HasRole(models.RoleAdmin),
	}
}

// Subscribe registers fn for session changes and returns its cancel func.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *State) notify() {
	snap := s.Snapshot()
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
