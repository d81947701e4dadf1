// Package sandboxtest wires the client stack to a sandbox backend running on
// an httptest server.
package sandboxtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/5w1tchy/library-client/internal/api/client"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/query"
	"github.com/5w1tchy/library-client/internal/sandbox"
	"github.com/5w1tchy/library-client/internal/session"
	"github.com/5w1tchy/library-client/internal/store/shared"
)

// Clock is the default test "now": a Friday morning.
var Clock = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type Env struct {
	Backend *sandbox.Server
	HTTP    *httptest.Server
	API     *client.Client
	Cache   *query.Client
	Session *session.State
	Deps    shared.Deps

	unauthorized atomic.Int32
	now          atomic.Pointer[time.Time]
}

// New starts a seeded sandbox and a client stack that share one clock.
func New(t testing.TB) *Env {
	t.Helper()
	e := &Env{}
	e.SetNow(Clock)
	now := func() time.Time { return *e.now.Load() }

	e.Backend = sandbox.New(sandbox.Options{Secret: []byte("sandboxtest-secret-0123456789abc"), Now: now})
	e.HTTP = httptest.NewServer(e.Backend)
	t.Cleanup(e.HTTP.Close)

	e.Session = session.New(session.NewMemoryStore()).WithClock(now)
	e.Cache = query.New(query.NewMemoryStore())
	api, err := client.New(client.Options{
		BaseURL:    e.HTTP.URL + sandbox.Prefix + "/",
		HTTPClient: e.HTTP.Client(),
		Tokens:     e.Session,
		OnUnauthorized: func() {
			e.unauthorized.Add(1)
			ctx := context.Background()
			_ = e.Session.SignOut(ctx)
			e.Cache.Mutated(ctx, query.SessionChange)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	e.API = api
	e.Deps = shared.Deps{API: api, Cache: e.Cache, Scope: e.Session.UserID}
	return e
}

// SetNow moves the shared clock.
func (e *Env) SetNow(t time.Time) { e.now.Store(&t) }

func (e *Env) Now() time.Time { return *e.now.Load() }

// SignIn logs in directly against the backend and commits the session.
func (e *Env) SignIn(t testing.TB, username, password string) models.User {
	t.Helper()
	ctx := context.Background()
	var res struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := e.API.Do(ctx, http.MethodPost, "/auth", nil, body, &res); err != nil {
		t.Fatalf("sign in %s: %v", username, err)
	}
	var me models.User
	if err := e.API.Do(client.WithToken(ctx, res.Token), http.MethodGet, "/users/getMyInfor", nil, nil, &me); err != nil {
		t.Fatalf("profile %s: %v", username, err)
	}
	if err := e.Session.SignIn(ctx, res.Token, me); err != nil {
		t.Fatal(err)
	}
	e.Cache.Mutated(ctx, query.SessionChange)
	return me
}

// Unauthorized counts calls to the client's 401 hook.
func (e *Env) Unauthorized() int { return int(e.unauthorized.Load()) }
