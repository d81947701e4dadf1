package session

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"

	"github.com/5w1tchy/library-client/internal/models"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-test-secret-test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestParseClaims(t *testing.T) {
	tests := []struct {
		name  string
		c     jwt.MapClaims
		admin bool
	}{
		{"scope", jwt.MapClaims{"sub": "admin", "scope": "ROLE_ADMIN ROLE_USER"}, true},
		{"role list", jwt.MapClaims{"sub": "u", "role": []string{"USER"}}, false},
		{"roles objects", jwt.MapClaims{"sub": "u", "roles": []map[string]string{{"name": "ADMIN"}}}, true},
		{"no roles", jwt.MapClaims{"sub": "u"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseClaims(token(t, tt.c))
			if err != nil {
				t.Fatal(err)
			}
			if c.HasRole(models.RoleAdmin) != tt.admin {
				t.Fatalf("roles=%v admin want %v", c.Roles, tt.admin)
			}
		})
	}
	if _, err := ParseClaims("not-a-jwt"); err == nil {
		t.Fatal("expected error")
	}
}

func TestStateSignInOut(t *testing.T) {
	store := NewMemoryStore()
	s := New(store).WithClock(func() time.Time { return now })

	var seen []Snapshot
	cancel := s.Subscribe(func(sn Snapshot) { seen = append(seen, sn) })
	defer cancel()

	tok := token(t, jwt.MapClaims{"sub": "an", "scope": "ROLE_USER", "exp": now.Add(time.Hour).Unix()})
	if err := s.SignIn(t.Context(), tok, models.User{ID: "u1", Username: "an", StudentCode: "SE170001"}); err != nil {
		t.Fatal(err)
	}
	if !s.Authenticated() || s.Token() != tok || s.UserID() != "u1" || s.IsAdmin() {
		t.Fatalf("unexpected state: %+v", s.Snapshot())
	}
	if c, ok, _ := store.Load(t.Context()); !ok || c.Token != tok || c.UserID != "u1" {
		t.Fatalf("not persisted: %+v", c)
	}

	if err := s.SignOut(t.Context()); err != nil {
		t.Fatal(err)
	}
	if s.Authenticated() || s.Token() != "" {
		t.Fatal("still authenticated after sign out")
	}
	if _, ok, _ := store.Load(t.Context()); ok {
		t.Fatal("credentials survived sign out")
	}
	if len(seen) != 2 || !seen[0].Authenticated || seen[1].Authenticated {
		t.Fatalf("notifications: %+v", seen)
	}
}

func TestExpiredTokenReadsAsSignedOut(t *testing.T) {
	clock := now
	s := New(nil).WithClock(func() time.Time { return clock })
	tok := token(t, jwt.MapClaims{"sub": "an", "exp": now.Add(time.Minute).Unix()})
	if err := s.SignIn(t.Context(), tok, models.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}
	clock = now.Add(2 * time.Minute)
	if s.Authenticated() || s.Token() != "" {
		t.Fatal("expired token still used")
	}
}

func TestRestore(t *testing.T) {
	store := NewMemoryStore()
	good := token(t, jwt.MapClaims{"sub": "an", "scope": "ROLE_ADMIN", "exp": now.Add(time.Hour).Unix()})
	_ = store.Save(t.Context(), Credentials{Token: good, UserID: "u1"})

	s := New(store).WithClock(func() time.Time { return now })
	if err := s.Restore(t.Context()); err != nil {
		t.Fatal(err)
	}
	if !s.IsAdmin() || s.UserID() != "u1" {
		t.Fatalf("restore failed: %+v", s.Snapshot())
	}

	expired := token(t, jwt.MapClaims{"sub": "an", "exp": now.Add(-time.Hour).Unix()})
	_ = store.Save(t.Context(), Credentials{Token: expired, UserID: "u1"})
	s2 := New(store).WithClock(func() time.Time { return now })
	if err := s2.Restore(t.Context()); err != nil {
		t.Fatal(err)
	}
	if s2.Authenticated() {
		t.Fatal("expired token restored")
	}
	if _, ok, _ := store.Load(t.Context()); ok {
		t.Fatal("expired credentials not cleared")
	}
}

func TestSQLStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := NewSQLStore(db, Postgres)
	saved := now
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO libctl_session (id, token, user_id, username, student_code, saved_at)
VALUES (1, $1, $2, $3, $4, $5)`)).
		WithArgs("tok", "u1", "an", "SE170001", saved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Save(t.Context(), Credentials{Token: "tok", UserID: "u1", Username: "an", StudentCode: "SE170001", SavedAt: saved})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLStoreLoadEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store := NewSQLStore(db, SQLite)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT token, user_id, username, student_code, saved_at FROM libctl_session WHERE id = 1`,
	)).WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "username", "student_code", "saved_at"}))

	_, ok, err := store.Load(t.Context())
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLStoreClear(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM libctl_session WHERE id = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := NewSQLStore(db, SQLite).Clear(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "session.db"))
	if err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED") {
			t.Skip("sqlite needs cgo")
		}
		t.Fatal(err)
	}
	defer s.Close()

	want := Credentials{Token: "tok", UserID: "u1", Username: "an", StudentCode: "SE170001", SavedAt: now}
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	want.Token = "tok2"
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got.Token != "tok2" || got.UserID != "u1" || !got.SavedAt.Equal(now) {
		t.Fatalf("got %+v", got)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Load(ctx); ok {
		t.Fatal("row survived clear")
	}
}
