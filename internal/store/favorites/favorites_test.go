package favorites

import (
	"testing"

	"github.com/5w1tchy/library-client/internal/sandbox"
	"github.com/5w1tchy/library-client/internal/sandbox/sandboxtest"
)

func TestAddRemoveAreIdempotent(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.StudentUsername, sandbox.StudentPassword)
	svc := New(env.Deps)
	ctx := t.Context()

	for range 2 {
		if err := svc.Add(ctx, "b1"); err != nil {
			t.Fatal(err)
		}
	}
	pg, err := svc.List(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if pg.TotalItems != 1 || pg.Elements[0].BookID != "b1" || pg.Elements[0].Title != "Dune" {
		t.Fatalf("favorites %+v", pg)
	}

	for range 2 {
		if err := svc.Remove(ctx, "b1"); err != nil {
			t.Fatal(err)
		}
	}
	pg, err = svc.List(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !pg.Empty() {
		t.Fatalf("after remove %+v", pg)
	}
	if got := env.Backend.Hits("GET /favorite"); got != 2 {
		t.Fatalf("list hits=%d, writes must invalidate", got)
	}
}

func TestToggle(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.StudentUsername, sandbox.StudentPassword)
	svc := New(env.Deps)
	ctx := t.Context()

	for i, want := range []bool{true, false, true} {
		got, err := svc.Toggle(ctx, "b3")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("toggle %d: got %v want %v", i, got, want)
		}
		in, err := svc.Contains(ctx, "b3")
		if err != nil || in != want {
			t.Fatalf("contains after toggle %d: %v err %v", i, in, err)
		}
	}
}

func TestUnknownBookFails(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.StudentUsername, sandbox.StudentPassword)
	if err := New(env.Deps).Add(t.Context(), "nope"); err == nil {
		t.Fatal("expected not found")
	}
}

func TestFavoritesAreScopedToUser(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.StudentUsername, sandbox.StudentPassword)
	svc := New(env.Deps)
	ctx := t.Context()
	if err := svc.Add(ctx, "b4"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.List(ctx, 1, 10); err != nil {
		t.Fatal(err)
	}

	env.SignIn(t, sandbox.OtherUsername, sandbox.OtherPassword)
	pg, err := svc.List(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !pg.Empty() {
		t.Fatalf("saw another user's favorites: %+v", pg)
	}
}
