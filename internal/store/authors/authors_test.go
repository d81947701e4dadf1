package authors

import (
	"testing"

	"github.com/5w1tchy/library-client/internal/api/apperr"
	"github.com/5w1tchy/library-client/internal/sandbox"
	"github.com/5w1tchy/library-client/internal/sandbox/sandboxtest"
	"github.com/5w1tchy/library-client/internal/store/books"
)

func TestSearchFoldsAccents(t *testing.T) {
	env := sandboxtest.New(t)
	svc := New(env.Deps)

	tests := []struct {
		keyword string
		want    int
	}{
		{"nhat anh", 1},
		{"  Nguyễn  ", 1},
		{"j", 2},
		{"", 6},
		{"tolstoy", 0},
	}
	for _, tt := range tests {
		pg, err := svc.Search(t.Context(), tt.keyword, 1, 10)
		if err != nil {
			t.Fatal(err)
		}
		if pg.TotalItems != tt.want {
			t.Errorf("%q: got %d want %d", tt.keyword, pg.TotalItems, tt.want)
		}
	}
}

func TestRenameRefreshesBooks(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	svc, catalog := New(env.Deps), books.New(env.Deps)
	ctx := t.Context()

	if b, err := catalog.Get(ctx, "b1"); err != nil || b.Authors[0].Name != "Frank Herbert" {
		t.Fatalf("b1 %+v err %v", b, err)
	}
	if _, err := svc.Update(ctx, "a1", Input{Name: "Frank  Patrick Herbert"}); err != nil {
		t.Fatal(err)
	}
	b, err := catalog.Get(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if b.Authors[0].Name != "Frank Patrick Herbert" {
		t.Fatalf("stale author on book: %q", b.Authors[0].Name)
	}
}

func TestCreateDelete(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	svc := New(env.Deps)
	ctx := t.Context()

	if _, err := svc.Create(ctx, Input{Name: "   "}); err == nil || env.Backend.Hits("POST /author") != 0 {
		t.Fatalf("blank name: %v", err)
	}
	if _, err := svc.Create(ctx, Input{Name: "jane austen"}); apperr.Message(err) != "Author already exists" {
		t.Fatalf("duplicate: %v", err)
	}
	a, err := svc.Create(ctx, Input{Name: "Leo Tolstoy", Bio: "Russian novelist."})
	if err != nil {
		t.Fatal(err)
	}
	if pg, err := svc.Search(ctx, "tolstoy", 1, 10); err != nil || pg.TotalItems != 1 {
		t.Fatalf("search after create: %+v err %v", pg, err)
	}

	if err := svc.Delete(ctx, "a1"); err == nil {
		t.Fatal("deleted an author that still has books")
	}
	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, a.ID); err == nil {
		t.Fatal("deleted author still readable")
	}
}
