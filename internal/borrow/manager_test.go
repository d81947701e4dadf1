package borrow

import (
	"errors"
	"testing"

	"github.com/5w1tchy/library-client/internal/api/apperr"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/sandbox"
	"github.com/5w1tchy/library-client/internal/sandbox/sandboxtest"
	"github.com/5w1tchy/library-client/internal/validate"
)

func TestCreateIsAllOrNothing(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.StudentUsername, sandbox.StudentPassword)
	m := NewManager(env.Deps).WithClock(env.Now)
	actor := Actor{StudentCode: sandbox.StudentCode}

	env.Backend.SetStock("b1", 0)
	before, _ := env.Backend.Book("b2")
	req := CreateRequest{StudentCode: sandbox.StudentCode, DueDate: models.MustDate("2026-10-30"), BookIDs: []string{"b1", "b2"}}

	_, err := m.Create(t.Context(), req, actor)
	if err == nil {
		t.Fatal("expected out of stock error")
	}
	if got := apperr.Message(err); got != "Out of stock: Dune" {
		t.Fatalf("message %q", got)
	}
	if after, _ := env.Backend.Book("b2"); after.Stock != before.Stock {
		t.Fatalf("b2 stock changed %d -> %d", before.Stock, after.Stock)
	}

	env.Backend.SetStock("b1", 2)
	b, err := m.Create(t.Context(), req, actor)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != models.StatusBorrowed || len(b.Books) != 2 || b.BorrowDate != models.Today(env.Now()) {
		t.Fatalf("borrow %+v", b)
	}
	mine, err := m.Mine(t.Context(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if mine.TotalItems != 1 || mine.Elements[0].ID != b.ID {
		t.Fatalf("mine %+v", mine)
	}
}

func TestGuardsRunBeforeNetwork(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.StudentUsername, sandbox.StudentPassword)
	m := NewManager(env.Deps).WithClock(env.Now)
	hits := env.Backend.TotalHits()

	_, err := m.Create(t.Context(), CreateRequest{DueDate: models.MustDate("2026-10-30")}, Actor{StudentCode: sandbox.StudentCode})
	var verr *validate.Errors
	if !errors.As(err, &verr) || !verr.Has("bookIds") {
		t.Fatalf("err=%v", err)
	}

	open := models.Borrow{ID: "br1", DueDate: models.MustDate("2026-10-12"), Status: models.StatusOverdue}
	if err := m.Renew(t.Context(), open, models.MustDate("2026-10-11")); err == nil {
		t.Fatal("renewal before the due date accepted")
	}
	returned := open
	returned.ReturnDate = &open.DueDate
	if _, err := m.Return(t.Context(), returned); err == nil {
		t.Fatal("returned loan accepted for return")
	}

	if got := env.Backend.TotalHits(); got != hits {
		t.Fatalf("guards hit the network: %d -> %d", hits, got)
	}
}

func TestReturnRefreshesList(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	m := NewManager(env.Deps).WithClock(env.Now)
	ctx := t.Context()

	list, err := m.List(ctx, Filter{}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if list.TotalItems != 1 || Phase(list.Elements[0], env.Now()) != models.StatusOverdue {
		t.Fatalf("list %+v", list)
	}
	if _, err := m.List(ctx, Filter{}, 1, 10); err != nil {
		t.Fatal(err)
	}
	if got := env.Backend.Hits("GET /borrowings"); got != 1 {
		t.Fatalf("second identical list hit the network: %d", got)
	}

	out, err := m.Return(ctx, list.Elements[0])
	if err != nil {
		t.Fatal(err)
	}
	if !out.Returned() || out.FinalAmount.String() != "20000" {
		t.Fatalf("returned %+v", out)
	}

	list, err = m.List(ctx, Filter{}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got := env.Backend.Hits("GET /borrowings"); got != 2 {
		t.Fatalf("list after return was served from cache: %d", got)
	}
	if Phase(list.Elements[0], env.Now()) != models.StatusReturned || Label(list.Elements[0].Status) == "" {
		t.Fatalf("list %+v", list.Elements[0])
	}
}

func TestRenewAcceptsCurrentDueDate(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.OtherUsername, sandbox.OtherPassword)
	m := NewManager(env.Deps).WithClock(env.Now)

	b, err := m.Get(t.Context(), "br1")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Renew(t.Context(), b, MinRenewalDate(b)); err != nil {
		t.Fatalf("renew to the current due date: %v", err)
	}
	if err := m.Renew(t.Context(), b, models.MustDate("2026-10-23")); err != nil {
		t.Fatal(err)
	}
	b, err = m.Get(t.Context(), "br1")
	if err != nil {
		t.Fatal(err)
	}
	if b.DueDate != models.MustDate("2026-10-23") || Phase(b, env.Now()) != models.StatusBorrowed {
		t.Fatalf("after renew %+v", b)
	}
}

func TestFilterAndCounts(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	m := NewManager(env.Deps).WithClock(env.Now)

	pg, err := m.List(t.Context(), Filter{Name: "binh"}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if pg.TotalItems != 1 {
		t.Fatalf("by name %+v", pg)
	}
	pg, err = m.List(t.Context(), Filter{Name: "nobody"}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !pg.Empty() {
		t.Fatalf("expected empty page, got %+v", pg)
	}

	c, err := m.Counts(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if c.Borrowed != 1 || c.Overdue != 1 {
		t.Fatalf("counts %+v", c)
	}
	overdue, err := m.Overdue(t.Context(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if overdue.TotalItems != 1 || overdue.Elements[0].User.StudentCode != sandbox.OtherCode {
		t.Fatalf("overdue %+v", overdue)
	}
}

// Renewing an overdue loan moves it back to borrowed, so cached counts must go.
func TestRenewRefreshesCounts(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	m := NewManager(env.Deps).WithClock(env.Now)

	c, err := m.Counts(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if c.Overdue != 1 {
		t.Fatalf("before renew %+v", c)
	}
	b, err := m.Get(t.Context(), "br1")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Renew(t.Context(), b, models.MustDate("2026-10-30")); err != nil {
		t.Fatal(err)
	}
	c, err = m.Counts(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if c.Overdue != 0 || c.Borrowed != 1 {
		t.Fatalf("after renew %+v", c)
	}
}
