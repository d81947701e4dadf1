package books

import (
	"bytes"
	"errors"
	"testing"

	"github.com/5w1tchy/library-client/internal/api/client"
	"github.com/5w1tchy/library-client/internal/listing"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/sandbox"
	"github.com/5w1tchy/library-client/internal/sandbox/sandboxtest"
	"github.com/5w1tchy/library-client/internal/validate"
)

var gif = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func TestIdenticalTupleIsACacheHit(t *testing.T) {
	env := sandboxtest.New(t)
	svc := New(env.Deps)
	ctx := t.Context()

	for range 2 {
		if _, err := svc.List(ctx, Filter{}, 1, 3); err != nil {
			t.Fatal(err)
		}
	}
	if got := env.Backend.Hits("GET /books"); got != 1 {
		t.Fatalf("hits=%d want 1", got)
	}
	if _, err := svc.List(ctx, Filter{}, 2, 3); err != nil {
		t.Fatal(err)
	}
	if got := env.Backend.Hits("GET /books"); got != 2 {
		t.Fatalf("another page must fetch: hits=%d", got)
	}
	// Spacing and case differences normalize to the same key.
	for _, g := range []string{"Fiction", " Fiction  "} {
		if _, err := svc.List(ctx, Filter{GenreName: g}, 1, 3); err != nil {
			t.Fatal(err)
		}
	}
	if got := env.Backend.Hits("GET /books/filter"); got != 1 {
		t.Fatalf("filter hits=%d want 1", got)
	}
}

func TestFictionFilterThroughController(t *testing.T) {
	env := sandboxtest.New(t)
	svc := New(env.Deps)
	ctx := t.Context()

	ctrl := listing.New[Filter, models.Book](2, svc.List)
	ctrl.SetFilter(Filter{GenreName: "Fiction"})
	v, err := ctrl.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != listing.Ready || v.Page.TotalItems != 5 || v.Page.TotalPages != 3 {
		t.Fatalf("view %+v", v)
	}
	for _, b := range v.Page.Elements {
		if !b.HasGenre("Fiction") {
			t.Fatalf("%s is not fiction", b.Title)
		}
	}

	if !ctrl.Next() {
		t.Fatal("next refused on first page")
	}
	if v, err = ctrl.Load(ctx); err != nil || v.PageNumber != 2 {
		t.Fatalf("page %d err %v", v.PageNumber, err)
	}
	p := listing.NewPager(v.Page)
	if p.Current != 1 || p.PrevDisabled || p.NextDisabled || len(p.Visible()) != 3 {
		t.Fatalf("pager %+v", p)
	}

	ctrl.SetFilter(Filter{GenreName: "Fiction", AuthorName: "Austen"})
	if ctrl.Page() != 1 {
		t.Fatalf("filter change kept page %d", ctrl.Page())
	}
	if v, err = ctrl.Load(ctx); err != nil || v.Page.TotalItems != 1 {
		t.Fatalf("view %+v err %v", v, err)
	}

	ctrl.SetFilter(Filter{Keyword: "no such book"})
	if v, err = ctrl.Load(ctx); err != nil || v.Status != listing.Empty {
		t.Fatalf("empty result: %+v err %v", v, err)
	}

	ctrl.Clear()
	if v, err = ctrl.Load(ctx); err != nil || v.PageNumber != 1 || v.Page.TotalItems != 6 {
		t.Fatalf("cleared view %+v err %v", v, err)
	}
}

func TestWritesInvalidateBookPages(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	svc := New(env.Deps)
	ctx := t.Context()

	before, err := svc.AdminList(ctx, AdminFilter{}, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	published := models.MustDate("1976-04-01")
	in := models.BookInput{
		Title: "Children of Dune", ISBN: "978-0-441-10402-4", Stock: 2, Status: models.BookActive,
		AuthorIDs: []string{"a1"}, GenreIDs: []string{"g1", "g2", "g1"},
		Description: "Paul's children inherit the empire.", PublicationDate: &published,
	}
	cover := client.File{Name: "cover.gif", ContentType: "image/gif", Body: bytes.NewReader(gif)}
	created, err := svc.Create(ctx, in, []client.File{cover})
	if err != nil {
		t.Fatal(err)
	}
	if len(created.Images) != 1 || len(created.Genres) != 2 || created.ISBN != "9780441104024" {
		t.Fatalf("created %+v", created)
	}

	after, err := svc.AdminList(ctx, AdminFilter{}, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if after.TotalItems != before.TotalItems+1 {
		t.Fatalf("list not refreshed: %d -> %d", before.TotalItems, after.TotalItems)
	}
	if got := env.Backend.Hits("GET /books/filterAdmin"); got != 2 {
		t.Fatalf("hits=%d", got)
	}

	// Update without new covers keeps the current one.
	in.Title = "Children of Dune (2nd ed.)"
	updated, err := svc.Update(ctx, created.ID, in, nil)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != in.Title || len(updated.Images) != 1 || updated.Cover() != created.Cover() {
		t.Fatalf("updated %+v", updated)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.BookSuspended || got.Available() {
		t.Fatalf("deleted book %+v", got)
	}
	suspended := models.BookSuspended
	pg, err := svc.AdminList(ctx, AdminFilter{Status: StatusFilter(&suspended)}, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if pg.TotalItems != 2 {
		t.Fatalf("suspended %d", pg.TotalItems)
	}
}

func TestValidateInputRunsBeforeNetwork(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	svc := New(env.Deps)
	published := models.MustDate("1965-08-01")
	valid := func() models.BookInput {
		return models.BookInput{
			Title: "Dune", ISBN: "9780441172719", Stock: 1, Status: models.BookActive,
			AuthorIDs: []string{"a1"}, GenreIDs: []string{"g2"},
			Description: "Spice.", PublicationDate: &published,
		}
	}

	tests := []struct {
		name   string
		edit   func(in *models.BookInput)
		fields []string
	}{
		{
			name: "everything wrong",
			edit: func(in *models.BookInput) {
				*in = models.BookInput{Title: "  ", ISBN: "12345", Stock: -1, Status: 3}
			},
			fields: []string{"title", "isbn", "stock", "status", "authorIds", "genreIds", "publicationDate", "description"},
		},
		{"missing isbn", func(in *models.BookInput) { in.ISBN = " " }, []string{"isbn"}},
		{"short isbn", func(in *models.BookInput) { in.ISBN = "978044117271" }, []string{"isbn"}},
		{"missing publication date", func(in *models.BookInput) { in.PublicationDate = nil }, []string{"publicationDate"}},
		{"blank description", func(in *models.BookInput) { in.Description = "\t " }, []string{"description"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.edit(&in)
			hits := env.Backend.TotalHits()
			_, err := svc.Create(t.Context(), in, nil)
			var verr *validate.Errors
			if !errors.As(err, &verr) {
				t.Fatalf("err=%v", err)
			}
			for _, f := range tt.fields {
				if !verr.Has(f) {
					t.Errorf("missing %s in %v", f, verr)
				}
			}
			if len(tt.fields) == 1 && len(verr.FieldErrors()) != 1 {
				t.Errorf("only %s should fail: %v", tt.fields[0], verr)
			}
			if env.Backend.TotalHits() != hits {
				t.Fatal("invalid input reached the backend")
			}
		})
	}

	in := valid()
	if err := ValidateInput(&in); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestRelatedAndZeroStock(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	svc := New(env.Deps)
	ctx := t.Context()

	dune, err := svc.Get(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	rel, err := svc.Related(ctx, dune, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rel) != 3 {
		t.Fatalf("related %d", len(rel))
	}
	for _, b := range rel {
		if b.ID == dune.ID {
			t.Fatal("related includes the book itself")
		}
	}

	zero, err := svc.ZeroStock(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if zero.TotalItems != 1 || zero.Elements[0].ID != "b6" {
		t.Fatalf("zero stock %+v", zero)
	}
	n, err := svc.Count(ctx)
	if err != nil || n != 6 {
		t.Fatalf("count %d err %v", n, err)
	}
}
