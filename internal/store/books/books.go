// Package books is the catalog service: public browse, admin filters and the
// multipart create/update contract.
package books

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/5w1tchy/library-client/internal/api/client"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/query"
	"github.com/5w1tchy/library-client/internal/store/shared"
	"github.com/5w1tchy/library-client/internal/validate"
)

const (
	metaField  = "books"
	imageField = "images"
)

// Filter is the public catalog search.
type Filter struct {
	Keyword    string
	AuthorName string
	GenreName  string
}

func (f Filter) Values() url.Values {
	return url.Values{
		"keyword":    {shared.Normalize(f.Keyword)},
		"authorName": {shared.Normalize(f.AuthorName)},
		"genreName":  {shared.Normalize(f.GenreName)},
	}
}

// AdminFilter adds status and ISBN. Status is "", "0" or "1" so the struct stays comparable.
type AdminFilter struct {
	Keyword    string
	AuthorName string
	GenreName  string
	Status     string
	ISBN       string
}

func (f AdminFilter) Values() url.Values {
	q := Filter{Keyword: f.Keyword, AuthorName: f.AuthorName, GenreName: f.GenreName}.Values()
	q.Set("status", f.Status)
	q.Set("isbn", shared.Normalize(f.ISBN))
	return q
}

// StatusFilter renders an optional status for AdminFilter.
func StatusFilter(s *models.BookStatus) string {
	if s == nil {
		return ""
	}
	return strconv.Itoa(int(*s))
}

type Service struct {
	d shared.Deps
}

func New(d shared.Deps) *Service { return &Service{d: d} }

// List browses the catalog. An empty filter uses the plain listing.
func (s *Service) List(ctx context.Context, f Filter, page, size int) (models.Page[models.Book], error) {
	if len(client.Clean(f.Values())) == 0 {
		return s.page(ctx, "all", "/books", nil, page, size)
	}
	return s.page(ctx, "filter", "/books/filter", f.Values(), page, size)
}

func (s *Service) AdminList(ctx context.Context, f AdminFilter, page, size int) (models.Page[models.Book], error) {
	return s.page(ctx, "filterAdmin", "/books/filterAdmin", f.Values(), page, size)
}

// ByGenre lists books sharing a genre, used for "related books".
func (s *Service) ByGenre(ctx context.Context, genre string, page, size int) (models.Page[models.Book], error) {
	q := url.Values{"genreName": {shared.Normalize(genre)}}
	return s.page(ctx, "byGenre", "/books/getBookWithGenre", q, page, size)
}

// Related lists other books in b's first genre, excluding b.
func (s *Service) Related(ctx context.Context, b models.Book, size int) ([]models.Book, error) {
	if len(b.Genres) == 0 {
		return nil, nil
	}
	pg, err := s.ByGenre(ctx, b.Genres[0].Name, 1, size+1)
	if err != nil {
		return nil, err
	}
	out := make([]models.Book, 0, len(pg.Elements))
	for _, x := range pg.Elements {
		if x.ID != b.ID && len(out) < size {
			out = append(out, x)
		}
	}
	return out, nil
}

func (s *Service) ZeroStock(ctx context.Context, page, size int) (models.Page[models.Book], error) {
	return s.page(ctx, "zeroStock", "/books/getAllBookZeroStock", nil, page, size)
}

func (s *Service) Get(ctx context.Context, id string) (models.Book, error) {
	return shared.Get[models.Book](ctx, s.d, query.Books, "get", "/books/"+url.PathEscape(id), nil)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return shared.Get[int](ctx, s.d, query.Stats, "countBook", "/books/countBook", nil)
}

// Create uploads a new book with its cover images.
func (s *Service) Create(ctx context.Context, in models.BookInput, images []client.File) (models.Book, error) {
	var out models.Book
	if err := ValidateInput(&in); err != nil {
		return out, err
	}
	form := client.Form{JSONField: metaField, Meta: in, FileField: imageField, Files: images}
	if err := s.d.API.Multipart(ctx, http.MethodPost, "/books", form, &out); err != nil {
		return out, fmt.Errorf("books: create: %w", err)
	}
	s.d.Cache.Mutated(ctx, query.BookWrite)
	return out, nil
}

// Update replaces a book. With no new images an empty images part is sent,
// which the backend reads as "keep the current covers".
func (s *Service) Update(ctx context.Context, id string, in models.BookInput, images []client.File) (models.Book, error) {
	var out models.Book
	if err := ValidateInput(&in); err != nil {
		return out, err
	}
	form := client.Form{JSONField: metaField, Meta: in, FileField: imageField, Files: images, RequireFiles: true}
	if err := s.d.API.Multipart(ctx, http.MethodPut, "/books/"+url.PathEscape(id), form, &out); err != nil {
		return out, fmt.Errorf("books: update %s: %w", id, err)
	}
	s.d.Cache.Mutated(ctx, query.BookWrite)
	return out, nil
}

// Delete suspends a book (soft delete).
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.d.API.Do(ctx, http.MethodDelete, "/books/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("books: delete %s: %w", id, err)
	}
	s.d.Cache.Mutated(ctx, query.BookWrite)
	return nil
}

// ValidateInput normalizes in and reports every field problem.
func ValidateInput(in *models.BookInput) error {
	var v validate.Errors
	in.Title = shared.Normalize(in.Title)
	in.AuthorIDs = validate.DedupIDs(in.AuthorIDs)
	in.GenreIDs = validate.DedupIDs(in.GenreIDs)
	if v.Required("title", in.Title, "Title is required") {
		v.Bounded("title", in.Title, 1, 255)
	}
	in.Description = strings.TrimSpace(in.Description)
	if v.Required("isbn", in.ISBN, "ISBN is required") {
		v.Check(validate.ISBN(in.ISBN), "isbn", "pattern", "ISBN must be 13 digits")
	}
	v.Check(in.PublicationDate != nil, "publicationDate", "required", "Publication date is required")
	v.Required("description", in.Description, "Description is required")
	v.Check(in.Stock >= 0, "stock", "min", "Stock cannot be negative")
	v.Check(in.Status == models.BookActive || in.Status == models.BookSuspended, "status", "enum", "Status must be 0 or 1")
	v.Check(len(in.AuthorIDs) > 0, "authorIds", "required", "Choose at least one author")
	v.Check(len(in.GenreIDs) > 0, "genreIds", "required", "Choose at least one genre")
	return v.Err()
}

func (s *Service) page(ctx context.Context, op, path string, q url.Values, page, size int) (models.Page[models.Book], error) {
	pg, err := shared.Get[models.Page[models.Book]](ctx, s.d, query.Books, op, path, shared.Paged(q, page, size))
	if err != nil {
		return pg, fmt.Errorf("books: %s: %w", op, err)
	}
	return pg, nil
}
