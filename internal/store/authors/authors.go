package authors

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/query"
	"github.com/5w1tchy/library-client/internal/store/shared"
	"github.com/5w1tchy/library-client/internal/validate"
)

// Input is the body of author create/update.
type Input struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

func (in *Input) Validate() error {
	var v validate.Errors
	in.Name = shared.Normalize(in.Name)
	in.Bio = shared.Normalize(in.Bio)
	if v.Required("name", in.Name, "Author name is required") {
		v.Bounded("name", in.Name, 1, 100)
	}
	v.Bounded("bio", in.Bio, 0, 2000)
	return v.Err()
}

// Filter narrows the author list by name.
type Filter struct {
	Keyword string
}

func (f Filter) Values() url.Values { return url.Values{"keyword": {shared.Normalize(f.Keyword)}} }

type Service struct {
	d shared.Deps
}

func New(d shared.Deps) *Service { return &Service{d: d} }

func (s *Service) List(ctx context.Context, page, size int) (models.Page[models.Author], error) {
	return s.page(ctx, "all", "/author", nil, page, size)
}

// Search matches authors by name; a blank keyword lists everyone.
func (s *Service) Search(ctx context.Context, keyword string, page, size int) (models.Page[models.Author], error) {
	f := Filter{Keyword: keyword}
	if f.Values().Get("keyword") == "" {
		return s.List(ctx, page, size)
	}
	return s.page(ctx, "findByName", "/author/findByName", f.Values(), page, size)
}

// Load adapts Search to a listing.Controller.
func (s *Service) Load(ctx context.Context, f Filter, page, size int) (models.Page[models.Author], error) {
	return s.Search(ctx, f.Keyword, page, size)
}

func (s *Service) Get(ctx context.Context, id string) (models.Author, error) {
	return shared.Get[models.Author](ctx, s.d, query.Authors, "get", "/author/"+url.PathEscape(id), nil)
}

func (s *Service) Create(ctx context.Context, in Input) (models.Author, error) {
	var out models.Author
	if err := in.Validate(); err != nil {
		return out, err
	}
	if err := s.d.API.Do(ctx, http.MethodPost, "/author", nil, in, &out); err != nil {
		return out, fmt.Errorf("authors: create: %w", err)
	}
	s.d.Cache.Mutated(ctx, query.AuthorWrite)
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (models.Author, error) {
	var out models.Author
	if err := in.Validate(); err != nil {
		return out, err
	}
	if err := s.d.API.Do(ctx, http.MethodPut, "/author/"+url.PathEscape(id), nil, in, &out); err != nil {
		return out, fmt.Errorf("authors: update %s: %w", id, err)
	}
	s.d.Cache.Mutated(ctx, query.AuthorWrite)
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.d.API.Do(ctx, http.MethodDelete, "/author/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("authors: delete %s: %w", id, err)
	}
	s.d.Cache.Mutated(ctx, query.AuthorWrite)
	return nil
}

func (s *Service) page(ctx context.Context, op, path string, q url.Values, page, size int) (models.Page[models.Author], error) {
	pg, err := shared.Get[models.Page[models.Author]](ctx, s.d, query.Authors, op, path, shared.Paged(q, page, size))
	if err != nil {
		return pg, fmt.Errorf("authors: %s: %w", op, err)
	}
	return pg, nil
}
