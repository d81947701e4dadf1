package genres

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

type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in *Input) Validate() error {
	var v validate.Errors
	in.Name = shared.Normalize(in.Name)
	in.Description = shared.Normalize(in.Description)
	if v.Required("name", in.Name, "Genre name is required") {
		v.Bounded("name", in.Name, 1, 100)
	}
	v.Bounded("description", in.Description, 0, 1000)
	return v.Err()
}

type Filter struct {
	Keyword string
}

func (f Filter) Values() url.Values { return url.Values{"keyword": {shared.Normalize(f.Keyword)}} }

type Service struct {
	d shared.Deps
}

func New(d shared.Deps) *Service { return &Service{d: d} }

func (s *Service) List(ctx context.Context, page, size int) (models.Page[models.Genre], error) {
	return s.page(ctx, "all", "/genres", nil, page, size)
}

func (s *Service) Search(ctx context.Context, keyword string, page, size int) (models.Page[models.Genre], error) {
	f := Filter{Keyword: keyword}
	if f.Values().Get("keyword") == "" {
		return s.List(ctx, page, size)
	}
	return s.page(ctx, "findByName", "/genres/findByName", f.Values(), page, size)
}

func (s *Service) Load(ctx context.Context, f Filter, page, size int) (models.Page[models.Genre], error) {
	return s.Search(ctx, f.Keyword, page, size)
}

func (s *Service) Get(ctx context.Context, id string) (models.Genre, error) {
	return shared.Get[models.Genre](ctx, s.d, query.Genres, "get", "/genres/"+url.PathEscape(id), nil)
}

func (s *Service) Create(ctx context.Context, in Input) (models.Genre, error) {
	var out models.Genre
	if err := in.Validate(); err != nil {
		return out, err
	}
	if err := s.d.API.Do(ctx, http.MethodPost, "/genres", nil, in, &out); err != nil {
		return out, fmt.Errorf("genres: create: %w", err)
	}
	s.d.Cache.Mutated(ctx, query.GenreWrite)
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (models.Genre, error) {
	var out models.Genre
	if err := in.Validate(); err != nil {
		return out, err
	}
	if err := s.d.API.Do(ctx, http.MethodPut, "/genres/"+url.PathEscape(id), nil, in, &out); err != nil {
		return out, fmt.Errorf("genres: update %s: %w", id, err)
	}
	s.d.Cache.Mutated(ctx, query.GenreWrite)
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.d.API.Do(ctx, http.MethodDelete, "/genres/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("genres: delete %s: %w", id, err)
	}
	s.d.Cache.Mutated(ctx, query.GenreWrite)
	return nil
}

func (s *Service) page(ctx context.Context, op, path string, q url.Values, page, size int) (models.Page[models.Genre], error) {
	pg, err := shared.Get[models.Page[models.Genre]](ctx, s.d, query.Genres, op, path, shared.Paged(q, page, size))
	if err != nil {
		return pg, fmt.Errorf("genres: %s: %w", op, err)
	}
	return pg, nil
}
