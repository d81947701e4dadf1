package favorites

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/5w1tchy/library-client/internal/api/apperr"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/query"
	"github.com/5w1tchy/library-client/internal/store/shared"
)

type Service struct {
	d shared.Deps
}

func New(d shared.Deps) *Service { return &Service{d: d} }

func (s *Service) List(ctx context.Context, page, size int) (models.Page[models.Favorite], error) {
	pg, err := shared.Get[models.Page[models.Favorite]](ctx, s.d, query.Favorites, "mine", "/favorite", shared.Paged(nil, page, size))
	if err != nil {
		return pg, fmt.Errorf("favorites: list: %w", err)
	}
	return pg, nil
}

// Contains reports whether bookID is among the caller's favorites, walking
// every page of the cached list.
func (s *Service) Contains(ctx context.Context, bookID string) (bool, error) {
	for page := 1; ; page++ {
		pg, err := s.List(ctx, page, 50)
		if err != nil {
			return false, err
		}
		for _, f := range pg.Elements {
			if f.BookID == bookID || f.ID == bookID {
				return true, nil
			}
		}
		if !pg.HasNextPage {
			return false, nil
		}
	}
}

// Add is idempotent: a book that is already a favorite counts as success.
func (s *Service) Add(ctx context.Context, bookID string) error {
	err := s.d.API.Do(ctx, http.MethodPost, "/favorite/"+url.PathEscape(bookID), nil, nil, nil)
	if err != nil && !alreadyFavorite(err) {
		return fmt.Errorf("favorites: add %s: %w", bookID, err)
	}
	s.d.Cache.Mutated(ctx, query.FavoriteWrite)
	return nil
}

// Remove is idempotent: a missing favorite counts as removed.
func (s *Service) Remove(ctx context.Context, bookID string) error {
	err := s.d.API.Do(ctx, http.MethodDelete, "/favorite/"+url.PathEscape(bookID), nil, nil, nil)
	if err != nil && !apperr.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("favorites: remove %s: %w", bookID, err)
	}
	s.d.Cache.Mutated(ctx, query.FavoriteWrite)
	return nil
}

// Toggle flips the favorite state and returns the new one.
func (s *Service) Toggle(ctx context.Context, bookID string) (bool, error) {
	in, err := s.Contains(ctx, bookID)
	if err != nil {
		return false, err
	}
	if in {
		return false, s.Remove(ctx, bookID)
	}
	return true, s.Add(ctx, bookID)
}

func alreadyFavorite(err error) bool {
	re, ok := apperr.As(err)
	if !ok {
		return false
	}
	return re.Status == http.StatusConflict ||
		(re.Status == http.StatusBadRequest && strings.Contains(strings.ToLower(re.Message), "already"))
}
