// Package stats backs the admin dashboard tiles.
package stats

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/5w1tchy/library-client/internal/query"
	"github.com/5w1tchy/library-client/internal/store/shared"
)

type Dashboard struct {
	Books    int `json:"books" yaml:"books"`
	Borrowed int `json:"borrowed" yaml:"borrowed"`
	Overdue  int `json:"overdue" yaml:"overdue"`
}

type Service struct {
	d shared.Deps
}

func New(d shared.Deps) *Service { return &Service{d: d} }

// Dashboard fetches the three counters concurrently.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	g, ctx := errgroup.WithContext(ctx)
	count := func(dst *int, path string) func() error {
		return func() error {
			n, err := shared.Get[int](ctx, s.d, query.Stats, "count", path, nil)
			if err != nil {
				return fmt.Errorf("stats: %s: %w", path, err)
			}
			*dst = n
			return nil
		}
	}
	g.Go(count(&out.Books, "/books/countBook"))
	g.Go(count(&out.Borrowed, "/borrowings/countBorrow"))
	g.Go(count(&out.Overdue, "/borrowings/countOverdue"))
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}
