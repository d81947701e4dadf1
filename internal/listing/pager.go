package listing

import (
	"context"
	"iter"

	"github.com/5w1tchy/library-client/internal/models"
)

const maxPlainPages = 5

// Pager is the page-navigation state derived from an envelope. Pages are
// zero-based, as in the envelope.
type Pager struct {
	Current      int
	Total        int
	PrevDisabled bool
	NextDisabled bool
}

// Item is one slot of the visible window: a page or a gap.
type Item struct {
	Page    int
	Gap     bool
	Current bool
}

func NewPager[T any](p models.Page[T]) Pager {
	cur := p.CurrentPage
	if cur > p.TotalPages-1 {
		cur = p.TotalPages - 1
	}
	if cur < 0 {
		cur = 0
	}
	return Pager{
		Current:      cur,
		Total:        p.TotalPages,
		PrevDisabled: !p.HasPreviousPage,
		NextDisabled: !p.HasNextPage,
	}
}

// Visible lists the page slots to show: every page when there are at most
// five, otherwise the first and last pages plus a window near the current one.
func (p Pager) Visible() []Item {
	var pages []int
	last := p.Total - 1
	switch {
	case p.Total <= maxPlainPages:
		for i := 0; i < p.Total; i++ {
			pages = append(pages, i)
		}
	case p.Current <= 2:
		pages = []int{0, 1, 2, -1, last}
	case p.Current >= p.Total-3:
		pages = []int{0, -1, last - 2, last - 1, last}
	default:
		pages = []int{0, -1, p.Current, -1, last}
	}
	items := make([]Item, len(pages))
	for i, n := range pages {
		if n < 0 {
			items[i] = Item{Gap: true}
			continue
		}
		items[i] = Item{Page: n, Current: n == p.Current}
	}
	return items
}

// Walk yields every page of filter starting at page 1 until the envelope
// reports no next page. It stops at the first error, yielding it.
func Walk[F Criteria, T any](ctx context.Context, load Loader[F, T], filter F, size int) iter.Seq2[models.Page[T], error] {
	return func(yield func(models.Page[T], error) bool) {
		for page := 1; ; page++ {
			pg, err := load(ctx, filter, page, size)
			if err != nil {
				yield(models.Page[T]{}, err)
				return
			}
			if !yield(pg, nil) || !pg.HasNextPage {
				return
			}
		}
	}
}

// All collects every element across pages.
func All[F Criteria, T any](ctx context.Context, load Loader[F, T], filter F, size int) ([]T, error) {
	var out []T
	for pg, err := range Walk(ctx, load, filter, size) {
		if err != nil {
			return out, err
		}
		out = append(out, pg.Elements...)
	}
	return out, nil
}
