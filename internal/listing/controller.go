// Package listing drives a filtered, paginated view over a remote collection.
package listing

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/5w1tchy/library-client/internal/models"
)

// ErrSuperseded is returned by Load when the filter or page changed while the
// request was in flight. Its result was discarded.
var ErrSuperseded = errors.New("listing: superseded by a newer request")

// Criteria is a filter set. Its zero value means "no filters".
type Criteria interface {
	comparable
	Values() url.Values
}

// Loader fetches one 1-based page.
type Loader[F Criteria, T any] func(ctx context.Context, filter F, page, size int) (models.Page[T], error)

type Status int

const (
	Idle Status = iota
	Ready
	Empty
	Failed
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// View is what a front end renders. On Failed, Page still holds the last
// good page when there was one and Stale is set.
type View[F Criteria, T any] struct {
	Status     Status
	Page       models.Page[T]
	Err        error
	Stale      bool
	Filter     F
	PageNumber int
}

type Controller[F Criteria, T any] struct {
	mu     sync.Mutex
	load   Loader[F, T]
	filter F
	page   int
	size   int
	seq    uint64
	last   *models.Page[T]
	view   View[F, T]
}

func New[F Criteria, T any](size int, load Loader[F, T]) *Controller[F, T] {
	if size <= 0 {
		size = 10
	}
	c := &Controller[F, T]{load: load, page: 1, size: size}
	c.view = View[F, T]{Status: Idle, PageNumber: 1}
	return c
}

func (c *Controller[F, T]) Filter() F {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Page returns the current 1-based page number.
func (c *Controller[F, T]) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

func (c *Controller[F, T]) Size() int { return c.size }

// SetFilter replaces the filter. A changed filter always resets to page 1.
func (c *Controller[F, T]) SetFilter(f F) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == c.filter {
		return
	}
	c.filter = f
	c.page = 1
	c.seq++
}

// Clear restores the unfiltered first page.
func (c *Controller[F, T]) Clear() {
	var zero F
	c.SetFilter(zero)
	c.SetPage(1)
}

func (c *Controller[F, T]) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if n == c.page {
		return
	}
	c.page = n
	c.seq++
}

// Next advances when the last loaded envelope allows it.
func (c *Controller[F, T]) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil || !c.last.HasNextPage {
		return false
	}
	c.page++
	c.seq++
	return true
}

func (c *Controller[F, T]) Prev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page <= 1 || (c.last != nil && !c.last.HasPreviousPage) {
		return false
	}
	c.page--
	c.seq++
	return true
}

// View returns the last published view.
func (c *Controller[F, T]) View() View[F, T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Load fetches the active (filter, page). Only the latest request may publish:
// if the state moved on meanwhile, the result is dropped and ErrSuperseded is
// returned. A canceled ctx leaves the published view untouched.
func (c *Controller[F, T]) Load(ctx context.Context) (View[F, T], error) {
	for attempt := 0; ; attempt++ {
		c.mu.Lock()
		c.seq++
		seq, f, page := c.seq, c.filter, c.page
		c.mu.Unlock()

		pg, err := c.load(ctx, f, page, c.size)

		c.mu.Lock()
		if seq != c.seq {
			v := c.view
			c.mu.Unlock()
			return v, ErrSuperseded
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			v := c.view
			c.mu.Unlock()
			return v, ctxErr
		}
		if err != nil {
			c.view = View[F, T]{Status: Failed, Err: err, Filter: f, PageNumber: page}
			if c.last != nil {
				c.view.Page = *c.last
				c.view.Stale = true
			}
			v := c.view
			c.mu.Unlock()
			return v, err
		}
		// A page that emptied out (e.g. its last row was deleted) falls back
		// to the new last page once.
		if pg.Empty() && pg.TotalPages > 0 && page > pg.TotalPages && attempt == 0 {
			c.page = pg.TotalPages
			c.mu.Unlock()
			continue
		}
		c.last = &pg
		st := Ready
		if pg.Empty() {
			st = Empty
		}
		c.view = View[F, T]{Status: st, Page: pg, Filter: f, PageNumber: page}
		v := c.view
		c.mu.Unlock()
		return v, nil
	}
}
