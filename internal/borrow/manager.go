package borrow

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/query"
	"github.com/5w1tchy/library-client/internal/store/shared"
)

// Filter is the admin borrow search. OrderID matches the borrow id.
type Filter struct {
	OrderID    string
	Name       string
	BorrowDate models.Date
}

func (f Filter) Values() url.Values {
	q := url.Values{}
	q.Set("id", shared.Normalize(f.OrderID))
	q.Set("name", shared.Normalize(f.Name))
	if !f.BorrowDate.IsZero() {
		q.Set("borrowDate", f.BorrowDate.String())
	}
	return q
}

type Counts struct {
	Borrowed int `json:"borrowed"`
	Overdue  int `json:"overdue"`
}

// Manager runs borrow operations against the backend. Guards run before any
// request; successful writes only invalidate cached reads.
type Manager struct {
	d   shared.Deps
	now func() time.Time
}

func NewManager(d shared.Deps) *Manager {
	return &Manager{d: d, now: time.Now}
}

// WithClock swaps the clock used for date guards.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Create(ctx context.Context, req CreateRequest, actor Actor) (models.Borrow, error) {
	var out models.Borrow
	if err := req.Validate(m.now(), actor); err != nil {
		return out, err
	}
	if err := m.d.API.Do(ctx, http.MethodPost, "/borrowings", nil, req.Input(), &out); err != nil {
		return out, fmt.Errorf("borrow: create: %w", err)
	}
	m.d.Cache.Mutated(ctx, query.BorrowCreate)
	return out, nil
}

// Return closes b. The server sets the return date and any fine.
func (m *Manager) Return(ctx context.Context, b models.Borrow) (models.Borrow, error) {
	var out models.Borrow
	if err := ValidateReturn(b); err != nil {
		return out, err
	}
	if err := m.d.API.Do(ctx, http.MethodPut, "/borrowings/"+url.PathEscape(b.ID), nil, nil, &out); err != nil {
		return out, fmt.Errorf("borrow: return %s: %w", b.ID, err)
	}
	m.d.Cache.Mutated(ctx, query.BorrowReturn)
	return out, nil
}

func (m *Manager) Renew(ctx context.Context, b models.Borrow, newDue models.Date) error {
	if err := ValidateRenewal(b, newDue); err != nil {
		return err
	}
	body := models.RenewInput{NewDueDate: newDue}
	if err := m.d.API.Do(ctx, http.MethodPut, "/borrowings/extends/"+url.PathEscape(b.ID), nil, body, nil); err != nil {
		return fmt.Errorf("borrow: renew %s: %w", b.ID, err)
	}
	m.d.Cache.Mutated(ctx, query.BorrowRenew)
	return nil
}

func (m *Manager) Get(ctx context.Context, id string) (models.Borrow, error) {
	return shared.Get[models.Borrow](ctx, m.d, query.Borrows, "get", "/borrowings/"+url.PathEscape(id), nil)
}

// List is the admin search over all borrows. An empty filter lists everything.
func (m *Manager) List(ctx context.Context, f Filter, page, size int) (models.Page[models.Borrow], error) {
	if f == (Filter{}) {
		return m.page(ctx, "all", "/borrowings", nil, page, size)
	}
	return m.page(ctx, "filter", "/borrowings/filter", f.Values(), page, size)
}

func (m *Manager) Mine(ctx context.Context, page, size int) (models.Page[models.Borrow], error) {
	return m.page(ctx, "mine", "/borrowings/getMyBorrow", nil, page, size)
}

func (m *Manager) Overdue(ctx context.Context, page, size int) (models.Page[models.Borrow], error) {
	return m.page(ctx, "overdue", "/borrowings/getOverDueStatus", nil, page, size)
}

func (m *Manager) ByUser(ctx context.Context, userID string, page, size int) (models.Page[models.Borrow], error) {
	return m.page(ctx, "byUser", "/borrowings/getAllBorrowWithUser/"+url.PathEscape(userID), nil, page, size)
}

// Counts backs the dashboard tiles.
func (m *Manager) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	var err error
	if c.Borrowed, err = shared.Get[int](ctx, m.d, query.Stats, "countBorrow", "/borrowings/countBorrow", nil); err != nil {
		return c, fmt.Errorf("borrow: count borrowed: %w", err)
	}
	if c.Overdue, err = shared.Get[int](ctx, m.d, query.Stats, "countOverdue", "/borrowings/countOverdue", nil); err != nil {
		return c, fmt.Errorf("borrow: count overdue: %w", err)
	}
	return c, nil
}

// Loader adapts List for a listing.Controller.
func (m *Manager) Loader() func(ctx context.Context, f Filter, page, size int) (models.Page[models.Borrow], error) {
	return m.List
}

func (m *Manager) page(ctx context.Context, op, path string, q url.Values, page, size int) (models.Page[models.Borrow], error) {
	pg, err := shared.Get[models.Page[models.Borrow]](ctx, m.d, query.Borrows, op, path, shared.Paged(q, page, size))
	if err != nil {
		return pg, fmt.Errorf("borrow: %s: %w", op, err)
	}
	return pg, nil
}
