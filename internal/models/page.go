package models

// Envelope wraps every backend response body.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Result  T      `json:"result"`
}

// Page is the uniform pagination envelope. CurrentPage is zero-based as sent by
// the server, while list requests use a 1-based page parameter.
type Page[T any] struct {
	TotalItems      int  `json:"totalItems"`
	TotalPages      int  `json:"totalPages"`
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	Elements        []T  `json:"elements"`
}

// Empty is the valid "no entities match" state.
func (p Page[T]) Empty() bool { return len(p.Elements) == 0 }

// Consistent checks the envelope's flags against its counts.
func (p Page[T]) Consistent() bool {
	if p.PageSize <= 0 || p.TotalItems < 0 || p.CurrentPage < 0 {
		return false
	}
	want := (p.TotalItems + p.PageSize - 1) / p.PageSize
	if p.TotalPages != want {
		return false
	}
	if p.HasPreviousPage != (p.CurrentPage > 0) {
		return false
	}
	if p.HasNextPage != (p.CurrentPage < p.TotalPages-1) {
		return false
	}
	return len(p.Elements) <= p.PageSize
}

// NewPage builds an envelope for elements of a zero-based page out of total items.
func NewPage[T any](elements []T, total, current, size int) Page[T] {
	if size <= 0 {
		size = 1
	}
	pages := (total + size - 1) / size
	if elements == nil {
		elements = []T{}
	}
	return Page[T]{
		TotalItems:      total,
		TotalPages:      pages,
		CurrentPage:     current,
		PageSize:        size,
		HasNextPage:     current < pages-1,
		HasPreviousPage: current > 0,
		Elements:        elements,
	}
}

// Paginate slices all into the zero-based page of the given size.
func Paginate[T any](all []T, current, size int) Page[T] {
	if size <= 0 {
		size = 10
	}
	if current < 0 {
		current = 0
	}
	start := current * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return NewPage(append([]T(nil), all[start:end]...), len(all), current, size)
}
