// Package search implements search-as-you-type: debounce keystrokes, cancel
// whatever the previous term started, publish only the latest term's results.
package search

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/5w1tchy/library-client/internal/store/shared"
)

const (
	DefaultDelay  = 300 * time.Millisecond
	DefaultMinLen = 1
)

// Func fetches suggestions for term. It must honor ctx cancellation.
type Func[T any] func(ctx context.Context, term string) ([]T, error)

type Result[T any] struct {
	Term  string
	Items []T
	Err   error
}

type Options struct {
	Delay  time.Duration
	MinLen int
}

type Suggester[T any] struct {
	fetch  Func[T]
	delay  time.Duration
	minLen int

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
	out    chan Result[T]
}

func New[T any](fetch Func[T], opts Options) *Suggester[T] {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.MinLen <= 0 {
		opts.MinLen = DefaultMinLen
	}
	return &Suggester[T]{fetch: fetch, delay: opts.Delay, minLen: opts.MinLen, out: make(chan Result[T], 1)}
}

// Results delivers at most one pending result; a newer one replaces it.
func (s *Suggester[T]) Results() <-chan Result[T] { return s.out }

// Type records a new term. Any pending timer and in-flight request for an
// earlier term are abandoned.
func (s *Suggester[T]) Type(term string) {
	term = shared.Normalize(term)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.gen++
	s.stopLocked()
	if utf8.RuneCountInString(term) < s.minLen {
		s.publishLocked(Result[T]{Term: term})
		return
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.run(gen, term) })
}

func (s *Suggester[T]) run(gen uint64, term string) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	items, err := s.fetch(ctx, term)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen || ctx.Err() != nil {
		return
	}
	cancel()
	s.cancel = nil
	s.publishLocked(Result[T]{Term: term, Items: items, Err: err})
}

func (s *Suggester[T]) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Suggester[T]) publishLocked(r Result[T]) {
	select {
	case <-s.out:
	default:
	}
	s.out <- r
}

// Close stops pending work and closes Results.
func (s *Suggester[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopLocked()
	close(s.out)
}
