package query

import (
	"context"
	"errors"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewKeyCanonical(t *testing.T) {
	a := NewKey(Books, "filter", url.Values{"keyword": {"dune"}, "page": {"1"}, "genreName": {""}})
	b := NewKey(Books, "filter", url.Values{"page": {"1"}, "keyword": {" dune "}})
	if a != b {
		t.Fatalf("keys differ: %v vs %v", a, b)
	}
	c := NewKey(Books, "filter", url.Values{"keyword": {"dune"}, "page": {"2"}})
	if a == c {
		t.Fatal("different pages must not share a key")
	}
}

func TestFetchHitMissAndInvalidate(t *testing.T) {
	c := New(NewMemoryStore())
	key := NewKey(Books, "filter", url.Values{"page": {"1"}})
	calls := 0
	fn := func(context.Context) ([]string, error) {
		calls++
		return []string{"Dune"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(t.Context(), c, key, fn)
		if err != nil || len(got) != 1 {
			t.Fatalf("got %v err %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("identical key fetched %d times", calls)
	}

	// Unrelated entity leaves books cached.
	if err := c.Invalidate(t.Context(), Authors); err != nil {
		t.Fatal(err)
	}
	_, _ = Fetch(t.Context(), c, key, fn)
	if calls != 1 {
		t.Fatal("authors invalidation refetched books")
	}

	c.Mutated(t.Context(), BorrowCreate)
	_, _ = Fetch(t.Context(), c, key, fn)
	if calls != 2 {
		t.Fatalf("borrow create must invalidate books, calls=%d", calls)
	}
	s := c.Stats()
	if s.Hits != 3 || s.Fetches != 2 {
		t.Fatalf("stats=%+v", s)
	}
}

func TestFetchErrorsAreNotCached(t *testing.T) {
	c := New(nil)
	key := NewKey(Users, "get", url.Values{"id": {"u1"}})
	boom := errors.New("boom")
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 7, nil
	}
	if _, err := Fetch(t.Context(), c, key, fn); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	v, err := Fetch(t.Context(), c, key, fn)
	if err != nil || v != 7 {
		t.Fatalf("retry got %d %v", v, err)
	}
}

func TestFetchDeduplicatesConcurrentCallers(t *testing.T) {
	c := New(NewMemoryStore())
	key := NewKey(Genres, "list", nil)
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "Fiction", nil
	}

	var wg sync.WaitGroup
	results := make(chan string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(t.Context(), c, key, fn)
			if err != nil {
				t.Error(err)
			}
			results <- v
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)
	for v := range results {
		if v != "Fiction" {
			t.Fatalf("got %q", v)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("fetched %d times", calls.Load())
	}
}

func TestInvalidateDuringFetchDiscardsResult(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)
	key := NewKey(Borrows, "mine", nil)
	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			close(started)
			<-release
			return 1, nil
		}
		return 2, nil
	}

	done := make(chan int)
	go func() {
		v, _ := Fetch(context.Background(), c, key, fn)
		done <- v
	}()
	<-started
	c.Mutated(t.Context(), BorrowReturn)
	close(release)
	if v := <-done; v != 1 {
		t.Fatalf("in-flight caller got %d", v)
	}
	if store.Len() != 0 {
		t.Fatal("result fetched before invalidation must not be stored")
	}
	v, _ := Fetch(t.Context(), c, key, fn)
	if v != 2 {
		t.Fatalf("post-invalidation read got %d", v)
	}
}

func TestCanceledCallerDoesNotAbortSharedFetch(t *testing.T) {
	c := New(NewMemoryStore())
	key := NewKey(Books, "get", url.Values{"id": {"b1"}})
	release := make(chan struct{})
	var fetchErr atomic.Value
	fn := func(ctx context.Context) (string, error) {
		<-release
		if err := ctx.Err(); err != nil {
			fetchErr.Store(err)
			return "", err
		}
		return "Dune", nil
	}

	ctx, cancel := context.WithCancel(t.Context())
	errc := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, key, fn)
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)

	other := make(chan string, 1)
	go func() {
		v, _ := Fetch(t.Context(), c, key, fn)
		other <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled caller err=%v", err)
	}
	close(release)
	if v := <-other; v != "Dune" {
		t.Fatalf("other caller got %q", v)
	}
	if fetchErr.Load() != nil {
		t.Fatal("shared fetch saw caller cancellation")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	_ = s.Set(t.Context(), "k", []byte("v"), time.Minute)
	if _, ok, _ := s.Get(t.Context(), "k"); !ok {
		t.Fatal("expected hit")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(t.Context(), "k"); ok {
		t.Fatal("expected expiry")
	}
}

func TestAffectsCoversEveryMutation(t *testing.T) {
	for _, m := range []Mutation{BookWrite, AuthorWrite, GenreWrite, BorrowCreate, BorrowReturn, BorrowRenew, FavoriteWrite, UserWrite, SessionChange} {
		if len(Affects[m]) == 0 {
			t.Errorf("%s invalidates nothing", m)
		}
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("LIB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LIB_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(t.Context()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	_ = rdb.Del(t.Context(), versionKey(Stats)).Err()

	c := New(NewRedisStore(rdb, time.Second), WithTTL(time.Minute))
	key := NewKey(Stats, "countBook", nil)
	calls := 0
	fn := func(context.Context) (int, error) { calls++; return 42, nil }

	for i := 0; i < 2; i++ {
		if v, err := Fetch(t.Context(), c, key, fn); err != nil || v != 42 {
			t.Fatalf("v=%d err=%v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
	if err := c.Invalidate(t.Context(), Stats); err != nil {
		t.Fatal(err)
	}
	_, _ = Fetch(t.Context(), c, key, fn)
	if calls != 2 {
		t.Fatalf("calls after bump=%d", calls)
	}
}
