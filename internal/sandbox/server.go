// Package sandbox is an in-memory library backend speaking the same REST
// contract as the production API. Tests run the client packages against it
// and `libctl sandbox` serves it locally.
package sandbox

import (
	"crypto/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/5w1tchy/library-client/internal/models"
)

// Prefix is where the API is mounted; clients use <server>/api/ as base URL.
const Prefix = "/api"

// FinePerDay is charged for every day a borrow is returned after its due date.
var FinePerDay = decimal.NewFromInt(5000)

const (
	statusActive   = "ACTIVE"
	statusInactive = "INACTIVE"
)

type Options struct {
	// Secret signs access tokens. A random one is generated when empty.
	Secret   []byte
	TokenTTL time.Duration
	// Now is the server clock; due dates and token expiry follow it.
	Now        func() time.Time
	FinePerDay decimal.Decimal
	// MaxBody caps write request bodies; 10 MiB when zero.
	MaxBody int64
	// Empty skips the demo catalog and accounts.
	Empty   bool
	Verbose bool
}

type account struct {
	models.User
	hash string
}

func (a *account) isAdmin() bool { return a.HasRole(models.RoleAdmin) }

type borrowRec struct {
	ID         string
	UserID     string
	BookIDs    []string
	BorrowDate models.Date
	DueDate    models.Date
	ReturnDate *models.Date
	Fine       decimal.Decimal
	Status     models.Status
}

// table keeps rows in insertion order.
type table[T any] struct {
	rows  map[string]*T
	order []string
}

func newTable[T any]() *table[T] { return &table[T]{rows: map[string]*T{}} }

func (t *table[T]) put(id string, v *T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id string) (*T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) del(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	for i, x := range t.order {
		if x == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *table[T]) all() []*T {
	out := make([]*T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

type Server struct {
	mu      sync.Mutex
	now     func() time.Time
	fine    decimal.Decimal
	tokens  signer
	books   *table[models.Book]
	authors *table[models.Author]
	genres  *table[models.Genre]
	users   map[string]*account
	byName  map[string]string // username -> user id
	borrows *table[borrowRec]
	// favorites holds each user's favorites keyed by book id.
	favorites map[string]*table[models.Favorite]
	revoked   map[string]bool
	nextCode  int

	hitsMu sync.Mutex
	hits   map[string]int

	handler http.Handler
}

func New(opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	secret := opts.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	fine := opts.FinePerDay
	if fine.IsZero() {
		fine = FinePerDay
	}
	s := &Server{
		now:       now,
		fine:      fine,
		tokens:    signer{secret: secret, ttl: ttl, leeway: 30 * time.Second, now: now},
		books:     newTable[models.Book](),
		authors:   newTable[models.Author](),
		genres:    newTable[models.Genre](),
		users:     map[string]*account{},
		byName:    map[string]string{},
		borrows:   newTable[borrowRec](),
		favorites: map[string]*table[models.Favorite]{},
		revoked:   map[string]bool{},
		nextCode:  170001,
		hits:      map[string]int{},
	}
	if !opts.Empty {
		s.seed()
	}
	mux := http.NewServeMux()
	s.routes(mux)
	maxBody := opts.MaxBody
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	s.handler = chain(mux, recovery, requestID, apiHeaders, bodyLimit(maxBody), accessLog(opts.Verbose))
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

func (s *Server) routes(mux *http.ServeMux) {
	// Auth
	s.handle(mux, "POST /auth", s.login)
	s.handle(mux, "POST /auth/logout", s.logout)

	// Users
	s.handle(mux, "POST /users", s.register)
	s.handle(mux, "GET /users/getMyInfor", s.requireAuth(s.myInfo))
	s.handle(mux, "GET /users/filter", s.requireAdmin(s.filterUsers))
	s.handle(mux, "GET /users/{id}", s.requireAuth(s.getUser))
	s.handle(mux, "PUT /users/{id}", s.requireAuth(s.updateUser))
	s.handle(mux, "PUT /users/softDelete/{id}", s.requireAdmin(s.deleteUser))

	// Authors and genres
	s.handle(mux, "GET /author", s.listAuthors)
	s.handle(mux, "GET /author/findByName", s.findAuthors)
	s.handle(mux, "GET /author/{id}", s.getAuthor)
	s.handle(mux, "POST /author", s.requireAdmin(s.createAuthor))
	s.handle(mux, "PUT /author/{id}", s.requireAdmin(s.updateAuthor))
	s.handle(mux, "DELETE /author/{id}", s.requireAdmin(s.deleteAuthor))
	s.handle(mux, "GET /genres", s.listGenres)
	s.handle(mux, "GET /genres/findByName", s.findGenres)
	s.handle(mux, "GET /genres/{id}", s.getGenre)
	s.handle(mux, "POST /genres", s.requireAdmin(s.createGenre))
	s.handle(mux, "PUT /genres/{id}", s.requireAdmin(s.updateGenre))
	s.handle(mux, "DELETE /genres/{id}", s.requireAdmin(s.deleteGenre))

	// Books
	s.handle(mux, "GET /books", s.listBooks)
	s.handle(mux, "GET /books/filter", s.filterBooks)
	s.handle(mux, "GET /books/filterAdmin", s.requireAdmin(s.filterBooksAdmin))
	s.handle(mux, "GET /books/getBookWithGenre", s.booksWithGenre)
	s.handle(mux, "GET /books/getAllBookZeroStock", s.requireAdmin(s.zeroStock))
	s.handle(mux, "GET /books/countBook", s.requireAdmin(s.countBooks))
	s.handle(mux, "GET /books/{id}", s.getBook)
	s.handle(mux, "POST /books", s.requireAdmin(s.createBook))
	s.handle(mux, "PUT /books/{id}", s.requireAdmin(s.updateBook))
	s.handle(mux, "DELETE /books/{id}", s.requireAdmin(s.deleteBook))

	// Borrowings
	s.handle(mux, "POST /borrowings", s.requireAuth(s.createBorrow))
	s.handle(mux, "GET /borrowings", s.requireAdmin(s.listBorrows))
	s.handle(mux, "GET /borrowings/filter", s.requireAdmin(s.filterBorrows))
	s.handle(mux, "GET /borrowings/getMyBorrow", s.requireAuth(s.myBorrows))
	s.handle(mux, "GET /borrowings/getOverDueStatus", s.requireAdmin(s.overdueBorrows))
	s.handle(mux, "GET /borrowings/getAllBorrowWithUser/{id}", s.requireAuth(s.userBorrows))
	s.handle(mux, "GET /borrowings/countBorrow", s.requireAdmin(s.countBorrowed))
	s.handle(mux, "GET /borrowings/countOverdue", s.requireAdmin(s.countOverdue))
	s.handle(mux, "GET /borrowings/{id}", s.requireAuth(s.getBorrow))
	s.handle(mux, "PUT /borrowings/{id}", s.requireAdmin(s.returnBorrow))
	s.handle(mux, "PUT /borrowings/extends/{id}", s.requireAuth(s.renewBorrow))

	// Favorites
	s.handle(mux, "GET /favorite", s.requireAuth(s.listFavorites))
	s.handle(mux, "POST /favorite/{bookId}", s.requireAuth(s.addFavorite))
	s.handle(mux, "DELETE /favorite/{bookId}", s.requireAuth(s.removeFavorite))

	mux.HandleFunc(Prefix+"/", func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusNotFound, codeNotFound, "No route for "+r.Method+" "+r.URL.Path)
	})
}

// handle mounts h under Prefix and counts every request that reaches it.
// route is "METHOD /path" relative to Prefix, which is also the Hits key.
func (s *Server) handle(mux *http.ServeMux, route string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(route, " ")
	mux.HandleFunc(method+" "+Prefix+path, func(w http.ResponseWriter, r *http.Request) {
		s.hitsMu.Lock()
		s.hits[route]++
		s.hitsMu.Unlock()
		h(w, r)
	})
}

// Hits returns how many requests reached route, e.g. "GET /books".
func (s *Server) Hits(route string) int {
	s.hitsMu.Lock()
	defer s.hitsMu.Unlock()
	return s.hits[route]
}

// TotalHits counts every routed request.
func (s *Server) TotalHits() int {
	s.hitsMu.Lock()
	defer s.hitsMu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

// HitRoutes lists routes with at least one hit, sorted.
func (s *Server) HitRoutes() []string {
	s.hitsMu.Lock()
	defer s.hitsMu.Unlock()
	out := make([]string, 0, len(s.hits))
	for k := range s.hits {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Server) ResetHits() {
	s.hitsMu.Lock()
	s.hits = map[string]int{}
	s.hitsMu.Unlock()
}

func (s *Server) today() models.Date { return models.Today(s.now()) }

// Book returns a copy of the stored book.
func (s *Server) Book(id string) (models.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books.get(id)
	if !ok {
		return models.Book{}, false
	}
	return *b, true
}

// SetStock overrides a book's stock.
func (s *Server) SetStock(id string, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books.get(id)
	if ok {
		b.Stock = n
	}
	return ok
}

// Borrow returns the rendered borrow with the overdue sweep applied.
func (s *Server) Borrow(id string) (models.Borrow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	rec, ok := s.borrows.get(id)
	if !ok {
		return models.Borrow{}, false
	}
	return s.render(rec), true
}
