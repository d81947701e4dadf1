package sandbox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/store/shared"
	"github.com/5w1tchy/library-client/internal/validate"
)

func (s *Server) listAuthors(w http.ResponseWriter, r *http.Request) {
	s.findAuthors(w, r)
}

func (s *Server) findAuthors(w http.ResponseWriter, r *http.Request) {
	kw := r.URL.Query().Get("keyword")
	s.mu.Lock()
	var out []models.Author
	for _, a := range s.authors.all() {
		if shared.Contains(a.Name, kw) {
			out = append(out, *a)
		}
	}
	s.mu.Unlock()
	writePage(w, r, out)
}

func (s *Server) getAuthor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.authors.get(r.PathValue("id"))
	if !found {
		notFound(w, "Author")
		return
	}
	reply(w, *a)
}

type authorBody struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

func (s *Server) createAuthor(w http.ResponseWriter, r *http.Request) {
	var in authorBody
	if !decode(w, r, &in) || !requireName(w, &in.Name) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authorNamed(in.Name, "") {
		fail(w, http.StatusBadRequest, codeExists, "Author already exists")
		return
	}
	a := &models.Author{ID: uuid.NewString(), Name: in.Name, Bio: shared.Normalize(in.Bio)}
	s.authors.put(a.ID, a)
	reply(w, *a)
}

func (s *Server) updateAuthor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in authorBody
	if !decode(w, r, &in) || !requireName(w, &in.Name) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.authors.get(id)
	if !found {
		notFound(w, "Author")
		return
	}
	if s.authorNamed(in.Name, id) {
		fail(w, http.StatusBadRequest, codeExists, "Author already exists")
		return
	}
	a.Name, a.Bio = in.Name, shared.Normalize(in.Bio)
	for _, b := range s.books.all() {
		for i := range b.Authors {
			if b.Authors[i].ID == id {
				b.Authors[i] = *a
			}
		}
	}
	reply(w, *a)
}

func (s *Server) deleteAuthor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.authors.get(id); !found {
		notFound(w, "Author")
		return
	}
	if n := s.countBooksWith(func(b *models.Book) bool { return hasAuthor(b, id) }); n > 0 {
		invalid(w, "id", fmt.Sprintf("Author still has %d book(s)", n))
		return
	}
	s.authors.del(id)
	reply(w, nil)
}

func (s *Server) authorNamed(name, except string) bool {
	for _, a := range s.authors.all() {
		if a.ID != except && shared.Fold(a.Name) == shared.Fold(name) {
			return true
		}
	}
	return false
}

func (s *Server) listGenres(w http.ResponseWriter, r *http.Request) {
	s.findGenres(w, r)
}

func (s *Server) findGenres(w http.ResponseWriter, r *http.Request) {
	kw := r.URL.Query().Get("keyword")
	s.mu.Lock()
	var out []models.Genre
	for _, g := range s.genres.all() {
		if shared.Contains(g.Name, kw) {
			out = append(out, *g)
		}
	}
	s.mu.Unlock()
	writePage(w, r, out)
}

func (s *Server) getGenre(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, found := s.genres.get(r.PathValue("id"))
	if !found {
		notFound(w, "Genre")
		return
	}
	reply(w, *g)
}

type genreBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) createGenre(w http.ResponseWriter, r *http.Request) {
	var in genreBody
	if !decode(w, r, &in) || !requireName(w, &in.Name) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.genreNamed(in.Name, "") {
		fail(w, http.StatusBadRequest, codeExists, "Genre already exists")
		return
	}
	g := &models.Genre{ID: uuid.NewString(), Name: in.Name, Description: shared.Normalize(in.Description)}
	s.genres.put(g.ID, g)
	reply(w, *g)
}

func (s *Server) updateGenre(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in genreBody
	if !decode(w, r, &in) || !requireName(w, &in.Name) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, found := s.genres.get(id)
	if !found {
		notFound(w, "Genre")
		return
	}
	if s.genreNamed(in.Name, id) {
		fail(w, http.StatusBadRequest, codeExists, "Genre already exists")
		return
	}
	g.Name, g.Description = in.Name, shared.Normalize(in.Description)
	for _, b := range s.books.all() {
		for i := range b.Genres {
			if b.Genres[i].ID == id {
				b.Genres[i] = *g
			}
		}
	}
	reply(w, *g)
}

func (s *Server) deleteGenre(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.genres.get(id); !found {
		notFound(w, "Genre")
		return
	}
	if n := s.countBooksWith(func(b *models.Book) bool { return hasGenre(b, id) }); n > 0 {
		invalid(w, "id", fmt.Sprintf("Genre still has %d book(s)", n))
		return
	}
	s.genres.del(id)
	reply(w, nil)
}

func (s *Server) genreNamed(name, except string) bool {
	for _, g := range s.genres.all() {
		if g.ID != except && shared.Fold(g.Name) == shared.Fold(name) {
			return true
		}
	}
	return false
}

func requireName(w http.ResponseWriter, name *string) bool {
	*name = shared.Normalize(*name)
	if *name == "" {
		invalid(w, "name", "Name is required")
		return false
	}
	if len([]rune(*name)) > 100 {
		invalid(w, "name", "Name must be at most 100 characters")
		return false
	}
	return true
}

type bookQuery struct {
	keyword, author, genre string
	status, isbn           string
	admin                  bool
}

func (q bookQuery) match(b *models.Book) bool {
	if !q.admin && b.Status != models.BookActive {
		return false
	}
	if !shared.Contains(b.Title, q.keyword) && !shared.Contains(b.Description, q.keyword) {
		return false
	}
	if q.author != "" && !anyContains(b.AuthorNames(), q.author) {
		return false
	}
	if q.genre != "" && !anyContains(b.GenreNames(), q.genre) {
		return false
	}
	if q.status != "" && q.status != fmt.Sprint(int(b.Status)) {
		return false
	}
	return strings.Contains(b.ISBN, strings.TrimSpace(q.isbn))
}

func anyContains(names []string, term string) bool {
	for _, n := range names {
		if shared.Contains(n, term) {
			return true
		}
	}
	return false
}

func (s *Server) serveBooks(w http.ResponseWriter, r *http.Request, q bookQuery) {
	s.mu.Lock()
	var out []models.Book
	for _, b := range s.books.all() {
		if q.match(b) {
			out = append(out, *b)
		}
	}
	s.mu.Unlock()
	writePage(w, r, out)
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	s.serveBooks(w, r, bookQuery{})
}

func (s *Server) filterBooks(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	s.serveBooks(w, r, bookQuery{keyword: v.Get("keyword"), author: v.Get("authorName"), genre: v.Get("genreName")})
}

func (s *Server) filterBooksAdmin(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	st := strings.TrimSpace(v.Get("status"))
	if st != "" && st != "0" && st != "1" {
		invalid(w, "status", "Status must be 0 or 1")
		return
	}
	s.serveBooks(w, r, bookQuery{
		keyword: v.Get("keyword"), author: v.Get("authorName"), genre: v.Get("genreName"),
		status: st, isbn: v.Get("isbn"), admin: true,
	})
}

func (s *Server) booksWithGenre(w http.ResponseWriter, r *http.Request) {
	genre := shared.Normalize(r.URL.Query().Get("genreName"))
	if genre == "" {
		invalid(w, "genreName", "Genre name is required")
		return
	}
	s.mu.Lock()
	var out []models.Book
	for _, b := range s.books.all() {
		if b.Status == models.BookActive && b.HasGenre(genre) {
			out = append(out, *b)
		}
	}
	s.mu.Unlock()
	writePage(w, r, out)
}

func (s *Server) zeroStock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var out []models.Book
	for _, b := range s.books.all() {
		if b.Stock == 0 {
			out = append(out, *b)
		}
	}
	s.mu.Unlock()
	writePage(w, r, out)
}

func (s *Server) countBooks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := s.countBooksWith(func(b *models.Book) bool { return b.Status == models.BookActive })
	s.mu.Unlock()
	reply(w, n)
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.books.get(r.PathValue("id"))
	if !found {
		notFound(w, "Book")
		return
	}
	reply(w, *b)
}

func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	in, images, _, msg := readBookForm(r)
	if msg != "" {
		invalid(w, "books", msg)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &models.Book{ID: uuid.NewString(), CreatedAt: s.now().UTC()}
	if field, msg := s.applyBook(b, in); msg != "" {
		invalid(w, field, msg)
		return
	}
	b.Images = images
	s.books.put(b.ID, b)
	reply(w, *b)
}

// updateBook requires the images part. An empty one keeps the current covers.
func (s *Server) updateBook(w http.ResponseWriter, r *http.Request) {
	in, images, present, msg := readBookForm(r)
	if msg != "" {
		invalid(w, "books", msg)
		return
	}
	if !present {
		invalid(w, "images", "images part is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.books.get(r.PathValue("id"))
	if !found {
		notFound(w, "Book")
		return
	}
	next := *b
	if field, msg := s.applyBook(&next, in); msg != "" {
		invalid(w, field, msg)
		return
	}
	if len(images) > 0 {
		next.Images = images
	}
	*b = next
	reply(w, *b)
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.books.get(r.PathValue("id"))
	if !found {
		notFound(w, "Book")
		return
	}
	b.Status = models.BookSuspended
	reply(w, nil)
}

// readBookForm parses the multipart body: a JSON "books" part plus repeated
// "images" file parts. present reports whether any images part was sent.
func readBookForm(r *http.Request) (in models.BookInput, images []models.Image, present bool, msg string) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return in, nil, false, "Expected multipart/form-data"
	}
	form := r.MultipartForm
	meta := form.Value["books"]
	if len(meta) == 0 {
		return in, nil, false, "books part is required"
	}
	if err := json.Unmarshal([]byte(meta[0]), &in); err != nil {
		return in, nil, false, "books part is not valid JSON"
	}

	_, present = form.Value["images"]
	for _, fh := range form.File["images"] {
		present = true
		if fh.Size == 0 || fh.Filename == "" {
			continue
		}
		ct := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "image/") {
			return in, nil, present, fmt.Sprintf("%s is not an image", fh.Filename)
		}
		images = append(images, models.Image{ImageURL: "/images/" + uuid.NewString() + "-" + path.Base(fh.Filename)})
	}
	return in, images, present, ""
}

// applyBook validates in and copies it onto b. It returns the offending field
// and message on failure, leaving b untouched.
func (s *Server) applyBook(b *models.Book, in models.BookInput) (string, string) {
	in.Title = shared.Normalize(in.Title)
	in.ISBN = strings.NewReplacer("-", "", " ", "").Replace(in.ISBN)
	switch {
	case in.Title == "":
		return "title", "Title is required"
	case in.ISBN != "" && !validate.ISBN(in.ISBN):
		return "isbn", "ISBN must be 13 digits"
	case in.Stock < 0:
		return "stock", "Stock cannot be negative"
	case in.Status != models.BookActive && in.Status != models.BookSuspended:
		return "status", "Status must be 0 or 1"
	case len(in.AuthorIDs) == 0:
		return "authorIds", "At least one author is required"
	case len(in.GenreIDs) == 0:
		return "genreIds", "At least one genre is required"
	}
	if in.ISBN != "" {
		for _, other := range s.books.all() {
			if other.ID != b.ID && other.ISBN == in.ISBN {
				return "isbn", "ISBN already exists"
			}
		}
	}
	next := *b
	if missing := s.link(&next, validate.DedupIDs(in.AuthorIDs), validate.DedupIDs(in.GenreIDs)); missing != "" {
		return "books", strings.ToUpper(missing[:1]) + missing[1:] + " not found"
	}
	next.Title = in.Title
	next.Description = strings.TrimSpace(in.Description)
	next.ISBN = in.ISBN
	next.Stock = in.Stock
	next.Status = in.Status
	next.PublicationDate = in.PublicationDate
	*b = next
	return "", ""
}

func (s *Server) countBooksWith(pred func(*models.Book) bool) int {
	n := 0
	for _, b := range s.books.all() {
		if pred(b) {
			n++
		}
	}
	return n
}

func hasAuthor(b *models.Book, id string) bool {
	for _, a := range b.Authors {
		if a.ID == id {
			return true
		}
	}
	return false
}

func hasGenre(b *models.Book, id string) bool {
	for _, g := range b.Genres {
		if g.ID == id {
			return true
		}
	}
	return false
}
