package sandbox

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/store/shared"
	"github.com/5w1tchy/library-client/internal/validate"
)

// sweep flips open loans past their due date to OVERDUE. Callers hold s.mu.
func (s *Server) sweep() {
	today := s.today()
	for _, rec := range s.borrows.all() {
		if rec.ReturnDate == nil && rec.Status == models.StatusBorrowed && rec.DueDate.Before(today) {
			rec.Status = models.StatusOverdue
		}
	}
}

// Sweep runs the overdue sweep and returns how many loans are overdue.
func (s *Server) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	n := 0
	for _, rec := range s.borrows.all() {
		if rec.ReturnDate == nil && rec.Status == models.StatusOverdue {
			n++
		}
	}
	return n
}

func (s *Server) render(rec *borrowRec) models.Borrow {
	out := models.Borrow{
		ID:          rec.ID,
		BorrowDate:  rec.BorrowDate,
		DueDate:     rec.DueDate,
		FinalAmount: rec.Fine,
		Status:      rec.Status,
		Books:       make([]models.Book, 0, len(rec.BookIDs)),
	}
	if rec.ReturnDate != nil {
		d := *rec.ReturnDate
		out.ReturnDate = &d
	}
	if a, found := s.users[rec.UserID]; found {
		out.User = a.Borrower()
	}
	for _, id := range rec.BookIDs {
		if b, found := s.books.get(id); found {
			out.Books = append(out.Books, *b)
		}
	}
	return out
}

// serveBorrows renders the loans matching keep, newest first.
func (s *Server) serveBorrows(w http.ResponseWriter, r *http.Request, keep func(*borrowRec) bool) {
	s.mu.Lock()
	s.sweep()
	all := s.borrows.all()
	var out []models.Borrow
	for _, rec := range slices.Backward(all) {
		if keep(rec) {
			out = append(out, s.render(rec))
		}
	}
	s.mu.Unlock()
	writePage(w, r, out)
}

func (s *Server) createBorrow(w http.ResponseWriter, r *http.Request) {
	var in models.BorrowInput
	if !decode(w, r, &in) {
		return
	}
	c := callerFrom(r)
	ids := validate.DedupIDs(in.BookIDs)
	code := strings.ToUpper(strings.TrimSpace(in.StudentCode))
	if code == "" && !c.Admin {
		code = c.StudentCode
	}
	today := s.today()
	switch {
	case len(ids) == 0:
		invalid(w, "bookIds", "Please select at least one book")
		return
	case in.DueDate.IsZero():
		invalid(w, "dueDate", "Due date is required")
		return
	case in.DueDate.Before(today):
		invalid(w, "dueDate", "Due date cannot be in the past")
		return
	case code == "":
		invalid(w, "studentCode", "Student code is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var borrower *account
	for _, a := range s.users {
		if strings.EqualFold(a.StudentCode, code) && a.Status == statusActive {
			borrower = a
			break
		}
	}
	if borrower == nil {
		notFound(w, "Student "+code)
		return
	}
	if !c.Admin && borrower.ID != c.ID {
		fail(w, http.StatusForbidden, codeUnauthorized, "You can only borrow books for yourself")
		return
	}

	// Check every book before touching any stock.
	books := make([]*models.Book, 0, len(ids))
	var empty []string
	for _, id := range ids {
		b, found := s.books.get(id)
		if !found || b.Status != models.BookActive {
			notFound(w, "Book "+id)
			return
		}
		if b.Stock <= 0 {
			empty = append(empty, b.Title)
		}
		books = append(books, b)
	}
	if len(empty) > 0 {
		fail(w, http.StatusBadRequest, codeOutOfStock, "Out of stock: "+strings.Join(empty, ", "))
		return
	}
	for _, b := range books {
		b.Stock--
	}
	rec := &borrowRec{
		ID:         uuid.NewString(),
		UserID:     borrower.ID,
		BookIDs:    ids,
		BorrowDate: today,
		DueDate:    in.DueDate,
		Fine:       decimal.Zero,
		Status:     models.StatusBorrowed,
	}
	s.borrows.put(rec.ID, rec)
	reply(w, s.render(rec))
}

// returnBorrow closes a loan, restocks its books and charges the late fine.
func (s *Server) returnBorrow(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, found := s.borrows.get(r.PathValue("id"))
	if !found {
		notFound(w, "Borrow")
		return
	}
	if rec.ReturnDate != nil {
		invalid(w, "id", "Borrow has already been returned")
		return
	}
	today := s.today()
	if late := rec.DueDate.DaysUntil(today); late > 0 {
		rec.Fine = s.fine.Mul(decimal.NewFromInt(int64(late)))
	}
	rec.ReturnDate = &today
	rec.Status = models.StatusReturned
	for _, id := range rec.BookIDs {
		if b, found := s.books.get(id); found {
			b.Stock++
		}
	}
	reply(w, s.render(rec))
}

func (s *Server) renewBorrow(w http.ResponseWriter, r *http.Request) {
	var in models.RenewInput
	if !decode(w, r, &in) {
		return
	}
	if in.NewDueDate.IsZero() {
		invalid(w, "newDueDate", "New due date is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, found := s.borrows.get(r.PathValue("id"))
	if !found || !callerFrom(r).canSee(rec.UserID) {
		notFound(w, "Borrow")
		return
	}
	if rec.ReturnDate != nil {
		invalid(w, "id", "Borrow has already been returned")
		return
	}
	if in.NewDueDate.Before(rec.DueDate) {
		invalid(w, "newDueDate", fmt.Sprintf("New due date must be on or after %s", rec.DueDate))
		return
	}
	rec.DueDate = in.NewDueDate
	if rec.Status == models.StatusOverdue && !rec.DueDate.Before(s.today()) {
		rec.Status = models.StatusBorrowed
	}
	reply(w, s.render(rec))
}

func (s *Server) getBorrow(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	rec, found := s.borrows.get(r.PathValue("id"))
	if !found || !callerFrom(r).canSee(rec.UserID) {
		notFound(w, "Borrow")
		return
	}
	reply(w, s.render(rec))
}

func (s *Server) listBorrows(w http.ResponseWriter, r *http.Request) {
	s.serveBorrows(w, r, func(*borrowRec) bool { return true })
}

// filterBorrows matches the order id, the borrower's name, username or
// student code, and the exact borrow date.
func (s *Server) filterBorrows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, name := strings.TrimSpace(q.Get("id")), q.Get("name")
	var on models.Date
	if raw := strings.TrimSpace(q.Get("borrowDate")); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			invalid(w, "borrowDate", err.Error())
			return
		}
		on = d
	}
	s.serveBorrows(w, r, func(rec *borrowRec) bool {
		if !strings.Contains(rec.ID, id) {
			return false
		}
		if !on.IsZero() && rec.BorrowDate != on {
			return false
		}
		a, found := s.users[rec.UserID]
		if !found {
			return name == ""
		}
		return shared.Contains(a.FullName(), name) || shared.Contains(a.Username, name) || shared.Contains(a.StudentCode, name)
	})
}

func (s *Server) myBorrows(w http.ResponseWriter, r *http.Request) {
	me := callerFrom(r).ID
	s.serveBorrows(w, r, func(rec *borrowRec) bool { return rec.UserID == me })
}

func (s *Server) overdueBorrows(w http.ResponseWriter, r *http.Request) {
	s.serveBorrows(w, r, func(rec *borrowRec) bool {
		return rec.ReturnDate == nil && rec.Status == models.StatusOverdue
	})
}

func (s *Server) userBorrows(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !callerFrom(r).canSee(id) {
		fail(w, http.StatusForbidden, codeUnauthorized, "You do not have permission")
		return
	}
	s.serveBorrows(w, r, func(rec *borrowRec) bool { return rec.UserID == id })
}

// countBorrowed counts open loans, overdue ones included.
func (s *Server) countBorrowed(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := 0
	for _, rec := range s.borrows.all() {
		if rec.ReturnDate == nil {
			n++
		}
	}
	s.mu.Unlock()
	reply(w, n)
}

func (s *Server) countOverdue(w http.ResponseWriter, r *http.Request) {
	reply(w, s.Sweep())
}

func (s *Server) listFavorites(w http.ResponseWriter, r *http.Request) {
	me := callerFrom(r).ID
	s.mu.Lock()
	var out []models.Favorite
	if favs, found := s.favorites[me]; found {
		for _, f := range favs.all() {
			fav := *f
			if b, found := s.books.get(f.BookID); found {
				fav.Title, fav.Description = b.Title, b.Description
				fav.Authors, fav.Genres, fav.Images = b.Authors, b.Genres, b.Images
			}
			out = append(out, fav)
		}
	}
	s.mu.Unlock()
	writePage(w, r, out)
}

func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	me, bookID := callerFrom(r).ID, r.PathValue("bookId")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.books.get(bookID); !found {
		notFound(w, "Book")
		return
	}
	favs, found := s.favorites[me]
	if !found {
		favs = newTable[models.Favorite]()
		s.favorites[me] = favs
	}
	if _, dup := favs.get(bookID); dup {
		fail(w, http.StatusConflict, codeExists, "Book is already in favorites")
		return
	}
	favs.put(bookID, &models.Favorite{ID: uuid.NewString(), BookID: bookID})
	reply(w, nil)
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	me, bookID := callerFrom(r).ID, r.PathValue("bookId")
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, found := s.favorites[me]
	if !found {
		notFound(w, "Favorite")
		return
	}
	if _, found := favs.get(bookID); !found {
		notFound(w, "Favorite")
		return
	}
	favs.del(bookID)
	reply(w, nil)
}
