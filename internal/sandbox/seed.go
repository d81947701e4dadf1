package sandbox

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/5w1tchy/library-client/internal/models"
)

// Demo accounts created by the seed.
const (
	AdminUsername   = "admin"
	AdminPassword   = "admin123"
	StudentUsername = "an"
	StudentPassword = "student1"
	StudentCode     = "SE170001"
	OtherUsername   = "binh"
	OtherPassword   = "student2"
	OtherCode       = "SE170002"
)

type seedBook struct {
	id, title, isbn string
	authors, genres []string
	stock           int
	status          models.BookStatus
	published       string
	description     string
}

func (s *Server) seed() {
	for _, a := range []models.Author{
		{ID: "a1", Name: "Frank Herbert", Bio: "American science fiction author."},
		{ID: "a2", Name: "Jane Austen", Bio: "English novelist of the Regency era."},
		{ID: "a3", Name: "James Joyce", Bio: "Irish modernist writer."},
		{ID: "a4", Name: "Nguyễn Nhật Ánh", Bio: "Vietnamese writer of stories for young readers."},
		{ID: "a5", Name: "Terry Pratchett"},
		{ID: "a6", Name: "Neil Gaiman"},
	} {
		s.authors.put(a.ID, &a)
	}
	for _, g := range []models.Genre{
		{ID: "g1", Name: "Fiction"},
		{ID: "g2", Name: "Science Fiction"},
		{ID: "g3", Name: "Romance"},
		{ID: "g4", Name: "Classic"},
		{ID: "g5", Name: "Fantasy"},
	} {
		s.genres.put(g.ID, &g)
	}

	created := s.now().Add(-30 * 24 * time.Hour).UTC()
	for i, sb := range []seedBook{
		{"b1", "Dune", "9780441172719", []string{"a1"}, []string{"g1", "g2"}, 3, models.BookActive, "1965-08-01", "A desert planet, a noble house and the spice that everyone wants."},
		{"b2", "Pride and Prejudice", "9780141439518", []string{"a2"}, []string{"g1", "g3", "g4"}, 2, models.BookActive, "1813-01-28", "Elizabeth Bennet and Mr. Darcy misjudge each other."},
		{"b3", "Ulysses", "9780199535675", []string{"a3"}, []string{"g1", "g4"}, 1, models.BookActive, "1922-02-02", "One day in Dublin with Leopold Bloom."},
		{"b4", "Cho tôi xin một vé đi tuổi thơ", "9786042084651", []string{"a4"}, []string{"g1"}, 4, models.BookActive, "2008-01-01", "A grown man looks back at the games of his childhood."},
		{"b5", "Good Omens", "9780060853983", []string{"a5", "a6"}, []string{"g1", "g5"}, 2, models.BookActive, "1990-05-01", "An angel and a demon try to stop the end of the world."},
		{"b6", "Emma", "9780141439587", []string{"a2"}, []string{"g3", "g4"}, 0, models.BookActive, "1815-12-23", "A young matchmaker in Highbury gets her own heart wrong."},
		{"b7", "Finnegans Wake", "9780141181318", []string{"a3"}, []string{"g4"}, 1, models.BookSuspended, "1939-05-04", "A night of dreams told in a language of puns."},
	} {
		pub := models.MustDate(sb.published)
		b := &models.Book{
			ID:              sb.id,
			Title:           sb.title,
			Description:     sb.description,
			ISBN:            sb.isbn,
			Stock:           sb.stock,
			Status:          sb.status,
			PublicationDate: &pub,
			Images:          []models.Image{{ImageURL: fmt.Sprintf("/images/%s.jpg", sb.id)}},
			CreatedAt:       created.Add(time.Duration(i) * time.Hour),
		}
		s.link(b, sb.authors, sb.genres)
		s.books.put(b.ID, b)
	}

	for _, u := range []struct {
		id, username, password, first, last, code, email, phone, role string
	}{
		{"u0", AdminUsername, AdminPassword, "Library", "Admin", "AD000001", "admin@library.local", "0900000000", models.RoleAdmin},
		{"u1", StudentUsername, StudentPassword, "An", "Tran", StudentCode, "an.tran@library.local", "0912345678", models.RoleUser},
		{"u2", OtherUsername, OtherPassword, "Binh", "Le", OtherCode, "binh.le@library.local", "0987654321", models.RoleUser},
	} {
		hash, err := hashPassword(u.password)
		if err != nil {
			log.Printf("[sandbox] seed %s: %v", u.username, err)
			continue
		}
		s.putAccount(&account{
			User: models.User{
				ID: u.id, Username: u.username, FirstName: u.first, LastName: u.last,
				StudentCode: u.code, Email: u.email, PhoneNumber: u.phone, Status: statusActive,
				Roles: []models.Role{{Name: u.role}},
			},
			hash: hash,
		})
	}
	s.nextCode = 170003

	// One open loan of Binh's that is already past due.
	today := s.today()
	s.borrows.put("br1", &borrowRec{
		ID:         "br1",
		UserID:     "u2",
		BookIDs:    []string{"b2"},
		BorrowDate: today.AddDays(-14),
		DueDate:    today.AddDays(-4),
		Fine:       decimal.Zero,
		Status:     models.StatusBorrowed,
	})
}

func (s *Server) putAccount(a *account) {
	s.users[a.ID] = a
	s.byName[a.Username] = a.ID
}

// link replaces b's authors and genres with the stored ones for the ids,
// reporting the first unknown id.
func (s *Server) link(b *models.Book, authorIDs, genreIDs []string) string {
	authors := make([]models.Author, 0, len(authorIDs))
	for _, id := range authorIDs {
		a, ok := s.authors.get(id)
		if !ok {
			return "author " + id
		}
		authors = append(authors, *a)
	}
	genres := make([]models.Genre, 0, len(genreIDs))
	for _, id := range genreIDs {
		g, ok := s.genres.get(id)
		if !ok {
			return "genre " + id
		}
		genres = append(genres, *g)
	}
	b.Authors, b.Genres = authors, genres
	return ""
}
