package models

import (
	"strings"
	"time"
)

// BookStatus is the availability flag of a book: 1 = active, 0 = suspended (soft-deleted).
type BookStatus int

const (
	BookSuspended BookStatus = 0
	BookActive    BookStatus = 1
)

func (s BookStatus) String() string {
	if s == BookActive {
		return "active"
	}
	return "suspended"
}

type Image struct {
	ImageURL string `json:"imageUrl"`
}

type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

type Genre struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Book struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ISBN            string     `json:"isbn,omitempty"`
	PublicationDate *Date      `json:"publicationDate,omitempty"`
	Stock           int        `json:"stock"`
	Status          BookStatus `json:"status"`
	Images          []Image    `json:"images"`
	Authors         []Author   `json:"authors"`
	Genres          []Genre    `json:"genres"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Available reports whether the book can be lent right now.
func (b Book) Available() bool { return b.Status == BookActive && b.Stock > 0 }

// Cover returns the first image URL or "".
func (b Book) Cover() string {
	if len(b.Images) == 0 {
		return ""
	}
	return b.Images[0].ImageURL
}

// HasGenre matches genre names case-insensitively.
func (b Book) HasGenre(name string) bool {
	for _, g := range b.Genres {
		if strings.EqualFold(g.Name, name) {
			return true
		}
	}
	return false
}

func (b Book) AuthorNames() []string {
	out := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		out = append(out, a.Name)
	}
	return out
}

func (b Book) GenreNames() []string {
	out := make([]string, 0, len(b.Genres))
	for _, g := range b.Genres {
		out = append(out, g.Name)
	}
	return out
}

// BookInput is the JSON metadata part ("books") of a multipart create/update.
type BookInput struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	AuthorIDs       []string   `json:"authorIds"`
	GenreIDs        []string   `json:"genreIds"`
	Stock           int        `json:"stock"`
	Status          BookStatus `json:"status"`
	ISBN            string     `json:"isbn"`
	PublicationDate *Date      `json:"publicationDate,omitempty"`
}

// Favorite is the saved-for-later projection of a book.
type Favorite struct {
	ID          string   `json:"id"`
	BookID      string   `json:"bookId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Authors     []Author `json:"authors"`
	Genres      []Genre  `json:"genres"`
	Images      []Image  `json:"images"`
}
