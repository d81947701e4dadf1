package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the server-reported state of a borrow. The set is closed: anything
// outside it fails to decode instead of silently flowing through string compares.
type Status int

const (
	StatusBorrowed Status = iota + 1
	StatusReturned
	StatusOverdue
)

var statusNames = map[Status]string{
	StatusBorrowed: "BORROWED",
	StatusReturned: "RETURNED",
	StatusOverdue:  "OVERDUE",
}

func Statuses() []Status { return []Status{StatusBorrowed, StatusReturned, StatusOverdue} }

func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BORROWED":
		return StatusBorrowed, nil
	case "RETURNED":
		return StatusReturned, nil
	case "OVERDUE":
		return StatusOverdue, nil
	}
	return 0, fmt.Errorf("unknown borrow status %q", s)
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s == 0 {
		return []byte("null"), nil
	}
	if !s.Valid() {
		return nil, fmt.Errorf("marshal invalid borrow status %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = 0
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Status) MarshalYAML() (any, error) { return s.String(), nil }

// Borrower is the user projection embedded in borrow responses.
type Borrower struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	StudentCode string `json:"studentCode"`
}

func (u Borrower) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Borrow struct {
	ID          string          `json:"id"`
	BorrowDate  Date            `json:"borrowDate"`
	DueDate     Date            `json:"dueDate"`
	ReturnDate  *Date           `json:"returnDate"`
	FinalAmount decimal.Decimal `json:"finalAmount"`
	Status      Status          `json:"status"`
	User        Borrower        `json:"userResponse"`
	Books       []Book          `json:"books"`
}

// Returned uses returnDate presence, which is authoritative over the status string.
func (b Borrow) Returned() bool { return b.ReturnDate != nil && !b.ReturnDate.IsZero() }

func (b Borrow) BookIDs() []string {
	out := make([]string, 0, len(b.Books))
	for _, bk := range b.Books {
		out = append(out, bk.ID)
	}
	return out
}

// BorrowInput is the body of POST /borrowings.
type BorrowInput struct {
	StudentCode string   `json:"studentCode"`
	DueDate     Date     `json:"dueDate"`
	BookIDs     []string `json:"bookIds"`
}

// RenewInput is the body of PUT /borrowings/extends/{id}.
type RenewInput struct {
	NewDueDate Date `json:"newDueDate"`
}
