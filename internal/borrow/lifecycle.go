// Package borrow implements the borrow lifecycle: BORROWED, then RETURNED or
// OVERDUE, with renewals extending the due date while the books are out.
package borrow

import (
	"fmt"
	"strings"
	"time"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/validate"
)

// Phase derives the effective state. A return date always means returned,
// whatever the status field says; otherwise a past due date means overdue.
func Phase(b models.Borrow, now time.Time) models.Status {
	if b.Returned() {
		return models.StatusReturned
	}
	switch b.Status {
	case models.StatusOverdue:
		return models.StatusOverdue
	case models.StatusBorrowed, models.StatusReturned:
		if !b.DueDate.IsZero() && b.DueDate.Before(models.Today(now)) {
			return models.StatusOverdue
		}
		return models.StatusBorrowed
	default:
		return models.StatusBorrowed
	}
}

func Label(s models.Status) string {
	switch s {
	case models.StatusBorrowed:
		return "Borrowed"
	case models.StatusReturned:
		return "Returned"
	case models.StatusOverdue:
		return "Overdue"
	default:
		return "Unknown"
	}
}

// CanReturn and CanRenew hold for any borrow whose books are still out.
func CanReturn(b models.Borrow) bool { return !b.Returned() }

func CanRenew(b models.Borrow) bool { return !b.Returned() }

// MinRenewalDate is the earliest new due date a renewal may request.
func MinRenewalDate(b models.Borrow) models.Date { return b.DueDate }

// DaysLate is zero until the due date has passed.
func DaysLate(b models.Borrow, now time.Time) int {
	end := models.Today(now)
	if b.Returned() {
		end = *b.ReturnDate
	}
	if b.DueDate.IsZero() || !end.After(b.DueDate) {
		return 0
	}
	return b.DueDate.DaysUntil(end)
}

// ValidateReturn rejects returning a borrow that is already closed.
func ValidateReturn(b models.Borrow) error {
	var v validate.Errors
	v.Check(CanReturn(b), "id", "state", "This borrow has already been returned")
	return v.Err()
}

// ValidateRenewal checks a renewal against the borrow's state.
func ValidateRenewal(b models.Borrow, newDue models.Date) error {
	var v validate.Errors
	if !CanRenew(b) {
		v.Add("id", "state", "A returned borrow cannot be renewed")
		return v.Err()
	}
	if newDue.IsZero() {
		v.Add("newDueDate", "required", "Please choose a new due date")
		return v.Err()
	}
	min := MinRenewalDate(b)
	v.Check(validate.NotBefore(newDue, min), "newDueDate", "min",
		fmt.Sprintf("New due date must be on or after %s", min))
	return v.Err()
}

// Actor is who is asking to borrow.
type Actor struct {
	StudentCode string
	Admin       bool
}

// CreateRequest is a borrow order before submission.
type CreateRequest struct {
	StudentCode string
	DueDate     models.Date
	BookIDs     []string
}

// Validate normalizes the request in place and reports every problem at once.
// Students may only borrow for themselves; admins may borrow for anyone.
func (r *CreateRequest) Validate(now time.Time, actor Actor) error {
	var v validate.Errors
	r.StudentCode = strings.TrimSpace(r.StudentCode)
	r.BookIDs = validate.DedupIDs(r.BookIDs)
	if len(r.BookIDs) == 0 {
		v.Add("bookIds", "required", "Please select at least one book")
	}
	if r.DueDate.IsZero() {
		v.Add("dueDate", "required", "Please choose a due date")
	} else {
		v.Check(validate.NotBefore(r.DueDate, models.Today(now)), "dueDate", "min", "Due date cannot be in the past")
	}
	if r.StudentCode == "" && !actor.Admin {
		r.StudentCode = actor.StudentCode
	}
	if v.Required("studentCode", r.StudentCode, "Student code is required") && !actor.Admin {
		v.Check(r.StudentCode == actor.StudentCode, "studentCode", "mismatch", "You can only borrow books for yourself")
	}
	return v.Err()
}

func (r CreateRequest) Input() models.BorrowInput {
	return models.BorrowInput{StudentCode: r.StudentCode, DueDate: r.DueDate, BookIDs: r.BookIDs}
}
