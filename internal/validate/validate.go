package validate

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/5w1tchy/library-client/internal/api/apperr"
	"github.com/5w1tchy/library-client/internal/models"
)

var (
	ErrInvalid = errors.New("invalid")

	isbnRe  = regexp.MustCompile(`^\d{13}$`)
	emailRe = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?\d{9,15}$`)
)

// Errors collects per-field problems found before a request is sent.
type Errors struct {
	list []apperr.FieldError
}

func (e *Errors) Add(field, code, message string) {
	e.list = append(e.list, apperr.FieldError{Field: field, Code: code, Message: message})
}

func (e *Errors) FieldErrors() []apperr.FieldError { return e.list }

func (e *Errors) Has(field string) bool {
	for _, fe := range e.list {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *Errors) Error() string {
	parts := make([]string, 0, len(e.list))
	for _, fe := range e.list {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

// Is makes every Errors match ErrInvalid.
func (e *Errors) Is(target error) bool { return target == ErrInvalid }

// Err returns nil when nothing was recorded, so callers can `return v.Err()`.
func (e *Errors) Err() error {
	if e == nil || len(e.list) == 0 {
		return nil
	}
	return e
}

// Required records a problem when s is blank.
func (e *Errors) Required(field, s, message string) bool {
	if strings.TrimSpace(s) == "" {
		e.Add(field, "required", message)
		return false
	}
	return true
}

// Bounded records a problem when the trimmed rune length is outside [min, max].
func (e *Errors) Bounded(field, s string, min, max int) {
	if _, err := RequireBounded(field, s, min, max); err != nil {
		e.Add(field, "length", err.Error())
	}
}

func (e *Errors) Check(ok bool, field, code, message string) {
	if !ok {
		e.Add(field, code, message)
	}
}

// RequireBounded trims and ensures length bounds.
func RequireBounded(name, s string, min, max int) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < min || utf8.RuneCountInString(s) > max {
		return "", errors.New(name + " must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max) + " characters")
	}
	return s, nil
}

// ISBN accepts exactly 13 digits; hyphens and spaces are ignored.
func ISBN(s string) bool {
	s = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s))
	return isbnRe.MatchString(s)
}

func Email(s string) bool { return emailRe.MatchString(strings.TrimSpace(s)) }

func Phone(s string) bool {
	s = strings.NewReplacer(" ", "", "-", "", ".", "").Replace(strings.TrimSpace(s))
	return phoneRe.MatchString(s)
}

// NotBefore reports whether d is on or after min.
func NotBefore(d, min models.Date) bool { return !d.Before(min) }

// DedupIDs trims, drops blanks and removes duplicates keeping first occurrence.
func DedupIDs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ClampPage parses and clamps a 1-based page and a page size.
func ClampPage(page, size, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > max {
		size = def
	}
	return page, size
}
