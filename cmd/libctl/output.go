package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/5w1tchy/library-client/internal/listing"
	"github.com/5w1tchy/library-client/internal/models"
)

// col is one table column.
type col[T any] struct {
	name string
	get  func(T) string
}

// render writes v as JSON or YAML, or calls table with an aligned writer.
func (a *app) render(v any, table func(w io.Writer)) error {
	switch a.format {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func writeRows[T any](w io.Writer, rows []T, cols []col[T]) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))
	for _, r := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = c.get(r)
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
}

func renderPage[T any](a *app, pg models.Page[T], cols ...col[T]) error {
	return a.render(pg, func(w io.Writer) {
		if pg.Empty() {
			fmt.Fprintln(w, "No results.")
			return
		}
		writeRows(w, pg.Elements, cols)
		fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", pg.CurrentPage+1, pg.TotalPages, pg.TotalItems)
		fmt.Fprintln(w, pagerLine(listing.NewPager(pg)))
	})
}

// pagerLine renders the page window one-based, e.g. "< prev  1 [2] 3 ... 9  next >".
// A disabled direction is left out.
func pagerLine(p listing.Pager) string {
	var parts []string
	if !p.PrevDisabled {
		parts = append(parts, "< prev ")
	}
	for _, it := range p.Visible() {
		switch {
		case it.Gap:
			parts = append(parts, "...")
		case it.Current:
			parts = append(parts, fmt.Sprintf("[%d]", it.Page+1))
		default:
			parts = append(parts, fmt.Sprint(it.Page+1))
		}
	}
	if !p.NextDisabled {
		parts = append(parts, " next >")
	}
	return strings.Join(parts, " ")
}

func renderList[T any](a *app, items []T, cols ...col[T]) error {
	return a.render(items, func(w io.Writer) {
		if len(items) == 0 {
			fmt.Fprintln(w, "No results.")
			return
		}
		writeRows(w, items, cols)
	})
}

// renderFields prints a single record as "key: value" lines in table mode.
func (a *app) renderFields(v any, fields [][2]string) error {
	return a.render(v, func(w io.Writer) {
		for _, f := range fields {
			fmt.Fprintf(w, "%s:\t%s\n", f[0], f[1])
		}
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

var (
	bookCols = []col[models.Book]{
		{"ID", func(b models.Book) string { return b.ID }},
		{"TITLE", func(b models.Book) string { return truncate(b.Title, 40) }},
		{"AUTHORS", func(b models.Book) string { return truncate(strings.Join(b.AuthorNames(), ", "), 30) }},
		{"GENRES", func(b models.Book) string { return truncate(strings.Join(b.GenreNames(), ", "), 30) }},
		{"STOCK", func(b models.Book) string { return fmt.Sprint(b.Stock) }},
		{"STATUS", func(b models.Book) string { return b.Status.String() }},
	}
	userCols = []col[models.User]{
		{"ID", func(u models.User) string { return u.ID }},
		{"USERNAME", func(u models.User) string { return u.Username }},
		{"NAME", func(u models.User) string { return u.FullName() }},
		{"CODE", func(u models.User) string { return u.StudentCode }},
		{"EMAIL", func(u models.User) string { return u.Email }},
		{"PHONE", func(u models.User) string { return u.PhoneNumber }},
		{"STATUS", func(u models.User) string { return u.Status }},
	}
)

func userFields(u models.User) [][2]string {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Name)
	}
	return [][2]string{
		{"ID", u.ID},
		{"Username", u.Username},
		{"Name", u.FullName()},
		{"Student code", u.StudentCode},
		{"Email", u.Email},
		{"Phone", u.PhoneNumber},
		{"Status", u.Status},
		{"Roles", strings.Join(roles, ", ")},
	}
}
