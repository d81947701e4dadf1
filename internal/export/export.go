// Package export writes borrow reports as Parquet or YAML.
package export

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/5w1tchy/library-client/internal/borrow"
	"github.com/5w1tchy/library-client/internal/models"
)

// Row is one borrow flattened for reporting. Dates are ISO strings and an
// open borrow has an empty ReturnDate.
type Row struct {
	ID          string `parquet:"id" yaml:"id"`
	StudentCode string `parquet:"student_code" yaml:"studentCode"`
	Borrower    string `parquet:"borrower" yaml:"borrower"`
	BorrowDate  string `parquet:"borrow_date" yaml:"borrowDate"`
	DueDate     string `parquet:"due_date" yaml:"dueDate"`
	ReturnDate  string `parquet:"return_date,optional" yaml:"returnDate,omitempty"`
	Status      string `parquet:"status" yaml:"status"`
	DaysLate    int32  `parquet:"days_late" yaml:"daysLate"`
	FinalAmount string `parquet:"final_amount" yaml:"finalAmount"`
	BookIDs     string `parquet:"book_ids" yaml:"bookIds"`
	Titles      string `parquet:"titles" yaml:"titles"`
}

// Rows flattens borrows, using the derived lifecycle phase as status.
func Rows(borrows []models.Borrow, now time.Time) []Row {
	out := make([]Row, 0, len(borrows))
	for _, b := range borrows {
		titles := make([]string, 0, len(b.Books))
		for _, bk := range b.Books {
			titles = append(titles, bk.Title)
		}
		r := Row{
			ID:          b.ID,
			StudentCode: b.User.StudentCode,
			Borrower:    b.User.FullName(),
			BorrowDate:  b.BorrowDate.String(),
			DueDate:     b.DueDate.String(),
			Status:      borrow.Phase(b, now).String(),
			DaysLate:    int32(borrow.DaysLate(b, now)),
			FinalAmount: b.FinalAmount.StringFixed(2),
			BookIDs:     strings.Join(b.BookIDs(), ","),
			Titles:      strings.Join(titles, "; "),
		}
		if b.Returned() {
			r.ReturnDate = b.ReturnDate.String()
		}
		out = append(out, r)
	}
	return out
}

func Parquet(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("export: parquet write: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("export: parquet close: %w", err)
	}
	return nil
}

// ReadParquet reads rows back, in batches.
func ReadParquet(r io.ReaderAt, size int64) ([]Row, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var out []Row
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		out = append(out, batch[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("export: parquet read: %w", err)
		}
	}
}

func YAML(w io.Writer, rows []Row) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("export: yaml: %w", err)
	}
	return enc.Close()
}

// Collect drains a page sequence into one slice.
func Collect(ctx context.Context, pages iter.Seq2[models.Page[models.Borrow], error]) ([]models.Borrow, error) {
	var out []models.Borrow
	for pg, err := range pages {
		if err != nil {
			return out, err
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, pg.Elements...)
	}
	return out, nil
}

// Format picks a writer by name: "parquet" or "yaml".
func Format(name string) (func(io.Writer, []Row) error, error) {
	switch strings.ToLower(name) {
	case "parquet":
		return Parquet, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return nil, fmt.Errorf("export: unknown format %q", name)
}
