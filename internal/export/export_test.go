package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/5w1tchy/library-client/internal/models"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func sample() []models.Borrow {
	ret := models.MustDate("2026-10-14")
	return []models.Borrow{
		{
			ID: "br1", BorrowDate: models.MustDate("2026-10-01"), DueDate: models.MustDate("2026-10-10"),
			ReturnDate: &ret, FinalAmount: decimal.NewFromInt(20000), Status: models.StatusReturned,
			User:  models.Borrower{FirstName: "An", LastName: "Tran", StudentCode: "SE170001"},
			Books: []models.Book{{ID: "b1", Title: "Dune"}, {ID: "b2", Title: "Emma"}},
		},
		{
			ID: "br2", BorrowDate: models.MustDate("2026-10-05"), DueDate: models.MustDate("2026-10-12"),
			Status: models.StatusBorrowed,
			User:   models.Borrower{FirstName: "Binh", LastName: "Le", StudentCode: "SE170002"},
			Books:  []models.Book{{ID: "b3", Title: "Ulysses"}},
		},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sample(), now)
	if rows[0].Status != "RETURNED" || rows[0].ReturnDate != "2026-10-14" || rows[0].DaysLate != 4 {
		t.Fatalf("row0=%+v", rows[0])
	}
	if rows[0].BookIDs != "b1,b2" || rows[0].FinalAmount != "20000.00" || rows[0].Borrower != "An Tran" {
		t.Fatalf("row0=%+v", rows[0])
	}
	if rows[1].Status != "OVERDUE" || rows[1].ReturnDate != "" || rows[1].DaysLate != 4 {
		t.Fatalf("row1=%+v", rows[1])
	}
}

func TestParquetRoundTrip(t *testing.T) {
	rows := Rows(sample(), now)
	var buf bytes.Buffer
	if err := Parquet(&buf, rows); err != nil {
		t.Fatal(err)
	}
	got, err := ReadParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != rows[0] || got[1] != rows[1] {
		t.Fatalf("got %+v", got)
	}
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := YAML(&buf, Rows(sample(), now)); err != nil {
		t.Fatal(err)
	}
	var back []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[0]["studentCode"] != "SE170001" {
		t.Fatalf("yaml=%s", buf.String())
	}
	if _, ok := back[1]["returnDate"]; ok {
		t.Fatal("open borrow must omit returnDate")
	}
}

func TestCollect(t *testing.T) {
	all := sample()
	pages := func(yield func(models.Page[models.Borrow], error) bool) {
		if !yield(models.Paginate(all, 0, 1), nil) {
			return
		}
		yield(models.Paginate(all, 1, 1), nil)
	}
	got, err := Collect(context.Background(), pages)
	if err != nil || len(got) != 2 {
		t.Fatalf("got %d err %v", len(got), err)
	}

	boom := errors.New("boom")
	failing := func(yield func(models.Page[models.Borrow], error) bool) {
		yield(models.Page[models.Borrow]{}, boom)
	}
	if _, err := Collect(context.Background(), failing); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestFormat(t *testing.T) {
	if _, err := Format("YAML"); err != nil {
		t.Fatal(err)
	}
	if _, err := Format("csv"); err == nil || !strings.Contains(err.Error(), "csv") {
		t.Fatalf("err=%v", err)
	}
}
