package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/5w1tchy/library-client/internal/borrow"
	"github.com/5w1tchy/library-client/internal/export"
	"github.com/5w1tchy/library-client/internal/listing"
	"github.com/5w1tchy/library-client/internal/models"
)

func newBorrowsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "borrows",
		Aliases: []string{"borrow", "loans"},
		Short:   "Borrow, return and renew books",
	}
	cmd.AddCommand(
		newBorrowListCmd(a),
		newBorrowMineCmd(a),
		newBorrowGetCmd(a),
		newBorrowUserCmd(a),
		newBorrowOverdueCmd(a),
		newBorrowCreateCmd(a),
		newBorrowReturnCmd(a),
		newBorrowRenewCmd(a),
		newBorrowStatsCmd(a),
		newBorrowExportCmd(a),
	)
	return cmd
}

func (a *app) borrows() *borrow.Manager {
	return borrow.NewManager(a.deps).WithClock(a.now)
}

// borrowCols shows the derived phase, so a BORROWED loan past its due date
// reads as Overdue.
func (a *app) borrowCols() []col[models.Borrow] {
	now := a.now()
	return []col[models.Borrow]{
		{"ID", func(b models.Borrow) string { return b.ID }},
		{"STUDENT", func(b models.Borrow) string { return b.User.StudentCode }},
		{"BORROWER", func(b models.Borrow) string { return b.User.FullName() }},
		{"BORROWED", func(b models.Borrow) string { return b.BorrowDate.String() }},
		{"DUE", func(b models.Borrow) string { return b.DueDate.String() }},
		{"RETURNED", func(b models.Borrow) string {
			if b.Returned() {
				return b.ReturnDate.String()
			}
			return "-"
		}},
		{"STATUS", func(b models.Borrow) string { return borrow.Label(borrow.Phase(b, now)) }},
		{"BOOKS", func(b models.Borrow) string { return fmt.Sprint(len(b.Books)) }},
	}
}

func (a *app) borrowFields(b models.Borrow) [][2]string {
	now := a.now()
	titles := make([]string, 0, len(b.Books))
	for _, bk := range b.Books {
		titles = append(titles, bk.Title)
	}
	ret := "-"
	if b.Returned() {
		ret = b.ReturnDate.String()
	}
	return [][2]string{
		{"ID", b.ID},
		{"Borrower", fmt.Sprintf("%s (%s)", b.User.FullName(), b.User.StudentCode)},
		{"Borrowed", b.BorrowDate.String()},
		{"Due", b.DueDate.String()},
		{"Returned", ret},
		{"Status", borrow.Label(borrow.Phase(b, now))},
		{"Days late", fmt.Sprint(borrow.DaysLate(b, now))},
		{"Fine", b.FinalAmount.StringFixed(0)},
		{"Books", strings.Join(titles, "; ")},
	}
}

func newBorrowListCmd(a *app) *cobra.Command {
	var (
		f    borrow.Filter
		date string
		page int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Search all borrows (admin)",
		Example: `  libctl borrows list --name "nguyen"
  libctl borrows list --date 2026-10-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			if date != "" {
				d, err := models.ParseDate(date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				f.BorrowDate = d
			}
			pg, err := a.borrows().List(cmd.Context(), f, page, a.pageSize)
			if err != nil {
				return err
			}
			return renderPage(a, pg, a.borrowCols()...)
		},
	}
	cmd.Flags().StringVar(&f.OrderID, "order-id", "", "Match the borrow id")
	cmd.Flags().StringVar(&f.Name, "name", "", "Match the borrower's name")
	cmd.Flags().StringVar(&date, "date", "", "Borrow date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	return cmd
}

func newBorrowMineCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List your own borrows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needSignIn(); err != nil {
				return err
			}
			pg, err := a.borrows().Mine(cmd.Context(), page, a.pageSize)
			if err != nil {
				return err
			}
			return renderPage(a, pg, a.borrowCols()...)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	return cmd
}

func newBorrowGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one borrow with its books and fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needSignIn(); err != nil {
				return err
			}
			b, err := a.borrows().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.renderFields(b, a.borrowFields(b))
		},
	}
}

func newBorrowUserCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "user <user-id>",
		Short: "List one user's borrows (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			pg, err := a.borrows().ByUser(cmd.Context(), args[0], page, a.pageSize)
			if err != nil {
				return err
			}
			return renderPage(a, pg, a.borrowCols()...)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	return cmd
}

func newBorrowOverdueCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue borrows (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			pg, err := a.borrows().Overdue(cmd.Context(), page, a.pageSize)
			if err != nil {
				return err
			}
			return renderPage(a, pg, a.borrowCols()...)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	return cmd
}

func newBorrowCreateCmd(a *app) *cobra.Command {
	var (
		req borrow.CreateRequest
		due string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Borrow one or more books",
		Long: `Borrow one or more books until a due date. Students borrow for themselves;
admins pass --student to borrow on someone's behalf.`,
		Example: `  libctl borrows create --book b1 --book b3 --due 2026-11-01
  libctl borrows create --student SE170002 --book b2 --due 2026-11-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needSignIn(); err != nil {
				return err
			}
			if due != "" {
				d, err := models.ParseDate(due)
				if err != nil {
					return fmt.Errorf("--due: %w", err)
				}
				req.DueDate = d
			}
			snap := a.state.Snapshot()
			b, err := a.borrows().Create(cmd.Context(), req, borrow.Actor{StudentCode: snap.StudentCode, Admin: snap.Admin})
			if err != nil {
				return err
			}
			return a.renderFields(b, a.borrowFields(b))
		},
	}
	cmd.Flags().StringVar(&req.StudentCode, "student", "", "Student code (defaults to yours)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&req.BookIDs, "book", nil, "Book id (repeatable)")
	return cmd
}

func newBorrowReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <id>",
		Short: "Return a borrow's books (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			m := a.borrows()
			b, err := m.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := m.Return(cmd.Context(), b)
			if err != nil {
				return err
			}
			return a.renderFields(out, a.borrowFields(out))
		},
	}
}

func newBorrowRenewCmd(a *app) *cobra.Command {
	var due string
	cmd := &cobra.Command{
		Use:   "renew <id>",
		Short: "Move a borrow's due date (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			d, err := models.ParseDate(due)
			if err != nil {
				return fmt.Errorf("--due: %w", err)
			}
			m := a.borrows()
			b, err := m.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := m.Renew(cmd.Context(), b, d); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Borrow %s is now due %s.\n", b.ID, d)
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("due")
	return cmd
}

func newBorrowStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count open and overdue borrows (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			c, err := a.borrows().Counts(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderFields(c, [][2]string{
				{"Borrowed", fmt.Sprint(c.Borrowed)},
				{"Overdue", fmt.Sprint(c.Overdue)},
			})
		},
	}
}

func newBorrowExportCmd(a *app) *cobra.Command {
	var (
		f      borrow.Filter
		format string
		file   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every matching borrow as Parquet or YAML (admin)",
		Example: `  libctl borrows export --format parquet --file borrows.parquet
  libctl borrows export --name binh --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			write, err := export.Format(format)
			if err != nil {
				return err
			}
			m := a.borrows()
			all, err := export.Collect(cmd.Context(),
				listing.Walk[borrow.Filter, models.Borrow](cmd.Context(), m.Loader(), f, 100))
			if err != nil {
				return err
			}
			rows := export.Rows(all, a.now())

			var w io.Writer = a.out
			if file != "" && file != "-" {
				out, err := os.Create(file)
				if err != nil {
					return err
				}
				defer out.Close()
				w = out
			}
			if err := write(w, rows); err != nil {
				return err
			}
			if file != "" && file != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d borrows to %s\n", len(rows), file)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.OrderID, "order-id", "", "Match the borrow id")
	cmd.Flags().StringVar(&f.Name, "name", "", "Match the borrower's name")
	cmd.Flags().StringVar(&format, "format", "yaml", "parquet or yaml")
	cmd.Flags().StringVar(&file, "file", "", "Output file (default stdout)")
	return cmd
}
