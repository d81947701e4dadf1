package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/5w1tchy/library-client/internal/api/client"
	"github.com/5w1tchy/library-client/internal/covers"
	"github.com/5w1tchy/library-client/internal/listing"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/search"
	"github.com/5w1tchy/library-client/internal/storage/s3"
	"github.com/5w1tchy/library-client/internal/store/books"
	"github.com/5w1tchy/library-client/internal/store/shared"
)

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "books",
		Aliases: []string{"book"},
		Short:   "Browse and manage the catalog",
	}
	cmd.AddCommand(
		newBooksListCmd(a),
		newBooksGetCmd(a),
		newBooksRelatedCmd(a),
		newBooksSuggestCmd(a),
		newBooksZeroStockCmd(a),
		newBookWriteCmd(a, false),
		newBookWriteCmd(a, true),
		newBooksDeleteCmd(a),
	)
	return cmd
}

func newBooksListCmd(a *app) *cobra.Command {
	var (
		f           books.AdminFilter
		page        int
		admin       bool
		statusParam string
		browsing    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered",
		Example: `  libctl books list --genre Fiction
  libctl books list --keyword "tuoi tho" -o json
  libctl books list --admin --status suspended
  libctl books list --genre Fiction --browse`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := books.New(a.deps)
			if browsing {
				ctrl := listing.New[books.Filter, models.Book](a.pageSize, svc.List)
				ctrl.SetFilter(books.Filter{Keyword: f.Keyword, AuthorName: f.AuthorName, GenreName: f.GenreName})
				ctrl.SetPage(page)
				fmt.Fprintln(cmd.ErrOrStderr(), browseHelp)
				return browse(cmd.Context(), a, ctrl, func(bf books.Filter, kw string) books.Filter {
					bf.Keyword = kw
					return bf
				}, bookCols)
			}
			if !admin {
				pg, err := svc.List(cmd.Context(), books.Filter{Keyword: f.Keyword, AuthorName: f.AuthorName, GenreName: f.GenreName}, page, a.pageSize)
				if err != nil {
					return err
				}
				return renderPage(a, pg, bookCols...)
			}
			if err := a.needAdmin(); err != nil {
				return err
			}
			if statusParam != "" {
				st, err := parseBookStatus(statusParam)
				if err != nil {
					return err
				}
				f.Status = books.StatusFilter(&st)
			}
			pg, err := svc.AdminList(cmd.Context(), f, page, a.pageSize)
			if err != nil {
				return err
			}
			return renderPage(a, pg, bookCols...)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.Keyword, "keyword", "k", "", "Match title or description")
	fl.StringVar(&f.AuthorName, "author", "", "Match author name")
	fl.StringVar(&f.GenreName, "genre", "", "Match genre name")
	fl.IntVar(&page, "page", 1, "Page number (1-based)")
	fl.BoolVar(&admin, "admin", false, "Use the admin listing (includes suspended books)")
	fl.StringVar(&statusParam, "status", "", "Admin: active or suspended")
	fl.StringVar(&f.ISBN, "isbn", "", "Admin: match ISBN")
	fl.BoolVar(&browsing, "browse", false, "Page interactively: n, p, g <page>, k <keyword>, c, q")
	cmd.MarkFlagsMutuallyExclusive("browse", "admin")
	return cmd
}

func newBooksGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := books.New(a.deps).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.renderFields(b, bookFields(b))
		},
	}
}

func newBooksRelatedCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "related <id>",
		Short: "Other books in the same genre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := books.New(a.deps)
			b, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rel, err := svc.Related(cmd.Context(), b, limit)
			if err != nil {
				return err
			}
			return renderList(a, rel, bookCols...)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 4, "How many books to show")
	return cmd
}

// newBooksSuggestCmd treats every input line as a keystroke burst: only the
// latest term's suggestions are printed.
func newBooksSuggestCmd(a *app) *cobra.Command {
	var (
		delay time.Duration
		limit int
	)
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Search-as-you-type over the catalog, one term per input line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := books.New(a.deps)
			s := search.New(func(ctx context.Context, term string) ([]models.Book, error) {
				pg, err := svc.List(ctx, books.Filter{Keyword: term}, 1, limit)
				return pg.Elements, err
			}, search.Options{Delay: delay})

			// The printer stops once done is closed, even with nobody
			// receiving, and returns before RunE does.
			printed := make(chan string, 16)
			done := make(chan struct{})
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				for r := range s.Results() {
					switch {
					case r.Err != nil:
						fmt.Fprintf(a.out, "%q: %v\n", r.Term, r.Err)
					case r.Term != "":
						titles := make([]string, 0, len(r.Items))
						for _, b := range r.Items {
							titles = append(titles, b.Title)
						}
						fmt.Fprintf(a.out, "%q: %s\n", r.Term, strings.Join(titles, " | "))
					}
					select {
					case printed <- r.Term:
					case <-done:
						return
					}
				}
			}()
			defer func() {
				close(done)
				s.Close()
				<-finished
			}()

			var last string
			for {
				line, err := a.readLine("search> ")
				if err != nil {
					break
				}
				last = shared.Normalize(line)
				s.Type(line)
			}
			if last == "" {
				return nil
			}
			wait := time.NewTimer(delay + a.cfg.APITimeout)
			defer wait.Stop()
			for {
				select {
				case term := <-printed:
					if term == last {
						return nil
					}
				case <-wait.C:
					return fmt.Errorf("no suggestions for %q in time", last)
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			}
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", search.DefaultDelay, "Quiet period before searching")
	cmd.Flags().IntVar(&limit, "limit", 5, "Suggestions per term")
	return cmd
}

func newBooksZeroStockCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "zero-stock",
		Short: "Books with no copies left (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			pg, err := books.New(a.deps).ZeroStock(cmd.Context(), page, a.pageSize)
			if err != nil {
				return err
			}
			return renderPage(a, pg, bookCols...)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	return cmd
}

type bookFlags struct {
	title, description, isbn, status, published string
	stock                                       int
	authors, genres, images                     []string
}

func (bf *bookFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&bf.title, "title", "", "Title")
	f.StringVar(&bf.description, "description", "", "Description")
	f.StringVar(&bf.isbn, "isbn", "", "ISBN-13")
	f.StringVar(&bf.status, "status", "active", "active or suspended")
	f.StringVar(&bf.published, "published", "", "Publication date (YYYY-MM-DD)")
	f.IntVar(&bf.stock, "stock", 0, "Copies in stock")
	f.StringSliceVar(&bf.authors, "author", nil, "Author id (repeatable)")
	f.StringSliceVar(&bf.genres, "genre", nil, "Genre id (repeatable)")
	f.StringSliceVar(&bf.images, "image", nil, "Cover image: local path or s3://bucket/key (repeatable)")
}

// apply copies every flag that was set (or every flag, when all is true) onto in.
func (bf *bookFlags) apply(cmd *cobra.Command, in *models.BookInput, all bool) error {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }
	if set("title") {
		in.Title = bf.title
	}
	if set("description") {
		in.Description = bf.description
	}
	if set("isbn") {
		in.ISBN = bf.isbn
	}
	if set("stock") {
		in.Stock = bf.stock
	}
	if set("author") {
		in.AuthorIDs = bf.authors
	}
	if set("genre") {
		in.GenreIDs = bf.genres
	}
	if set("status") {
		st, err := parseBookStatus(bf.status)
		if err != nil {
			return err
		}
		in.Status = st
	}
	if set("published") && bf.published != "" {
		d, err := models.ParseDate(bf.published)
		if err != nil {
			return fmt.Errorf("--published: %w", err)
		}
		in.PublicationDate = &d
	}
	return nil
}

// newBookWriteCmd builds "books create" or, with update set, "books update <id>".
func newBookWriteCmd(a *app, update bool) *cobra.Command {
	var bf bookFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a book with its covers (admin)",
		Example: `  libctl books create --title "Dune Messiah" --author a1 --genre g2 --stock 3 \
    --image ./covers/messiah.jpg --image s3://covers/messiah-back.jpg`,
		Args: cobra.NoArgs,
	}
	if update {
		cmd.Use = "update <id>"
		cmd.Short = "Edit a book; only the given flags change (admin)"
		cmd.Example = `  libctl books update b1 --stock 5
  libctl books update b1 --image ./new-cover.png`
		cmd.Args = cobra.ExactArgs(1)
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := a.needAdmin(); err != nil {
			return err
		}
		ctx := cmd.Context()
		svc := books.New(a.deps)
		var in models.BookInput
		if update {
			cur, err := svc.Get(ctx, args[0])
			if err != nil {
				return err
			}
			in = inputFromBook(cur)
		}
		if err := bf.apply(cmd, &in, !update); err != nil {
			return err
		}
		if err := books.ValidateInput(&in); err != nil {
			return err
		}
		files, err := a.resolveCovers(ctx, bf.images)
		if err != nil {
			return err
		}
		var out models.Book
		if update {
			out, err = svc.Update(ctx, args[0], in, files)
		} else {
			out, err = svc.Create(ctx, in, files)
		}
		if err != nil {
			return err
		}
		return a.renderFields(out, bookFields(out))
	}
	bf.bind(cmd)
	return cmd
}

func newBooksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Suspend a book (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			if err := books.New(a.deps).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Book %s suspended.\n", args[0])
			return nil
		},
	}
}

// resolveCovers loads image refs; the S3 client is only built when a ref needs it.
func (a *app) resolveCovers(ctx context.Context, refs []string) ([]client.File, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	r := covers.Resolver{}
	for _, ref := range refs {
		if _, _, ok := s3.ParseURI(ref); ok {
			c, err := s3.New(ctx, a.cfg.S3)
			if err != nil {
				return nil, err
			}
			r.S3 = c
			break
		}
	}
	return r.Resolve(ctx, refs)
}

func inputFromBook(b models.Book) models.BookInput {
	in := models.BookInput{
		Title:           b.Title,
		Description:     b.Description,
		Stock:           b.Stock,
		Status:          b.Status,
		ISBN:            b.ISBN,
		PublicationDate: b.PublicationDate,
	}
	for _, au := range b.Authors {
		in.AuthorIDs = append(in.AuthorIDs, au.ID)
	}
	for _, g := range b.Genres {
		in.GenreIDs = append(in.GenreIDs, g.ID)
	}
	return in
}

func parseBookStatus(s string) (models.BookStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "active":
		return models.BookActive, nil
	case "0", "suspended":
		return models.BookSuspended, nil
	}
	return 0, fmt.Errorf("status %q: want active or suspended", s)
}

func bookFields(b models.Book) [][2]string {
	published := ""
	if b.PublicationDate != nil {
		published = b.PublicationDate.String()
	}
	return [][2]string{
		{"ID", b.ID},
		{"Title", b.Title},
		{"Authors", strings.Join(b.AuthorNames(), ", ")},
		{"Genres", strings.Join(b.GenreNames(), ", ")},
		{"ISBN", b.ISBN},
		{"Published", published},
		{"Stock", fmt.Sprint(b.Stock)},
		{"Status", b.Status.String()},
		{"Cover", b.Cover()},
		{"Description", b.Description},
	}
}
