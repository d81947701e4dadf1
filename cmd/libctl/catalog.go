package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/store/authors"
	"github.com/5w1tchy/library-client/internal/store/genres"
)

// catalogOps adapts the author and genre services, which share a shape, to
// one set of commands.
type catalogOps[T any] struct {
	search func(ctx context.Context, keyword string, page, size int) (models.Page[T], error)
	get    func(ctx context.Context, id string) (T, error)
	create func(ctx context.Context, name, text string) (T, error)
	update func(ctx context.Context, id, name, text string) (T, error)
	del    func(ctx context.Context, id string) error
}

func newAuthorsCmd(a *app) *cobra.Command {
	ops := func() catalogOps[models.Author] {
		svc := authors.New(a.deps)
		return catalogOps[models.Author]{
			search: svc.Search,
			get:    svc.Get,
			create: func(ctx context.Context, name, bio string) (models.Author, error) {
				return svc.Create(ctx, authors.Input{Name: name, Bio: bio})
			},
			update: func(ctx context.Context, id, name, bio string) (models.Author, error) {
				return svc.Update(ctx, id, authors.Input{Name: name, Bio: bio})
			},
			del: svc.Delete,
		}
	}
	return newCatalogCmd(a, "authors", "author", "bio", ops, []col[models.Author]{
		{"ID", func(x models.Author) string { return x.ID }},
		{"NAME", func(x models.Author) string { return x.Name }},
		{"BIO", func(x models.Author) string { return truncate(x.Bio, 60) }},
	})
}

func newGenresCmd(a *app) *cobra.Command {
	ops := func() catalogOps[models.Genre] {
		svc := genres.New(a.deps)
		return catalogOps[models.Genre]{
			search: svc.Search,
			get:    svc.Get,
			create: func(ctx context.Context, name, desc string) (models.Genre, error) {
				return svc.Create(ctx, genres.Input{Name: name, Description: desc})
			},
			update: func(ctx context.Context, id, name, desc string) (models.Genre, error) {
				return svc.Update(ctx, id, genres.Input{Name: name, Description: desc})
			},
			del: svc.Delete,
		}
	}
	return newCatalogCmd(a, "genres", "genre", "description", ops, []col[models.Genre]{
		{"ID", func(x models.Genre) string { return x.ID }},
		{"NAME", func(x models.Genre) string { return x.Name }},
		{"DESCRIPTION", func(x models.Genre) string { return truncate(x.Description, 60) }},
	})
}

// newCatalogCmd builds list/get/create/update/delete. ops is called at run
// time because the client only exists after the root's pre-run.
func newCatalogCmd[T any](a *app, use, noun, textFlag string, ops func() catalogOps[T], cols []col[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Aliases: []string{noun},
		Short:   fmt.Sprintf("Browse and manage %s", use),
	}

	var (
		keyword string
		page    int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s, optionally by name", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := ops().search(cmd.Context(), keyword, page, a.pageSize)
			if err != nil {
				return err
			}
			return renderPage(a, pg, cols...)
		},
	}
	list.Flags().StringVarP(&keyword, "keyword", "k", "", "Match name")
	list.Flags().IntVar(&page, "page", 1, "Page number (1-based)")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show one %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := ops().get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderList(a, []T{x}, cols...)
		},
	}

	var name, text string
	create := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Add a %s (admin)", noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			x, err := ops().create(cmd.Context(), name, text)
			if err != nil {
				return err
			}
			return renderList(a, []T{x}, cols...)
		},
	}
	update := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Rename or describe a %s (admin)", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			x, err := ops().update(cmd.Context(), args[0], name, text)
			if err != nil {
				return err
			}
			return renderList(a, []T{x}, cols...)
		},
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&name, "name", "", "Name")
		c.Flags().StringVar(&text, textFlag, "", fmt.Sprintf("The %s's %s", noun, textFlag))
		c.MarkFlagRequired("name")
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Remove a %s that no book references (admin)", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			if err := ops().del(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s %s.\n", noun, args[0])
			return nil
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}
