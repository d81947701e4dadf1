package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/store/favorites"
)

var favoriteCols = []col[models.Favorite]{
	{"BOOK", func(f models.Favorite) string { return f.BookID }},
	{"TITLE", func(f models.Favorite) string { return truncate(f.Title, 40) }},
	{"AUTHORS", func(f models.Favorite) string {
		names := make([]string, 0, len(f.Authors))
		for _, a := range f.Authors {
			names = append(names, a.Name)
		}
		return truncate(strings.Join(names, ", "), 30)
	}},
}

func newFavoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Keep a list of favorite books",
	}

	var page int
	list := &cobra.Command{
		Use:   "list",
		Short: "List your favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := favorites.New(a.deps).List(cmd.Context(), page, a.pageSize)
			if err != nil {
				return err
			}
			return renderPage(a, pg, favoriteCols...)
		},
	}
	list.Flags().IntVar(&page, "page", 1, "Page number (1-based)")

	add := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Add a book to your favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := favorites.New(a.deps).Add(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s to favorites.\n", args[0])
			return nil
		},
	}
	remove := &cobra.Command{
		Use:     "remove <book-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a book from your favorites",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := favorites.New(a.deps).Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s from favorites.\n", args[0])
			return nil
		},
	}
	toggle := &cobra.Command{
		Use:   "toggle <book-id>",
		Short: "Add the book if missing, remove it otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := favorites.New(a.deps).Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintf(a.out, "Added %s to favorites.\n", args[0])
			} else {
				fmt.Fprintf(a.out, "Removed %s from favorites.\n", args[0])
			}
			return nil
		},
	}

	for _, c := range []*cobra.Command{list, add, remove, toggle} {
		run := c.RunE
		c.RunE = func(cmd *cobra.Command, args []string) error {
			if err := a.needSignIn(); err != nil {
				return err
			}
			return run(cmd, args)
		}
	}
	cmd.AddCommand(list, add, remove, toggle)
	return cmd
}
