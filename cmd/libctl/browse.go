package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/5w1tchy/library-client/internal/listing"
)

const browseHelp = "Commands: n (next), p (prev), g <page>, k <keyword>, c (clear), q (quit)"

// browse pages through a listing interactively. Commands come one per line
// from the app's input; end of input quits.
func browse[F listing.Criteria, T any](ctx context.Context, a *app, ctrl *listing.Controller[F, T], keyword func(F, string) F, cols []col[T]) error {
	reload := true
	for {
		if reload {
			v, err := ctrl.Load(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				fmt.Fprintf(a.out, "Error: %v\n", err)
			}
			if v.Status == listing.Ready || v.Stale {
				if v.Stale {
					fmt.Fprintln(a.out, "(showing the last page that loaded)")
				}
				if err := renderPage(a, v.Page, cols...); err != nil {
					return err
				}
			} else if v.Status == listing.Empty {
				fmt.Fprintln(a.out, "No results.")
			}
		}
		reload = true

		line, err := a.readLine("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(verb) {
		case "", "q", "quit":
			return nil
		case "n", "next":
			if !ctrl.Next() {
				fmt.Fprintln(a.out, "Already on the last page.")
				reload = false
			}
		case "p", "prev":
			if !ctrl.Prev() {
				fmt.Fprintln(a.out, "Already on the first page.")
				reload = false
			}
		case "g", "page":
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				fmt.Fprintf(a.out, "Not a page number: %q\n", arg)
				reload = false
				continue
			}
			ctrl.SetPage(n)
		case "k", "keyword":
			ctrl.SetFilter(keyword(ctrl.Filter(), arg))
		case "c", "clear":
			ctrl.Clear()
		default:
			fmt.Fprintln(a.out, browseHelp)
			reload = false
		}
	}
}
