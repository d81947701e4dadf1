package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/5w1tchy/library-client/internal/api/client"
	"github.com/5w1tchy/library-client/internal/auth"
	"github.com/5w1tchy/library-client/internal/config"
	"github.com/5w1tchy/library-client/internal/query"
	"github.com/5w1tchy/library-client/internal/session"
	"github.com/5w1tchy/library-client/internal/store/shared"
)

// skipSetup marks commands that run without a session or API client.
const skipSetup = "libctl/skip-setup"

var (
	errSignedOut = errors.New("not signed in; run `libctl login` first")
	errNotAdmin  = errors.New("this command needs an admin account")
)

// app carries everything a command needs. It is built once per process in
// the root's persistent pre-run.
type app struct {
	in    io.Reader
	lines *bufio.Reader
	out   io.Writer

	envFiles []string
	format   string
	pageSize int

	cfg   config.Config
	state *session.State
	store *session.SQLStore
	rdb   *redis.Client
	cache *query.Client
	api   *client.Client
	deps  shared.Deps

	now        func() time.Time
	httpClient *http.Client
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{in: in, out: out, now: time.Now}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libctl",
		Short: "Command-line client for the library management backend",
		Long: `libctl browses the catalog, manages borrowings and favorites, and runs the
admin screens of the library backend from a terminal.

Sign in once with "libctl login"; the session is kept in a local SQLite file
(or Postgres, see LIB_SESSION_DSN) until you log out or the token expires.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&a.format, "output", "o", "table", "Output format: table, json or yaml")
	f.StringSliceVar(&a.envFiles, "env-file", nil, "Environment files to load (default ./.env)")
	f.IntVar(&a.pageSize, "page-size", 0, "Items per page (default LIB_PAGE_SIZE)")

	cmd.AddGroup(
		&cobra.Group{ID: "account", Title: "Account"},
		&cobra.Group{ID: "catalog", Title: "Catalog"},
		&cobra.Group{ID: "circulation", Title: "Circulation"},
		&cobra.Group{ID: "admin", Title: "Administration"},
	)
	for _, c := range []*cobra.Command{newLoginCmd(a), newLogoutCmd(a), newMeCmd(a), newRegisterCmd(a)} {
		c.GroupID = "account"
		cmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{newBooksCmd(a), newAuthorsCmd(a), newGenresCmd(a)} {
		c.GroupID = "catalog"
		cmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{newBorrowsCmd(a), newFavoritesCmd(a)} {
		c.GroupID = "circulation"
		cmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{newUsersCmd(a), newDashboardCmd(a), newSandboxCmd(a)} {
		c.GroupID = "admin"
		cmd.AddCommand(c)
	}
	return cmd
}

func (a *app) setup(ctx context.Context, cmd *cobra.Command) error {
	if err := config.LoadDotenv(a.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.pageSize <= 0 {
		a.pageSize = cfg.PageSize
	}
	switch a.format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", a.format)
	}
	for _, w := range cfg.Warnings() {
		log.Printf("[config] %s", w)
	}
	if cmd.Annotations[skipSetup] == "true" {
		return nil
	}

	store, err := session.Open(ctx, cfg.SessionDSN)
	if err != nil {
		return err
	}
	a.store = store
	a.state = session.New(store).WithClock(a.now)
	if err := a.state.Restore(ctx); err != nil {
		log.Printf("[session] restore: %v", err)
	}

	var qs query.Store = query.NewMemoryStore()
	if rdb, err := cfg.NewRedis(ctx); err != nil {
		log.Printf("[query] shared cache unavailable, using memory: %v", err)
	} else if rdb != nil {
		a.rdb = rdb
		qs = query.NewRedisStore(rdb, cfg.CacheTimeout)
	}
	a.cache = query.New(qs, query.WithTTL(cfg.CacheTTL))

	a.api, err = client.New(client.Options{
		BaseURL:        cfg.APIURL,
		Timeout:        cfg.APITimeout,
		HTTPClient:     a.httpClient,
		Tokens:         a.state,
		OnUnauthorized: auth.Unauthorized(a.state, a.cache),
		UserAgent:      "libctl/" + version,
	})
	if err != nil {
		return err
	}
	a.deps = shared.Deps{API: a.api, Cache: a.cache, Scope: a.state.UserID}
	return nil
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
		a.rdb = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("[session] close: %v", err)
		}
		a.store = nil
	}
}

func (a *app) needSignIn() error {
	if !a.state.Authenticated() {
		return errSignedOut
	}
	return nil
}

// needAdmin only spares a round trip; the backend enforces roles.
func (a *app) needAdmin() error {
	if err := a.needSignIn(); err != nil {
		return err
	}
	if !a.state.IsAdmin() {
		return errNotAdmin
	}
	return nil
}
