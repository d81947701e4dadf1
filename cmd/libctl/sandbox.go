package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/5w1tchy/library-client/internal/maintenance"
	"github.com/5w1tchy/library-client/internal/sandbox"
)

func newSandboxCmd(a *app) *cobra.Command {
	var (
		addr    string
		verbose bool
		empty   bool
		sweepAt string
		tz      string
	)
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve an in-memory library backend for local use",
		Long: `Serves the library REST API from memory, seeded with a small demo catalog
and three accounts (admin/admin123, an/student1, binh/student2). Point libctl at
it with LIB_API_URL=http://localhost:9192/api/.

State is lost on exit.`,
		Example: `  libctl sandbox
  libctl sandbox --addr :8080 --verbose`,
		Annotations: map[string]string{skipSetup: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := sandbox.New(sandbox.Options{
				Secret:  []byte(a.cfg.SandboxSecret),
				Empty:   empty,
				Verbose: verbose,
			})
			mux := http.NewServeMux()
			mux.Handle("/", srv)
			mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					log.Printf("[sandbox] healthcheck write: %v", err)
				}
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			maintenance.StartOverdueSweep(ctx, srv, sweepAt, tz)

			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			serverErr := make(chan error, 1)
			go func() {
				log.Printf("[sandbox] listening on %s, API at http://localhost%s%s/", addr, addr, sandbox.Prefix)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				log.Printf("[sandbox] shutting down")
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return err
				}
				log.Printf("[sandbox] stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9192", "Listen address")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every request")
	cmd.Flags().BoolVar(&empty, "empty", false, "Start without demo data")
	cmd.Flags().StringVar(&sweepAt, "sweep-at", "00:05", "Daily overdue sweep time (HH:MM)")
	cmd.Flags().StringVar(&tz, "tz", "Asia/Ho_Chi_Minh", "Time zone for the sweep")
	return cmd
}
