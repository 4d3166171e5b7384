package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/hxnav/lib/demo"
)

const shutdownTimeout = 5 * time.Second

func newDemoCommand(opts *rootOptions) *cobra.Command {
	var (
		addr     string
		videos   int
		readOnly bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Serve the demo video catalogue",
		Long: `Serve a small video catalogue whose pages use every marker the engine
understands. Open it in a browser, or drive it with "hxnav browse".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.config.Demo
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("videos") {
				cfg.Videos = videos
			}
			if cmd.Flags().Changed("read-only") {
				cfg.ReadOnly = readOnly
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			return serveDemo(ctx, ln, demo.New(cfg, demo.WithLogger(opts.log)), opts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().IntVar(&videos, "videos", 0, "number of sample videos")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "disable upload, edit and delete")

	return cmd
}

// serveDemo serves site on ln until ctx is cancelled, then shuts down.
func serveDemo(ctx context.Context, ln net.Listener, site *demo.Site, opts *rootOptions) error {
	srv := &http.Server{
		Handler:           site.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts.log.Info("demo listening", "url", "http://"+ln.Addr().String(), "videos", site.Store().Len())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		opts.log.Info("demo shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
