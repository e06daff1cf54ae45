package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"cronograma/internal/capture"
	appLog "cronograma/internal/log"
	"cronograma/internal/web"
)

func serveCmd(flags *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			// --listen overrides the config file listen address.
			if listen != "" {
				a.cfg.Listen = listen
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			srv, err := web.NewServer(a.cfg, a.renderer, a.store, a.metrics)
			if err != nil {
				return err
			}

			if a.cfg.Snapshot.Cron != "" {
				c := cron.New()
				if _, err := c.AddFunc(a.cfg.Snapshot.Cron, func() { _ = a.snapshot(ctx, "") }); err != nil {
					return err
				}
				c.Start()
				appLog.Info("snapshot job scheduled", "cron", a.cfg.Snapshot.Cron, "path", a.cfg.Snapshot.Path)
				defer func() {
					stopCtx := c.Stop()
					select {
					case <-stopCtx.Done():
					case <-time.After(5 * time.Second):
						appLog.Warn("snapshot job still running at shutdown")
					}
				}()
			}

			appLog.Info("cronograma starting", "listen", "http://"+a.cfg.Listen, "input", a.cfg.Input)
			if err := srv.ListenAndServe(ctx); err != nil {
				appLog.Error("HTTP server stopped", err)
				return err
			}
			appLog.Info("cronograma exiting")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

// snapshot captures the chart page to the configured PNG path. An empty url
// falls back to the configured snapshot URL, then to the local /chart page.
func (a *app) snapshot(ctx context.Context, url string) error {
	if url == "" {
		url = a.cfg.Snapshot.URL
	}
	if url == "" {
		url = "http://" + a.cfg.Listen + "/chart"
	}

	start := time.Now()
	err := capture.ChartPNG(ctx, capture.Options{
		URL:        url,
		OutputPath: a.cfg.Snapshot.Path,
		Width:      a.cfg.Snapshot.Width,
		Height:     a.cfg.Snapshot.Height,
	})
	a.metrics.ObserveExport("png", err)
	if err != nil {
		appLog.Error("snapshot failed", err, "url", url)
		return err
	}
	appLog.Info("snapshot written", "path", a.cfg.Snapshot.Path, "elapsed", time.Since(start).Round(time.Millisecond).String())
	return nil
}
