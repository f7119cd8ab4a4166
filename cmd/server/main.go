package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"brent-dashboard-api/internal/config"
	"brent-dashboard-api/internal/dashboard"
	"brent-dashboard-api/internal/handlers"
	"brent-dashboard-api/internal/logging"
	"brent-dashboard-api/internal/models"
	"brent-dashboard-api/internal/render"
	"brent-dashboard-api/internal/services"
	"brent-dashboard-api/pkg/priceapi"
)

// deps is everything a command needs, built once in PersistentPreRunE.
type deps struct {
	cfg     *config.Config
	logger  zerolog.Logger
	cache   *services.CacheService
	service *services.DashboardService
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	d := &deps{}

	rootCmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Brent oil price dashboard API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			logCfg := logging.DefaultLogConfig()
			logCfg.Level = cfg.LogLevel
			logCfg.FilePath = cfg.LogFile
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logCfg.Level = "debug"
			}
			logger := logging.NewLogger(logCfg)

			cache := services.NewCacheService(cfg, logger)
			var source services.Source = priceapi.NewClient(cfg.AnalysisServiceURL,
				priceapi.WithTimeout(cfg.FetchTimeout),
				priceapi.WithLogger(logger),
			)
			if cache.Enabled() {
				source = services.NewCachedSource(source, cache, cfg.AnalysisServiceURL)
			}
			loader := services.NewLoader(source, cfg.FetchTimeout, logger)

			d.cfg = cfg
			d.logger = logger
			d.cache = cache
			d.service = services.NewDashboardService(loader, cache, logger)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if d.cache != nil {
				return d.cache.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(d)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (toml, yaml or json)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(d)
		},
	})
	rootCmd.AddCommand(newRenderCmd(d))
	rootCmd.AddCommand(newTooltipCmd(d))

	return rootCmd
}

func serve(d *deps) error {
	app := handlers.NewApp(d.cfg, d.service, d.logger)

	d.service.Start(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + d.cfg.Port)
	}()

	d.logger.Info().
		Str("port", d.cfg.Port).
		Str("environment", d.cfg.Environment).
		Str("analysis_service", d.cfg.AnalysisServiceURL).
		Msg("Dashboard API started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-quit:
	}

	d.logger.Info().Msg("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	d.service.Wait()

	d.logger.Info().Msg("Server shutdown complete")
	return nil
}

// loadOnce runs a single session to completion for the one-shot commands.
func loadOnce(cmd *cobra.Command, d *deps) (*dashboard.Model, error) {
	snap, err := d.service.LoadAndWait(cmd.Context())
	if err != nil {
		return nil, err
	}
	if snap.State == dashboard.Failed {
		return nil, snap.Err
	}
	return snap.Model, nil
}

func newRenderCmd(d *deps) *cobra.Command {
	var out string
	var width, height int

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Load the dashboard once and write the chart as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadOnce(cmd, d)
			if err != nil {
				return err
			}

			opts := render.DefaultOptions()
			opts.Width = d.cfg.ChartWidth
			opts.Height = d.cfg.ChartHeight
			if width > 0 {
				opts.Width = width
			}
			if height > 0 {
				opts.Height = height
			}

			var buf bytes.Buffer
			if err := render.PNG(dashboard.Compose(model), opts, &buf); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}

			d.logger.Info().Str("file", out).Int("bytes", buf.Len()).Msg("Chart written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "chart.png", "output file")
	cmd.Flags().IntVar(&width, "width", 0, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "image height in pixels")
	return cmd
}

func newTooltipCmd(d *deps) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "tooltip",
		Short: "Load the dashboard once and print the tooltip for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := models.DateKey(date)
			if _, err := key.Time(); err != nil {
				return fmt.Errorf("invalid --date %q: must be YYYY-MM-DD", date)
			}

			model, err := loadOnce(cmd, d)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(model.Tooltip(key))
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date to resolve (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
