package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Zachdehooge/radar-dashboard/internal/advisory"
	"github.com/Zachdehooge/radar-dashboard/internal/config"
	"github.com/Zachdehooge/radar-dashboard/internal/fetcher"
	"github.com/Zachdehooge/radar-dashboard/internal/generator"
	"github.com/Zachdehooge/radar-dashboard/internal/logger"
	"github.com/Zachdehooge/radar-dashboard/internal/server"
	"github.com/Zachdehooge/radar-dashboard/internal/widget"
)

const envPrefix = "RADAR"

var (
	cfgFile    string
	outputFile string
	serverURL  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "radar-dashboard",
		Short: "Animated weather radar with tropical advisories",
		Long: `Radar Dashboard animates the most recent RainViewer radar frames and
overlays the active National Hurricane Center advisory shapefiles.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.radar-dashboard.yml)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	cobra.OnInitialize(func() { initConfig(rootCmd) })

	addServeCmd(rootCmd)
	addRenderCmd(rootCmd)
	addListCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig(rootCmd *cobra.Command) {
	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".radar-dashboard")
	}

	// --max-frames maps to RADAR_MAX_FRAMES
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}
	cobra.CheckErr(v.BindPFlags(rootCmd.PersistentFlags()))
}

// setup loads the configuration and builds the logger every command needs.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

func newClient(cfg *config.Config, log *zap.Logger) *fetcher.Client {
	return fetcher.New(fetcher.Options{
		TimestampsURL: cfg.TimestampsURL,
		FeedURL:       cfg.FeedURL,
		Timeout:       cfg.FetchTimeout,
		Retries:       cfg.FetchRetries,
	}, log)
}

// addServeCmd adds the 'serve' subcommand that runs the widget behind the HTTP API
func addServeCmd(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the radar widget and serve it over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := widget.New(cfg, newClient(cfg, log), log)
			config.WatchMarkers(viper.GetViper(), log, w.SetMarkers)

			srv, err := server.New(w, cfg, log)
			if err != nil {
				return err
			}

			log.Info("starting radar dashboard",
				zap.String("listen", cfg.Listen),
				zap.Int("maxFrames", cfg.MaxFrames),
				zap.Duration("updateInterval", cfg.UpdateInterval),
				zap.Bool("advisories", cfg.Advisories),
				zap.Bool("outlook", cfg.Outlook))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return w.Run(gctx) })
			g.Go(func() error { return srv.ListenAndServe(gctx) })
			if err := g.Wait(); err != nil {
				log.Error("radar dashboard stopped", zap.Error(err))
				return err
			}
			log.Info("radar dashboard stopped")
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd)
}

// addRenderCmd adds a 'render' subcommand that writes the page to a static file
func addRenderCmd(rootCmd *cobra.Command) {
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Write the radar page to an HTML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			if err := generator.WritePage(generator.NewPageView(cfg, serverURL), outputFile); err != nil {
				return fmt.Errorf("failed to generate HTML: %w", err)
			}
			cmd.Println(fmt.Sprintf("Radar page saved to %s", outputFile))
			return nil
		},
	}

	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "radar.html", "Output HTML file path")
	renderCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Dashboard server the page polls")

	rootCmd.AddCommand(renderCmd)
}

// addListCmd adds a 'list' subcommand to show frames and advisories without serving
func addListCmd(rootCmd *cobra.Command) {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List radar frames and active advisories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			client := newClient(cfg, log)

			frames, err := client.Timestamps(cmd.Context(), cfg.MaxFrames)
			if err != nil {
				return fmt.Errorf("failed to fetch radar frames: %w", err)
			}
			cmd.Println("Radar Frames:")
			for _, ts := range frames {
				cmd.Println(fmt.Sprintf("  %d  %s", ts, time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)))
			}

			if !cfg.Advisories {
				return nil
			}
			items, err := client.Feed(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch advisories: %w", err)
			}

			shown := 0
			for _, item := range items {
				kind, ok := advisory.Classify(item.Title)
				if !ok {
					continue
				}
				if shown == 0 {
					cmd.Println("Active Advisories:")
				}
				shown++
				cmd.Println("---")
				cmd.Println(fmt.Sprintf("Type: %s", kind))
				cmd.Println(fmt.Sprintf("Title: %s", item.Title))
				cmd.Println(fmt.Sprintf("Shapefile: %s", item.ID))
			}
			if shown == 0 {
				cmd.Println("No active advisories.")
			}
			return nil
		},
	}

	rootCmd.AddCommand(listCmd)
}
