// Package cli defines the scrapeform command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/scrapeform/internal/app"
	"github.com/raysh454/scrapeform/internal/clipboard"
	"github.com/raysh454/scrapeform/internal/controller"
	"github.com/raysh454/scrapeform/internal/logging"
	"github.com/raysh454/scrapeform/internal/model"
	"github.com/raysh454/scrapeform/internal/producer"
	"github.com/raysh454/scrapeform/internal/staging"
)

const appName = "scrapeform"

// NewRootCmd builds the root command with the serve and scrape subcommands.
// Each call returns a fresh tree so tests can run it in parallel.
func NewRootCmd() *cobra.Command {
	cfg := app.DefaultConfig()

	root := &cobra.Command{
		Use:          appName,
		Short:        "Web scraper form with JSON, CSV and text output",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")
	root.PersistentFlags().DurationVar(&cfg.Producer.Delay, "delay", cfg.Producer.Delay, "Simulated scrape delay")
	root.PersistentFlags().BoolVar(&cfg.Producer.FilterCategories, "filter-categories", false, "Only return the requested element types")

	root.AddCommand(newServeCmd(cfg), newScrapeCmd(cfg))
	return root
}

func newServeCmd(cfg *app.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scraper form over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.NewLogger(cmd.OutOrStdout(), appName, cfg.LogLevel)
			if err != nil {
				return err
			}
			a, err := app.NewApplication(cfg, logger)
			if err != nil {
				return fmt.Errorf("starting application: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Server.ListenAddr, "addr", cfg.Server.ListenAddr, "HTTP listen address")
	f.StringVar(&cfg.ClipboardBackend, "clipboard", cfg.ClipboardBackend, "Clipboard backend: system|memory")
	f.StringVar(&cfg.StagingDir, "staging-dir", "", "Directory for staged downloads (default: a temporary directory)")
	f.Float64Var(&cfg.Server.RateLimit, "rate", cfg.Server.RateLimit, "Mutating requests per second (0 disables limiting)")
	f.IntVar(&cfg.Server.RateBurst, "burst", cfg.Server.RateBurst, "Burst size for mutating requests")
	return cmd
}

type scrapeFlags struct {
	url      string
	selector string
	elements []string
	format   string
	timeout  time.Duration
}

// newScrapeCmd runs one submission through the controller without the
// HTTP surface and prints what the page would display.
func newScrapeCmd(cfg *app.Config) *cobra.Command {
	var sf scrapeFlags
	cmd := &cobra.Command{
		Use:   "scrape [url]",
		Short: "Run one scrape and print the formatted result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				sf.url = args[0]
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if sf.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, sf.timeout)
				defer cancel()
			}
			return runScrape(ctx, cfg, sf, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&sf.url, "url", "", "Target URL")
	f.StringVar(&sf.selector, "selector", "", "Custom selector")
	f.StringSliceVar(&sf.elements, "elements", nil, "Element types: headings,links,images,text")
	f.StringVar(&sf.format, "format", string(model.FormatJSON), "Output format: json|csv|text")
	f.DurationVar(&sf.timeout, "timeout", 30*time.Second, "Overall timeout")
	return cmd
}

func runScrape(ctx context.Context, cfg *app.Config, sf scrapeFlags, stdout, stderr io.Writer) error {
	logger, err := logging.NewLogger(stderr, appName, cfg.LogLevel)
	if err != nil {
		return err
	}

	// Nothing is downloaded here, but the controller still needs a store.
	dir, err := os.MkdirTemp("", "scrapeform-staging-")
	if err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(dir)
	store, err := staging.New(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl := controller.New(cfg.Controller, producer.New(cfg.Producer, logger), clipboard.NewMemory(), store, logger)
	defer ctrl.Close()

	err = ctrl.Submit(ctx, model.FormInput{
		URL:      sf.url,
		Selector: sf.selector,
		Elements: sf.elements,
		Format:   sf.format,
	})
	if err != nil {
		return err
	}
	out := ctrl.View().Output
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(stdout, out)
	return err
}
