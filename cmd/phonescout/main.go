package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ncecere/phonescout/internal/config"
	"github.com/ncecere/phonescout/internal/llmclassify"
	"github.com/ncecere/phonescout/internal/pipeline"
	"github.com/ncecere/phonescout/internal/robots"
	"github.com/ncecere/phonescout/internal/runctx"
	"github.com/ncecere/phonescout/internal/scraper"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "phonescout",
		Short:         "Batch phone number extraction from company websites",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "phonescout", version)
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		inputFile  string
		rowRange   string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process an input file end to end",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Missing .env is fine; the environment may be set directly.
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if inputFile != "" {
				cfg.App.InputFile = inputFile
			}
			if rowRange != "" {
				cfg.App.RowRange = rowRange
			}
			if workers > 0 {
				cfg.App.MaxWorkers = workers
			}

			run, err := runctx.New(cfg)
			if err != nil {
				return err
			}
			defer run.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fetcher := scraper.NewRodFetcher(
				cfg.Scraper.BrowserURL,
				time.Duration(cfg.Scraper.PageTimeoutMs)*time.Millisecond,
				time.Duration(cfg.Scraper.SettleMs)*time.Millisecond,
			)

			var gate scraper.RobotsGate
			if cfg.Scraper.RespectRobots {
				gate = robots.NewGate(time.Duration(cfg.Scraper.RobotsTimeoutMs)*time.Millisecond, run.Log)
			}

			template := llmclassify.DefaultPromptTemplate
			if cfg.LLM.PromptTemplatePath != "" {
				if loaded, err := llmclassify.LoadPromptTemplate(cfg.LLM.PromptTemplatePath); err == nil {
					template = loaded
				} else {
					run.Log.Warn().Str("path", cfg.LLM.PromptTemplatePath).Err(err).
						Msg("prompt template not loadable, using built-in template")
				}
			}

			var limiter *rate.Limiter
			if cfg.LLM.RequestsPerMinute > 0 {
				limiter = rate.NewLimiter(rate.Limit(float64(cfg.LLM.RequestsPerMinute)/60.0), 1)
			}

			classifier := llmclassify.New(
				llmclassify.NewOpenAIClient(cfg.LLM),
				limiter,
				run.Log,
				llmclassify.Config{
					Model:                   cfg.LLM.Model,
					Temperature:             cfg.LLM.Temperature,
					MaxTokens:               cfg.LLM.MaxTokens,
					MaxCandidatesPerRequest: cfg.LLM.MaxCandidatesPerRequest,
					MaxRetries:              cfg.LLM.MaxRetries,
					PromptTemplate:          template,
					ContextDir:              run.ContextDir,
				},
			)

			p := &pipeline.Pipeline{
				Run:        run,
				Fetcher:    fetcher,
				Robots:     gate,
				Classifier: classifier,
			}

			res, err := p.Execute(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s finished\n", res.RunID)
			fmt.Fprintf(out, "  rows:               %d\n", res.RowsLoaded)
			fmt.Fprintf(out, "  rows with contact:  %d\n", res.RowsWithContact)
			fmt.Fprintf(out, "  sites attempted:    %d\n", res.SitesAttempted)
			fmt.Fprintf(out, "  sites with contact: %d\n", res.SitesWithContact)
			fmt.Fprintf(out, "  output:             %s\n", res.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "input xlsx/csv file (overrides config)")
	cmd.Flags().StringVarP(&rowRange, "rows", "r", "", `row range to process, e.g. "1-100" (overrides config)`)
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent row workers (overrides config)")
	return cmd
}
