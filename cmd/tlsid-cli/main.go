package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tlsid/app"
	"tlsid/internal/config"
	"tlsid/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath        string
		datasetPath       string
		jaVersion         int
		window            int
		minSupport        float64
		maxCandidates     int
		contextAttributes []string
		testRatio         float64
		csvReportPath     string
		htmlReportPath    string
		reportDBDSN       string
		debug             bool
	)

	cmd := &cobra.Command{
		Use:   "tlsid-cli",
		Short: "Identify the client application behind a captured TLS connection",
		Long: `tlsid-cli combines fingerprint lookup and frequent-pattern context
scoring to identify, per captured TLS connection, the application that
produced it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			applyFlagOverrides(cfg, cmd, datasetPath, jaVersion, window, minSupport,
				maxCandidates, contextAttributes, testRatio, csvReportPath, htmlReportPath,
				reportDBDSN, debug)

			if err := config.Validate(cfg); err != nil {
				return err
			}

			log := logging.Default(cfg.Debug)
			defer log.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := app.New(cfg, log)
			result, err := svc.Run(ctx)
			if err != nil {
				return err
			}

			printSummary(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
	cmd.Flags().StringVar(&datasetPath, "dataset-path", "", "path to the semicolon-delimited CSV or .xlsx capture dataset")
	cmd.Flags().IntVar(&jaVersion, "ja-version", 0, "JA fingerprint version: 3 or 4")
	cmd.Flags().IntVar(&window, "window", 0, "sliding window size")
	cmd.Flags().Float64Var(&minSupport, "min-support", 0, "minimum itemset support in (0,1]")
	cmd.Flags().IntVar(&maxCandidates, "max-candidates", 0, "top-N candidate list size")
	cmd.Flags().StringSliceVar(&contextAttributes, "context-attributes", nil, "ordered list of context attribute column names")
	cmd.Flags().Float64Var(&testRatio, "test-ratio", 0, "test split ratio in (0,1)")
	cmd.Flags().StringVar(&csvReportPath, "csv-report", "", "optional path to append the CSV report")
	cmd.Flags().StringVar(&htmlReportPath, "html-report", "", "optional path to write an HTML summary")
	cmd.Flags().StringVar(&reportDBDSN, "report-db-dsn", "", "optional Postgres DSN for the run-history sink")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command, datasetPath string, jaVersion, window int,
	minSupport float64, maxCandidates int, contextAttributes []string, testRatio float64,
	csvReportPath, htmlReportPath, reportDBDSN string, debug bool) {

	f := cmd.Flags()
	if f.Changed("dataset-path") {
		cfg.DatasetPath = datasetPath
	}
	if f.Changed("ja-version") {
		cfg.JAVersion = jaVersion
	}
	if f.Changed("window") {
		cfg.SlidingWindowSize = window
	}
	if f.Changed("min-support") {
		cfg.MinSupport = minSupport
	}
	if f.Changed("max-candidates") {
		cfg.MaxCandidatesLength = maxCandidates
	}
	if f.Changed("context-attributes") {
		cfg.ContextAttributes = contextAttributes
	}
	if f.Changed("test-ratio") {
		cfg.TestRatio = testRatio
	}
	if f.Changed("csv-report") {
		cfg.CSVReportPath = csvReportPath
	}
	if f.Changed("html-report") {
		cfg.HTMLReportPath = htmlReportPath
	}
	if f.Changed("report-db-dsn") {
		cfg.ReportDBDSN = reportDBDSN
	}
	if f.Changed("debug") {
		cfg.Debug = debug
	}
}

func printSummary(result *app.Result) {
	fmt.Printf("Run %s complete\n", result.RunID)
	fmt.Printf("Fingerprint-only accuracy: %.4f (error rate %.4f)\n",
		result.Report.JADerived.OverallAccuracy, result.Report.JADerived.ErrorRate)
	fmt.Printf("Combined (fingerprint+SNI+session) accuracy: %.4f (error rate %.4f)\n",
		result.Report.JACombDerived.OverallAccuracy, result.Report.JACombDerived.ErrorRate)
	fmt.Printf("Empty candidates: ja=%d ja_comb=%d\n",
		result.Report.JA.EmptyCandidates, result.Report.JAComb.EmptyCandidates)
}
