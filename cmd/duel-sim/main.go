// Command duel-sim casts votes drawn from hidden strengths against a duel
// server (or a local fit) and reports how well the ranking recovers them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/duel/internal/simulate"
	"github.com/okian/duel/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("duel-sim", flag.ContinueOnError)
	fs.SetOutput(stdout)
	var (
		baseURL   = fs.String("url", envOr("DUEL_SIM_URL", simulate.DefaultBaseURL), "Base URL of the service")
		catalog   = fs.String("catalog", envOr("DUEL_CATALOG_PATH", "data/suburbs.csv"), "Catalog CSV for offline runs")
		votes     = fs.Int("votes", simulate.DefaultVotes, "Number of votes to cast")
		workers   = fs.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = fs.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		settle    = fs.Duration("settle", simulate.DefaultSettleTimeout, "How long to wait for votes to be recorded")
		seed      = fs.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
		spread    = fs.Float64("spread", simulate.DefaultSpread, "Standard deviation of log true strength")
		dupRate   = fs.Float64("dup-rate", 0, "Fraction of votes re-sent with the same id")
		minCorr   = fs.Float64("min-corr", simulate.DefaultMinCorrelation, "Fail below this Spearman correlation")
		offline   = fs.Bool("offline", false, "Fit locally without a server")
		output    = fs.String("output", "", "Write the cast votes as JSON to this file")
		logFormat = fs.String("log-format", "text", "Log format: text or json")
		verbose   = fs.Bool("verbose", false, "Enable debug logging")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := logger.Init(logger.WithWriter(stdout), logger.WithFormat(*logFormat)); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "init logging:", err)
		return 2
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:        *baseURL,
		CatalogPath:    *catalog,
		Votes:          *votes,
		Workers:        *workers,
		Timeout:        *timeout,
		SettleTimeout:  *settle,
		Seed:           *seed,
		Spread:         *spread,
		DuplicateRate:  *dupRate,
		MinCorrelation: *minCorr,
		Offline:        *offline,
		OutputFile:     *output,
	}

	log := logger.Named("simulate")
	report, err := simulate.Run(ctx, cfg, log)
	if report != nil {
		printReport(stdout, report)
	}
	if err != nil {
		log.Error(ctx, "simulation failed", logger.Error(err))
		return 1
	}
	return 0
}

func printReport(w io.Writer, r *simulate.Report) {
	_, _ = fmt.Fprintf(w, "competitors=%d iterations=%d converged=%t spearman=%.3f\n",
		r.Competitors, r.Iterations, r.Converged, r.Correlation)
	_, _ = fmt.Fprintf(w, "%4s  %-24s %10s %10s\n", "rank", "competitor", "fitted", "true")
	for _, s := range r.Top {
		_, _ = fmt.Fprintf(w, "%4d  %-24s %10.4f %10.4f\n", s.Rank, s.Competitor, s.Fitted, s.True)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
