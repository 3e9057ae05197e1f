// Command trend-monitor polls RSS/Atom feeds and video pages, ranks
// keywords by a time-decayed score and prints the top trends every
// interval. Snapshots go to SQLite; counters are optionally exported in
// Prometheus format.
//
// Defaults come from compiled constants, then a .env file, then
// TREND_MONITOR_* environment variables, then flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/trendmonitor/trend-monitor/internal/analysis"
	"github.com/trendmonitor/trend-monitor/internal/config"
	"github.com/trendmonitor/trend-monitor/internal/logging"
	"github.com/trendmonitor/trend-monitor/internal/metrics"
	"github.com/trendmonitor/trend-monitor/internal/monitor"
	"github.com/trendmonitor/trend-monitor/internal/source"
	"github.com/trendmonitor/trend-monitor/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	config.LoadEnvFile(".env")
	env := config.FromEnv()

	var (
		interval      = flag.Int("interval", int(env.Interval.Seconds()), "update interval in seconds")
		retention     = flag.Int("retention", int(env.Retention.Hours()), "analysis window in hours")
		decay         = flag.Float64("decay", env.DecayHours, "exponential decay time scale in hours (0 disables decay)")
		minScore      = flag.Float64("min-score", env.MinScore, "minimum score for a trend to be reported")
		top           = flag.Int("top", env.TopK, "number of trends per snapshot")
		storagePath   = flag.String("storage", env.StoragePath, "path to the SQLite database")
		fetchRetries  = flag.Int("fetch-retries", env.FetchRetries, "fetch attempts per source before giving up")
		fetchBackoff  = flag.Float64("fetch-backoff", env.FetchBackoff, "base multiplier for the exponential retry pause")
		fetchParallel = flag.Int("fetch-concurrency", env.FetchConcurrency, "maximum concurrent source fetches")
		dedupTTL      = flag.Int("dedup-ttl", int(env.DedupTTL.Minutes()), "deduplication TTL in minutes (0 = retention window)")
		metricsPort   = flag.Int("metrics-port", env.MetricsPort, "port for the Prometheus exporter (0 = disabled)")
		metricsAddr   = flag.String("metrics-addr", env.MetricsAddr, "bind address for the Prometheus exporter")
		sourcesPath   = flag.String("sources", env.SourcesPath, "path to a JSON or YAML file with additional sources")
		once          = flag.Bool("once", env.Once, "run one update cycle and exit")
		verbose       = flag.Bool("verbose", env.Verbose, "enable debug logging")
		stemmer       = flag.Bool("stemmer", env.UseStemmer, "use the snowball stemmer instead of the rule-based normaliser")
	)
	flag.Parse()

	logging.Setup(*verbose, os.Stderr)
	log := logging.Component("main")

	opts := config.Options{
		Interval:         time.Duration(*interval) * time.Second,
		Retention:        time.Duration(*retention) * time.Hour,
		DecayHours:       *decay,
		MinScore:         *minScore,
		TopK:             *top,
		StoragePath:      *storagePath,
		FetchRetries:     *fetchRetries,
		FetchBackoff:     *fetchBackoff,
		FetchConcurrency: *fetchParallel,
		DedupTTL:         time.Duration(*dedupTTL) * time.Minute,
		MetricsPort:      *metricsPort,
		MetricsAddr:      *metricsAddr,
		SourcesPath:      *sourcesPath,
		Once:             *once,
		Verbose:          *verbose,
		UseStemmer:       *stemmer,
	}

	absPath, err := filepath.Abs(opts.StoragePath)
	if err != nil {
		log.Error().Err(err).Str("path", opts.StoragePath).Msg("bad storage path")
		return 1
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		log.Error().Err(err).Str("path", absPath).Msg("cannot create storage directory")
		return 1
	}
	store, err := storage.Open(absPath, storage.DefaultRetention, storage.DefaultVacuumEvery)
	if err != nil {
		log.Error().Err(err).Str("path", absPath).Msg("cannot open trend storage")
		return 1
	}
	defer store.Close()

	sources := buildSources(opts.SourcesPath, log)
	if len(sources) == 0 {
		log.Error().Msg("no usable sources configured")
		return 1
	}

	collector := metrics.Disabled()
	if opts.MetricsPort > 0 {
		collector = metrics.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.MetricsPort > 0 {
		go func() {
			if err := collector.Serve(ctx, opts.MetricsAddr, opts.MetricsPort); err != nil {
				log.Error().Err(err).Msg("metrics exporter stopped")
			}
		}()
	}

	mon := monitor.New(sources, store, collector, opts)
	log.Info().Int("sources", len(sources)).Dur("interval", opts.Interval).Msg("monitor starting")

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		printTrends(mon.Update(ctx))
		if opts.Once {
			return 0
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return 0
		case <-ticker.C:
		}
	}
}

// buildSources combines the built-in source set with the optional
// sources file. A source that fails to construct is logged and skipped so
// one bad entry cannot keep the rest from being polled.
func buildSources(path string, log zerolog.Logger) []source.Source {
	configs := config.DefaultSources()
	if path != "" {
		extra, err := config.LoadSourcesFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("cannot load sources file")
		} else {
			configs = append(configs, extra...)
		}
	}

	var sources []source.Source
	for _, cfg := range configs {
		src, err := source.New(cfg, nil)
		if err != nil {
			log.Warn().Err(err).Str("source", cfg.Name).Msg("skipping misconfigured source")
			continue
		}
		sources = append(sources, src)
	}
	return sources
}

func printTrends(trends []analysis.Trend) {
	now := time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05")
	fmt.Printf("=== Топ трендов %s UTC ===\n", now)
	for _, trend := range trends {
		fmt.Printf("#%s — score %s\n", trend.Keyword, strconv.FormatFloat(trend.Score, 'g', -1, 64))
		items := trend.Items
		if len(items) > 3 {
			items = items[:3]
		}
		for _, item := range items {
			fmt.Printf("    • %s (%s)\n", item.Title, item.URL)
		}
	}
	fmt.Println()
}
