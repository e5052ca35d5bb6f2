package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pixelscan/internal/cache"
	"github.com/nao1215/pixelscan/internal/config"
	"github.com/nao1215/pixelscan/internal/database"
	"github.com/nao1215/pixelscan/internal/detect"
	"github.com/nao1215/pixelscan/internal/fetch"
	pslog "github.com/nao1215/pixelscan/internal/log"
	"github.com/nao1215/pixelscan/internal/model"
	"github.com/nao1215/pixelscan/internal/pipeline"
	"github.com/nao1215/pixelscan/internal/publish"
	"github.com/nao1215/pixelscan/internal/registry"
	"github.com/nao1215/pixelscan/internal/report"
)

// publishTimeout bounds publishing after the batch, which may run after
// an interrupt has already cancelled the scan context.
const publishTimeout = 30 * time.Second

var errInvalidHeader = errors.New("invalid header: expected name=value")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Scan web pages for tracking pixels and tracker scripts",
		Long: `Scan fetches each URL once and inspects the HTML for:
- Tracking pixels (1x1 images, beacon paths, known tracker hosts)
- Tracker scripts (external SDKs, inline snippets, fingerprinting code)
- Verification and social meta tags
- CSS background-image beacons

Each page gets a privacy score from 0 to 100 and a risk level. URLs are
fetched concurrently, with a shared rate limit and retries for transient
network errors. A failing URL never stops the rest of the batch.

Examples:
  # Scan a single page
  pixelscan scan https://example.com/

  # Scan URLs listed in a file, one per line
  pixelscan scan --list urls.txt

  # Write a JSON report to a file
  pixelscan scan --json -o report.json https://example.com/

  # Export a CSV file and still print the report to the terminal
  pixelscan scan --csv -o report.csv --tee --list urls.txt

  # Send a consent cookie and scan through a SOCKS5 proxy
  pixelscan scan -H "Cookie=consent=yes" --proxy 127.0.0.1:1080 https://example.com/

  # Cache results in Redis and publish them to SQS
  pixelscan scan --redis-addr localhost:6379 --sqs-queue-url https://sqs.../results https://example.com/

  # Ignore cached results and rescan
  pixelscan scan --redis-addr localhost:6379 --refresh https://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	f := cmd.Flags()
	f.StringP("list", "l", "", "File with one URL per line (# starts a comment)")
	f.StringP("config", "c", "", "Configuration file path (default: .pixelscan.yaml in current or home directory)")

	f.IntP("concurrency", "C", config.DefaultConcurrencyLimit, "Maximum number of URLs fetched at once")
	f.DurationP("rate-limit", "r", config.DefaultRateLimitDelay, "Minimum delay between requests (0 disables pacing)")
	f.DurationP("timeout", "t", config.DefaultRequestTimeout, "Timeout of a single request")
	f.Int("retries", config.DefaultMaxRetries, "Retries after a transient network error")
	f.Duration("backoff", config.DefaultRetryBackoffBase, "Base of the exponential retry backoff")

	f.String("user-agent", config.DefaultUserAgent, "User-Agent header")
	f.StringArrayP("header", "H", nil, "Extra request header as name=value (repeatable)")
	f.StringP("proxy", "x", "", "SOCKS5 proxy address (e.g. 127.0.0.1:1080)")
	f.String("registry", "", "YAML file with extra tracker domains")

	f.BoolP("json", "j", false, "Output JSON report (mutually exclusive with --markdown and --csv)")
	f.BoolP("markdown", "m", false, "Output Markdown report (mutually exclusive with --json and --csv)")
	f.Bool("csv", false, "Output one CSV row per URL (mutually exclusive with --json and --markdown)")
	f.StringP("output", "o", "", "Write report to specified file path (creates directories if needed)")
	f.Bool("tee", false, "With --output, also print the report to stdout")
	f.BoolP("details", "d", false, "List every detection in the text report")

	f.String("db-dir", "", "Scan history directory (default: XDG data directory)")
	f.Bool("no-db", false, "Do not save results to the scan history")

	f.String("redis-addr", "", "Redis address for the result cache (e.g. localhost:6379)")
	f.Duration("cache-ttl", config.DefaultCacheTTL, "Lifetime of cached results")
	f.Bool("refresh", false, "Drop cached results of the given URLs before scanning")
	f.String("sqs-queue-url", "", "Publish every result to this SQS queue")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := pslog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag reads --verbose from the command or the root.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig layers defaults, the configuration file and the flags that
// were set explicitly, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	f := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = f.GetString("config")
	if err != nil {
		return nil, err
	}
	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		cf, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cf.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if f.Changed("concurrency") {
		if cfg.Scan.ConcurrencyLimit, err = f.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if f.Changed("rate-limit") {
		if cfg.Scan.RateLimitDelay, err = f.GetDuration("rate-limit"); err != nil {
			return nil, err
		}
	}
	if f.Changed("timeout") {
		if cfg.Scan.RequestTimeout, err = f.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if f.Changed("retries") {
		if cfg.Scan.MaxRetries, err = f.GetInt("retries"); err != nil {
			return nil, err
		}
	}
	if f.Changed("backoff") {
		if cfg.Scan.RetryBackoffBase, err = f.GetDuration("backoff"); err != nil {
			return nil, err
		}
	}
	if f.Changed("user-agent") {
		if cfg.UserAgent, err = f.GetString("user-agent"); err != nil {
			return nil, err
		}
	}

	rawHeaders, err := f.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	headers, err := parseHeaders(rawHeaders)
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		if cfg.Scan.Headers == nil {
			cfg.Scan.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			cfg.Scan.Headers[k] = v
		}
	}

	if cfg.ProxyAddress, err = f.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.RegistryFile, err = f.GetString("registry"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = f.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = f.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.CSVReport, err = f.GetBool("csv"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = f.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.TeeReport, err = f.GetBool("tee"); err != nil {
		return nil, err
	}
	if cfg.DetailedReport, err = f.GetBool("details"); err != nil {
		return nil, err
	}

	dbDir, err := f.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	noDB, err := f.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	if cfg.RedisAddr, err = f.GetString("redis-addr"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = f.GetDuration("cache-ttl"); err != nil {
		return nil, err
	}
	if cfg.RefreshCache, err = f.GetBool("refresh"); err != nil {
		return nil, err
	}
	if cfg.SQSQueueURL, err = f.GetString("sqs-queue-url"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	cfg.Targets = append(cfg.Targets, args...)
	listFile, err := f.GetString("list")
	if err != nil {
		return nil, err
	}
	if listFile != "" {
		urls, err := readURLList(listFile)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, urls...)
	}

	return cfg, nil
}

// parseHeaders converts "Name=value" pairs into a header map.
func parseHeaders(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidHeader, p)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// readURLList reads one URL per line, skipping blank lines and comments.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return urls, nil
}

// runScan scans cfg.Targets and writes the report. It fails only when the
// scan cannot be set up; per-URL failures are part of the report.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	fetcher, err := buildFetcher(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := []pipeline.OrchestratorOption{
		pipeline.WithHeaders(cfg.RequestHeaders),
		pipeline.WithOrchestratorLogger(logger),
	}

	if cfg.RedisAddr != "" {
		rc := cache.New(cfg.RedisAddr,
			cache.WithTTL(cfg.CacheTTL),
			cache.WithNamespace(reg.Fingerprint()),
			cache.WithLogger(logger),
		)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("result cache unavailable, scanning without it", "addr", cfg.RedisAddr, "error", err)
		} else {
			if cfg.RefreshCache {
				refreshCache(ctx, rc, cfg.Targets, logger)
			}
			opts = append(opts, pipeline.WithCache(rc))
		}
	}

	var db *database.ScanDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	var pub *publish.SQSPublisher
	if cfg.SQSQueueURL != "" {
		pub, err = publish.NewDefaultSQSPublisher(ctx, cfg.SQSQueueURL, publish.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to set up SQS publisher: %w", err)
		}
	}

	events := make(chan pipeline.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(stderr, events)
	}()
	opts = append(opts, pipeline.WithEvents(events))

	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"concurrency", cfg.Scan.ConcurrencyLimit,
		"rateLimit", cfg.Scan.RateLimitDelay,
	)
	start := time.Now()

	orch := pipeline.NewOrchestrator(fetcher, detect.NewEngine(reg, detect.WithLogger(logger)), cfg.Scan, opts...)
	results, err := orch.Scan(ctx, cfg.Targets)
	close(events)
	<-done
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Scanned %d URL(s) in %s\n", len(results), time.Since(start).Round(time.Millisecond))

	saveResults(ctx, db, results, logger)
	if pub != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		if err := pub.PublishAll(pubCtx, results); err != nil {
			logger.Error("failed to publish results", "error", err)
		}
		cancel()
	}

	return writeReport(cfg, results, stdout)
}

func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	var extra []model.DomainRecord
	if cfg.File != nil {
		extra = append(extra, cfg.File.Registry...)
	}
	if cfg.RegistryFile != "" {
		recs, err := registry.LoadFile(cfg.RegistryFile)
		if err != nil {
			return nil, err
		}
		extra = append(extra, recs...)
	}
	reg, err := registry.Default(extra...)
	if err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	return reg, nil
}

func buildFetcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*fetch.HTTPFetcher, error) {
	opts := []fetch.Option{
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	}
	if cfg.ProxyAddress != "" {
		client, err := fetch.NewProxyClient(cfg.ProxyAddress)
		if err != nil {
			return nil, err
		}
		if status := fetch.CheckProxy(ctx, cfg.ProxyAddress); status != fetch.ProxyStatusOK {
			return nil, fmt.Errorf("proxy check failed: %s (make sure a SOCKS5 proxy is running at %s)",
				status, cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		opts = append(opts, fetch.WithHTTPClient(client))
	}
	return fetch.NewHTTPFetcher(opts...), nil
}

// cacheInvalidator drops cached results.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, rawURL string) error
}

// refreshCache drops the cached result of every target. Failures are
// logged; the scan then may still be served from the cache.
func refreshCache(ctx context.Context, c cacheInvalidator, targets []string, logger *slog.Logger) {
	for _, u := range targets {
		if err := c.Invalidate(ctx, u); err != nil {
			logger.Warn("failed to drop cached result", "url", u, "error", err)
		}
	}
	logger.Debug("dropped cached results", "count", len(targets))
}

// printProgress writes one line per finished URL until events is closed.
func printProgress(w io.Writer, events <-chan pipeline.Event) {
	var finished int
	for ev := range events {
		if !ev.Status.IsTerminal() {
			continue
		}
		finished++
		r := ev.Result
		switch {
		case ev.Status == model.StatusCompleted && r.Assessment != nil:
			suffix := ""
			if r.Cached {
				suffix = " (cached)"
			}
			fmt.Fprintf(w, "[%d] %s: score %d, %s risk, %d tracker(s)%s\n",
				finished, ev.URL, r.Assessment.Score, r.Assessment.RiskLevel, len(r.Detections), suffix)
		case ev.Status == model.StatusFailed && r.Error != nil:
			fmt.Fprintf(w, "[%d] %s: failed: %s\n", finished, ev.URL, r.Error.Message)
		default:
			fmt.Fprintf(w, "[%d] %s: %s\n", finished, ev.URL, ev.Status)
		}
	}
}

// saveResults stores every result; a nil db is a no-op.
func saveResults(ctx context.Context, db *database.ScanDB, results []*model.ScanResult, logger *slog.Logger) {
	if db == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, r := range results {
		if _, err := db.SaveResult(ctx, r); err != nil {
			logger.Error("failed to save scan result", "url", r.URL, "error", err)
		}
	}
	logger.Info("scan results saved to database", "count", len(results), "path", db.Path())
}

// reportFormat is the output format of a report or comparison.
type reportFormat int

const (
	formatText reportFormat = iota
	formatJSON
	formatMarkdown
	formatCSV
)

// selectFormat maps the format flags to a reportFormat. At most one flag
// may be set.
func selectFormat(asJSON, asMarkdown, asCSV bool) (reportFormat, error) {
	format, n := formatText, 0
	if asJSON {
		format, n = formatJSON, n+1
	}
	if asMarkdown {
		format, n = formatMarkdown, n+1
	}
	if asCSV {
		format, n = formatCSV, n+1
	}
	if n > 1 {
		return formatText, config.ErrConflictingReportFormats
	}
	return format, nil
}

// newReportWriter selects the writer for the requested format.
func newReportWriter(out io.Writer, format reportFormat, details bool) report.Writer {
	switch format {
	case formatJSON:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case formatMarkdown:
		return report.NewMarkdownWriter(out)
	case formatCSV:
		return report.NewCSVWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(details))
	}
}

// openOutput returns the report destination and a function closing it.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func writeReport(cfg *config.Config, results []*model.ScanResult, stdout io.Writer) error {
	out, closeFn, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	format, err := selectFormat(cfg.JSONReport, cfg.MarkdownReport, cfg.CSVReport)
	if err != nil {
		_ = closeFn()
		return err
	}
	var w report.Writer = newReportWriter(out, format, cfg.DetailedReport)
	if cfg.TeeReport && cfg.ReportFile != "" {
		w = report.NewMultiWriter(w, newReportWriter(stdout, format, cfg.DetailedReport))
	}
	if _, err := w.Write(report.NewReport(results, time.Now())); err != nil {
		_ = closeFn()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeFn()
}
