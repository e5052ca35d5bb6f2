package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Application defaults.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pixelscan"

	// DefaultUserAgent identifies pixelscan in HTTP requests so site
	// operators can recognize scanner traffic in their logs.
	DefaultUserAgent = "pixelscan/1.0 (+https://github.com/nao1215/pixelscan)"

	// DefaultMaxBodySize limits how much of a response body is read.
	// 5MB covers nearly every HTML page.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultCacheTTL is how long a completed result stays in the Redis cache.
	DefaultCacheTTL = time.Hour
)

// DefaultHeaders are sent with every request unless overridden.
var DefaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

// Config holds the application-level options populated from CLI flags and
// the configuration file. It is passed down explicitly rather than kept in
// global state.
type Config struct {
	// Scan is the batch configuration handed to the orchestrator.
	Scan ScanConfig

	// Targets is the list of URLs to scan.
	Targets []string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit path of the configuration file.
	// If empty, FindConfigFile searches the current and home directories.
	ConfigFilePath string

	// File holds the parsed configuration file, if one was found.
	File *File

	// JSONReport, MarkdownReport and CSVReport select the report format.
	// At most one may be set; none means the plain-text report.
	JSONReport     bool
	MarkdownReport bool
	CSVReport      bool

	// ReportFile is the output path. Empty means stdout.
	ReportFile string

	// TeeReport also prints the report to stdout when ReportFile is set.
	TeeReport bool

	// DetailedReport lists every detection in the plain-text report.
	DetailedReport bool

	// UserAgent is the User-Agent header of every request.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// MaxBodySize is the maximum number of response bytes to read.
	MaxBodySize int64

	// DBDir is where the SQLite scan history lives.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB stores every terminal result in the scan history.
	SaveToDB bool

	// RedisAddr enables the result cache when non-empty.
	RedisAddr string

	// CacheTTL is the lifetime of cached results.
	CacheTTL time.Duration

	// RefreshCache drops the cached results of the targets before scanning.
	RefreshCache bool

	// SQSQueueURL enables publishing terminal results to SQS when non-empty.
	SQSQueueURL string

	// RegistryFile is an optional YAML file of extra registry records.
	RegistryFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Scan:        NewScanConfig(),
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
		CacheTTL:    DefaultCacheTTL,
	}
}

// XDGDataDir returns the XDG data directory for pixelscan.
// On Linux: ~/.local/share/pixelscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pixelscan.
// On Linux: ~/.config/pixelscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for pixelscan.
// On Linux: ~/.cache/pixelscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// Errors from the embedded ScanConfig are *ConfigurationError values.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	formats := 0
	for _, set := range []bool{c.JSONReport, c.MarkdownReport, c.CSVReport} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return invalid("max_body_size", ErrInvalidMaxBodySize)
	}
	if c.CacheTTL < 0 {
		return invalid("cache_ttl", ErrInvalidCacheTTL)
	}
	return c.Scan.Validate()
}

// RequestHeaders returns the headers for a request to host: defaults, then
// the scan-level headers, then the site-specific headers and cookie from the
// configuration file. Later layers win.
func (c *Config) RequestHeaders(host string) map[string]string {
	headers := make(map[string]string, len(DefaultHeaders)+len(c.Scan.Headers)+1)
	for k, v := range DefaultHeaders {
		headers[k] = v
	}
	if c.UserAgent != "" {
		headers["User-Agent"] = c.UserAgent
	}
	for k, v := range c.Scan.Headers {
		headers[k] = v
	}
	if c.File != nil {
		site := c.File.SiteConfig(host)
		for k, v := range site.Headers {
			headers[k] = v
		}
		if site.Cookie != "" {
			headers["Cookie"] = site.Cookie
		}
	}
	return headers
}
