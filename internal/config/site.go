package config

import (
	"strings"
	"time"

	"github.com/nao1215/pixelscan/internal/model"
)

// SiteConfig holds request customizations for a single host.
type SiteConfig struct {
	// Cookie is sent as the Cookie header, e.g. "consent=granted".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// ScanOverrides mirrors ScanConfig with optional fields so that a
// configuration file only overrides what it names.
type ScanOverrides struct {
	ConcurrencyLimit *int              `yaml:"concurrency_limit,omitempty"`
	RateLimitDelay   *time.Duration    `yaml:"rate_limit_delay,omitempty"`
	RequestTimeout   *time.Duration    `yaml:"request_timeout,omitempty"`
	MaxRetries       *int              `yaml:"max_retries,omitempty"`
	RetryBackoffBase *time.Duration    `yaml:"retry_backoff_base,omitempty"`
	ScoringWeights   *ScoringWeights   `yaml:"scoring_weights,omitempty"`
	RiskThresholds   *RiskThresholds   `yaml:"risk_thresholds,omitempty"`
	Headers          map[string]string `yaml:"headers,omitempty"`
	UserAgent        string            `yaml:"user_agent,omitempty"`
}

// File represents the structure of the .pixelscan.yaml configuration file.
type File struct {
	// Scan overrides the default scan options.
	Scan ScanOverrides `yaml:"scan,omitempty"`

	// Sites maps host names to their request customizations.
	// Keys are bare hosts such as "shop.example.com".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Registry lists extra tracker domains merged into the built-in registry.
	Registry []model.DomainRecord `yaml:"registry,omitempty"`
}

// SiteConfig returns the configuration for host, merging the site entry
// over the defaults. A "www." prefix is ignored when looking up the host.
func (cf *File) SiteConfig(host string) SiteConfig {
	result := SiteConfig{Cookie: cf.Defaults.Cookie}
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	host = strings.ToLower(host)
	site, ok := cf.Sites[host]
	if !ok {
		site, ok = cf.Sites[strings.TrimPrefix(host, "www.")]
	}
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	return result
}

// Apply copies the overrides of the file onto cfg. Values set on the
// command line afterwards still win because the CLI applies flags last.
func (cf *File) Apply(cfg *Config) {
	o := cf.Scan
	if o.ConcurrencyLimit != nil {
		cfg.Scan.ConcurrencyLimit = *o.ConcurrencyLimit
	}
	if o.RateLimitDelay != nil {
		cfg.Scan.RateLimitDelay = *o.RateLimitDelay
	}
	if o.RequestTimeout != nil {
		cfg.Scan.RequestTimeout = *o.RequestTimeout
	}
	if o.MaxRetries != nil {
		cfg.Scan.MaxRetries = *o.MaxRetries
	}
	if o.RetryBackoffBase != nil {
		cfg.Scan.RetryBackoffBase = *o.RetryBackoffBase
	}
	if o.ScoringWeights != nil {
		cfg.Scan.Weights = *o.ScoringWeights
	}
	if o.RiskThresholds != nil {
		cfg.Scan.Thresholds = *o.RiskThresholds
	}
	if len(o.Headers) > 0 {
		if cfg.Scan.Headers == nil {
			cfg.Scan.Headers = make(map[string]string, len(o.Headers))
		}
		for k, v := range o.Headers {
			cfg.Scan.Headers[k] = v
		}
	}
	if o.UserAgent != "" {
		cfg.UserAgent = o.UserAgent
	}
	cfg.File = cf
}
