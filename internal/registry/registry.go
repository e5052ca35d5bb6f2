package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/nao1215/pixelscan/internal/model"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/net/publicsuffix"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDomain is returned when a record without a domain is added.
var ErrEmptyDomain = errors.New("registry record has an empty domain")

// Registry is an immutable domain → DomainRecord lookup table.
type Registry struct {
	records map[string]model.DomainRecord
}

// New builds a registry from records. Later records override earlier ones
// with the same domain, so callers can pass built-ins first and user
// extensions last.
func New(records ...model.DomainRecord) (*Registry, error) {
	r := &Registry{records: make(map[string]model.DomainRecord, len(records))}
	for _, rec := range records {
		d := Normalize(rec.Domain)
		if d == "" {
			return nil, fmt.Errorf("%w (company %q)", ErrEmptyDomain, rec.Company)
		}
		rec.Domain = d
		r.records[d] = rec
	}
	return r, nil
}

// Default returns a registry containing the built-in records plus extra.
func Default(extra ...model.DomainRecord) (*Registry, error) {
	return New(append(BuiltinRecords(), extra...)...)
}

// LoadFile reads additional records from a YAML file containing either a
// list of records or a mapping with a top-level "registry" list.
func LoadFile(path string) ([]model.DomainRecord, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided registry path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var records []model.DomainRecord
	if err := yaml.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		Registry []model.DomainRecord `yaml:"registry"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse registry file %s: %w", path, err)
	}
	return wrapped.Registry, nil
}

// Normalize lower-cases a host, strips a port and a trailing dot.
func Normalize(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if host, _, err := net.SplitHostPort(d); err == nil {
		d = host
	}
	return strings.TrimSuffix(d, ".")
}

// Lookup returns the record for domain: an exact match if there is one,
// otherwise the record of the longest parent domain that is registered.
// The walk stops at the public suffix; IP addresses match exactly only.
func (r *Registry) Lookup(domain string) (model.DomainRecord, bool) {
	d := Normalize(domain)
	if d == "" {
		return model.DomainRecord{}, false
	}
	if rec, ok := r.records[d]; ok {
		return rec, true
	}
	if net.ParseIP(d) != nil {
		return model.DomainRecord{}, false
	}

	suffix, _ := publicsuffix.PublicSuffix(d)
	for {
		i := strings.IndexByte(d, '.')
		if i < 0 {
			return model.DomainRecord{}, false
		}
		d = d[i+1:]
		if d == suffix {
			return model.DomainRecord{}, false
		}
		if rec, ok := r.records[d]; ok {
			return rec, true
		}
	}
}

// Resolve is Lookup with the unknown fallback: an unregistered domain gets
// category "unknown", medium risk and no regulatory flags. The returned
// record always carries the queried domain, not the matched parent.
func (r *Registry) Resolve(domain string) model.DomainRecord {
	d := Normalize(domain)
	rec, ok := r.Lookup(d)
	if !ok {
		return model.UnknownRecord(d)
	}
	rec.Domain = d
	return rec
}

// Len returns the number of registered domains.
func (r *Registry) Len() int {
	return len(r.records)
}

// Records returns every record sorted by domain.
func (r *Registry) Records() []model.DomainRecord {
	out := make([]model.DomainRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// Fingerprint returns a short hex digest of every record. Registries with
// the same records have the same fingerprint.
func (r *Registry) Fingerprint() string {
	h, _ := blake2b.New256(nil) //nolint:errcheck // an unkeyed hash cannot fail
	for _, rec := range r.Records() {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%t\x00%t\n",
			rec.Domain, rec.Company, rec.Category, rec.RiskLevel, rec.GDPRRelevant, rec.CCPARelevant)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// Stats summarizes the registry contents.
type Stats struct {
	TotalDomains   int                     `json:"total_domains"`
	TotalCompanies int                     `json:"total_companies"`
	Categories     map[string]int          `json:"categories"`
	RiskLevels     map[model.RiskLevel]int `json:"risk_levels"`
	GDPRRelevant   int                     `json:"gdpr_relevant"`
	CCPARelevant   int                     `json:"ccpa_relevant"`
}

// Stats counts domains per category and risk level.
func (r *Registry) Stats() Stats {
	s := Stats{
		TotalDomains: len(r.records),
		Categories:   make(map[string]int),
		RiskLevels:   make(map[model.RiskLevel]int),
	}
	companies := make(map[string]struct{})
	for _, rec := range r.records {
		s.Categories[rec.Category]++
		s.RiskLevels[rec.RiskLevel]++
		if rec.GDPRRelevant {
			s.GDPRRelevant++
		}
		if rec.CCPARelevant {
			s.CCPARelevant++
		}
		if rec.Company != "" {
			companies[rec.Company] = struct{}{}
		}
	}
	s.TotalCompanies = len(companies)
	return s
}

// RegistrableDomain returns the eTLD+1 of host, or host itself when it has
// none (IP addresses, single-label hosts).
func RegistrableDomain(host string) string {
	h := Normalize(host)
	if net.ParseIP(h) != nil {
		return h
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(h)
	if err != nil {
		return h
	}
	return d
}
