// Package detect extracts tracker evidence from fetched pages.
//
// Detection runs in two stages. The detectors in a RuleSet inspect one
// shared, read-only parsed document and report raw Findings: a kind, a
// domain, an optional source URL and the method that matched. The Engine
// then resolves each finding's domain against the known-domain registry
// and merges findings that share the (kind, domain, source URL) key.
//
// The detector set is closed: one detector per model.TrackerKind.
// Content that cannot be parsed as HTML produces a model.ParseWarning and
// no detections; it never fails the scan.
//
// ExtractTrackingIDs scans raw page content for analytics and advertising
// account IDs such as Google Analytics properties or Meta pixel IDs.
package detect
