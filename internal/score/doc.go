// Package score reduces tracker detections into a privacy assessment.
//
// Score is the deterministic scoring function. PrivacyScorer wraps it as an
// Analyzer, the capability the scan pipeline calls after detection, so an
// alternative analyzer can be selected when a batch is configured.
package score
