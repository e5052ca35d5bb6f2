// Package model defines the data structures shared by every stage of a scan.
//
// This package contains the following main types:
//   - FetchOutcome: the raw result of fetching one URL
//   - TrackerDetection: one piece of tracker evidence found on a page
//   - DomainRecord: what the registry knows about a tracker domain
//   - PrivacyAssessment: the score and risk tier reduced from detections
//   - ScanResult: the terminal record emitted for every scanned URL
//
// Models live in their own package so that the fetcher, detectors, scorer,
// orchestrator and report writers can share them without import cycles.
// Every type here serializes to JSON; enums marshal as their string names.
package model
