// Package config provides configuration structures and utilities for pixelscan.
// It defines the batch-level ScanConfig consumed by the orchestrator, the
// application-level Config populated from CLI flags, and the optional YAML
// configuration file with per-site headers and registry extensions.
package config
