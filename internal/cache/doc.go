// Package cache stores completed scan results in Redis so that repeated
// scans of the same URL within the TTL skip the network.
//
// Keys are "pixelscan:url:" followed by the hex BLAKE2b-256 digest of the
// URL; values are the JSON-encoded model.ScanResult.
package cache
