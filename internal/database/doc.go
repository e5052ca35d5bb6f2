// Package database stores scan history in SQLite.
//
// Every terminal ScanResult is saved as one row of the scans table plus one
// row per detection, so that later runs can list what was scanned, show the
// history of a URL and compare the latest scan with an earlier one.
//
// modernc.org/sqlite is used so that the binary stays CGO-free. The database
// is a single file opened with WAL journaling and one writer connection.
package database
