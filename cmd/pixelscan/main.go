// Package main provides the entry point for the pixelscan CLI.
//
// pixelscan fetches web pages and reports the tracking pixels, tracker
// scripts, verification meta tags and CSS beacons they embed, together with
// a privacy score for each page.
//
// Usage:
//
//	pixelscan scan https://example.com/
//	pixelscan scan --list urls.txt --json -o report.json
//	pixelscan compare https://example.com/
//
// See --help for all available options.
package main

func main() {
	Execute()
}
