// Package report renders scan results and scan comparisons.
//
// Four formats are provided:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: machine-readable output for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown with a category pie chart
//   - CSVWriter: one row per result for spreadsheets
//
// All writers implement Writer and can be combined with MultiWriter.
package report
