// Package journal provides an optional SQLite record of scenario runs.
//
// A Journal implements runner.Observer. Attach it with runner.WithObserver
// and every run writes:
//   - Runs: one row per invocation with its template, state and failing index
//   - Statements: one row per executed statement with the scenario, the
//     rendered SQL and the outcome
//
// Scenarios are stored as JSON in source order alongside a content hash of
// their bindings. The hash is computed over RFC 8785 canonical JSON with
// NFC-normalized strings, so the same bindings hash identically regardless
// of key order in the scenarios file.
//
// Statement rows are ordered by seq, the scenario index within the run.
// Timestamps are informational only.
package journal
