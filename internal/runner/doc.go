// Package runner executes a SQL template once per scenario, fail-fast.
//
// Per run the states are:
//
//	NOT_CONFIGURED -> bootstrap settings, halt
//	CONFIGURED -> RUNNING -> ALL_SUCCEEDED | FAILED_AT(index)
//
// There is no resume or retry. A failed run is corrected and invoked again
// from the start. Statements committed before the failure remain committed.
package runner
