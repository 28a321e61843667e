// Package executor runs rendered SQL statements for their side effects.
//
// An Executor is built once from connection settings. Every Execute call
// acquires a fresh connection, runs the statement inside a transaction,
// commits, and releases the connection before returning:
//
//	exec, err := executor.New(s)
//	if err != nil {
//	    return err
//	}
//	outcome := exec.Execute(ctx, "DELETE FROM t WHERE id=1;")
//	if !outcome.OK {
//	    fmt.Println(outcome.Diagnostic())
//	}
//
// Failures come back as data, not as printed side effects. An Outcome is
// either KindMissingSetting (a required setting was absent, nothing was
// sent) or KindExecution (the client library failed; the error and the SQL
// are attached).
//
// PostgreSQL is reached through pgx. The mysql and sqlite3 drivers go
// through database/sql with a single-connection handle per call.
package executor
