package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/psqltmpl/internal/settings"
)

// Dialer opens a new database connection from connection settings.
type Dialer interface {
	Dial(ctx context.Context, s settings.Settings) (Conn, error)
}

// Conn is a single open connection. It is never shared between executions.
type Conn interface {
	Begin(ctx context.Context) (Tx, error)
	Close(ctx context.Context) error
}

// Tx is the transaction a statement runs in.
type Tx interface {
	Exec(ctx context.Context, sql string) error
	Commit(ctx context.Context) error
	// Rollback after a successful Commit is a no-op.
	Rollback(ctx context.Context) error
}

// Outcome is the result of executing one statement.
type Outcome struct {
	OK   bool
	Kind FailureKind
	SQL  string
	Err  error // *MissingSettingError or *ExecutionError when !OK
}

// Diagnostic returns the operator message for a failed outcome, or "" on
// success.
func (o Outcome) Diagnostic() string {
	if o.OK || o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// MissingKey returns the absent setting for KindMissingSetting outcomes.
func (o Outcome) MissingKey() string {
	var me *MissingSettingError
	if errors.As(o.Err, &me) {
		return me.Key
	}
	return ""
}

// Executor runs side-effecting statements against the configured database.
//
// Each call to Execute opens its own connection, runs the statement in a
// transaction, commits, and closes the connection before returning.
// Connections are never pooled or reused. Result rows are not read.
type Executor struct {
	settings settings.Settings
	dialer   Dialer
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithDialer overrides the dialer chosen from the settings driver.
func WithDialer(d Dialer) Option {
	return func(e *Executor) {
		e.dialer = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// New creates an executor bound to s. The dialer is picked from the
// settings driver unless WithDialer is given.
func New(s settings.Settings, opts ...Option) (*Executor, error) {
	e := &Executor{settings: s}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.dialer == nil {
		d, err := DialerFor(s.DriverName())
		if err != nil {
			return nil, err
		}
		e.dialer = d
	}
	return e, nil
}

// Settings returns the settings the executor was built with.
func (e *Executor) Settings() settings.Settings {
	return e.settings
}

// Execute runs sql and commits it.
//
// A missing required setting fails before any connection is attempted.
// Every other error is reported as KindExecution with the attempted SQL.
func (e *Executor) Execute(ctx context.Context, sql string) Outcome {
	if missing := e.settings.Missing(); len(missing) > 0 {
		return missingSetting(sql, &MissingSettingError{Key: missing[0]})
	}

	err := e.execute(ctx, sql)
	if err == nil {
		return Outcome{OK: true, Kind: KindNone, SQL: sql}
	}

	var me *MissingSettingError
	if errors.As(err, &me) {
		return missingSetting(sql, me)
	}
	return Outcome{
		Kind: KindExecution,
		SQL:  sql,
		Err:  &ExecutionError{SQL: sql, Err: err},
	}
}

func missingSetting(sql string, err *MissingSettingError) Outcome {
	return Outcome{Kind: KindMissingSetting, SQL: sql, Err: err}
}

// execute performs connect, begin, exec, commit. The connection and the
// transaction are released on every path.
func (e *Executor) execute(ctx context.Context, sql string) error {
	e.logger.Debug("connecting",
		"driver", e.settings.DriverName(),
		"address", e.settings.Address(),
		"database", e.settings.Database,
		"user", e.settings.User)

	conn, err := e.dialer.Dial(ctx, e.settings)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(ctx); closeErr != nil {
			e.logger.Error("error closing connection", "error", closeErr)
		}
	}()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	e.logger.Debug("executing statement", "sql", sql)
	if err := tx.Exec(ctx, sql); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
