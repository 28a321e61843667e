package executor

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/psqltmpl/internal/settings"
)

// DialerFor returns the dialer for a settings driver name.
func DialerFor(driver string) (Dialer, error) {
	switch driver {
	case settings.DriverPostgres, "postgresql", "pgx":
		return PgxDialer{}, nil
	case settings.DriverMySQL:
		return SQLDialer{DriverName: "mysql", DSN: MySQLDSN}, nil
	case settings.DriverSQLite, "sqlite":
		return SQLDialer{DriverName: "sqlite3", DSN: SQLiteDSN}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q (want %s, %s or %s)",
			driver, settings.DriverPostgres, settings.DriverMySQL, settings.DriverSQLite)
	}
}

// PgxDialer connects to PostgreSQL with a dedicated pgx connection.
type PgxDialer struct{}

// PostgresURL builds a postgres:// connection string from s.
func PostgresURL(s settings.Settings) (string, error) {
	if s.Port <= 0 || s.Port > 65535 {
		return "", fmt.Errorf("invalid port %d", s.Port)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.User, s.Password),
		Host:   net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:   "/" + s.Database,
	}
	return u.String(), nil
}

// Dial opens one pgx connection.
func (PgxDialer) Dial(ctx context.Context, s settings.Settings) (Conn, error) {
	connString, err := PostgresURL(s)
	if err != nil {
		return nil, err
	}
	config, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection settings: %w", err)
	}
	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (c *pgxConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

type pgxTx struct {
	tx pgx.Tx
}

// Exec sends query without arguments, so pgx uses the simple protocol and a
// template may hold several statements.
func (t *pgxTx) Exec(ctx context.Context, query string) error {
	_, err := t.tx.Exec(ctx, query)
	return err
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// SQLDialer connects through database/sql. Each Dial opens a private
// *sql.DB limited to one connection and closes it with the Conn.
type SQLDialer struct {
	DriverName string
	DSN        func(settings.Settings) (string, error)
}

// Dial opens one database/sql connection.
func (d SQLDialer) Dial(ctx context.Context, s settings.Settings) (Conn, error) {
	dsn, err := d.DSN(s)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &sqlConn{db: db, conn: conn}, nil
}

// MySQLDSN builds a go-sql-driver/mysql DSN from s.
func MySQLDSN(s settings.Settings) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = s.User
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = s.Address()
	cfg.DBName = s.Database
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}

// SQLiteDSN uses the database setting as the database file path.
func SQLiteDSN(s settings.Settings) (string, error) {
	if s.Database == "" {
		return "", fmt.Errorf("sqlite3 requires the %s setting to name a database file", settings.KeyDatabase)
	}
	return s.Database, nil
}

type sqlConn struct {
	db   *sql.DB
	conn *sql.Conn
}

func (c *sqlConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (c *sqlConn) Close(context.Context) error {
	connErr := c.conn.Close()
	dbErr := c.db.Close()
	if connErr != nil {
		return connErr
	}
	return dbErr
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Exec(ctx context.Context, query string) error {
	_, err := t.tx.ExecContext(ctx, query)
	return err
}

func (t *sqlTx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(context.Context) error {
	return t.tx.Rollback()
}
