package executor

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/psqltmpl/internal/settings"
)

func TestDialerFor(t *testing.T) {
	d, err := DialerFor(settings.DriverPostgres)
	require.NoError(t, err)
	assert.IsType(t, PgxDialer{}, d)

	d, err = DialerFor(settings.DriverMySQL)
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.(SQLDialer).DriverName)

	d, err = DialerFor(settings.DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", d.(SQLDialer).DriverName)

	_, err = DialerFor("db2")
	require.Error(t, err)
}

func TestPostgresURL(t *testing.T) {
	s := settings.Settings{
		Host:     "db.example.com",
		Port:     6432,
		Database: "orders",
		User:     "loader",
		Password: "p@ss:w/rd",
	}

	connString, err := PostgresURL(s)
	require.NoError(t, err)

	config, err := pgx.ParseConfig(connString)
	require.NoError(t, err)
	assert.Equal(t, "db.example.com", config.Host)
	assert.Equal(t, uint16(6432), config.Port)
	assert.Equal(t, "orders", config.Database)
	assert.Equal(t, "loader", config.User)
	assert.Equal(t, "p@ss:w/rd", config.Password)
}

func TestPostgresURLInvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		_, err := PostgresURL(settings.Settings{Port: port})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid port")
	}
}

func TestMySQLDSN(t *testing.T) {
	s := settings.Settings{
		Host:     "mysql.internal",
		Port:     3306,
		Database: "shop",
		User:     "root",
		Password: "pw",
	}

	dsn, err := MySQLDSN(s)
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.User)
	assert.Equal(t, "pw", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "mysql.internal:3306", cfg.Addr)
	assert.Equal(t, "shop", cfg.DBName)
	assert.True(t, cfg.MultiStatements)
}

func TestSQLiteDSN(t *testing.T) {
	dsn, err := SQLiteDSN(settings.Settings{Database: "/tmp/x.db"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", dsn)

	_, err = SQLiteDSN(settings.Settings{})
	require.Error(t, err)
}
