package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connection.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadBootstrapsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connection.json")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))

	var notConfigured *NotConfiguredError
	require.True(t, errors.As(err, &notConfigured))
	assert.Equal(t, path, notConfigured.Path)
	assert.Equal(t, "please configure the psql connection settings in file "+path, err.Error())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"host":"", "port":5432, "database":"", "user":"", "password":""}`, string(data))
}

func TestBootstrapFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connection.json")
	require.NoError(t, Bootstrap(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	expected := "{\n" +
		"    \"host\": \"\",\n" +
		"    \"port\": 5432,\n" +
		"    \"database\": \"\",\n" +
		"    \"user\": \"\",\n" +
		"    \"password\": \"\"\n" +
		"}\n"
	assert.Equal(t, expected, string(data))
}

func TestBootstrapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connection.json")
	require.NoError(t, Bootstrap(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.Missing())

	original, err := Marshal(Default())
	require.NoError(t, err)
	reloaded, err := Marshal(loaded)
	require.NoError(t, err)
	assert.Equal(t, string(original), string(reloaded))
}

func TestLoadConfigured(t *testing.T) {
	path := writeSettings(t, `{
		"host": "db.internal",
		"port": 6543,
		"database": "orders",
		"user": "loader",
		"password": "s3cret"
	}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", s.Host)
	assert.Equal(t, 6543, s.Port)
	assert.Equal(t, "orders", s.Database)
	assert.Equal(t, "loader", s.User)
	assert.Equal(t, "s3cret", s.Password)
	assert.Equal(t, DriverPostgres, s.DriverName())
	assert.Equal(t, "db.internal:6543", s.Address())
	assert.Nil(t, s.Missing())
}

func TestLoadReportsMissingKeys(t *testing.T) {
	path := writeSettings(t, `{"host": "h", "database": "d", "user": "u", "port": 5432}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyPassword}, s.Missing())
	assert.False(t, s.Has(KeyPassword))
	assert.True(t, s.Has(KeyHost))
}

func TestLoadMissingKeysOrder(t *testing.T) {
	path := writeSettings(t, `{}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyHost, KeyDatabase, KeyUser, KeyPassword, KeyPort}, s.Missing())
}

func TestLoadEmptyValuesArePresent(t *testing.T) {
	path := writeSettings(t, `{"host":"","port":5432,"database":"","user":"","password":""}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, s.Missing())
}

func TestLoadPortAsString(t *testing.T) {
	path := writeSettings(t, `{"host":"h","port":"5433","database":"d","user":"u","password":"p"}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5433, s.Port)
}

func TestLoadDriver(t *testing.T) {
	path := writeSettings(t, `{"host":"h","port":3306,"database":"d","user":"u","password":"p","driver":"mysql"}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, s.DriverName())
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"invalid json", `{"host": `, "parse settings"},
		{"array", `[]`, "parse settings"},
		{"null", `null`, "expected a JSON object"},
		{"bad port", `{"port": "abc"}`, "port"},
		{"bad host type", `{"host": 12}`, "host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSettings(t, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrNotConfigured))
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestLoadDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestCodeBuiltSettingsAreComplete(t *testing.T) {
	s := Settings{Host: "h", Port: 1, Database: "d", User: "u"}
	assert.Nil(t, s.Missing())
}

func TestRedacted(t *testing.T) {
	s := Settings{Password: "hunter2"}
	assert.Equal(t, "****", s.Redacted().Password)
	assert.Equal(t, "hunter2", s.Password)
	assert.Equal(t, "", Settings{}.Redacted().Password)
}
