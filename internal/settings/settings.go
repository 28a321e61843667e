package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// Setting keys as they appear in the connection settings file.
const (
	KeyHost     = "host"
	KeyPort     = "port"
	KeyDatabase = "database"
	KeyUser     = "user"
	KeyPassword = "password"
	KeyDriver   = "driver"
)

// DefaultPath is the settings file used when no path is given.
const DefaultPath = "connection.json"

// DefaultPort is the port written to a freshly bootstrapped settings file.
const DefaultPort = 5432

// Supported values for the optional driver setting.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
)

// RequiredKeys lists the settings every execution needs, in the order the
// executor hands them to the client library.
var RequiredKeys = []string{KeyHost, KeyDatabase, KeyUser, KeyPassword, KeyPort}

// ErrNotConfigured is returned by Load when the settings file did not exist
// and a default one was written in its place.
var ErrNotConfigured = errors.New("connection settings not configured")

// NotConfiguredError names the settings file the operator has to fill in.
// It matches ErrNotConfigured with errors.Is.
type NotConfiguredError struct {
	Path string
}

func (e *NotConfiguredError) Error() string {
	return ConfigureMessage(e.Path)
}

// Is reports whether target is ErrNotConfigured.
func (e *NotConfiguredError) Is(target error) bool {
	return target == ErrNotConfigured
}

// ConfigureMessage is the operator prompt printed after a bootstrap.
func ConfigureMessage(path string) string {
	return fmt.Sprintf("please configure the psql connection settings in file %s", path)
}

// Settings holds database connection parameters.
//
// Settings loaded from a file remember which keys the file contained, so a
// missing key can be told apart from an empty value. Settings built in code
// are treated as complete.
type Settings struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	Driver   string `json:"driver,omitempty"`

	present map[string]bool
}

// Default returns the record written on first run.
func Default() Settings {
	return Settings{Port: DefaultPort}
}

// DriverName returns the configured driver, falling back to postgres.
func (s Settings) DriverName() string {
	if s.Driver == "" {
		return DriverPostgres
	}
	return s.Driver
}

// Has reports whether key was present in the settings source.
func (s Settings) Has(key string) bool {
	if s.present == nil {
		return true
	}
	return s.present[key]
}

// Missing returns the required keys absent from the settings source,
// in RequiredKeys order. Returns nil when nothing is missing.
func (s Settings) Missing() []string {
	var missing []string
	for _, key := range RequiredKeys {
		if !s.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// Address returns host:port.
func (s Settings) Address() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Redacted returns a copy suitable for logging, with the password masked.
func (s Settings) Redacted() Settings {
	r := s
	if r.Password != "" {
		r.Password = "****"
	}
	return r
}

// Marshal encodes settings as indented JSON with a trailing newline.
func Marshal(s Settings) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a settings JSON object, recording which keys were present.
// Unknown keys are ignored.
func Parse(data []byte) (Settings, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if raw == nil {
		return Settings{}, fmt.Errorf("parse settings: expected a JSON object")
	}

	s := Settings{present: make(map[string]bool, len(raw))}
	fields := map[string]*string{
		KeyHost:     &s.Host,
		KeyDatabase: &s.Database,
		KeyUser:     &s.User,
		KeyPassword: &s.Password,
		KeyDriver:   &s.Driver,
	}
	for key, dst := range fields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return Settings{}, fmt.Errorf("parse settings: %s: %w", key, err)
		}
		s.present[key] = true
	}

	if value, ok := raw[KeyPort]; ok {
		port, err := parsePort(value)
		if err != nil {
			return Settings{}, fmt.Errorf("parse settings: %s: %w", KeyPort, err)
		}
		s.Port = port
		s.present[KeyPort] = true
	}

	return s, nil
}

// parsePort accepts a JSON integer or a string holding one.
func parsePort(value json.RawMessage) (int, error) {
	var port int
	if err := json.Unmarshal(value, &port); err == nil {
		return port, nil
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return 0, fmt.Errorf("expected an integer, got %s", value)
	}
	port, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("expected an integer, got %q", text)
	}
	return port, nil
}

// Bootstrap writes the default settings file at path, replacing any
// existing file.
func Bootstrap(path string) error {
	data, err := Marshal(Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write default settings: %w", err)
	}
	return nil
}

// Load reads the settings file at path.
//
// When the file does not exist, Load writes a default file and returns a
// *NotConfiguredError. Read and parse failures are returned wrapped with the
// path; they are fatal to the run.
func Load(path string) (Settings, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := Bootstrap(path); err != nil {
			return Settings{}, err
		}
		return Settings{}, &NotConfiguredError{Path: path}
	}
	if err != nil {
		return Settings{}, fmt.Errorf("stat settings file %s: %w", path, err)
	}
	if info.IsDir() {
		return Settings{}, fmt.Errorf("settings path %s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
