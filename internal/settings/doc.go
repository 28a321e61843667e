// Package settings loads database connection settings from a JSON file.
//
// The settings file is bootstrapped on first use: when it does not exist,
// Load writes a template with empty values and port 5432 and reports
// ErrNotConfigured. The operator fills in the file and runs the tool again.
//
//	{
//	    "host": "",
//	    "port": 5432,
//	    "database": "",
//	    "user": "",
//	    "password": ""
//	}
//
// An optional "driver" key selects postgres (default), mysql or sqlite3.
package settings
