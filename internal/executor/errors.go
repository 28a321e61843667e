package executor

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failed execution.
type FailureKind int

const (
	// KindNone marks a successful execution.
	KindNone FailureKind = iota

	// KindMissingSetting indicates a required connection setting was absent.
	// No statement was sent.
	KindMissingSetting

	// KindExecution covers every error raised while connecting, executing
	// or committing.
	KindExecution
)

// String returns the failure code used in structured output.
func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "OK"
	case KindMissingSetting:
		return "MISSING_SETTING"
	case KindExecution:
		return "EXECUTION_FAILED"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// MissingSettingError names a required connection setting that was absent.
type MissingSettingError struct {
	Key string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("missing connection setting: %s", e.Key)
}

// ExecutionError carries the client library error and the SQL that was
// attempted.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("psql execution failed\nerror: %v\nsql: %s", e.Err, e.SQL)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsMissingSetting reports whether err is, or wraps, a MissingSettingError.
func IsMissingSetting(err error) bool {
	var me *MissingSettingError
	return errors.As(err, &me)
}
