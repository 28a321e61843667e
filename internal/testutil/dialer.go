package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/roach88/psqltmpl/internal/executor"
	"github.com/roach88/psqltmpl/internal/settings"
)

// ErrInjected is the default error returned by RecordingDialer failures.
var ErrInjected = errors.New("injected failure")

// RecordingDialer is an in-memory executor.Dialer for tests.
//
// It records every statement attempted and every statement committed, and
// tracks open connections so tests can verify each connection is released.
// Statements containing a registered fragment fail at Exec.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type RecordingDialer struct {
	mu        sync.Mutex
	dialErr   error
	failures  map[string]error
	attempted []string
	committed []string
	dials     int
	open      int
	rollbacks int
	settings  []settings.Settings
}

// NewRecordingDialer creates a dialer where every statement succeeds.
func NewRecordingDialer() *RecordingDialer {
	return &RecordingDialer{failures: make(map[string]error)}
}

// FailDial makes every Dial return err.
func (d *RecordingDialer) FailDial(err error) *RecordingDialer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr = err
	return d
}

// FailOn makes Exec fail for statements containing fragment.
// A nil err uses ErrInjected.
func (d *RecordingDialer) FailOn(fragment string, err error) *RecordingDialer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	d.failures[fragment] = err
	return d
}

// Dial implements executor.Dialer.
func (d *RecordingDialer) Dial(_ context.Context, s settings.Settings) (executor.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.settings = append(d.settings, s)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	d.open++
	return &recordingConn{d: d}, nil
}

// Attempted returns every statement passed to Exec, in order.
func (d *RecordingDialer) Attempted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.attempted...)
}

// Committed returns the statements whose transaction committed, in order.
func (d *RecordingDialer) Committed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.committed...)
}

// Dials returns the number of Dial calls.
func (d *RecordingDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// OpenConns returns the number of connections dialed but not closed.
func (d *RecordingDialer) OpenConns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Rollbacks returns the number of rollbacks of uncommitted transactions.
func (d *RecordingDialer) Rollbacks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rollbacks
}

// DialedWith returns the settings passed to each Dial call.
func (d *RecordingDialer) DialedWith() []settings.Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]settings.Settings(nil), d.settings...)
}

type recordingConn struct {
	d      *RecordingDialer
	closed bool
}

func (c *recordingConn) Begin(context.Context) (executor.Tx, error) {
	return &recordingTx{d: c.d}, nil
}

func (c *recordingConn) Close(context.Context) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.d.open--
	}
	return nil
}

type recordingTx struct {
	d       *RecordingDialer
	pending []string
	done    bool
}

func (t *recordingTx) Exec(_ context.Context, sql string) error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.attempted = append(t.d.attempted, sql)
	for fragment, err := range t.d.failures {
		if strings.Contains(sql, fragment) {
			return err
		}
	}
	t.pending = append(t.pending, sql)
	return nil
}

func (t *recordingTx) Commit(context.Context) error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.committed = append(t.d.committed, t.pending...)
	t.done = true
	return nil
}

func (t *recordingTx) Rollback(context.Context) error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	if !t.done {
		t.done = true
		t.d.rollbacks++
	}
	return nil
}
