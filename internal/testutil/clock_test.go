package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewStepClock(start, time.Second)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())
	assert.Equal(t, 2, c.Calls())
}

func TestSequentialRunIDs(t *testing.T) {
	g := NewSequentialRunIDs("")
	assert.Equal(t, "test-run-1", g.Generate())
	assert.Equal(t, "test-run-2", g.Generate())

	g = NewSequentialRunIDs("batch")
	assert.Equal(t, "batch-1", g.Generate())
}
