package profiler

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsAtInterval(t *testing.T) {
	var out bytes.Buffer
	p := NewProfiler(time.Second, log.New(&out))
	start := time.Unix(1000, 0)
	clock := start
	p.now = func() time.Time { return clock }
	p.lastTime = start

	clock = start.Add(500 * time.Millisecond)
	_, ok := p.Tick(2, 200)
	assert.False(t, ok)

	clock = start.Add(2 * time.Second)
	rep, ok := p.Tick(2, 200)
	require.True(t, ok)
	assert.InDelta(t, 1.0, rep.TicksPerSec, 1e-9)
	assert.InDelta(t, 2.0, rep.BlendsPerSec, 1e-9)
	assert.InDelta(t, 200.0, rep.VerticesPerSec, 1e-9)
	assert.Contains(t, out.String(), "vertices_per_sec")

	clock = clock.Add(time.Second)
	rep, ok = p.Tick(0, 0)
	require.True(t, ok)
	assert.Zero(t, rep.BlendsPerSec, "counters reset after a report")
}

func TestNewProfilerDefaults(t *testing.T) {
	p := NewProfiler(0, nil)
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.log)
}
