package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
	assert.Equal(t, Prefix, Get().GetPrefix())
}

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		require.NoError(t, Configure("info", "text"))
	})

	require.NoError(t, Configure("WARN", "json"))
	assert.Equal(t, log.WarnLevel, Get().GetLevel())

	Info("dropped")
	assert.Zero(t, buf.Len())

	Warn("kept", "vertices", 4)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, float64(4), line["vertices"])
}

func TestConfigureRejectsUnknownValues(t *testing.T) {
	assert.Error(t, Configure("loud", ""))
	assert.Error(t, Configure("", "yaml"))
}

func TestComponentPrefix(t *testing.T) {
	assert.Equal(t, "oxy-morph/kernels", Component("kernels").GetPrefix())
}
