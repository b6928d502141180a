package gclog

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_FiltersBelowMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	SetLevel(LevelWarn)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Debug("should not appear")
	Warn("should appear: %d", 42)

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear: 42")
	assert.Contains(t, out, "[WARN]")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace":   LevelTrace,
		"DEBUG":   LevelDebug,
		"Info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"fatal":   LevelFatal,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("nonsense")
	assert.Error(t, err)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.True(t, strings.Contains(Level(99).String(), "UNKNOWN"))
}
