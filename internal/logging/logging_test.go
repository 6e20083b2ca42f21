package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"info":    LevelInfo,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "error", LevelError.String())
}

func TestWriterForwardsLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelDebug)

	w := NewWriter(logger, "docker")
	n, err := w.Write([]byte("first\n\nsecond\r\n"))

	assert.NoError(t, err)
	assert.Equal(t, len("first\n\nsecond\r\n"), n)
	out := buf.String()
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "second")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("command output")))
}

func TestWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelInfo)

	_, _ = NewWriter(logger, "docker").Write([]byte("hidden\n"))
	assert.Empty(t, buf.String())

	_, _ = NewWriter(logger, "docker").AtLevel(LevelInfo).Write([]byte("shown\n"))
	assert.Contains(t, buf.String(), "shown")
}

func TestWithRunTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithRun(NewLogger(&buf, LevelInfo))
	logger.Info("hello")
	assert.Contains(t, buf.String(), "run=")
}

func TestWriterJoinsLinesSplitAcrossWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(NewLogger(&buf, LevelDebug), "docker-compose")

	_, _ = w.Write([]byte("Creating ee-global-"))
	assert.Empty(t, buf.String())

	_, _ = w.Write([]byte("nginx-proxy ... done\nPulling"))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("command output")))
	assert.Contains(t, buf.String(), "Creating ee-global-nginx-proxy ... done")

	w.Flush()
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("command output")))
	assert.Contains(t, buf.String(), "Pulling")

	w.Flush()
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("command output")))
}

func TestNewLoggerPlainOutputOnFiles(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, isTerminal(f))
	assert.False(t, isTerminal(&bytes.Buffer{}))

	NewLogger(f, LevelInfo).Warn("plain")
	raw, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "plain")
	assert.NotContains(t, string(raw), "\x1b[")
}
