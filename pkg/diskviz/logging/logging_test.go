package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		{in: "debug", want: log.DebugLevel},
		{in: "INFO", want: log.InfoLevel},
		{in: "", want: log.InfoLevel},
		{in: "warning", want: log.WarnLevel},
		{in: "error", want: log.ErrorLevel},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetBeforeInitDiscards(t *testing.T) {
	logger := Get("test-discard")
	require.NotNil(t, logger)
	assert.Equal(t, "test-discard", logger.Component())
	assert.Same(t, logger, Get("test-discard"))

	logger.Info("nobody hears this")
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "diskviz.log")

	logger := Get("scanner-test")
	require.NoError(t, Init(Config{
		Level:      "debug",
		Path:       path,
		Components: map[string]string{"quiet-test": "error"},
	}))
	t.Cleanup(func() { _ = Close() })

	logger.Info("scan started", "path", "/data")
	Get("quiet-test").Info("suppressed")
	Get("quiet-test").Error("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "scan started", "loggers created before Init are reconfigured")
	assert.Contains(t, content, "scanner-test")
	assert.Contains(t, content, "kept")
	assert.NotContains(t, content, "suppressed")
}

func TestInitRejectsBadComponentLevel(t *testing.T) {
	err := Init(Config{
		Path:       filepath.Join(t.TempDir(), "x.log"),
		Components: map[string]string{"scanner": "loud"},
	})
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rot.log")

	w, err := NewRotatingWriter(path, 16, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	for _, line := range []string{"aaaaaaaaaa\n", "bbbbbbbbbb\n", "cccccccccc\n", "dddddddddd\n"} {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dddddddddd\n", string(current))

	first, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, "cccccccccc\n", string(first))

	second, err := os.ReadFile(path + ".2")
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbbb\n", string(second))

	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err), "backups beyond the limit are removed")
}

func TestRotatingWriterClosed(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "c.log"), 0, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestDefaultLogPath(t *testing.T) {
	assert.True(t, strings.HasSuffix(DefaultLogPath(), filepath.Join("diskviz", "diskviz.log")))
}
