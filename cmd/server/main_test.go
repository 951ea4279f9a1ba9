package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestEnsureDBDir(t *testing.T) {
	require.NoError(t, ensureDBDir(":memory:"))
	require.NoError(t, ensureDBDir("file:test?mode=memory"))

	path := filepath.Join(t.TempDir(), "nested", "portfolio.db")
	require.NoError(t, ensureDBDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestLogFileWriter_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	writer, file, err := newSizedLogFileWriter(path, 64, 32)
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })

	for i := 0; i < 10; i++ {
		_, err := writer.Write([]byte(strings.Repeat("x", 15) + "\n"))
		require.NoError(t, err)
	}
	_, err = writer.Write([]byte("last line\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.LessOrEqual(t, len(data), 64)
	require.True(t, strings.HasSuffix(string(data), "last line\n"))
}
