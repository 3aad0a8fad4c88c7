package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONToSideLog(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "state", "hooks.log")
	logger, closeFn := Setup(Options{Level: slog.LevelInfo, Path: path})
	logger.Info("hello", KeyHook, "prompt")
	ForHook("pre-tool").Debug("filtered out")
	closeFn()

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, "prompt", entry[KeyHook])
}

func TestSetup_FallsBackWhenPathUnwritable(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	// A regular file where a directory is expected makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	var buf bytes.Buffer
	logger, closeFn := Setup(Options{Path: filepath.Join(blocker, "hooks.log"), Fallback: &buf})
	defer closeFn()
	logger.Info("still logged")

	require.Contains(t, buf.String(), "side log unavailable")
	require.Contains(t, buf.String(), "still logged")
}

func TestOpenRotating_RotatesOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hooks.log")

	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), 64), 0o600))
	require.NoError(t, os.WriteFile(path+".1", []byte("older"), 0o600))

	rf, err := OpenRotating(path, 32, 3)
	require.NoError(t, err)
	_, err = rf.Write([]byte("fresh\n"))
	require.NoError(t, err)
	require.NoError(t, rf.Close())

	b, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	require.Len(t, b, 64)

	b, err = os.ReadFile(path + ".2")
	require.NoError(t, err)
	require.Equal(t, "older", string(b))

	b, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "Log rotated")
	require.True(t, strings.HasSuffix(string(b), "fresh\n"))
}

func TestOpenRotating_KeepsSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.log")
	require.NoError(t, os.WriteFile(path, []byte("small\n"), 0o600))

	rf, err := OpenRotating(path, 1024, 2)
	require.NoError(t, err)
	require.NoError(t, rf.Close())
	require.NoError(t, rf.Close())

	require.NoFileExists(t, path+".1")
	_, err = rf.Write([]byte("x"))
	require.ErrorIs(t, err, os.ErrClosed)
}
