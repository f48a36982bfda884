package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestLogWritesTerminalAndJSON(t *testing.T) {
	var term bytes.Buffer
	file := &bufferCloser{}
	l := New(&term, file)

	l.Info("issuance", "batch started")
	l.LogDatabase("INSERT", "tickets", "row written")

	assert.Contains(t, term.String(), "batch started")
	assert.Contains(t, term.String(), "[INSERT] tickets - row written")

	var entries []LogEntry
	scanner := bufio.NewScanner(strings.NewReader(file.String()))
	for scanner.Scan() {
		var e LogEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "ISSUANCE", entries[0].Category)
	assert.Equal(t, "logger_test.go", entries[0].File)
	assert.Equal(t, "DATABASE", entries[1].Category)
}

func TestSetLevelFiltersEntries(t *testing.T) {
	file := &bufferCloser{}
	l := New(nil, file)
	l.SetLevel(WARN)

	l.Debug("APP", "noise")
	l.Info("APP", "noise")
	l.Warn("APP", "kept")
	l.Error("APP", "kept")

	assert.Equal(t, 2, strings.Count(file.String(), "\n"))
}

func TestFatalExits(t *testing.T) {
	file := &bufferCloser{}
	l := New(nil, file)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal("CONFIG", "missing settings")

	assert.Equal(t, 1, code)
	assert.Contains(t, file.String(), `"level":"FATAL"`)
}

func TestCloseClosesFile(t *testing.T) {
	file := &bufferCloser{}
	l := New(nil, file)
	l.Close()
	assert.True(t, file.closed)
}

func TestDiscardAndNilSafety(t *testing.T) {
	Discard().Info("APP", "dropped")

	var l *Logger
	l.Info("APP", "nil logger is a no-op")
}

func TestNewLoggerToCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l := NewLoggerTo(dir, "test")
	l.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "test-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Logging system initialized")
}
