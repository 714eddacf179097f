// Package testutil provides test helpers for structured logging and
// on-disk fixtures.
package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// LogBuffer collects the JSON records of a capture logger.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewCaptureLogger returns a logger at level whose records can be
// inspected through the returned buffer.
func NewCaptureLogger(level slog.Level) (*slog.Logger, *LogBuffer) {
	b := &LogBuffer{}
	return slog.New(slog.NewJSONHandler(b, &slog.HandlerOptions{Level: level})), b
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Records decodes every captured record.
func (b *LogBuffer) Records() []map[string]any {
	var records []map[string]any
	sc := bufio.NewScanner(bytes.NewReader([]byte(b.String())))
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err == nil {
			records = append(records, rec)
		}
	}
	return records
}

// Messages returns the msg field of every captured record.
func (b *LogBuffer) Messages() []string {
	var msgs []string
	for _, rec := range b.Records() {
		if msg, ok := rec[slog.MessageKey].(string); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}
