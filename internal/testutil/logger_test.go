package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureLogger(t *testing.T) {
	logger, buf := NewCaptureLogger(slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("executed statement", "args", 2)
	logger.Warn("slow")

	assert.Equal(t, []string{"executed statement", "slow"}, buf.Messages())
	records := buf.Records()
	require.Len(t, records, 2)
	assert.Equal(t, float64(2), records[0]["args"])
}

func TestTempTree(t *testing.T) {
	dir := TempTree(t, map[string]string{"a.sql": "1", "sub/b.yaml": "x: y"})

	content, err := os.ReadFile(filepath.Join(dir, "sub", "b.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "x: y", string(content))
}
