package utils

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", "text", WithOutput(&buf))

	logger.WithField("radar_id", "radar-1").Info("Radar deactivated")

	out := buf.String()
	assert.Contains(t, out, "Radar deactivated")
	assert.Contains(t, out, "radar_id=radar-1")
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", "json", WithOutput(&buf))

	logger.WithFields(map[string]interface{}{"days": 30}).WithError(errors.New("boom")).Error("Analysis failed")

	out := buf.String()
	assert.Contains(t, out, `"msg":"Analysis failed"`)
	assert.Contains(t, out, `"days":30`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.True(t, logger.IsDebug())
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "text", WithOutput(&buf))

	logger.Info("hidden")
	logger.Debug("hidden too")
	assert.Empty(t, buf.String())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("verbose", "text", WithOutput(&buf))

	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
