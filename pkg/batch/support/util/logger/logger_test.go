package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetLogLevel("INFO")

	logger.SetLogLevel("WARN")
	logger.Infof("hidden %d", 1)
	logger.Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "| WARNING  | shown 2")
}

func TestDebugEnabledByVerboseLevel(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetLogLevel("INFO")

	logger.SetLogLevel("debug")
	logger.Debugf("page %d fetched", 3)

	assert.Contains(t, buf.String(), "| DEBUG    | page 3 fetched")
	assert.Equal(t, logger.LevelDebug, logger.CurrentLevel())
}

func TestParseLevel(t *testing.T) {
	lvl, ok := logger.ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, logger.LevelWarn, lvl)

	lvl, ok = logger.ParseLevel("chatty")
	assert.False(t, ok)
	assert.Equal(t, logger.LevelInfo, lvl)
}
