package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	logger.Debug("hidden")
	logger.Info("connected", zap.String("server", "irc.chat.twitch.tv"))
	_ = logger.Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "irc.chat.twitch.tv")

	buf.Reset()
	logger = newLogger(&buf, true)
	logger.Debug("raw line")
	_ = logger.Sync()
	assert.Contains(t, buf.String(), "raw line")
}
