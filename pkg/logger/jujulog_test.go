package logger

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	level string
	msg   string
}

func TestJujuLogHookForwardsEntries(t *testing.T) {
	var calls []call
	hook := &JujuLogHook{run: func(level, msg string) error {
		calls = append(calls, call{level, msg})
		return errors.New("juju-log not found")
	}}

	l := logrus.New()
	l.SetOutput(io.Discard)
	l.AddHook(hook)

	log := &Logger{Logger: l, module: "network"}
	log.Warn("bridge missing")
	log.WithError(errors.New("boom")).Error("mtu failed")
	log.Debug("ignored")

	require.Len(t, calls, 2)
	assert.Equal(t, call{"WARNING", "network: bridge missing"}, calls[0])
	assert.Equal(t, call{"ERROR", "network: mtu failed (boom)"}, calls[1])
}

func TestJujuLevel(t *testing.T) {
	assert.Equal(t, "INFO", jujuLevel(logrus.InfoLevel))
	assert.Equal(t, "DEBUG", jujuLevel(logrus.TraceLevel))
	assert.Equal(t, "ERROR", jujuLevel(logrus.FatalLevel))
}

func TestInHookContext(t *testing.T) {
	t.Setenv("JUJU_CONTEXT_ID", "")
	assert.False(t, InHookContext())

	t.Setenv("JUJU_CONTEXT_ID", "pg-gateway/0-install-123")
	assert.True(t, InHookContext())
}

func TestInitWritesToConfiguredFile(t *testing.T) {
	path := t.TempDir() + "/gw.log"
	require.NoError(t, Init(Config{Level: "info", Format: "json", Module: "test", File: path}))

	log := NewLogger("resources")
	assert.NotEmpty(t, log.Invocation())
	assert.Equal(t, globalLogger.Invocation(), log.Invocation())

	assert.Error(t, Init(Config{Level: "loud"}))
}
