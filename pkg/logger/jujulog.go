package logger

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// InHookContext reports whether the process runs inside a Juju hook.
func InHookContext() bool {
	return os.Getenv("JUJU_CONTEXT_ID") != ""
}

// JujuLogHook forwards log entries to the controller through juju-log.
type JujuLogHook struct {
	// run executes juju-log; replaced in tests.
	run func(level, msg string) error
}

// NewJujuLogHook returns a hook that shells out to juju-log.
func NewJujuLogHook() *JujuLogHook {
	return &JujuLogHook{
		run: func(level, msg string) error {
			return exec.Command("juju-log", "-l", level, msg).Run()
		},
	}
}

func (h *JujuLogHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

func (h *JujuLogHook) Fire(entry *logrus.Entry) error {
	msg := entry.Message
	if module, ok := entry.Data["module"].(string); ok && module != "" {
		msg = module + ": " + msg
	}
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		msg += " (" + toString(err) + ")"
	}
	// juju-log failures must not break the hook itself.
	_ = h.run(jujuLevel(entry.Level), msg)
	return nil
}

func jujuLevel(level logrus.Level) string {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return "ERROR"
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.DebugLevel, logrus.TraceLevel:
		return "DEBUG"
	default:
		return "INFO"
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case error:
		return t.Error()
	case string:
		return t
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
