package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/internal/operations/journal"
	"github.com/plumgrid/pg-gateway/internal/operations/systemd"
)

// recorder collects calls from every fake in the order they happen.
type recorder struct {
	calls []string
	fail  map[string]error
}

func newRecorder() *recorder {
	return &recorder{fail: map[string]error{}}
}

func (r *recorder) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	r.calls = append(r.calls, call)
	for prefix, err := range r.fail {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}
	return nil
}

type fakeManager struct{ r *recorder }

func (f fakeManager) Start(_ context.Context, unit string) error { return f.r.record("start %s", unit) }
func (f fakeManager) Stop(_ context.Context, unit string) error { return f.r.record("stop %s", unit) }
func (f fakeManager) Status(_ context.Context, unit string) (systemd.Status, error) {
	return systemd.Status{Unit: unit, ActiveState: systemd.ActiveStateActive}, f.r.record("status %s", unit)
}
func (f fakeManager) Close() {}

type fakeFlusher struct{ r *recorder }

func (f fakeFlusher) Flush(context.Context) error { return f.r.record("flush") }

type fakePackages struct{ r *recorder }

func (f fakePackages) Install(_ context.Context, pkgs []string) error {
	return f.r.record("install %s", strings.Join(pkgs, " "))
}

func (f fakePackages) Purge(_ context.Context, pkgs []string) cmdrunner.Result {
	if err := f.r.record("purge %s", strings.Join(pkgs, " ")); err != nil {
		return cmdrunner.Result{Outcome: cmdrunner.RecoverableFailure, Err: err}
	}
	return cmdrunner.Result{Outcome: cmdrunner.Success}
}

type fakeModules struct{ r *recorder }

func (f fakeModules) Load(_ context.Context, m string) error { return f.r.record("modprobe %s", m) }

func (f fakeModules) Remove(_ context.Context, m string) cmdrunner.Result {
	if err := f.r.record("rmmod %s", m); err != nil {
		return cmdrunner.Result{Outcome: cmdrunner.RecoverableFailure, Err: err}
	}
	return cmdrunner.Result{Outcome: cmdrunner.Success}
}

type fakeFiles struct{ r *recorder }

func (f fakeFiles) EnsureFiles() error { return f.r.record("ensure-files") }
func (f fakeFiles) AddLCMKey(key string) { _ = f.r.record("add-key %s", key) }

type fakeTuner struct{ r *recorder }

func (f fakeTuner) EnsureMTU(_ context.Context, mtu int) error { return f.r.record("mtu %d", mtu) }

type fakeRenderer struct {
	r       *recorder
	changed []string
}

func (f fakeRenderer) WriteAll(context.Context) ([]string, error) {
	return f.changed, f.r.record("write-all")
}

func (f fakeRenderer) Render(_ context.Context, target string) ([]byte, error) {
	return []byte("rendered " + target), f.r.record("render %s", target)
}

func (f fakeRenderer) Release() string { return "kilo" }

type fakeStatus struct{ r *recorder }

func (f fakeStatus) StatusSet(_ context.Context, status, _ string) { _ = f.r.record("status-set %s", status) }

func noSleep(r *recorder) func(time.Duration) {
	return func(d time.Duration) { _ = r.record("sleep %s", d) }
}

type fakeLogs struct{ r *recorder }

func (f fakeLogs) LastN(unit string, count int) ([]journal.Entry, error) {
	return []journal.Entry{{Level: "INFO", Message: "started"}}, f.r.record("logs %s %d", unit, count)
}
