package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	return &buf
}

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		force     bool
		expectLog bool
	}{
		{name: "logs when CMON_DEBUG is set", envValue: "1", expectLog: true},
		{name: "logs when forced on", force: true, expectLog: true},
		{name: "does not log by default", expectLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureOutput(t)

			if tt.envValue != "" {
				t.Setenv(DebugEnv, tt.envValue)
			} else {
				os.Unsetenv(DebugEnv)
			}
			SetDebug(tt.force)
			defer SetDebug(false)

			l := NewEnvLogger("session")
			l.Debug("test message %s", "arg")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "test message arg")
				assert.Contains(t, buf.String(), "component=session")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	buf := captureOutput(t)

	l := NewEnvLogger("orchestrator")
	l.Info("started %d sessions", 3)
	l.Warn("device %s slow", "hq")
	l.Error("write failed: %v", "disk full")

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, "started 3 sessions")
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "disk full")
}

func TestWith(t *testing.T) {
	buf := captureOutput(t)

	l := With(NewEnvLogger("session"), "device", "branch-01")
	l.Info("hello")
	assert.Contains(t, buf.String(), "device=branch-01")

	b := NewBufferLogger()
	assert.Same(t, b, With(b, "device", "x"))
}

func TestNoop(t *testing.T) {
	l := Noop()
	require.NotNil(t, l)
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()
	l.Info("one %d", 1)
	l.Warn("two")

	msgs := l.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, LogMessage{Level: "info", Message: "one 1"}, msgs[0])
	assert.True(t, l.HasLevel("warn"))
	assert.False(t, l.HasLevel("error"))

	l.Clear()
	assert.Empty(t, l.Snapshot())
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Info("msg %d", i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, l.Snapshot(), 10)
}

func TestDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	b := NewBufferLogger()
	SetDefault(b)
	Default().Info("via default")
	assert.True(t, b.HasLevel("info"))
}
