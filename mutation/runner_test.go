package mutation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_CapturesExitCodeAndOutput(t *testing.T) {
	result := run(context.Background(), t.TempDir(), "echo hello && exit 0", 5, 4096, false)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "hello")
	assert.False(t, result.TimedOut)
}

func TestRun_NonZeroExitCode(t *testing.T) {
	result := run(context.Background(), t.TempDir(), "exit 7", 5, 4096, false)
	assert.Equal(t, 7, result.ExitCode)
}

func TestRun_TimesOut(t *testing.T) {
	result := run(context.Background(), t.TempDir(), "sleep 5", 1, 4096, false)
	assert.True(t, result.TimedOut)
}

func TestRun_RunsInWorkDir(t *testing.T) {
	dir := t.TempDir()
	result := run(context.Background(), dir, "pwd", 5, 4096, false)
	assert.Contains(t, result.Output, dir)
}

func TestTruncate_KeepsHeadByDefault(t *testing.T) {
	out := truncate("abcdefghij", 4, false)
	assert.Equal(t, "abcd", out)
}

func TestTruncate_KeepsTailWhenRequested(t *testing.T) {
	out := truncate("abcdefghij", 4, true)
	assert.Equal(t, "ghij", out)
}

func TestTruncate_NoopWhenUnderLimit(t *testing.T) {
	out := truncate("short", 100, false)
	assert.Equal(t, "short", out)
}

func TestRun_DurationIsNonNegative(t *testing.T) {
	result := run(context.Background(), t.TempDir(), "true", 5, 4096, false)
	assert.True(t, result.Duration >= 0)
}
