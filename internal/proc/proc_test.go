//go:build !windows

package proc

// ============================================================================
// 程序執行測試檔案
// 職責：驗證輸出擷取、退出碼對應、逾時與輸出串流
// ============================================================================

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunCapturesOutput 測試標準輸出擷取與成功退出碼
func TestRunCapturesOutput(t *testing.T) {
	runner := ExecRunner{}

	result, err := runner.Run(context.Background(), Spec{
		Path: "/bin/sh",
		Args: []string{"-c", "echo hello; echo oops >&2"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, "oops\n", result.Stderr)
}

// TestRunNonZeroExit 測試非零退出碼不視為 Go 層錯誤
func TestRunNonZeroExit(t *testing.T) {
	runner := ExecRunner{}

	result, err := runner.Run(context.Background(), Spec{
		Path: "/bin/sh",
		Args: []string{"-c", "exit 3"},
	})
	require.NoError(t, err)

	assert.False(t, result.Success())
	assert.Equal(t, 3, result.ExitCode)
}

// TestRunMissingExecutable 測試執行檔不存在
func TestRunMissingExecutable(t *testing.T) {
	runner := ExecRunner{}

	result, err := runner.Run(context.Background(), Spec{Path: "/no/such/binary"})
	require.Error(t, err)
	assert.Equal(t, -1, result.ExitCode)
}

// TestRunTimeout 測試逾時回報 context.DeadlineExceeded
func TestRunTimeout(t *testing.T) {
	runner := ExecRunner{}

	_, err := runner.Run(context.Background(), Spec{
		Path:    "/bin/sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestRunStreamsToWriter 測試輸出串流模式
func TestRunStreamsToWriter(t *testing.T) {
	runner := ExecRunner{}
	var buf bytes.Buffer

	result, err := runner.Run(context.Background(), Spec{
		Path:   "/bin/sh",
		Args:   []string{"-c", "echo streamed"},
		Output: &buf,
	})
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Contains(t, buf.String(), "streamed")
}

// TestStartDetached 測試脫離派生立即返回
func TestStartDetached(t *testing.T) {
	pid, err := StartDetached(Spec{
		Path: "/bin/sh",
		Args: []string{"-c", "exit 0"},
	})
	require.NoError(t, err)
	assert.Greater(t, pid, 0)
}
