// Package proc 封裝外部程序的兩種啟動方式：
//  1. Run - 同步執行，附帶逾時與輸出擷取，供 kicad-cli / python 呼叫使用
//  2. StartDetached - 完全脫離的背景程序，供長時間佈線任務使用
package proc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// Spec 程序規格：以結構化的 argv 描述要執行的程序，
// 取代動態產生 shell 腳本，路徑與專案名稱不經過任何文字插值
type Spec struct {
	Path    string        // 執行檔路徑或名稱（走 PATH 解析）
	Args    []string      // 參數列表
	Dir     string        // 工作目錄，空字串表示沿用目前目錄
	Env     []string      // 附加環境變數 (KEY=VALUE)，疊加在現有環境之上
	Timeout time.Duration // 0 表示不限時
	Output  io.Writer     // 若非 nil，stdout/stderr 改為串流寫入此處（日誌檔）
}

// Result 同步執行結果
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success 回報程序是否以零值結束
func (r Result) Success() bool { return r.ExitCode == 0 }

// Runner 同步執行介面，測試時以假實作替換
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// ExecRunner 是 Runner 的預設實作，基於 os/exec
type ExecRunner struct{}

// Run 執行程序並等待結束，擷取 stdout/stderr
//
// 逾時（Spec.Timeout 或外部 ctx）回傳 context.DeadlineExceeded 包裝後的錯誤，
// 非零退出碼不視為錯誤，由呼叫端檢查 Result.ExitCode。
func (ExecRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	var stdout, stderr bytes.Buffer
	if spec.Output != nil {
		cmd.Stdout = spec.Output
		cmd.Stderr = spec.Output
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, context.DeadlineExceeded
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		// 程序根本沒啟動（找不到執行檔等）
		result.ExitCode = -1
		return result, err
	}

	return result, nil
}

// StartDetached 以完全脫離的方式啟動背景程序
//
// 不建立任何管道、不等待結束、程序擁有自己的 session group，
// 因此啟動端（request handler）結束後背景程序仍繼續存活。
// 回傳 PID 僅供記錄，本系統不提供取消機制。
func StartDetached(spec Spec) (int, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	// Stdin/Stdout/Stderr 保持 nil，os/exec 會接到 /dev/null
	configureDetached(cmd)

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, err
	}
	return pid, nil
}
