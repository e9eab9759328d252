package kicad

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pcbforge/kicad-mcp/internal/proc"
)

// Toolchain kicad-cli 工具鏈呼叫器
//
// 每次呼叫帶固定逾時、回傳退出碼與擷取輸出；
// 本系統的約定是不會對同一份設計檔並行執行兩個工具鏈命令。
type Toolchain struct {
	cli     string        // kicad-cli 執行檔
	xvfbRun string        // headless 顯示包裝器（GUI 相依的匯出路徑用）
	timeout time.Duration // 單一命令的逾時上限
	runner  proc.Runner
}

// NewToolchain 建立工具鏈呼叫器
func NewToolchain(cli, xvfbRun string, timeout time.Duration, runner proc.Runner) *Toolchain {
	if runner == nil {
		runner = proc.ExecRunner{}
	}
	return &Toolchain{cli: cli, xvfbRun: xvfbRun, timeout: timeout, runner: runner}
}

// Run 執行一個 kicad-cli 命令
func (t *Toolchain) Run(ctx context.Context, args ...string) (proc.Result, error) {
	return t.run(ctx, "", false, args)
}

// RunInDir 在指定工作目錄執行 kicad-cli，useXvfb 控制是否經由
// headless 顯示包裝器（3D 渲染等 GUI 相依路徑需要）
func (t *Toolchain) RunInDir(ctx context.Context, dir string, useXvfb bool, args ...string) (proc.Result, error) {
	return t.run(ctx, dir, useXvfb, args)
}

func (t *Toolchain) run(ctx context.Context, dir string, useXvfb bool, args []string) (proc.Result, error) {
	spec := proc.Spec{
		Path:    t.cli,
		Args:    args,
		Dir:     dir,
		Timeout: t.timeout,
	}
	if useXvfb {
		spec.Path = t.xvfbRun
		spec.Args = append([]string{"-a", t.cli}, args...)
	}

	log.Printf("executing: %s %s", spec.Path, strings.Join(spec.Args, " "))
	return t.runner.Run(ctx, spec)
}

// Version 取得 kicad-cli 版本字串；工具鏈不可用時回傳 ok=false
func (t *Toolchain) Version(ctx context.Context) (string, bool) {
	result, err := t.Run(ctx, "--version")
	if err != nil || !result.Success() {
		return "", false
	}
	return strings.TrimSpace(result.Stdout), true
}
