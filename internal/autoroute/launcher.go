// ============================================================================
// kicad-mcp 自動佈線任務啟動器
// ============================================================================
//
// Package: internal/autoroute
// 文件: launcher.go
// 功能: 啟動一個 FreeRouting 自動佈線任務（非同步為預設與建議模式）
//
// 非同步啟動流程（嚴格依序，靠順序而非鎖保證）:
//   1. 解析目標 PCB 檔，缺檔直接失敗 (ErrNotFound)
//   2. 外部工具預檢：pcbnew / freerouting.jar / xvfb-run / java (ErrToolUnavailable)
//      —— 在任何變更發生前完成
//   3. 寫入變更前備份 (ErrBackupFailed 時不啟動任務)
//   4. 匯出 Specctra DSN 交換檔 (ErrExportFailed 時尚未啟動任何程序)
//   5. 以結構化程序規格 (argv) 重新呼叫自身的 route-worker 子命令，
//      完全脫離地在背景啟動 —— 不產生任何 shell 腳本文字
//   6. 持久化任務記錄並立即回傳 task_id
//
// 同一專案同時只跑一個任務是呼叫端的責任，本子系統不加鎖強制。
//
// ============================================================================

package autoroute

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pcbforge/kicad-mcp/internal/backup"
	"github.com/pcbforge/kicad-mcp/internal/kicad"
	"github.com/pcbforge/kicad-mcp/internal/pcbapi"
	"github.com/pcbforge/kicad-mcp/internal/proc"
	"github.com/pcbforge/kicad-mcp/internal/taskstore"
	"github.com/pcbforge/kicad-mcp/pkg/types"
)

// TaskType 本子系統目前唯一的任務種類
const TaskType = "auto_route"

// EngineConfig 外部佈線引擎設定
type EngineConfig struct {
	Java        string        // java 執行檔
	Jar         string        // freerouting.jar 路徑
	XvfbRun     string        // headless 顯示包裝器
	SyncTimeout time.Duration // 同步路徑的等待上限
}

// EngineSpec 組合佈線引擎的程序規格
// 引擎只會從脫離的背景程序（或同步路徑）呼叫，絕不在一般請求處理中執行
func EngineSpec(e EngineConfig, dsn, ses string, maxPasses int) proc.Spec {
	return proc.Spec{
		Path: e.XvfbRun,
		Args: []string{"-a", e.Java, "-jar", e.Jar, "-de", dsn, "-do", ses, "-mp", strconv.Itoa(maxPasses)},
	}
}

// StartResult 任務啟動結果
// 非同步路徑填 TaskID，同步路徑填 PCB；兩者皆附備份檔路徑
type StartResult struct {
	Async   bool         `json:"async,omitempty"`
	TaskID  types.TaskID `json:"task_id,omitempty"`
	Message string       `json:"message"`
	Backup  string       `json:"backup"`
	PCB     string       `json:"pcb,omitempty"`
}

// LauncherConfig 啟動器的依賴與設定；零值欄位以預設實作補齊
type LauncherConfig struct {
	Store      taskstore.Store
	Projects   *kicad.Projects
	API        pcbapi.API
	Engine     EngineConfig
	TasksDir   string // 任務記錄 / 標記檔 / 日誌的根目錄
	ExePath    string // 自身執行檔，route-worker 子命令用
	ConfigPath string // 傳遞給 route-worker 的設定檔路徑

	// 以下為測試注入點
	Runner   proc.Runner
	Spawn    func(proc.Spec) (int, error)
	Snapshot func(backupDir, targetPath string) (string, error)
	LookPath func(name string) (string, error)
	Now      func() time.Time
}

// Launcher 自動佈線任務啟動器
type Launcher struct {
	cfg LauncherConfig
}

// NewLauncher 建立啟動器並補齊預設依賴
func NewLauncher(cfg LauncherConfig) *Launcher {
	if cfg.Runner == nil {
		cfg.Runner = proc.ExecRunner{}
	}
	if cfg.Spawn == nil {
		cfg.Spawn = proc.StartDetached
	}
	if cfg.LookPath == nil {
		cfg.LookPath = exec.LookPath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Snapshot == nil {
		now := cfg.Now
		cfg.Snapshot = func(backupDir, targetPath string) (string, error) {
			return backup.NewManagerWithClock(backupDir, now).Snapshot(targetPath)
		}
	}
	return &Launcher{cfg: cfg}
}

// Start 啟動一個佈線任務
//
// async 為 true（建議值）時立即回傳 task_id；
// false 時在請求內同步執行完整的引擎運行與匯回，有逾時風險。
func (l *Launcher) Start(ctx context.Context, project string, maxPasses int, async bool) (*StartResult, error) {
	dir := l.cfg.Projects.Dir(project)
	pcb, ok := kicad.FindPCB(dir)
	if !ok {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, project)
	}

	if err := l.preflight(ctx); err != nil {
		return nil, err
	}

	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}

	// 備份必須在任何變更步驟開始前落地
	timestamp := l.cfg.Now().Format(backup.TimestampLayout)
	backupPath, err := l.cfg.Snapshot(filepath.Join(dir, "output", "backup"), pcb)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	dsn := filepath.Join(dir, "output", "temp_route.dsn")
	ses := filepath.Join(dir, "output", "temp_route.ses")

	if err := l.cfg.API.ExportDSN(ctx, pcb, dsn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	if !async {
		return l.runSync(ctx, pcb, dsn, ses, backupPath, maxPasses)
	}

	taskID := types.TaskID(fmt.Sprintf("route_%s_%s", project, timestamp))

	spec := proc.Spec{
		Path: l.cfg.ExePath,
		Args: []string{
			"route-worker",
			"-c", l.cfg.ConfigPath,
			"--task", string(taskID),
			"--pcb", pcb,
			"--dsn", dsn,
			"--ses", ses,
			"--passes", strconv.Itoa(maxPasses),
		},
		Dir: dir,
	}
	if _, err := l.cfg.Spawn(spec); err != nil {
		return nil, fmt.Errorf("failed to spawn routing worker: %w", err)
	}

	task := &types.Task{
		ID:        taskID,
		Type:      TaskType,
		Project:   project,
		Status:    types.StatusRunning,
		StartedAt: timestamp,
		Backup:    backupPath,
		PCB:       pcb,
	}
	if err := l.cfg.Store.Create(task); err != nil {
		return nil, fmt.Errorf("failed to persist task record: %w", err)
	}

	return &StartResult{
		Async:   true,
		TaskID:  taskID,
		Message: "自動佈線任務已啟動，使用 get_task_status 查詢進度",
		Backup:  backupPath,
	}, nil
}

// preflight 外部工具預檢，必須在任何變更前完成
func (l *Launcher) preflight(ctx context.Context) error {
	if !l.cfg.API.Available(ctx) {
		return fmt.Errorf("%w: pcbnew module", ErrToolUnavailable)
	}
	if _, err := os.Stat(l.cfg.Engine.Jar); err != nil {
		return fmt.Errorf("%w: freerouting jar %s", ErrToolUnavailable, l.cfg.Engine.Jar)
	}
	if _, err := l.cfg.LookPath(l.cfg.Engine.XvfbRun); err != nil {
		return fmt.Errorf("%w: %s", ErrToolUnavailable, l.cfg.Engine.XvfbRun)
	}
	if _, err := l.cfg.LookPath(l.cfg.Engine.Java); err != nil {
		return fmt.Errorf("%w: %s", ErrToolUnavailable, l.cfg.Engine.Java)
	}
	return nil
}

// runSync 同步路徑：在請求內跑完 引擎 → 匯回 全程，等待上限為 SyncTimeout
// 保留供相容，文件上明確不建議使用；逾時視為硬性失敗而非盡力而為
func (l *Launcher) runSync(ctx context.Context, pcb, dsn, ses, backupPath string, maxPasses int) (*StartResult, error) {
	defer func() {
		// 成功與失敗都要清掉交換暫存檔
		os.Remove(dsn)
		os.Remove(ses)
	}()

	spec := EngineSpec(l.cfg.Engine, dsn, ses, maxPasses)
	spec.Timeout = l.cfg.Engine.SyncTimeout

	result, err := l.cfg.Runner.Run(ctx, spec)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s, use async mode instead", ErrTimeout, l.cfg.Engine.SyncTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("routing engine failed to run: %w", err)
	}
	if _, statErr := os.Stat(ses); statErr != nil {
		return nil, fmt.Errorf("routing engine produced no ses file (exit code %d)", result.ExitCode)
	}

	if err := l.cfg.API.ImportSES(ctx, pcb, ses); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReimportFailed, err)
	}

	return &StartResult{
		Message: "自動佈線完成",
		Backup:  backupPath,
		PCB:     pcb,
	}, nil
}
