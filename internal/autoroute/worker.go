package autoroute

// ============================================================================
// 背景佈線執行器 —— route-worker 子命令的實體
//
// 在完全脫離的程序中依序執行三個明確階段：
//   引擎運行 → SES 匯回 → 暫存清理
// 並在各階段邊界寫入狀態標記（started / completed / failed）。
//
// 程序脫離後的失敗無法同步回報，標記檔與日誌是僅有的觀測管道，
// 因此標記寫入是每個階段最後、也最強韌的一步：連 panic 都要攔下來
// 轉成 failed 標記。
// ============================================================================

import (
	"context"
	"fmt"
	"os"

	"github.com/pcbforge/kicad-mcp/internal/pcbapi"
	"github.com/pcbforge/kicad-mcp/internal/proc"
	"github.com/pcbforge/kicad-mcp/pkg/types"
)

// Worker 單一佈線任務的背景執行器
type Worker struct {
	TasksDir  string
	TaskID    types.TaskID
	PCB       string // 成功後要覆寫的原始 PCB 檔
	DSN       string // 交換檔（輸入）
	SES       string // 引擎輸出檔
	MaxPasses int
	Engine    EngineConfig
	API       pcbapi.API
	Runner    proc.Runner
}

// Run 執行完整的佈線生命週期，回傳值僅供程序自身的退出碼使用
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			_ = WriteMarker(w.TasksDir, w.TaskID, types.StatusFailed)
			err = fmt.Errorf("routing worker panic: %v", r)
		}
	}()

	if w.Runner == nil {
		w.Runner = proc.ExecRunner{}
	}

	if markErr := WriteMarker(w.TasksDir, w.TaskID, types.StatusStarted); markErr != nil {
		return markErr
	}

	logFile, openErr := os.OpenFile(LogPath(w.TasksDir, w.TaskID),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if openErr != nil {
		_ = WriteMarker(w.TasksDir, w.TaskID, types.StatusFailed)
		return fmt.Errorf("failed to open job log: %w", openErr)
	}
	defer logFile.Close()

	// 階段一：佈線引擎，輸出串流進日誌檔供查詢端讀取尾端
	spec := EngineSpec(w.Engine, w.DSN, w.SES, w.MaxPasses)
	spec.Output = logFile

	result, runErr := w.Runner.Run(ctx, spec)
	if runErr != nil {
		fmt.Fprintf(logFile, "routing engine failed to run: %v\n", runErr)
		_ = WriteMarker(w.TasksDir, w.TaskID, types.StatusFailed)
		return fmt.Errorf("routing engine failed to run: %w", runErr)
	}
	if _, statErr := os.Stat(w.SES); statErr != nil {
		fmt.Fprintf(logFile, "routing engine produced no ses file (exit code %d)\n", result.ExitCode)
		_ = WriteMarker(w.TasksDir, w.TaskID, types.StatusFailed)
		return fmt.Errorf("routing engine produced no ses file (exit code %d)", result.ExitCode)
	}

	// 階段二：匯回。匯回失敗絕不能標成 completed
	if impErr := w.API.ImportSES(ctx, w.PCB, w.SES); impErr != nil {
		fmt.Fprintf(logFile, "ses reimport failed: %v\n", impErr)
		_ = WriteMarker(w.TasksDir, w.TaskID, types.StatusFailed)
		return fmt.Errorf("%w: %v", ErrReimportFailed, impErr)
	}

	// 階段三：清理交換暫存檔，然後才標記完成
	os.Remove(w.DSN)
	os.Remove(w.SES)

	return WriteMarker(w.TasksDir, w.TaskID, types.StatusCompleted)
}
