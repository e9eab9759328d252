package autoroute

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pcbforge/kicad-mcp/pkg/types"
)

// logTailLines 狀態查詢回傳的日誌尾端行數
const logTailLines = 10

// MarkerPath 任務狀態標記檔路徑（<tasksDir>/<id>.status）
func MarkerPath(tasksDir string, id types.TaskID) string {
	return filepath.Join(tasksDir, string(id)+".status")
}

// LogPath 任務日誌檔路徑（<tasksDir>/<id>.log）
func LogPath(tasksDir string, id types.TaskID) string {
	return filepath.Join(tasksDir, string(id)+".log")
}

// WriteMarker 原子性寫入狀態標記
//
// 標記檔由背景程序單獨持有寫入權，但會被任意多的狀態查詢並行讀取，
// 因此採 temp file + rename，讀取端永遠不會看到寫到一半的內容。
func WriteMarker(tasksDir string, id types.TaskID, status types.TaskStatus) error {
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return fmt.Errorf("failed to create tasks dir: %w", err)
	}

	path := MarkerPath(tasksDir, id)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(status.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename marker: %w", err)
	}
	return nil
}

// ReadMarker 讀取即時狀態；標記檔不存在或內容不合法一律回報 unknown
func ReadMarker(tasksDir string, id types.TaskID) types.TaskStatus {
	data, err := os.ReadFile(MarkerPath(tasksDir, id))
	if err != nil {
		return types.StatusUnknown
	}
	return types.ParseMarker(strings.TrimSpace(string(data)))
}

// ReadLogTail 讀取日誌最後 logTailLines 行；日誌不存在回傳空字串
func ReadLogTail(tasksDir string, id types.TaskID) string {
	data, err := os.ReadFile(LogPath(tasksDir, id))
	if err != nil {
		return ""
	}

	lines := strings.SplitAfter(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) > logTailLines {
		lines = lines[len(lines)-logTailLines:]
	}
	return strings.Join(lines, "")
}
