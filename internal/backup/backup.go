// ============================================================================
// 職責說明：
// 1. 在任何破壞性操作前，將目標 PCB 檔複製到時間戳命名的備份檔
// 2. 純工具性質，不持有狀態；備份目錄於建構時注入
// 3. 備份失敗對外層任務啟動是致命錯誤：沒有確認可用的備份就不准變更原檔
// ============================================================================

package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrCopyFailed 備份複製失敗（來源不存在或目的地不可寫入）
var ErrCopyFailed = errors.New("backup copy failed")

// TimestampLayout 備份檔與任務 ID 共用的時間戳格式
const TimestampLayout = "20060102_150405"

// Manager 備份管理器
type Manager struct {
	dir string           // 備份目錄
	now func() time.Time // 測試時可替換的時鐘
}

// NewManager 建立備份管理器，dir 為備份存放目錄
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, now: time.Now}
}

// NewManagerWithClock 建立備份管理器並注入時鐘（測試用）
func NewManagerWithClock(dir string, now func() time.Time) *Manager {
	return &Manager{dir: dir, now: now}
}

// Snapshot 將 targetPath 複製到 before_autoroute_<時間戳>.kicad_pcb
//
// 時間戳為秒級解析度，同一秒內的多次呼叫會指向同一個備份檔名。
func (m *Manager) Snapshot(targetPath string) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}

	timestamp := m.now().Format(TimestampLayout)
	backupPath := filepath.Join(m.dir, fmt.Sprintf("before_autoroute_%s.kicad_pcb", timestamp))

	if err := copyFile(targetPath, backupPath); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}
	return backupPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
