package autoroute

import "errors"

// 任務啟動與執行的錯誤分類
//
// 所有公開操作回傳結構化錯誤；協定層把它們轉成錯誤回應，
// 內部例外絕不原樣穿透到協定層。
var (
	// ErrNotFound 目標專案或 PCB 設計檔不存在
	ErrNotFound = errors.New("pcb file not found")
	// ErrToolUnavailable 必要的外部工具（佈線引擎 / headless 包裝器 / pcbnew）缺席
	ErrToolUnavailable = errors.New("required tool unavailable")
	// ErrBackupFailed 變更前備份失敗，任務不得啟動
	ErrBackupFailed = errors.New("backup failed")
	// ErrExportFailed DSN 交換檔匯出失敗，尚未啟動任何程序
	ErrExportFailed = errors.New("dsn export failed")
	// ErrReimportFailed 佈線結果匯回失敗；絕不能默默標記為 completed
	ErrReimportFailed = errors.New("ses reimport failed")
	// ErrTimeout 同步路徑逾時；建議改用非同步模式
	ErrTimeout = errors.New("auto route timed out")
)
