// Package types 定義了 kicad-mcp 系統中使用的核心領域模型
package types

// TaskID 非同步任務唯一識別碼
// 格式: route_<project>_<YYYYMMDD_HHMMSS>，由任務種類、目標專案與啟動時間戳組成
type TaskID string

// TaskStatus 任務狀態
type TaskStatus string

// 定義任務狀態常數
//
// started / completed / failed 由背景佈線程序寫入狀態標記檔，
// running 僅為任務建立當下記錄在 Task Store 的快照值，
// unknown 表示標記檔尚未出現（任務未到第一個檢查點，或標記檔遺失）。
const (
	StatusRunning   TaskStatus = "running"   // 建立快照值：任務已登記但程序尚未回報
	StatusStarted   TaskStatus = "started"   // 背景程序已開始執行佈線
	StatusCompleted TaskStatus = "completed" // 佈線完成，結果已匯回 PCB 檔
	StatusFailed    TaskStatus = "failed"    // 佈線或匯回失敗，詳情見日誌
	StatusUnknown   TaskStatus = "unknown"   // 無標記檔，觀測降級狀態
)

// String 回傳狀態的原始字串值
func (s TaskStatus) String() string { return string(s) }

// Terminal 回報狀態是否為終止狀態（completed / failed）
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseMarker 將標記檔內容轉換為 TaskStatus
// 標記檔只允許三個字面值；其他內容一律視為 unknown
func ParseMarker(s string) TaskStatus {
	switch TaskStatus(s) {
	case StatusStarted, StatusCompleted, StatusFailed:
		return TaskStatus(s)
	default:
		return StatusUnknown
	}
}

// Task 非同步任務記錄，由 Job Launcher 建立且之後不再修改
//
// JSON 欄位名稱沿用既有任務檔格式，Task Store 以 <id>.json 持久化。
// Status 欄位僅是建立當下的快照（固定為 running），
// 對外回報的即時狀態一律改由狀態標記檔推導，不得直接使用本欄位。
type Task struct {
	ID        TaskID     `json:"id"`         // 任務唯一識別碼，唯一查詢鍵
	Type      string     `json:"type"`       // 任務種類，目前固定為 auto_route
	Project   string     `json:"project"`    // 目標設計專案名稱
	Status    TaskStatus `json:"status"`     // 建立時的狀態快照，永不更新
	StartedAt string     `json:"started_at"` // 啟動時間戳 (YYYYMMDD_HHMMSS)
	Backup    string     `json:"backup"`     // 變更前備份檔路徑
	PCB       string     `json:"pcb"`        // 任務成功後會覆寫的 PCB 檔路徑
}

// TaskStatusView 組合後的任務狀態回應
// 由 Status Monitor 將 Task 記錄與即時標記檔、日誌尾端合併而成；
// 外層 Status 欄位覆蓋記錄中的快照值，序列化時以即時狀態為準
type TaskStatusView struct {
	Task
	Status  TaskStatus `json:"status"`            // 即時狀態（由標記檔推導）
	LogTail string     `json:"log_tail"`          // 日誌最後 10 行
	Message string     `json:"message,omitempty"` // 對應狀態的人類可讀訊息
}
