package autoroute

// ============================================================================
// 狀態監視器與任務登記簿
//
// 即時狀態一律由標記檔推導；Task Store 記錄中的 status 欄位只是
// 建立當下的快照，絕不直接當成目前狀態回報。
// 查詢是唯讀且冪等的，任務進行中被反覆輪詢是預期行為，必須便宜。
// ============================================================================

import (
	"github.com/pcbforge/kicad-mcp/internal/taskstore"
	"github.com/pcbforge/kicad-mcp/pkg/types"
)

// 各狀態對應的人類可讀訊息；不在表內的狀態不附加訊息
var statusMessages = map[types.TaskStatus]string{
	types.StatusCompleted: "自動佈線完成！PCB 檔案已更新",
	types.StatusFailed:    "自動佈線失敗，請查看日誌了解詳情",
	types.StatusStarted:   "佈線進行中...",
}

// Monitor 任務狀態監視器，組合 Task Store 與標記檔 / 日誌側信道
type Monitor struct {
	store    taskstore.Store
	tasksDir string
}

// NewMonitor 建立狀態監視器
func NewMonitor(store taskstore.Store, tasksDir string) *Monitor {
	return &Monitor{store: store, tasksDir: tasksDir}
}

// GetStatus 查詢單一任務的組合狀態
//
// 任務 ID 不存在回傳 taskstore.ErrTaskNotFound；只要 ID 存在，
// 不論任務在途或已失敗，查詢一律成功。
func (m *Monitor) GetStatus(id types.TaskID) (*types.TaskStatusView, error) {
	task, err := m.store.Load(id)
	if err != nil {
		return nil, err
	}
	return m.compose(task), nil
}

// ListTasks 列舉所有任務並逐一重讀其即時標記
// 標記檔已被移除的任務照常回報（狀態為 unknown）
func (m *Monitor) ListTasks() ([]*types.TaskStatusView, error) {
	tasks, err := m.store.ListAll()
	if err != nil {
		return nil, err
	}

	views := make([]*types.TaskStatusView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, m.compose(task))
	}
	return views, nil
}

func (m *Monitor) compose(task *types.Task) *types.TaskStatusView {
	live := ReadMarker(m.tasksDir, task.ID)
	return &types.TaskStatusView{
		Task:    *task,
		Status:  live,
		LogTail: ReadLogTail(m.tasksDir, task.ID),
		Message: statusMessages[live],
	}
}
