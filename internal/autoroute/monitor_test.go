package autoroute

// ============================================================================
// 狀態監視器測試檔案
// 職責：驗證記錄 + 標記 + 日誌的組合語義、查詢冪等性與訊息對應
// ============================================================================

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcbforge/kicad-mcp/internal/taskstore"
	"github.com/pcbforge/kicad-mcp/pkg/types"
)

func newMonitorFixture(t *testing.T) (*Monitor, taskstore.Store, string) {
	t.Helper()
	tasksDir := t.TempDir()
	store := taskstore.NewFileStore(tasksDir)
	return NewMonitor(store, tasksDir), store, tasksDir
}

func seedTask(t *testing.T, store taskstore.Store, id string) *types.Task {
	t.Helper()
	task := &types.Task{
		ID:        types.TaskID(id),
		Type:      TaskType,
		Project:   "demo-board",
		Status:    types.StatusRunning,
		StartedAt: "20260830_120000",
		Backup:    "/projects/demo-board/output/backup/before_autoroute_20260830_120000.kicad_pcb",
		PCB:       "/projects/demo-board/demo-board.kicad_pcb",
	}
	require.NoError(t, store.Create(task))
	return task
}

// TestGetStatusUnknownBeforeMarker 測試標記落地前回報 unknown
func TestGetStatusUnknownBeforeMarker(t *testing.T) {
	monitor, store, _ := newMonitorFixture(t)
	task := seedTask(t, store, "route_demo-board_20260830_120000")

	view, err := monitor.GetStatus(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusUnknown, view.Status)
	assert.Empty(t, view.Message)
	assert.Empty(t, view.LogTail)
}

// TestGetStatusNotFound 測試未知任務 ID
func TestGetStatusNotFound(t *testing.T) {
	monitor, _, _ := newMonitorFixture(t)

	_, err := monitor.GetStatus("route_ghost_20260830_000000")
	assert.ErrorIs(t, err, taskstore.ErrTaskNotFound)
}

// TestGetStatusMessageMapping 測試各狀態附帶的人類可讀訊息
func TestGetStatusMessageMapping(t *testing.T) {
	monitor, store, tasksDir := newMonitorFixture(t)
	task := seedTask(t, store, "route_demo-board_20260830_120000")

	cases := []struct {
		status  types.TaskStatus
		message string
	}{
		{types.StatusStarted, "佈線進行中..."},
		{types.StatusCompleted, "自動佈線完成！PCB 檔案已更新"},
		{types.StatusFailed, "自動佈線失敗，請查看日誌了解詳情"},
	}
	for _, tc := range cases {
		require.NoError(t, WriteMarker(tasksDir, task.ID, tc.status))

		view, err := monitor.GetStatus(task.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.status, view.Status)
		assert.Equal(t, tc.message, view.Message)
	}
}

// TestGetStatusIdempotent 測試查詢不改變任何狀態
func TestGetStatusIdempotent(t *testing.T) {
	monitor, store, tasksDir := newMonitorFixture(t)
	task := seedTask(t, store, "route_demo-board_20260830_120000")
	require.NoError(t, WriteMarker(tasksDir, task.ID, types.StatusCompleted))

	for i := 0; i < 3; i++ {
		view, err := monitor.GetStatus(task.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusCompleted, view.Status)
	}
}

// TestGetStatusLiveMarkerOverridesSnapshot 測試即時狀態覆蓋記錄快照
func TestGetStatusLiveMarkerOverridesSnapshot(t *testing.T) {
	monitor, store, tasksDir := newMonitorFixture(t)
	task := seedTask(t, store, "route_demo-board_20260830_120000")
	require.NoError(t, WriteMarker(tasksDir, task.ID, types.StatusFailed))

	view, err := monitor.GetStatus(task.ID)
	require.NoError(t, err)

	// 記錄中的快照仍是 running，但回報的是標記檔狀態
	assert.Equal(t, types.StatusRunning, view.Task.Status)
	assert.Equal(t, types.StatusFailed, view.Status)
}

// TestGetStatusIncludesLogTail 測試狀態回應附帶日誌尾端
func TestGetStatusIncludesLogTail(t *testing.T) {
	monitor, store, tasksDir := newMonitorFixture(t)
	task := seedTask(t, store, "route_demo-board_20260830_120000")
	require.NoError(t, WriteMarker(tasksDir, task.ID, types.StatusStarted))
	require.NoError(t, os.WriteFile(LogPath(tasksDir, task.ID), []byte("pass 1\npass 2\n"), 0o644))

	view, err := monitor.GetStatus(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "pass 1\npass 2\n", view.LogTail)
}

// TestGetStatusTrustsCompletedMarker 測試 completed 標記即為結論，
// 不回頭驗證輸出檔是否存在
func TestGetStatusTrustsCompletedMarker(t *testing.T) {
	monitor, store, tasksDir := newMonitorFixture(t)
	task := seedTask(t, store, "route_demo-board_20260830_120000")
	require.NoError(t, WriteMarker(tasksDir, task.ID, types.StatusCompleted))

	// task.PCB 指向的檔案在本測試中從未建立
	view, err := monitor.GetStatus(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, view.Status)
}

// TestListTasksReadsLiveMarkers 測試列舉時逐一重讀即時標記
func TestListTasksReadsLiveMarkers(t *testing.T) {
	monitor, store, tasksDir := newMonitorFixture(t)
	done := seedTask(t, store, "route_a_20260830_120000")
	seedTask(t, store, "route_b_20260830_120001")
	require.NoError(t, WriteMarker(tasksDir, done.ID, types.StatusCompleted))

	views, err := monitor.ListTasks()
	require.NoError(t, err)
	require.Len(t, views, 2)

	byID := map[types.TaskID]types.TaskStatus{}
	for _, v := range views {
		byID[v.Task.ID] = v.Status
	}
	assert.Equal(t, types.StatusCompleted, byID["route_a_20260830_120000"])
	assert.Equal(t, types.StatusUnknown, byID["route_b_20260830_120001"])
}

// TestListTasksToleratesRemovedMarker 測試標記被清掉的任務照常列出
func TestListTasksToleratesRemovedMarker(t *testing.T) {
	monitor, store, tasksDir := newMonitorFixture(t)
	task := seedTask(t, store, "route_a_20260830_120000")
	require.NoError(t, WriteMarker(tasksDir, task.ID, types.StatusCompleted))
	require.NoError(t, os.Remove(MarkerPath(tasksDir, task.ID)))

	views, err := monitor.ListTasks()
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, types.StatusUnknown, views[0].Status)
}
