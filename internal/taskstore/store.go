// ============================================================================
// 職責說明：
// 1. 持久化非同步任務的建立時中繼資料（metadata），以任務 ID 為唯一鍵
// 2. 提供 Create / Load / ListAll 三個操作，無其他行為
// 3. 儲存根目錄（或 Redis 位址）於建構時注入，測試可使用隔離的暫存根目錄
// 4. 任務記錄一經建立即不再修改；即時狀態由狀態標記檔另行推導
// ============================================================================

package taskstore

import (
	"errors"

	"github.com/pcbforge/kicad-mcp/pkg/types"
)

var (
	// ErrTaskNotFound 指定 ID 的任務不存在（與 I/O 失敗明確區分）
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskExists 任務 ID 已存在，拒絕覆寫
	ErrTaskExists = errors.New("task already exists")
)

// Store 任務記錄存取介面
//
// Load 對不存在的 ID 回傳 ErrTaskNotFound，不回傳其他錯誤型態，
// 讓呼叫端能區分「任務從未存在」與暫時性 I/O 失敗。
// ListAll 的回傳順序未定義。
type Store interface {
	Create(task *types.Task) error
	Load(id types.TaskID) (*types.Task, error)
	ListAll() ([]*types.Task, error)
}
