package taskstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pcbforge/kicad-mcp/pkg/types"
)

// FileStore 以檔案系統為後端的任務儲存，每個任務一個 <id>.json
//
// 寫入採原子性流程（temp file + os.Rename），避免讀取端看到
// 寫到一半的記錄；根目錄於建構時注入。
type FileStore struct {
	root string
}

// NewFileStore 建立檔案型任務儲存，root 為任務根目錄
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root 取得任務根目錄（標記檔與日誌檔也放在這裡）
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) recordPath(id types.TaskID) string {
	return filepath.Join(s.root, string(id)+".json")
}

// Create 持久化任務記錄，首次使用時建立根目錄
//
// 同 ID 記錄已存在時回傳 ErrTaskExists：任務 ID 以秒級時間戳組成，
// 同秒重複啟動同專案理論上會撞 ID，與其默默共用狀態不如顯式拒絕。
func (s *FileStore) Create(task *types.Task) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create task root: %w", err)
	}

	path := s.recordPath(task.ID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrTaskExists, task.ID)
	}

	jsonBytes, err := sonic.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	// 原子性寫入流程
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write temp task record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename task record: %w", err)
	}

	return nil
}

// Load 讀取任務記錄；不存在時回傳 ErrTaskNotFound
func (s *FileStore) Load(id types.TaskID) (*types.Task, error) {
	jsonBytes, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("failed to read task record: %w", err)
	}

	var task types.Task
	if err := sonic.Unmarshal(jsonBytes, &task); err != nil {
		return nil, fmt.Errorf("failed to parse task record: %w", err)
	}
	return &task, nil
}

// ListAll 列舉所有任務記錄，順序未定義
//
// 根目錄不存在（尚未建立過任何任務）視為空列表，不是錯誤。
func (s *FileStore) ListAll() ([]*types.Task, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read task root: %w", err)
	}

	var tasks []*types.Task
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		task, err := s.Load(types.TaskID(strings.TrimSuffix(name, ".json")))
		if err != nil {
			// 個別記錄損壞不應讓整個列舉失敗
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
