// Package tools 實作協定層暴露的全部工具：
// 檢查（DRC/ERC）、查詢、各式匯出、3D 渲染，以及自動佈線任務三件組
// （auto_route / get_task_status / list_tasks）。
package tools

import (
	"context"
	"fmt"
	"sync"
)

// Schema 工具的 JSON Schema 描述，隨 tools/list 回傳給呼叫端
type Schema map[string]any

// Handler 工具處理函式
//
// 回傳 (result, nil) 表示結構化結果；回傳 error 時由 Registry 折疊為
// {"success": false, "error": …}，不會穿透到協定層。
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool 一個已註冊的工具
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Handler     Handler
}

// Registry 工具註冊表，保留註冊順序供 tools/list 穩定輸出
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]*Tool
}

// NewRegistry 建立空的註冊表
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register 註冊一個工具；名稱重複視為程式錯誤
func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Handler == nil {
		return fmt.Errorf("invalid tool registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("tool already registered: %s", t.Name)
	}
	r.order = append(r.order, t.Name)
	r.tools[t.Name] = &t
	return nil
}

// List 依註冊順序回傳所有工具
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	return list
}

// Execute 執行指定工具
//
// 未知工具名稱回傳 error；已註冊工具的失敗折疊成結構化結果，
// Execute 本身不再回傳錯誤。
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	result, err := t.Handler(ctx, args)
	if err != nil {
		return map[string]any{"success": false, "error": err.Error()}, nil
	}
	return result, nil
}

// ---- 參數讀取輔助 ----

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argStringDefault(args map[string]any, key, def string) string {
	if v := argString(args, key); v != "" {
		return v
	}
	return def
}

// argInt 同時接受 JSON 的 float64 與原生 int
func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func argBool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// projectSchema 大多數工具共用的單一 project 參數 schema
func projectSchema() Schema {
	return Schema{
		"type": "object",
		"properties": map[string]any{
			"project": map[string]any{"type": "string"},
		},
		"required": []string{"project"},
	}
}

func emptySchema() Schema {
	return Schema{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}
}
