// ============================================================
// server — stdio JSON-RPC 2.0 伺服器
//
// 職責說明：
//   - 以行分隔的 JSON-RPC 2.0 訊息在 stdin/stdout 之間往返
//   - initialize / tools/list / tools/call 三個核心方法
//   - notifications/initialized 為通知，不回覆
//   - 工具執行錯誤以 -32000 回報，未知方法以 -32601 回報
// ============================================================

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/pcbforge/kicad-mcp/internal/metrics"
	"github.com/pcbforge/kicad-mcp/internal/tools"
)

const protocolVersion = "2024-11-05"

// JSON-RPC 錯誤碼
const (
	codeInternalError  = -32000
	codeMethodNotFound = -32601
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  params          `json:"params"`
}

type params struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolDescriptor 是 tools/list 回覆中單一工具的描述
type toolDescriptor struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema tools.Schema `json:"inputSchema"`
}

// Server 將工具註冊表接上 stdio 傳輸層
type Server struct {
	registry  *Registry
	metrics   *metrics.Collector
	name      string
	version   string
	sessionID string
}

// Registry 是伺服器需要的最小工具表介面
type Registry = tools.Registry

// New 建立伺服器，metrics 可為 nil
func New(reg *Registry, m *metrics.Collector, version string) *Server {
	return &Server{
		registry:  reg,
		metrics:   m,
		name:      "kicad-mcp",
		version:   version,
		sessionID: uuid.NewString(),
	}
}

// Serve 讀取 in 的每一行請求並將回覆寫到 out，直到 EOF 或 ctx 取消
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	writer := bufio.NewWriter(out)

	log.Printf("server ready, session=%s", s.sessionID)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if s.metrics != nil {
			s.metrics.RecordRequest()
		}

		var req request
		if err := sonic.Unmarshal(line, &req); err != nil {
			log.Printf("malformed request: %v", err)
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp == nil {
			continue // 通知類訊息不回覆
		}
		if err := writeResponse(writer, resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *request) *response {
	switch req.Method {
	case "initialize":
		return s.reply(req, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    s.name,
				"version": s.version,
			},
		})

	case "notifications/initialized":
		return nil

	case "tools/list":
		list := s.registry.List()
		descriptors := make([]toolDescriptor, 0, len(list))
		for _, t := range list {
			descriptors = append(descriptors, toolDescriptor{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.Schema,
			})
		}
		return s.reply(req, map[string]any{"tools": descriptors})

	case "tools/call":
		return s.callTool(ctx, req)

	default:
		return s.fail(req, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) callTool(ctx context.Context, req *request) (resp *response) {
	name := req.Params.Name

	defer func() {
		if r := recover(); r != nil {
			log.Printf("tool %s panicked: %v", name, r)
			if s.metrics != nil {
				s.metrics.RecordToolError(name)
			}
			resp = s.fail(req, codeInternalError, fmt.Sprintf("tool %s panicked: %v", name, r))
		}
	}()

	start := time.Now()
	result, err := s.registry.Execute(ctx, name, req.Params.Arguments)
	elapsed := time.Since(start).Seconds()

	if s.metrics != nil {
		s.metrics.RecordToolCall(name, elapsed)
		if err != nil || isFoldedFailure(result) {
			s.metrics.RecordToolError(name)
		}
	}
	if err != nil {
		return s.fail(req, codeInternalError, err.Error())
	}

	payload, merr := json.Marshal(result)
	if merr != nil {
		return s.fail(req, codeInternalError, fmt.Sprintf("failed to encode result: %v", merr))
	}

	return s.reply(req, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(payload)},
		},
	})
}

func (s *Server) reply(req *request, result any) *response {
	return &response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) fail(req *request, code int, msg string) *response {
	return &response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: code, Message: msg}}
}

// isFoldedFailure 判斷工具結果是否為折疊後的失敗
func isFoldedFailure(result any) bool {
	m, ok := result.(map[string]any)
	if !ok {
		return false
	}
	success, ok := m["success"].(bool)
	return ok && !success
}

func writeResponse(w *bufio.Writer, resp *response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
