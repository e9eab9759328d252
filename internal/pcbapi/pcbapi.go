// ============================================================================
// 職責說明：
// 1. 封裝 KiCad 原生腳本 API（pcbnew）的呼叫邊界：
//    載入板子、Zone 填充、板子資訊、Specctra DSN 匯出、SES 匯回
// 2. 實際執行透過 python3 子程序；板子路徑一律以 argv 傳遞，
//    不做任何文字插值，杜絕路徑值造成的注入問題
// 3. 腳本端拋出的任何例外都轉為帶訊息的 Go error，絕不原樣外洩
// ============================================================================

package pcbapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pcbforge/kicad-mcp/internal/proc"
)

// ErrUnavailable pcbnew 模組不可用（python 環境缺少 KiCad 綁定）
var ErrUnavailable = errors.New("pcbnew module unavailable")

// BoardInfo 板子資訊查詢結果，結構與回應 JSON 一一對應
type BoardInfo struct {
	Board struct {
		WidthMM  float64 `json:"width_mm"`
		HeightMM float64 `json:"height_mm"`
		AreaMM2  float64 `json:"area_mm2"`
		Layers   int     `json:"layers"`
	} `json:"board"`
	Components struct {
		Total int `json:"total"`
		SMD   int `json:"smd"`
		THT   int `json:"tht"`
	} `json:"components"`
	Nets  int `json:"nets"`
	Zones int `json:"zones"`
	Vias  int `json:"vias"`
}

// API pcbnew 腳本協作者介面，測試時以假實作替換
type API interface {
	// Available 回報 pcbnew 模組是否可用
	Available(ctx context.Context) bool
	// FillZones 填充板上所有 Zone 並存檔，回傳 Zone 數量
	FillZones(ctx context.Context, pcbPath string) (int, error)
	// BoardInfo 查詢板子尺寸、層數、元件與網路統計
	BoardInfo(ctx context.Context, pcbPath string) (*BoardInfo, error)
	// ExportDSN 將板子匯出為 Specctra DSN 交換檔
	ExportDSN(ctx context.Context, pcbPath, dsnPath string) error
	// ImportSES 將佈線引擎產出的 SES 匯回板子並存檔
	ImportSES(ctx context.Context, pcbPath, sesPath string) error
}

// 各操作的 python 腳本；路徑由 sys.argv 提供，腳本本身是常數
const (
	probeScript = `import pcbnew`

	fillZonesScript = `
import json, sys
import pcbnew
board = pcbnew.LoadBoard(sys.argv[1])
zones = board.Zones()
count = zones.size() if hasattr(zones, "size") else len(list(zones))
if count > 0:
    filler = pcbnew.ZONE_FILLER(board)
    filler.Fill(board.Zones())
    pcbnew.SaveBoard(sys.argv[1], board)
print(json.dumps({"zones": count}))
`

	boardInfoScript = `
import json, sys
import pcbnew
board = pcbnew.LoadBoard(sys.argv[1])
bbox = board.GetBoardEdgesBoundingBox()
w = bbox.GetWidth() / 1000000.0
h = bbox.GetHeight() / 1000000.0
fps = board.GetFootprints()
smd = sum(1 for fp in fps if fp.GetAttributes() & pcbnew.FP_SMD)
tht = sum(1 for fp in fps if fp.GetAttributes() & pcbnew.FP_THROUGH_HOLE)
zones = board.Zones()
zc = zones.size() if hasattr(zones, "size") else len(list(zones))
vias = sum(1 for t in board.GetTracks() if t.GetClass() == "PCB_VIA")
print(json.dumps({
    "board": {
        "width_mm": round(w, 2),
        "height_mm": round(h, 2),
        "area_mm2": round(w * h, 2),
        "layers": board.GetCopperLayerCount(),
    },
    "components": {"total": len(fps), "smd": smd, "tht": tht},
    "nets": board.GetNetInfo().GetNetCount(),
    "zones": zc,
    "vias": vias,
}))
`

	exportDSNScript = `
import sys
import pcbnew
board = pcbnew.LoadBoard(sys.argv[1])
pcbnew.ExportSpecctraDSN(board, sys.argv[2])
`

	importSESScript = `
import sys
import pcbnew
board = pcbnew.LoadBoard(sys.argv[1])
pcbnew.ImportSpecctraSES(board, sys.argv[2])
pcbnew.SaveBoard(sys.argv[1], board)
`
)

// PythonAPI 是 API 的預設實作，經由 python3 子程序呼叫 pcbnew
type PythonAPI struct {
	python  string
	timeout time.Duration
	runner  proc.Runner

	probeOnce sync.Once
	probeOK   bool
}

// NewPythonAPI 建立 pcbnew 呼叫器
func NewPythonAPI(python string, timeout time.Duration, runner proc.Runner) *PythonAPI {
	if runner == nil {
		runner = proc.ExecRunner{}
	}
	return &PythonAPI{python: python, timeout: timeout, runner: runner}
}

// Available 檢查 pcbnew 是否可匯入；結果在程序生命週期內快取
func (a *PythonAPI) Available(ctx context.Context) bool {
	a.probeOnce.Do(func() {
		result, err := a.run(ctx, probeScript)
		a.probeOK = err == nil && result.Success()
	})
	return a.probeOK
}

func (a *PythonAPI) FillZones(ctx context.Context, pcbPath string) (int, error) {
	result, err := a.runChecked(ctx, fillZonesScript, pcbPath)
	if err != nil {
		return 0, err
	}
	var out struct {
		Zones int `json:"zones"`
	}
	if err := sonic.UnmarshalString(strings.TrimSpace(result.Stdout), &out); err != nil {
		return 0, fmt.Errorf("failed to parse fill result: %w", err)
	}
	return out.Zones, nil
}

func (a *PythonAPI) BoardInfo(ctx context.Context, pcbPath string) (*BoardInfo, error) {
	result, err := a.runChecked(ctx, boardInfoScript, pcbPath)
	if err != nil {
		return nil, err
	}
	var info BoardInfo
	if err := sonic.UnmarshalString(strings.TrimSpace(result.Stdout), &info); err != nil {
		return nil, fmt.Errorf("failed to parse board info: %w", err)
	}
	return &info, nil
}

func (a *PythonAPI) ExportDSN(ctx context.Context, pcbPath, dsnPath string) error {
	_, err := a.runChecked(ctx, exportDSNScript, pcbPath, dsnPath)
	return err
}

func (a *PythonAPI) ImportSES(ctx context.Context, pcbPath, sesPath string) error {
	_, err := a.runChecked(ctx, importSESScript, pcbPath, sesPath)
	return err
}

func (a *PythonAPI) run(ctx context.Context, script string, args ...string) (proc.Result, error) {
	spec := proc.Spec{
		Path:    a.python,
		Args:    append([]string{"-c", script}, args...),
		Timeout: a.timeout,
	}
	return a.runner.Run(ctx, spec)
}

// runChecked 執行腳本並把非零退出碼（pcbnew 例外）轉為帶 stderr 訊息的錯誤
func (a *PythonAPI) runChecked(ctx context.Context, script string, args ...string) (proc.Result, error) {
	result, err := a.run(ctx, script, args...)
	if err != nil {
		return result, fmt.Errorf("pcbnew invocation failed: %w", err)
	}
	if !result.Success() {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", result.ExitCode)
		}
		return result, fmt.Errorf("pcbnew script error: %s", msg)
	}
	return result, nil
}
