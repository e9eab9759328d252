package pcbapi

// ============================================================================
// pcbnew 呼叫器測試檔案
// 職責：驗證腳本呼叫的 argv 組合、探測快取、結果解析與錯誤轉換
// ============================================================================

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcbforge/kicad-mcp/internal/proc"
)

// scriptRunner 記錄呼叫並回傳預設結果
type scriptRunner struct {
	results []proc.Result
	errs    []error
	specs   []proc.Spec
}

func (r *scriptRunner) Run(ctx context.Context, spec proc.Spec) (proc.Result, error) {
	r.specs = append(r.specs, spec)
	i := len(r.specs) - 1
	var result proc.Result
	var err error
	if i < len(r.results) {
		result = r.results[i]
	}
	if i < len(r.errs) {
		err = r.errs[i]
	}
	return result, err
}

// TestAvailableCachesProbe 測試探測結果在生命週期內快取
func TestAvailableCachesProbe(t *testing.T) {
	runner := &scriptRunner{results: []proc.Result{{ExitCode: 0}}}
	api := NewPythonAPI("python3", time.Minute, runner)

	assert.True(t, api.Available(context.Background()))
	assert.True(t, api.Available(context.Background()))
	assert.Len(t, runner.specs, 1, "探測只應執行一次")
}

// TestAvailableFalseOnImportError 測試 pcbnew 缺失時回報不可用
func TestAvailableFalseOnImportError(t *testing.T) {
	runner := &scriptRunner{results: []proc.Result{{ExitCode: 1, Stderr: "ModuleNotFoundError"}}}
	api := NewPythonAPI("python3", time.Minute, runner)

	assert.False(t, api.Available(context.Background()))
}

// TestFillZonesParsesCount 測試 Zone 填充結果解析
func TestFillZonesParsesCount(t *testing.T) {
	runner := &scriptRunner{results: []proc.Result{{ExitCode: 0, Stdout: `{"zones": 4}` + "\n"}}}
	api := NewPythonAPI("python3", time.Minute, runner)

	count, err := api.FillZones(context.Background(), "/p/board.kicad_pcb")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// 板子路徑以 argv 傳遞，不得出現在腳本文字內
	spec := runner.specs[0]
	assert.Equal(t, "python3", spec.Path)
	assert.Equal(t, "-c", spec.Args[0])
	assert.NotContains(t, spec.Args[1], "/p/board.kicad_pcb")
	assert.Equal(t, "/p/board.kicad_pcb", spec.Args[2])
}

// TestBoardInfoParsesResponse 測試板子資訊解析
func TestBoardInfoParsesResponse(t *testing.T) {
	payload := `{"board":{"width_mm":100.5,"height_mm":80.0,"area_mm2":8040.0,"layers":4},` +
		`"components":{"total":120,"smd":100,"tht":20},"nets":85,"zones":2,"vias":240}`
	runner := &scriptRunner{results: []proc.Result{{ExitCode: 0, Stdout: payload}}}
	api := NewPythonAPI("python3", time.Minute, runner)

	info, err := api.BoardInfo(context.Background(), "/p/board.kicad_pcb")
	require.NoError(t, err)
	assert.Equal(t, 100.5, info.Board.WidthMM)
	assert.Equal(t, 4, info.Board.Layers)
	assert.Equal(t, 120, info.Components.Total)
	assert.Equal(t, 240, info.Vias)
}

// TestScriptErrorIncludesStderr 測試腳本例外轉為帶訊息的錯誤
func TestScriptErrorIncludesStderr(t *testing.T) {
	runner := &scriptRunner{results: []proc.Result{
		{ExitCode: 1, Stderr: "IOError: cannot load board"},
	}}
	api := NewPythonAPI("python3", time.Minute, runner)

	err := api.ExportDSN(context.Background(), "/p/board.kicad_pcb", "/p/out.dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot load board")
}

// TestInvocationFailure 測試 python 本身無法執行
func TestInvocationFailure(t *testing.T) {
	runner := &scriptRunner{
		results: []proc.Result{{ExitCode: -1}},
		errs:    []error{errors.New("executable not found")},
	}
	api := NewPythonAPI("python3", time.Minute, runner)

	err := api.ImportSES(context.Background(), "/p/board.kicad_pcb", "/p/out.ses")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invocation failed")
}

// TestImportSESArgv 測試匯回呼叫帶上板子與 SES 兩個路徑
func TestImportSESArgv(t *testing.T) {
	runner := &scriptRunner{results: []proc.Result{{ExitCode: 0}}}
	api := NewPythonAPI("python3", time.Minute, runner)

	require.NoError(t, api.ImportSES(context.Background(), "/p/board.kicad_pcb", "/p/temp_route.ses"))

	spec := runner.specs[0]
	assert.Equal(t, "/p/board.kicad_pcb", spec.Args[2])
	assert.Equal(t, "/p/temp_route.ses", spec.Args[3])
}
