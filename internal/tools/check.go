package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/pcbforge/kicad-mcp/internal/kicad"
)

// violationSummaryLimit DRC/ERC 摘要最多列出的違規筆數
const violationSummaryLimit = 10

type violation struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

func summarize(violations []violation) []map[string]any {
	summary := []map[string]any{}
	for i, v := range violations {
		if i >= violationSummaryLimit {
			break
		}
		summary = append(summary, map[string]any{"type": v.Type, "desc": v.Description})
	}
	return summary
}

func (d *Deps) runDRC(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	dir, pcb, err := d.resolvePCB(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}
	out := filepath.Join(dir, "output", "reports", "drc_report.json")

	result, runErr := d.Toolchain.Run(ctx, "pcb", "drc", pcb,
		"--severity-all", "--format", "json", "--output", out)
	if runErr != nil || !result.Success() {
		return nil, fmt.Errorf("DRC 檢查失敗: %s", runErrText(result, runErr))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("DRC 報告未生成: %v", err)
	}
	var report struct {
		Violations []violation `json:"violations"`
	}
	if err := sonic.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse drc report: %w", err)
	}

	return map[string]any{
		"success":    true,
		"violations": len(report.Violations),
		"file":       out,
		"summary":    summarize(report.Violations),
	}, nil
}

func (d *Deps) runERC(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	dir, sch, err := d.resolveSch(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}
	out := filepath.Join(dir, "output", "reports", "erc_report.json")

	result, runErr := d.Toolchain.Run(ctx, "sch", "erc", sch,
		"--severity-all", "--format", "json", "--output", out)
	if runErr != nil || !result.Success() {
		return nil, fmt.Errorf("ERC 檢查失敗: %s", runErrText(result, runErr))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("ERC 報告未生成: %v", err)
	}
	// 不同 KiCad 版本的報告用 violations 或 errors 欄位
	var report struct {
		Violations []violation `json:"violations"`
		Errors     []violation `json:"errors"`
	}
	if err := sonic.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse erc report: %w", err)
	}
	violations := report.Violations
	if violations == nil {
		violations = report.Errors
	}

	return map[string]any{
		"success":    true,
		"violations": len(violations),
		"file":       out,
		"summary":    summarize(violations),
	}, nil
}

func (d *Deps) fillZones(ctx context.Context, args map[string]any) (any, error) {
	if !d.API.Available(ctx) {
		return nil, fmt.Errorf("pcbnew 模組不可用")
	}

	project := argString(args, "project")
	_, pcb, err := d.resolvePCB(project)
	if err != nil {
		return nil, err
	}

	zones, err := d.API.FillZones(ctx, pcb)
	if err != nil {
		return nil, fmt.Errorf("Zone 填充失敗: %v", err)
	}
	if zones == 0 {
		return map[string]any{"success": true, "message": "沒有 Zone 需要填充", "zones": 0}, nil
	}
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("已填充 %d 個 Zone", zones),
		"zones":   zones,
		"file":    pcb,
	}, nil
}

func (d *Deps) getBoardInfo(ctx context.Context, args map[string]any) (any, error) {
	if !d.API.Available(ctx) {
		return nil, fmt.Errorf("pcbnew 模組不可用")
	}

	project := argString(args, "project")
	_, pcb, err := d.resolvePCB(project)
	if err != nil {
		return nil, err
	}

	info, err := d.API.BoardInfo(ctx, pcb)
	if err != nil {
		return nil, fmt.Errorf("板子資訊查詢失敗: %v", err)
	}
	return map[string]any{
		"success":    true,
		"board":      info.Board,
		"components": info.Components,
		"nets":       info.Nets,
		"zones":      info.Zones,
		"vias":       info.Vias,
	}, nil
}
