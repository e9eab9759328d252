package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pcbforge/kicad-mcp/internal/kicad"
)

// 3D 渲染視角表
var renderViews = map[string]struct {
	side   string
	rotate string
}{
	"top":      {side: "top"},
	"bottom":   {side: "bottom"},
	"front":    {side: "front"},
	"back":     {side: "back"},
	"iso":      {side: "top", rotate: "30,0,-45"},
	"iso_back": {side: "bottom", rotate: "30,0,135"},
}

// PCB SVG 視角表
var svgViews = map[string]struct {
	layers string
	mirror bool
}{
	"top":    {layers: "F.Cu,F.SilkS,F.Mask,Edge.Cuts"},
	"bottom": {layers: "B.Cu,B.SilkS,B.Mask,Edge.Cuts", mirror: true},
}

// PCB PDF 層組合表
var pdfLayerSets = map[string]string{
	"top":    "F.Cu,F.SilkS,F.Mask,Edge.Cuts",
	"bottom": "B.Cu,B.SilkS,B.Mask,Edge.Cuts",
	"all":    "F.Cu,B.Cu,F.SilkS,B.SilkS,F.Mask,B.Mask,Edge.Cuts",
}

// 網表格式對應的副檔名
var netlistExts = map[string]string{
	"kicadxml":  "xml",
	"cadstar":   "cir",
	"orcadpcb2": "net",
	"spice":     "cir",
}

func (d *Deps) exportGerber(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	dir, pcb, err := d.resolvePCB(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}
	out := filepath.Join(dir, "output", "gerber")

	r1, err1 := d.Toolchain.Run(ctx, "pcb", "export", "gerbers", "--output", out+"/", pcb)
	r2, err2 := d.Toolchain.Run(ctx, "pcb", "export", "drill", "--output", out+"/", pcb)

	if err1 != nil || err2 != nil || !r1.Success() || !r2.Success() {
		msg := strings.TrimSpace(runErrText(r1, err1) + " " + runErrText(r2, err2))
		return nil, fmt.Errorf("Gerber 匯出失敗: %s", msg)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		return nil, fmt.Errorf("failed to list gerber output: %w", err)
	}
	files := []string{}
	for _, e := range entries {
		files = append(files, e.Name())
	}
	return map[string]any{"success": true, "dir": out, "files": files, "count": len(files)}, nil
}

func (d *Deps) exportBOM(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	dir, sch, err := d.resolveSch(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}
	out := filepath.Join(dir, "output", "bom", "bom.csv")

	result, runErr := d.Toolchain.Run(ctx, "sch", "export", "bom", "--output", out, sch)
	if runErr != nil || !result.Success() {
		return nil, fmt.Errorf("BOM 匯出失敗: %s", runErrText(result, runErr))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("BOM 檔案未生成: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	preview := lines
	if len(preview) > 5 {
		preview = preview[:5]
	}
	return map[string]any{"success": true, "file": out, "lines": len(lines), "preview": preview}, nil
}

func (d *Deps) exportNetlist(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	format := argStringDefault(args, "format", "kicadxml")
	dir, sch, err := d.resolveSch(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}

	ext, ok := netlistExts[format]
	if !ok {
		ext = "net"
	}
	out := filepath.Join(dir, "output", "netlist", "netlist."+ext)

	result, runErr := d.Toolchain.Run(ctx, "sch", "export", "netlist",
		"--format", format, "--output", out, sch)
	if runErr != nil || !result.Success() {
		return nil, fmt.Errorf("網表匯出失敗: %s", runErrText(result, runErr))
	}
	if _, err := os.Stat(out); err != nil {
		return nil, fmt.Errorf("網表檔案未生成: %v", err)
	}
	return map[string]any{"success": true, "file": out, "format": format}, nil
}

func (d *Deps) exportSchPDF(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	dir, sch, err := d.resolveSch(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}
	out := filepath.Join(dir, "output", "docs", "schematic.pdf")

	result, runErr := d.Toolchain.Run(ctx, "sch", "export", "pdf", "--output", out, sch)
	if runErr != nil || !result.Success() {
		return nil, fmt.Errorf("原理圖 PDF 匯出失敗: %s", runErrText(result, runErr))
	}
	if _, err := os.Stat(out); err != nil {
		return nil, fmt.Errorf("原理圖 PDF 未生成: %v", err)
	}
	return map[string]any{"success": true, "file": out}, nil
}

func (d *Deps) exportSchSVG(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	dir, sch, err := d.resolveSch(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}
	outDir := filepath.Join(dir, "output", "images")

	result, runErr := d.Toolchain.Run(ctx, "sch", "export", "svg", "--output", outDir+"/", sch)
	if runErr != nil || !result.Success() {
		return nil, fmt.Errorf("原理圖 SVG 匯出失敗: %s", runErrText(result, runErr))
	}

	svgFiles, _ := filepath.Glob(filepath.Join(outDir, "*.svg"))
	if svgFiles == nil {
		svgFiles = []string{}
	}
	return map[string]any{"success": true, "files": svgFiles}, nil
}

func (d *Deps) export3D(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	view := argStringDefault(args, "view", "top")
	dir, pcb, err := d.resolvePCB(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}
	outDir := filepath.Join(dir, "output", "3d")

	var views []string
	switch {
	case view == "all":
		views = []string{"top", "bottom", "iso"}
	default:
		if _, ok := renderViews[view]; !ok {
			return nil, fmt.Errorf("未知視角: %s，可選: top, bottom, front, back, iso, iso_back, all", view)
		}
		views = []string{view}
	}

	results := map[string]any{}
	files := []string{}
	successCount := 0
	for _, v := range views {
		cfg := renderViews[v]
		outFile := filepath.Join(outDir, fmt.Sprintf("pcb_%s.png", v))

		cmdArgs := []string{
			"pcb", "render",
			"--output", outFile,
			"--width", "1920",
			"--height", "1080",
			"--side", cfg.side,
			"--quality", "high",
			"--background", "opaque",
			"--perspective",
		}
		if cfg.rotate != "" {
			cmdArgs = append(cmdArgs, "--rotate", cfg.rotate)
		}
		cmdArgs = append(cmdArgs, pcb)

		// 3D 渲染是 GUI 相依路徑，必須經由 headless 顯示包裝器
		result, runErr := d.Toolchain.RunInDir(ctx, dir, true, cmdArgs...)

		info, statErr := os.Stat(outFile)
		ok := runErr == nil && result.Success() && statErr == nil
		entry := map[string]any{"success": ok}
		if ok {
			entry["file"] = outFile
			entry["size"] = fmt.Sprintf("%.1fKB", float64(info.Size())/1024)
			files = append(files, outFile)
			successCount++
		} else {
			entry["error"] = runErrText(result, runErr)
		}
		results[v] = entry
	}

	return map[string]any{
		"success": successCount > 0,
		"results": results,
		"files":   files,
		"message": fmt.Sprintf("生成 %d/%d 個 3D 渲染圖", successCount, len(views)),
	}, nil
}

func (d *Deps) exportSVG(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	view := argStringDefault(args, "view", "all")
	dir, pcb, err := d.resolvePCB(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}
	outDir := filepath.Join(dir, "output", "images")

	var views []string
	switch {
	case view == "all":
		views = []string{"top", "bottom"}
	default:
		if _, ok := svgViews[view]; !ok {
			return nil, fmt.Errorf("未知視角: %s，可選: top, bottom, all", view)
		}
		views = []string{view}
	}

	results := map[string]any{}
	files := []string{}
	for _, v := range views {
		cfg := svgViews[v]
		outFile := filepath.Join(outDir, fmt.Sprintf("pcb_%s.svg", v))

		cmdArgs := []string{
			"pcb", "export", "svg",
			"--output", outFile,
			"--layers", cfg.layers,
			"--page-size-mode", "2",
			"--exclude-drawing-sheet",
		}
		if cfg.mirror {
			cmdArgs = append(cmdArgs, "--mirror")
		}
		cmdArgs = append(cmdArgs, pcb)

		result, runErr := d.Toolchain.RunInDir(ctx, dir, false, cmdArgs...)
		_, statErr := os.Stat(outFile)
		ok := runErr == nil && result.Success() && statErr == nil
		entry := map[string]any{"success": ok}
		if ok {
			entry["file"] = outFile
			files = append(files, outFile)
		}
		results[v] = entry
	}

	return map[string]any{"success": len(files) > 0, "files": files, "results": results}, nil
}

func (d *Deps) exportPDF(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	layers := argStringDefault(args, "layers", "all")
	dir, pcb, err := d.resolvePCB(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}

	layerStr, ok := pdfLayerSets[layers]
	if !ok {
		// 允許呼叫端直接給自訂層列表
		layerStr = layers
	}
	outFile := filepath.Join(dir, "output", "docs", fmt.Sprintf("pcb_%s.pdf", layers))

	result, runErr := d.Toolchain.Run(ctx, "pcb", "export", "pdf",
		"--output", outFile, "--layers", layerStr, pcb)
	if runErr != nil || !result.Success() {
		return nil, fmt.Errorf("PCB PDF 匯出失敗: %s", runErrText(result, runErr))
	}
	if _, err := os.Stat(outFile); err != nil {
		return nil, fmt.Errorf("PCB PDF 未生成: %v", err)
	}
	return map[string]any{"success": true, "file": outFile}, nil
}

func (d *Deps) exportSTEP(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	dir, pcb, err := d.resolvePCB(project)
	if err != nil {
		return nil, err
	}
	if err := kicad.EnsureOutputDirs(dir); err != nil {
		return nil, fmt.Errorf("failed to prepare output dirs: %w", err)
	}
	outFile := filepath.Join(dir, "output", "3d", "pcb.step")

	result, runErr := d.Toolchain.Run(ctx, "pcb", "export", "step",
		"--output", outFile, "--subst-models", pcb)
	if runErr != nil || !result.Success() {
		return nil, fmt.Errorf("STEP 匯出失敗: %s", runErrText(result, runErr))
	}
	info, statErr := os.Stat(outFile)
	if statErr != nil {
		return nil, fmt.Errorf("STEP 檔案未生成: %v", statErr)
	}
	return map[string]any{
		"success": true,
		"file":    outFile,
		"size":    fmt.Sprintf("%.1fMB", float64(info.Size())/1024/1024),
	}, nil
}

func (d *Deps) exportJLCPCB(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")
	dir, pcb, err := d.resolvePCB(project)
	if err != nil {
		return nil, err
	}
	sch, hasSch := kicad.FindSch(dir)

	jd := filepath.Join(dir, "output", "jlcpcb")
	if err := os.MkdirAll(jd, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare jlcpcb dir: %w", err)
	}

	results := map[string]any{}

	r1, err1 := d.Toolchain.Run(ctx, "pcb", "export", "gerbers", "--output", jd+"/", pcb)
	r2, err2 := d.Toolchain.Run(ctx, "pcb", "export", "drill", "--output", jd+"/", pcb)
	gerberOK := err1 == nil && err2 == nil && r1.Success() && r2.Success()
	results["gerber"] = gerberOK

	if hasSch {
		bomFile := filepath.Join(jd, "bom.csv")
		r3, err3 := d.Toolchain.Run(ctx, "sch", "export", "bom", "--output", bomFile, sch)
		results["bom"] = err3 == nil && r3.Success()
	} else {
		results["bom"] = false
	}

	posFile := filepath.Join(jd, "position.csv")
	r4, err4 := d.Toolchain.Run(ctx, "pcb", "export", "pos",
		"--output", posFile,
		"--format", "csv",
		"--units", "mm",
		"--side", "both",
		"--smd-only",
		pcb)
	_, posStatErr := os.Stat(posFile)
	results["position"] = err4 == nil && r4.Success() && posStatErr == nil

	files := []string{}
	if entries, err := os.ReadDir(jd); err == nil {
		for _, e := range entries {
			files = append(files, e.Name())
		}
	}

	return map[string]any{
		"success": gerberOK,
		"results": results,
		"dir":     jd,
		"files":   files,
		"count":   len(files),
		"message": "JLCPCB 檔案包已生成",
	}, nil
}

func (d *Deps) exportAll(ctx context.Context, args map[string]any) (any, error) {
	project := argString(args, "project")

	results := map[string]any{}
	results["drc"] = d.subResult(ctx, d.runDRC, args)
	results["erc"] = d.subResult(ctx, d.runERC, args)
	results["gerber"] = d.subResult(ctx, d.exportGerber, args)
	results["bom"] = d.subResult(ctx, d.exportBOM, args)
	results["3d"] = d.subResult(ctx, d.export3D, withArg(args, "view", "all"))
	results["svg"] = d.subResult(ctx, d.exportSVG, withArg(args, "view", "all"))
	results["sch_pdf"] = d.subResult(ctx, d.exportSchPDF, args)

	outDir := filepath.Join(d.Projects.Dir(project), "output")
	totalFiles := 0
	filepath.Walk(outDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			totalFiles++
		}
		return nil
	})

	return map[string]any{
		"success":     true,
		"results":     results,
		"total_files": totalFiles,
		"output_dir":  outDir,
	}, nil
}

// subResult 將子工具的錯誤折疊成結構化結果，單項失敗不會中斷 export_all
func (d *Deps) subResult(ctx context.Context, h Handler, args map[string]any) any {
	result, err := h(ctx, args)
	if err != nil {
		return map[string]any{"success": false, "error": err.Error()}
	}
	return result
}

func withArg(args map[string]any, key string, value any) map[string]any {
	merged := make(map[string]any, len(args)+1)
	for k, v := range args {
		merged[k] = v
	}
	merged[key] = value
	return merged
}
