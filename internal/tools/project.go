package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pcbforge/kicad-mcp/internal/kicad"
	"github.com/pcbforge/kicad-mcp/internal/proc"
)

// readFileMaxSize read_file 工具的檔案大小上限
const readFileMaxSize = 10 * 1024 * 1024

// 以 base64 回傳的二進位副檔名
var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".zip": true, ".pdf": true, ".step": true, ".glb": true,
}

// resolvePCB 解析專案目錄與 PCB 檔；找不到回傳使用者可讀錯誤
func (d *Deps) resolvePCB(project string) (dir, pcb string, err error) {
	dir = d.Projects.Dir(project)
	pcb, ok := kicad.FindPCB(dir)
	if !ok {
		return "", "", fmt.Errorf("PCB 檔案未找到: %s", project)
	}
	return dir, pcb, nil
}

// resolveSch 解析專案目錄與原理圖檔
func (d *Deps) resolveSch(project string) (dir, sch string, err error) {
	dir = d.Projects.Dir(project)
	sch, ok := kicad.FindSch(dir)
	if !ok {
		return "", "", fmt.Errorf("原理圖檔案未找到: %s", project)
	}
	return dir, sch, nil
}

// runErrText 從工具鏈結果組合錯誤文字，優先使用 stderr
func runErrText(result proc.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	return strings.TrimSpace(result.Stderr)
}

func (d *Deps) listProjects(ctx context.Context, args map[string]any) (any, error) {
	projects, err := d.Projects.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if projects == nil {
		projects = []kicad.ProjectInfo{}
	}
	return map[string]any{"projects": projects, "count": len(projects)}, nil
}

func (d *Deps) getOutputFiles(ctx context.Context, args map[string]any) (any, error) {
	dir := filepath.Join(d.Projects.Dir(argString(args, "project")), "output")
	if _, err := os.Stat(dir); err != nil {
		return map[string]any{"files": []any{}, "error": "輸出目錄不存在"}, nil
	}

	files := []map[string]any{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		files = append(files, map[string]any{
			"name":      info.Name(),
			"path":      rel,
			"full_path": path,
			"size":      humanSize(info.Size()),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk output dir: %w", err)
	}
	return map[string]any{"files": files, "count": len(files)}, nil
}

func (d *Deps) readFile(ctx context.Context, args map[string]any) (any, error) {
	path := argString(args, "filepath")
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("檔案不存在: %s", path)
	}
	if info.Size() > readFileMaxSize {
		return nil, fmt.Errorf("檔案過大 (>10MB)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if binaryExts[strings.ToLower(filepath.Ext(path))] {
		return map[string]any{
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString(data),
			"size":     info.Size(),
		}, nil
	}
	return map[string]any{
		"encoding": "utf-8",
		"content":  string(data),
		"size":     info.Size(),
	}, nil
}

func (d *Deps) getVersion(ctx context.Context, args map[string]any) (any, error) {
	kicadVersion, ok := d.Toolchain.Version(ctx)
	if !ok {
		kicadVersion = "未安裝"
	}
	_, jarErr := os.Stat(d.FreeroutingJar)

	return map[string]any{
		"kicad":       kicadVersion,
		"pcbnew_api":  d.API.Available(ctx),
		"freerouting": jarErr == nil,
		"mcp_server":  d.ServerVersion,
		"features": []string{
			"drc", "erc", "fill_zones", "board_info",
			"auto_route_async", "task_status",
			"gerber", "drill", "bom", "netlist", "pos",
			"3d_render", "svg", "pdf", "step",
			"sch_pdf", "sch_svg",
		},
	}, nil
}

// humanSize 輸出檔案列表用的大小字串（1KB 以下以位元組顯示）
func humanSize(size int64) string {
	if size > 1024 {
		return fmt.Sprintf("%.1fKB", float64(size)/1024)
	}
	return fmt.Sprintf("%dB", size)
}
