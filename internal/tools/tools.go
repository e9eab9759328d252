package tools

import (
	"github.com/pcbforge/kicad-mcp/internal/autoroute"
	"github.com/pcbforge/kicad-mcp/internal/kicad"
	"github.com/pcbforge/kicad-mcp/internal/metrics"
	"github.com/pcbforge/kicad-mcp/internal/pcbapi"
)

// Deps 工具層的依賴集合，全部於啟動時注入
type Deps struct {
	Projects  *kicad.Projects
	Toolchain *kicad.Toolchain
	API       pcbapi.API
	Launcher  *autoroute.Launcher
	Monitor   *autoroute.Monitor
	Metrics   *metrics.Collector // 可為 nil（測試或停用監控時）

	FreeroutingJar string
	ServerVersion  string
}

func (d *Deps) recordRouteStarted() {
	if d.Metrics != nil {
		d.Metrics.RecordRouteJobStarted()
	}
}

func (d *Deps) recordTasksKnown(n int) {
	if d.Metrics != nil {
		d.Metrics.SetTasksKnown(n)
	}
}

// RegisterAll 註冊全部工具；順序即 tools/list 的輸出順序
func RegisterAll(reg *Registry, d *Deps) error {
	all := []Tool{
		{
			Name:        "list_projects",
			Description: "列出所有專案",
			Schema:      emptySchema(),
			Handler:     d.listProjects,
		},
		{
			Name:        "run_drc",
			Description: "DRC 設計規則檢查 (PCB)",
			Schema:      projectSchema(),
			Handler:     d.runDRC,
		},
		{
			Name:        "run_erc",
			Description: "ERC 電氣規則檢查 (原理圖)",
			Schema:      projectSchema(),
			Handler:     d.runERC,
		},
		{
			Name:        "fill_zones",
			Description: "填充所有 Zone (鋪銅)",
			Schema:      projectSchema(),
			Handler:     d.fillZones,
		},
		{
			Name:        "auto_route",
			Description: "FreeRouting 自動佈線 (預設非同步，會備份原檔)",
			Schema: Schema{
				"type": "object",
				"properties": map[string]any{
					"project":    map[string]any{"type": "string"},
					"max_passes": map[string]any{"type": "integer", "default": 100, "description": "最大佈線嘗試次數"},
					"async_mode": map[string]any{"type": "boolean", "default": true, "description": "非同步模式（建議）"},
				},
				"required": []string{"project"},
			},
			Handler: d.autoRoute,
		},
		{
			Name:        "get_task_status",
			Description: "查詢非同步任務狀態",
			Schema: Schema{
				"type": "object",
				"properties": map[string]any{
					"task_id": map[string]any{"type": "string"},
				},
				"required": []string{"task_id"},
			},
			Handler: d.getTaskStatus,
		},
		{
			Name:        "list_tasks",
			Description: "列出所有非同步任務",
			Schema:      emptySchema(),
			Handler:     d.listTasks,
		},
		{
			Name:        "get_board_info",
			Description: "取得板子資訊 (尺寸/層數/元件數)",
			Schema:      projectSchema(),
			Handler:     d.getBoardInfo,
		},
		{
			Name:        "export_gerber",
			Description: "匯出 Gerber + 鑽孔檔",
			Schema:      projectSchema(),
			Handler:     d.exportGerber,
		},
		{
			Name:        "export_bom",
			Description: "匯出 BOM (CSV)",
			Schema:      projectSchema(),
			Handler:     d.exportBOM,
		},
		{
			Name:        "export_netlist",
			Description: "匯出網表 (kicadxml/spice)",
			Schema: Schema{
				"type": "object",
				"properties": map[string]any{
					"project": map[string]any{"type": "string"},
					"format": map[string]any{
						"type":    "string",
						"enum":    []string{"kicadxml", "spice", "cadstar", "orcadpcb2"},
						"default": "kicadxml",
					},
				},
				"required": []string{"project"},
			},
			Handler: d.exportNetlist,
		},
		{
			Name:        "export_3d",
			Description: "3D 渲染圖 (top/bottom/iso/all)",
			Schema: Schema{
				"type": "object",
				"properties": map[string]any{
					"project": map[string]any{"type": "string"},
					"view": map[string]any{
						"type":    "string",
						"enum":    []string{"top", "bottom", "front", "back", "iso", "iso_back", "all"},
						"default": "top",
					},
				},
				"required": []string{"project"},
			},
			Handler: d.export3D,
		},
		{
			Name:        "export_svg",
			Description: "匯出 PCB SVG 圖片",
			Schema: Schema{
				"type": "object",
				"properties": map[string]any{
					"project": map[string]any{"type": "string"},
					"view": map[string]any{
						"type":    "string",
						"enum":    []string{"top", "bottom", "all"},
						"default": "all",
					},
				},
				"required": []string{"project"},
			},
			Handler: d.exportSVG,
		},
		{
			Name:        "export_pdf",
			Description: "匯出 PCB PDF",
			Schema: Schema{
				"type": "object",
				"properties": map[string]any{
					"project": map[string]any{"type": "string"},
					"layers":  map[string]any{"type": "string", "default": "all"},
				},
				"required": []string{"project"},
			},
			Handler: d.exportPDF,
		},
		{
			Name:        "export_sch_pdf",
			Description: "匯出原理圖 PDF",
			Schema:      projectSchema(),
			Handler:     d.exportSchPDF,
		},
		{
			Name:        "export_sch_svg",
			Description: "匯出原理圖 SVG",
			Schema:      projectSchema(),
			Handler:     d.exportSchSVG,
		},
		{
			Name:        "export_step",
			Description: "匯出 STEP 3D 模型檔",
			Schema:      projectSchema(),
			Handler:     d.exportSTEP,
		},
		{
			Name:        "export_jlcpcb",
			Description: "JLCPCB/嘉立創 完整製造包",
			Schema:      projectSchema(),
			Handler:     d.exportJLCPCB,
		},
		{
			Name:        "export_all",
			Description: "匯出所有檔案",
			Schema:      projectSchema(),
			Handler:     d.exportAll,
		},
		{
			Name:        "get_output_files",
			Description: "列出專案輸出檔案",
			Schema:      projectSchema(),
			Handler:     d.getOutputFiles,
		},
		{
			Name:        "read_file",
			Description: "讀取檔案內容",
			Schema: Schema{
				"type": "object",
				"properties": map[string]any{
					"filepath": map[string]any{"type": "string"},
				},
				"required": []string{"filepath"},
			},
			Handler: d.readFile,
		},
		{
			Name:        "get_version",
			Description: "查看版本資訊",
			Schema:      emptySchema(),
			Handler:     d.getVersion,
		},
	}

	for _, t := range all {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
