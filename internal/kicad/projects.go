// Package kicad 封裝 KiCad 專案目錄佈局與 kicad-cli 工具鏈的呼叫邊界
package kicad

import (
	"os"
	"path/filepath"
	"strings"
)

// 每個專案 output/ 下的標準子目錄
var outputSubdirs = []string{
	"output/gerber",
	"output/bom",
	"output/3d",
	"output/reports",
	"output/jlcpcb",
	"output/docs",
	"output/images",
	"output/netlist",
}

// ProjectInfo 專案列表回應中的單一專案
type ProjectInfo struct {
	Name    string `json:"name"`
	HasPCB  bool   `json:"has_pcb"`
	HasSch  bool   `json:"has_sch"`
	PCBFile string `json:"pcb_file,omitempty"`
}

// Projects 專案根目錄存取器
type Projects struct {
	base string
}

// NewProjects 建立專案存取器，base 為所有專案的根目錄
func NewProjects(base string) *Projects {
	return &Projects{base: base}
}

// Base 取得專案根目錄
func (p *Projects) Base() string { return p.base }

// Dir 取得指定專案的目錄路徑
func (p *Projects) Dir(name string) string {
	return filepath.Join(p.base, name)
}

// List 列出所有專案及其 PCB / 原理圖存在狀態
func (p *Projects) List() ([]ProjectInfo, error) {
	entries, err := os.ReadDir(p.base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var projects []ProjectInfo
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := p.Dir(e.Name())
		pcb, hasPCB := FindPCB(dir)
		_, hasSch := FindSch(dir)
		info := ProjectInfo{Name: e.Name(), HasPCB: hasPCB, HasSch: hasSch}
		if hasPCB {
			info.PCBFile = filepath.Base(pcb)
		}
		projects = append(projects, info)
	}
	return projects, nil
}

// FindPCB 在目錄中尋找第一個 .kicad_pcb 檔
func FindPCB(dir string) (string, bool) {
	return findByExt(dir, ".kicad_pcb")
}

// FindSch 在目錄中尋找第一個 .kicad_sch 檔
func FindSch(dir string) (string, bool) {
	return findByExt(dir, ".kicad_sch")
}

func findByExt(dir, ext string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// EnsureOutputDirs 建立專案的標準輸出目錄結構
func EnsureOutputDirs(dir string) error {
	for _, sub := range outputSubdirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return err
		}
	}
	return nil
}
