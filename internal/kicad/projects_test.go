package kicad

// ============================================================================
// 專案目錄佈局測試檔案
// 職責：驗證專案列舉、設計檔探測與標準輸出目錄建立
// ============================================================================

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeProject(t *testing.T, base, name string, files ...string) {
	t.Helper()
	dir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("data"), 0o644))
	}
}

// TestList 測試專案列舉與設計檔旗標
func TestList(t *testing.T) {
	base := t.TempDir()
	makeProject(t, base, "full-board", "full-board.kicad_pcb", "full-board.kicad_sch")
	makeProject(t, base, "sch-only", "sch-only.kicad_sch")
	makeProject(t, base, ".hidden", "x.kicad_pcb")
	require.NoError(t, os.WriteFile(filepath.Join(base, "stray.txt"), []byte("x"), 0o644))

	projects, err := NewProjects(base).List()
	require.NoError(t, err)
	require.Len(t, projects, 2)

	byName := map[string]ProjectInfo{}
	for _, p := range projects {
		byName[p.Name] = p
	}
	assert.True(t, byName["full-board"].HasPCB)
	assert.True(t, byName["full-board"].HasSch)
	assert.Equal(t, "full-board.kicad_pcb", byName["full-board"].PCBFile)
	assert.False(t, byName["sch-only"].HasPCB)
	assert.True(t, byName["sch-only"].HasSch)
}

// TestListMissingBase 測試根目錄不存在時回傳空列表
func TestListMissingBase(t *testing.T) {
	projects, err := NewProjects(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

// TestFindPCB 測試 PCB 檔探測
func TestFindPCB(t *testing.T) {
	base := t.TempDir()
	makeProject(t, base, "board", "board.kicad_pcb")

	pcb, ok := FindPCB(filepath.Join(base, "board"))
	require.True(t, ok)
	assert.Equal(t, "board.kicad_pcb", filepath.Base(pcb))

	_, ok = FindPCB(t.TempDir())
	assert.False(t, ok)
}

// TestEnsureOutputDirs 測試標準輸出目錄結構
func TestEnsureOutputDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureOutputDirs(dir))

	for _, sub := range []string{
		"gerber", "bom", "3d", "reports", "jlcpcb", "docs", "images", "netlist",
	} {
		assert.DirExists(t, filepath.Join(dir, "output", sub))
	}
}
