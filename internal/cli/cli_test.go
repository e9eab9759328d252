package cli

// ============================================================================
// CLI 與設定測試檔案
// 職責：驗證設定檔載入、預設值回退、環境變數覆寫與命令樹組成
// ============================================================================

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigDefaults 測試設定檔不存在時回退預設值
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/root/pcb/projects", cfg.Projects.BaseDir)
	assert.Equal(t, "/root/pcb/tasks", cfg.Tasks.Dir)
	assert.Equal(t, "file", cfg.Tasks.Store)
	assert.Equal(t, "kicad-cli", cfg.Toolchain.KicadCLI)
	assert.Equal(t, "/opt/freerouting.jar", cfg.Freerouting.Jar)
	assert.Equal(t, 300*time.Second, cfg.commandTimeout())
	assert.Equal(t, 600*time.Second, cfg.syncTimeout())
	assert.False(t, cfg.Metrics.Enabled)
}

// TestLoadConfigFile 測試 YAML 設定檔解析
func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
projects:
  base_dir: /srv/boards
tasks:
  dir: /srv/tasks
  store: redis
redis:
  addr: redis.internal:6379
  db: 2
freerouting:
  jar: /usr/share/freerouting.jar
  sync_timeout: 120
metrics:
  enabled: true
  port: 9191
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/boards", cfg.Projects.BaseDir)
	assert.Equal(t, "redis", cfg.Tasks.Store)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "/usr/share/freerouting.jar", cfg.Freerouting.Jar)
	assert.Equal(t, 120*time.Second, cfg.syncTimeout())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)

	// 未出現在檔案中的欄位維持預設值
	assert.Equal(t, "kicad-cli", cfg.Toolchain.KicadCLI)
	assert.Equal(t, "java", cfg.Freerouting.Java)
}

// TestLoadConfigMalformed 測試格式錯誤的設定檔回報失敗
func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("projects: [not a map"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

// TestEnvOverrides 測試環境變數覆寫設定
func TestEnvOverrides(t *testing.T) {
	t.Setenv("KICAD_MCP_PROJECTS_DIR", "/env/projects")
	t.Setenv("KICAD_MCP_TASK_STORE", "redis")
	t.Setenv("KICAD_MCP_METRICS_PORT", "9999")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/env/projects", cfg.Projects.BaseDir)
	assert.Equal(t, "redis", cfg.Tasks.Store)
	assert.Equal(t, 9999, cfg.Metrics.Port)
}

// TestBuildStoreUnknownKind 測試未知儲存種類回報錯誤
func TestBuildStoreUnknownKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tasks.Store = "etcd"

	_, err := buildStore(cfg)
	assert.Error(t, err)
}

// TestBuildCLICommandTree 測試命令樹組成與隱藏命令
func TestBuildCLICommandTree(t *testing.T) {
	root := BuildCLI()

	names := map[string]bool{}
	var hidden []string
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
		if cmd.Hidden {
			hidden = append(hidden, cmd.Name())
		}
	}
	assert.True(t, names["serve"])
	assert.True(t, names["status"])
	assert.True(t, names["route-worker"])
	assert.Equal(t, []string{"route-worker"}, hidden)

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "configs/default.yaml", flag.DefValue)
}
