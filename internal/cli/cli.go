// ============================================================
// cli — 命令列介面與設定載入
//
// 職責說明：
//   - 讀取 YAML 設定檔，.env / 環境變數可覆寫關鍵欄位
//   - serve：組裝依賴並啟動 stdio 伺服器
//   - route-worker：隱藏子命令，作為脫離背景程序執行單一佈線任務
//   - status：印出設定摘要與任務帳本概況
// ============================================================

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pcbforge/kicad-mcp/internal/autoroute"
	"github.com/pcbforge/kicad-mcp/internal/kicad"
	"github.com/pcbforge/kicad-mcp/internal/metrics"
	"github.com/pcbforge/kicad-mcp/internal/pcbapi"
	"github.com/pcbforge/kicad-mcp/internal/server"
	"github.com/pcbforge/kicad-mcp/internal/taskstore"
	"github.com/pcbforge/kicad-mcp/internal/tools"
	"github.com/pcbforge/kicad-mcp/pkg/types"
)

// Version 由建置流程注入
var Version = "dev"

// Config 伺服器設定
type Config struct {
	Projects struct {
		BaseDir string `yaml:"base_dir"`
	} `yaml:"projects"`

	Tasks struct {
		Dir   string `yaml:"dir"`
		Store string `yaml:"store"` // file | redis
	} `yaml:"tasks"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Toolchain struct {
		KicadCLI       string `yaml:"kicad_cli"`
		Python         string `yaml:"python"`
		XvfbRun        string `yaml:"xvfb_run"`
		CommandTimeout int    `yaml:"command_timeout"` // 秒
	} `yaml:"toolchain"`

	Freerouting struct {
		Jar         string `yaml:"jar"`
		Java        string `yaml:"java"`
		SyncTimeout int    `yaml:"sync_timeout"` // 秒
	} `yaml:"freerouting"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

// DefaultConfig 未提供設定檔時的預設值
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Projects.BaseDir = "/root/pcb/projects"
	cfg.Tasks.Dir = "/root/pcb/tasks"
	cfg.Tasks.Store = "file"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Toolchain.KicadCLI = "kicad-cli"
	cfg.Toolchain.Python = "python3"
	cfg.Toolchain.XvfbRun = "xvfb-run"
	cfg.Toolchain.CommandTimeout = 300
	cfg.Freerouting.Jar = "/opt/freerouting.jar"
	cfg.Freerouting.Java = "java"
	cfg.Freerouting.SyncTimeout = 600
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 9090
	return cfg
}

// LoadConfig 讀取設定檔並套用環境變數覆寫
//
// 設定檔不存在時退回預設值，格式錯誤才回報失敗。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides 以環境變數覆寫設定，方便容器部署
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("KICAD_MCP_PROJECTS_DIR"); v != "" {
		cfg.Projects.BaseDir = v
	}
	if v := os.Getenv("KICAD_MCP_TASKS_DIR"); v != "" {
		cfg.Tasks.Dir = v
	}
	if v := os.Getenv("KICAD_MCP_TASK_STORE"); v != "" {
		cfg.Tasks.Store = v
	}
	if v := os.Getenv("KICAD_MCP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KICAD_MCP_FREEROUTING_JAR"); v != "" {
		cfg.Freerouting.Jar = v
	}
	if v := os.Getenv("KICAD_MCP_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

func (c *Config) commandTimeout() time.Duration {
	return time.Duration(c.Toolchain.CommandTimeout) * time.Second
}

func (c *Config) syncTimeout() time.Duration {
	return time.Duration(c.Freerouting.SyncTimeout) * time.Second
}

func (c *Config) engine() autoroute.EngineConfig {
	return autoroute.EngineConfig{
		Java:        c.Freerouting.Java,
		Jar:         c.Freerouting.Jar,
		XvfbRun:     c.Toolchain.XvfbRun,
		SyncTimeout: c.syncTimeout(),
	}
}

// buildStore 依設定選擇任務持久層
func buildStore(cfg *Config) (taskstore.Store, error) {
	switch cfg.Tasks.Store {
	case "", "file":
		return taskstore.NewFileStore(cfg.Tasks.Dir), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return taskstore.NewRedisStore(rdb), nil
	default:
		return nil, fmt.Errorf("unknown task store: %s", cfg.Tasks.Store)
	}
}

// BuildCLI 組裝整個命令樹
func BuildCLI() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "kicad-mcp",
		Short:         "KiCad 電路板自動化伺服器",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/default.yaml", "設定檔路徑")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newRouteWorkerCmd(&configPath))
	root.AddCommand(newStatusCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "啟動 stdio 伺服器",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}
			return runServe(cfg, *configPath)
		},
	}
}

func runServe(cfg *Config, configPath string) error {
	log.SetOutput(os.Stderr)

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	// route-worker 會在專案目錄下啟動，設定檔路徑必須先轉為絕對路徑
	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		absConfig = configPath
	}

	projects := kicad.NewProjects(cfg.Projects.BaseDir)
	toolchain := kicad.NewToolchain(cfg.Toolchain.KicadCLI, cfg.Toolchain.XvfbRun, cfg.commandTimeout(), nil)
	api := pcbapi.NewPythonAPI(cfg.Toolchain.Python, cfg.commandTimeout(), nil)

	launcher := autoroute.NewLauncher(autoroute.LauncherConfig{
		Store:      store,
		Projects:   projects,
		API:        api,
		Engine:     cfg.engine(),
		TasksDir:   cfg.Tasks.Dir,
		ExePath:    exePath,
		ConfigPath: absConfig,
	})
	monitor := autoroute.NewMonitor(store, cfg.Tasks.Dir)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	deps := &tools.Deps{
		Projects:       projects,
		Toolchain:      toolchain,
		API:            api,
		Launcher:       launcher,
		Monitor:        monitor,
		Metrics:        collector,
		FreeroutingJar: cfg.Freerouting.Jar,
		ServerVersion:  Version,
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterAll(registry, deps); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	srv := server.New(registry, collector, Version)
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}

// newRouteWorkerCmd 建立佈線工作程序子命令
//
// 由啟動器以脫離程序重新呼叫自身執行檔觸發，不在說明中列出。
func newRouteWorkerCmd(configPath *string) *cobra.Command {
	var (
		taskID    string
		pcbPath   string
		dsnPath   string
		sesPath   string
		maxPasses int
	)

	cmd := &cobra.Command{
		Use:    "route-worker",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}

			log.SetOutput(os.Stderr)

			worker := &autoroute.Worker{
				TasksDir:  cfg.Tasks.Dir,
				TaskID:    types.TaskID(taskID),
				PCB:       pcbPath,
				DSN:       dsnPath,
				SES:       sesPath,
				MaxPasses: maxPasses,
				Engine:    cfg.engine(),
				API:       pcbapi.NewPythonAPI(cfg.Toolchain.Python, cfg.commandTimeout(), nil),
			}
			return worker.Run(context.Background())
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "任務 ID")
	cmd.Flags().StringVar(&pcbPath, "pcb", "", "PCB 檔案路徑")
	cmd.Flags().StringVar(&dsnPath, "dsn", "", "DSN 交換檔路徑")
	cmd.Flags().StringVar(&sesPath, "ses", "", "SES 結果檔路徑")
	cmd.Flags().IntVar(&maxPasses, "passes", 100, "最大佈線迭代次數")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("pcb")
	_ = cmd.MarkFlagRequired("dsn")
	_ = cmd.MarkFlagRequired("ses")
	return cmd
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "顯示設定摘要與任務帳本概況",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}

			store, err := buildStore(cfg)
			if err != nil {
				return err
			}
			monitor := autoroute.NewMonitor(store, cfg.Tasks.Dir)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "projects dir: %s\n", cfg.Projects.BaseDir)
			fmt.Fprintf(out, "tasks dir:    %s (%s store)\n", cfg.Tasks.Dir, cfg.Tasks.Store)
			fmt.Fprintf(out, "freerouting:  %s\n", cfg.Freerouting.Jar)

			views, err := monitor.ListTasks()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "tasks:        %d\n", len(views))
			for _, v := range views {
				fmt.Fprintf(out, "  %-44s %s\n", v.ID, v.Status)
			}
			return nil
		},
	}
}
