package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	Workbooks WorkbooksConfig `toml:"workbooks"`
	Cache     CacheConfig     `toml:"cache"`
	Roster    RosterConfig    `toml:"roster"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir     string `toml:"data_dir"`
	JournalFile string `toml:"journal_file"`
}

// WorkbooksConfig 表格存储配置
type WorkbooksConfig struct {
	// Dir 存放 .xlsx 工作簿的目录；相对路径基于数据目录
	Dir            string `toml:"dir"`
	TrackingBook   string `toml:"tracking_workbook"`
	TrackingSheet  string `toml:"tracking_sheet"`
	RosterBook     string `toml:"roster_workbook"`
	RosterPattern  string `toml:"roster_title_pattern"`
	RosterSheet    string `toml:"roster_sheet"`
	StoppageSheet  string `toml:"stoppage_sheet"`
	BackupWorkbook string `toml:"backup_workbook"`
}

// CacheConfig 快照缓存配置
type CacheConfig struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

// RosterConfig 考勤配置
type RosterConfig struct {
	MealDeduction bool `toml:"meal_deduction"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
	Path          string
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:     "data",
			JournalFile: "fieldtrack.db",
		},
		Workbooks: WorkbooksConfig{
			Dir:           "workbooks",
			TrackingSheet: "Avance",
			RosterPattern: "Roster",
			RosterSheet:   "Roster",
			StoppageSheet: "Stoppages",
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
		},
		Roster: RosterConfig{
			MealDeduction: true,
		},
	}
}

// CacheTTL 快照缓存时长
func (c *AppConfig) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return LoadFile(filepath.Join(exeDir, "config.toml"))
}

// LoadFile 从指定路径加载配置；文件不存在时使用默认配置
func LoadFile(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(config)
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	applyEnv(config)
	return config, info, nil
}

// applyEnv 环境变量覆盖（用于 E2E / 本地运行）
func applyEnv(config *AppConfig) {
	if v := os.Getenv("FIELDTRACK_WORKBOOKS_DIR"); v != "" {
		config.Workbooks.Dir = v
	}
	if v := os.Getenv("FIELDTRACK_BACKUP_WORKBOOK"); v != "" {
		config.Workbooks.BackupWorkbook = v
	}
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir 确保数据目录存在
// 相对路径位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := resolveDir(config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// WorkbooksDir 工作簿目录；相对路径基于数据目录
func WorkbooksDir(config *AppConfig) string {
	if filepath.IsAbs(config.Workbooks.Dir) {
		return config.Workbooks.Dir
	}
	return filepath.Join(resolveDir(config.Data.DataDir), config.Workbooks.Dir)
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(resolveDir(config.Data.DataDir), subdir, filename)
}

func resolveDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	exeDir, _ := GetExeDir()
	if exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, dir)
}
