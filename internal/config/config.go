package config

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	apperrors "github.com/wfunc/idle-game/internal/errors"
)

// Config 引擎配置结构体
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Save     SaveConfig     `mapstructure:"save"`
	Goal     GoalConfig     `mapstructure:"goal"`
	Boost    BoostConfig    `mapstructure:"boost"`
	Game     GameConfig     `mapstructure:"game"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// DatabaseConfig 存档数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SaveConfig 存档调度配置
type SaveConfig struct {
	// DebounceInterval 去抖间隔：同一存档域在一个窗口内的多次变更合并为一次写入
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`
	// Domains 按域覆盖去抖间隔（键为存档域名）
	Domains map[string]time.Duration `mapstructure:"domains"`
	// Audit 是否为每次物理写入追加审计记录
	Audit bool `mapstructure:"audit"`
	// Seal 存档加封配置
	Seal SealConfig `mapstructure:"seal"`
}

// SealConfig 存档加封（加密）配置
type SealConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Key     string `mapstructure:"key"` // 32字节密钥的十六进制表示
}

// GoalConfig 目标引擎配置
type GoalConfig struct {
	// AutoTickInterval 自动巡检间隔：周期性从实时信号重推导任务进度，
	// 远粗于渲染帧率
	AutoTickInterval time.Duration `mapstructure:"auto_tick_interval"`
}

// BoostConfig 加速效果首次运行默认值
type BoostConfig struct {
	Percent  float64       `mapstructure:"percent"`
	Duration time.Duration `mapstructure:"duration"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Unlocked bool          `mapstructure:"unlocked"`
}

// GameConfig 玩法基础配置
type GameConfig struct {
	// ResourceKinds 资源种类数（资源背包为定长数组）
	ResourceKinds int `mapstructure:"resource_kinds"`
	// BaseSpeed 基准移动速度
	BaseSpeed float64 `mapstructure:"base_speed"`
	// BaseIncome 黑洞基础收益
	BaseIncome float64 `mapstructure:"base_income"`
	// BaseStorageMax 黑洞基础仓库容量
	BaseStorageMax int64 `mapstructure:"base_storage_max"`
	// InitialGold 首次运行赠送金币
	InitialGold int64 `mapstructure:"initial_gold"`
	// InitialCharacterID 首次运行默认角色
	InitialCharacterID int `mapstructure:"initial_character_id"`
}

// CatalogConfig 目录数据配置（任务/升级/角色定义文件）
type CatalogConfig struct {
	// MissionsPath 任务目录文件路径，留空使用内置默认表
	MissionsPath string `mapstructure:"missions_path"`
	// UpgradesPath 升级档位文件路径，留空使用内置默认表
	UpgradesPath string `mapstructure:"upgrades_path"`
	// CharactersPath 角色定义文件路径，留空使用内置默认表
	CharactersPath string `mapstructure:"characters_path"`
}

// Manager 配置管理器
// 持有自己的viper实例，引擎以依赖注入方式获取配置，不经过全局单例。
type Manager struct {
	mu  sync.RWMutex
	v   *viper.Viper
	cfg *Config
}

// Load 加载配置
// configPath为空时在./config和当前目录中查找config.yaml，
// 文件不存在则使用默认配置。
func Load(configPath string) (*Manager, error) {
	v := viper.New()

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 设置环境变量前缀
	v.SetEnvPrefix("IDLE_GAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果配置文件不存在，使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.Wrap(err, apperrors.ErrConfigLoad)
		}
	}

	// 解析配置到结构体
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigParse)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &Manager{v: v, cfg: cfg}, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/idle-game.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "idle-game.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 存档调度默认配置
	v.SetDefault("save.debounce_interval", "500ms")
	v.SetDefault("save.audit", true)
	v.SetDefault("save.seal.enabled", false)
	v.SetDefault("save.seal.key", "")

	// 目标引擎默认配置
	v.SetDefault("goal.auto_tick_interval", "250ms")

	// 加速效果默认配置
	v.SetDefault("boost.percent", 50)
	v.SetDefault("boost.duration", "30s")
	v.SetDefault("boost.cooldown", "120s")
	v.SetDefault("boost.unlocked", false)

	// 玩法默认配置
	v.SetDefault("game.resource_kinds", 8)
	v.SetDefault("game.base_speed", 1.0)
	v.SetDefault("game.base_income", 1.0)
	v.SetDefault("game.base_storage_max", 100)
	v.SetDefault("game.initial_gold", 0)
	v.SetDefault("game.initial_character_id", 1)

	// 目录数据默认配置（留空使用内置默认表）
	v.SetDefault("catalog.missions_path", "")
	v.SetDefault("catalog.upgrades_path", "")
	v.SetDefault("catalog.characters_path", "")
}

// validate 校验配置
func validate(cfg *Config) error {
	if cfg.Save.DebounceInterval <= 0 {
		return apperrors.New(apperrors.ErrConfigValidate, "save.debounce_interval 必须大于0")
	}
	if cfg.Goal.AutoTickInterval <= 0 {
		return apperrors.New(apperrors.ErrConfigValidate, "goal.auto_tick_interval 必须大于0")
	}
	if cfg.Game.ResourceKinds <= 0 {
		return apperrors.New(apperrors.ErrConfigValidate, "game.resource_kinds 必须大于0")
	}
	return nil
}

// Get 获取配置实例
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// DebounceFor 获取指定存档域的去抖间隔
// 优先使用按域覆盖值，否则使用全局默认值。
func (c *SaveConfig) DebounceFor(domain string) time.Duration {
	if d, ok := c.Domains[domain]; ok && d > 0 {
		return d
	}
	return c.DebounceInterval
}

// Watch 监听配置文件变化
// 去抖间隔、自动巡检间隔等可热更新的配置在回调中重新下发。
func (m *Manager) Watch(callback func(*Config)) {
	m.v.WatchConfig()
	m.v.OnConfigChange(func(e fsnotify.Event) {
		m.mu.Lock()

		newCfg := &Config{}
		if err := m.v.Unmarshal(newCfg); err != nil {
			m.mu.Unlock()
			return
		}
		if err := validate(newCfg); err != nil {
			m.mu.Unlock()
			return
		}

		m.cfg = newCfg
		m.mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}
	})
}

// GetDuration 获取时间间隔配置
func (m *Manager) GetDuration(key string) time.Duration {
	return m.v.GetDuration(key)
}

// IsSet 检查配置项是否存在
func (m *Manager) IsSet(key string) bool {
	return m.v.IsSet(key)
}

// Set 动态设置配置值（测试用）
func (m *Manager) Set(key string, value interface{}) {
	m.v.Set(key, value)
}

// Default 返回一份默认配置（不读取任何文件）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}
