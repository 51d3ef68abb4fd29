// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是应用程序的根配置结构
// 包含所有子配置模块
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Database DatabaseConfig `mapstructure:"database"` // 数据库配置
	LLM      LLMConfig      `mapstructure:"llm"`      // LLM 服务配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
}

// ServerConfig 服务器相关配置
type ServerConfig struct {
	Host string   `mapstructure:"host"` // 监听地址，桌面应用默认 127.0.0.1
	Port int      `mapstructure:"port"` // 监听端口，默认 8000
	Mode string   `mapstructure:"mode"` // 运行模式: debug / release
	CORS []string `mapstructure:"cors"` // CORS 允许的域名
}

// DatabaseConfig 数据库连接配置
// driver 为 sqlite 时只使用 path 字段（桌面应用默认）
// driver 为 mysql 时使用 host/port/username/password/database/charset
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`         // sqlite / mysql
	Path         string `mapstructure:"path"`           // SQLite 数据库文件路径，为空时使用 ~/.knowledge-studio/knowledge_studio.db
	Host         string `mapstructure:"host"`           // MySQL 主机地址
	Port         int    `mapstructure:"port"`           // MySQL 端口
	Username     string `mapstructure:"username"`       // MySQL 用户名
	Password     string `mapstructure:"password"`       // MySQL 密码
	Database     string `mapstructure:"database"`       // MySQL 数据库名称
	Charset      string `mapstructure:"charset"`        // 字符集
	MaxIdleConns int    `mapstructure:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int    `mapstructure:"max_open_conns"` // 最大打开连接数
	MaxLifetime  int    `mapstructure:"max_lifetime"`   // 连接最大生命周期（秒）
}

// LLMConfig LLM 服务配置
type LLMConfig struct {
	// RequestTimeout 单次补全调用的超时时间
	// 外部服务可能无限阻塞，必须设置上限
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// BaseURLs 各提供商的 OpenAI 兼容接口地址，键为提供商名称
	// 未配置的提供商使用内置默认值
	BaseURLs map[string]string `mapstructure:"base_urls"`

	// APIKeys 各提供商的环境级 API Key，键为提供商名称
	// 优先级低于请求参数和数据库中保存的 Key
	APIKeys map[string]string `mapstructure:"api_keys"`

	// Models 覆盖内置的支持模型表，键为提供商名称，值为模型 ID 列表
	// 为空时使用内置模型表
	Models map[string][]string `mapstructure:"models"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug/info/warn/error
	Format string `mapstructure:"format"` // 日志格式: json/text
}

// Load 从指定路径加载配置文件
// 支持环境变量覆盖配置项
// 参数:
//   - configPath: 配置文件目录路径 (如 "./configs")
//
// 返回:
//   - *Config: 配置对象
//   - error: 如果加载失败则返回错误
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 启用环境变量
	v.AutomaticEnv()
	// 将环境变量中的 _ 映射到配置的 .
	// 例如: DATABASE_DRIVER -> database.driver
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)
	setDefaults(v)

	// 读取配置文件（如果不存在则使用默认值和环境变量）
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SQLitePath 返回 SQLite 数据库文件路径
// 未配置时使用用户目录下的固定位置，并确保目录存在
func (c *DatabaseConfig) SQLitePath() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(home, ".knowledge-studio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	return filepath.Join(dir, "knowledge_studio.db"), nil
}

// bindEnvVariables 绑定环境变量到配置项
func bindEnvVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// 数据库配置
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.username", "DATABASE_USERNAME")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.database", "DATABASE_NAME")

	// LLM 环境级 API Key
	v.BindEnv("llm.api_keys.openai", "OPENAI_API_KEY")
	v.BindEnv("llm.api_keys.anthropic", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.api_keys.google", "GEMINI_API_KEY")
}

// setDefaults 设置配置项的默认值
// 当配置文件中没有指定某个值时，将使用这里设置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"*"})

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_lifetime", 3600)

	// LLM 默认配置
	v.SetDefault("llm.request_timeout", "120s")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
