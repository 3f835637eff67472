// Package config 加载服务配置：默认值 < YAML文件 < SANDFLAKE_ 环境变量 < 命令行参数
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sandflake/internal/logger"
	"sandflake/pkg/idgen/core"
	"sandflake/pkg/idgen/sandflake"
)

// EnvPrefix 环境变量前缀，例如 SANDFLAKE_NODE_ID
const EnvPrefix = "SANDFLAKE"

const (
	ClockSystem    = "system"
	ClockMonotonic = "monotonic"
)

// Config 服务配置
type Config struct {
	Node      NodeConfig      `mapstructure:"node"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       logger.Config   `mapstructure:"log"`
}

// NodeConfig 节点身份
type NodeConfig struct {
	ID int64 `mapstructure:"id" validate:"min=0,max=63"`
}

// GeneratorConfig 生成器行为
type GeneratorConfig struct {
	Clock                    string        `mapstructure:"clock" validate:"oneof=system monotonic"`
	MaxWait                  time.Duration `mapstructure:"max_wait" validate:"min=0,max=1m"`
	ClockBackwardStrategy    string        `mapstructure:"clock_backward_strategy" validate:"clock_strategy"`
	ClockBackwardToleranceMs int64         `mapstructure:"clock_backward_tolerance_ms" validate:"min=0,max=1000"`
	Metrics                  bool          `mapstructure:"metrics"`
}

// ServerConfig HTTP服务
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// AuthConfig 授权配置
type AuthConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	JWTSecret    string   `mapstructure:"jwt_secret"`
	APIKeyHashes []string `mapstructure:"api_key_hashes" validate:"dive,required"` // bcrypt 哈希
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock_strategy", func(fl validator.FieldLevel) bool {
		_, ok := core.ParseClockBackwardStrategy(fl.Field().String())
		return ok
	})
	return v
}

// SetDefaults 注册所有配置项的默认值
// 说明：AutomaticEnv 只对已知的键生效，所以每个键都需要默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("node.id", 0)

	v.SetDefault("generator.clock", ClockSystem)
	v.SetDefault("generator.max_wait", time.Second)
	v.SetDefault("generator.clock_backward_strategy", core.StrategyUseLastTimestamp.String())
	v.SetDefault("generator.clock_backward_tolerance_ms", 0)
	v.SetDefault("generator.metrics", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.api_key_hashes", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatJSON)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}

// NewViper 创建带默认值和环境变量绑定的 viper 实例
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load 从 viper 读取配置；path 非空时先合并该 YAML 文件
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed on %q (value %v)",
				core.ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}

	return nil
}

// GeneratorConfig 转换为生成器配置
func (c *Config) GeneratorConfig(log *zap.Logger) *sandflake.Config {
	strategy, _ := core.ParseClockBackwardStrategy(c.Generator.ClockBackwardStrategy)

	var clock sandflake.Clock = sandflake.SystemClock{}
	if c.Generator.Clock == ClockMonotonic {
		clock = sandflake.NewMonotonicClock()
	}

	return &sandflake.Config{
		NodeID:                 c.Node.ID,
		Clock:                  clock,
		MaxWait:                c.Generator.MaxWait,
		ClockBackwardStrategy:  strategy,
		ClockBackwardTolerance: c.Generator.ClockBackwardToleranceMs,
		EnableMetrics:          c.Generator.Metrics,
		Logger:                 log,
	}
}
