package sandflake

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"sandflake/pkg/idgen/core"
)

// configValidate 结构体校验器（线程安全，内部缓存结构体元信息）
var configValidate = validator.New()

// ============================================================================
// Sandflake 配置定义
// ============================================================================

// Config Sandflake生成器配置
type Config struct {
	// NodeID 节点ID
	// 范围：0-63（6位二进制）
	// 用途：区分不同进程，每个进程必须由运维分配唯一值
	NodeID int64 `validate:"min=0,max=63"`

	// Clock 时钟源
	// 默认值：nil 时使用 SystemClock
	Clock Clock `validate:"-"`

	// MaxWait 序列号耗尽或时钟回拨等待时的总等待预算
	// 超出后返回 core.ErrUnavailable / core.ErrClockMovedBackwards
	//
	// 范围：0-1min，0 表示使用默认值
	// 默认值：1s
	MaxWait time.Duration `validate:"-"`

	// ClockBackwardStrategy 时钟回拨处理策略
	// 可选值：
	//   - StrategyUseLastTimestamp: 沿用上次时间戳（默认，不会产生重复ID）
	//   - StrategyWait: 等待时钟追上（容忍短暂回拨）
	//   - StrategyError: 直接返回错误
	//   - StrategyReset: 视为新毫秒（可能产生重复ID）
	ClockBackwardStrategy core.ClockBackwardStrategy `validate:"-"`

	// ClockBackwardTolerance 时钟回拨容忍时间（毫秒）
	// 说明：仅在策略为 StrategyWait 时生效，超过容忍范围返回错误
	//
	// 范围：0-1000ms（防止无限等待）
	// 默认值：5ms
	ClockBackwardTolerance int64 `validate:"min=0,max=1000"`

	// EnableMetrics 是否启用性能监控
	// 默认值：false
	EnableMetrics bool

	// Logger 日志记录器
	// 默认值：nil 时不输出日志
	Logger *zap.Logger `validate:"-"`
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
		}
		for _, fe := range fieldErrs {
			switch fe.StructField() {
			case "NodeID":
				return fmt.Errorf("%w: got %d, valid range [0, %d]",
					core.ErrInvalidNodeID, c.NodeID, MaxNodeID)
			case "ClockBackwardTolerance":
				return fmt.Errorf("%w: clock backward tolerance must be within [0, %d] ms, got %d ms",
					core.ErrInvalidConfig, maxClockBackwardToleranceLimit, c.ClockBackwardTolerance)
			}
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, fieldErrs)
	}

	if !c.ClockBackwardStrategy.IsValid() {
		return fmt.Errorf("%w: unknown clock backward strategy %d",
			core.ErrInvalidConfig, c.ClockBackwardStrategy)
	}

	if c.MaxWait < 0 || c.MaxWait > maxWaitLimit {
		return fmt.Errorf("%w: max wait must be within [0, %s], got %s",
			core.ErrInvalidConfig, maxWaitLimit, c.MaxWait)
	}

	return nil
}

// SetDefaults 设置配置的默认值
func (c *Config) SetDefaults() {
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.MaxWait == 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.ClockBackwardStrategy == core.StrategyWait && c.ClockBackwardTolerance == 0 {
		c.ClockBackwardTolerance = defaultClockBackwardTolerance
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Clone 克隆配置对象
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
