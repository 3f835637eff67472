package sandflake

import (
	"time"

	"go.uber.org/zap"

	"sandflake/pkg/idgen/core"
)

// Option 生成器可选项
type Option func(*Config)

// WithMaxWait 设置总等待预算
func WithMaxWait(d time.Duration) Option {
	return func(c *Config) {
		c.MaxWait = d
	}
}

// WithClockBackwardStrategy 设置时钟回拨策略
func WithClockBackwardStrategy(s core.ClockBackwardStrategy) Option {
	return func(c *Config) {
		c.ClockBackwardStrategy = s
	}
}

// WithClockBackwardTolerance 设置时钟回拨容忍时间（毫秒）
func WithClockBackwardTolerance(ms int64) Option {
	return func(c *Config) {
		c.ClockBackwardTolerance = ms
	}
}

// WithMetrics 开启性能监控
func WithMetrics() Option {
	return func(c *Config) {
		c.EnableMetrics = true
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
