package sandflake

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"sandflake/pkg/idgen/core"
)

var (
	_ core.IConfigurableGenerator = (*Generator)(nil)
	_ core.IMonitorableGenerator  = (*Generator)(nil)
)

// Generator Sandflake ID生成器
//
// 每个进程构造一次，由所有并发调用方共享；除共享状态外其余字段构造后只读。
type Generator struct {
	// ========== 核心状态 ==========
	node     NodeID // 节点ID（0-63）
	nodeBits uint64 // 预先移位的节点ID
	clock    Clock  // 时钟源
	state    *state // (last_timestamp, sequence)

	// ========== 配置和策略 ==========
	config *Config

	// ========== 监控和工具 ==========
	metrics   *Metrics          // 性能监控指标（可选，nil时不收集）
	logger    *zap.Logger       // 日志
	validator core.IIDValidator // ID验证器
	parser    core.IIDParser    // ID解析器
}

// New 使用指定时钟创建生成器
func New(nodeID int64, clock Clock, opts ...Option) (*Generator, error) {
	if clock == nil {
		return nil, core.ErrNilClock
	}
	cfg := &Config{NodeID: nodeID, Clock: clock}
	for _, opt := range opts {
		opt(cfg)
	}
	return NewWithConfig(cfg)
}

// NewDefault 使用系统墙上时钟创建生成器
func NewDefault(nodeID int64, opts ...Option) (*Generator, error) {
	return New(nodeID, SystemClock{}, opts...)
}

// NewWithConfig 使用配置创建生成器
// 说明：配置校验失败时不会返回任何可用的生成器
func NewWithConfig(config *Config) (*Generator, error) {
	if config == nil {
		return nil, core.ErrNilConfig
	}

	// 步骤1：验证配置
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// 步骤2：使用配置副本并设置默认值
	cfg := config.Clone()
	cfg.SetDefaults()

	node, err := NewNodeID(cfg.NodeID)
	if err != nil {
		return nil, err
	}

	// 步骤3：初始化监控（如果启用）
	var metrics *Metrics
	if cfg.EnableMetrics {
		metrics = NewMetrics()
	}

	generator := &Generator{
		node:      node,
		nodeBits:  node.bits(),
		clock:     cfg.Clock,
		state:     newState(),
		config:    cfg,
		metrics:   metrics,
		logger:    cfg.Logger.With(zap.Int64("node_id", node.Int64())),
		validator: NewValidator(),
		parser:    NewParser(),
	}

	generator.logger.Info("Sandflake生成器创建成功",
		zap.String("clock_backward_strategy", cfg.ClockBackwardStrategy.String()),
		zap.Duration("max_wait", cfg.MaxWait),
		zap.Bool("metrics_enabled", cfg.EnableMetrics))

	return generator, nil
}

// NextID 生成下一个唯一ID（线程安全）
//
// 当前毫秒的4096个序列号用完时阻塞1ms后重试；
// 累计等待超过 MaxWait 时返回 core.ErrUnavailable。
func (g *Generator) NextID() (ID, error) {
	res, err := g.reserve(1)
	if err != nil {
		return 0, err
	}
	return assemble(res.timestamp, g.nodeBits, 0, res.first), nil
}

// NextObjectID 生成带对象类别标记的ID（线程安全）
func (g *Generator) NextObjectID(class ObjectClass) (ID, error) {
	if !class.IsValid() {
		return 0, fmt.Errorf("%w: code %d", core.ErrInvalidObjectClass, uint8(class))
	}
	id, err := g.NextID()
	if err != nil {
		return 0, err
	}
	return id | ID(class.bits()), nil
}

// NextIDBatch 批量生成ID（线程安全）
// 说明：一次预留尽可能多的连续序列号，必要时跨毫秒
func (g *Generator) NextIDBatch(n int) ([]ID, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d",
			core.ErrInvalidBatchSize, n)
	}
	if n > maxBatchSize {
		return nil, fmt.Errorf("%w: batch size too large (max %d), got %d",
			core.ErrInvalidBatchSize, maxBatchSize, n)
	}

	ids := make([]ID, 0, n)
	for len(ids) < n {
		res, err := g.reserve(uint64(n - len(ids)))
		if err != nil {
			// 返回已生成的ID和错误
			return ids, fmt.Errorf("%w (generated %d/%d IDs)", err, len(ids), n)
		}
		for seq := res.first; seq < res.first+res.count; seq++ {
			ids = append(ids, assemble(res.timestamp, g.nodeBits, 0, seq))
		}
	}
	return ids, nil
}

// GetNodeID 获取节点ID
func (g *Generator) GetNodeID() int64 {
	return g.node.Int64()
}

// GetMetrics 获取性能监控指标
func (g *Generator) GetMetrics() map[string]uint64 {
	return g.metrics.ToMap()
}

// ResetMetrics 重置性能监控指标
func (g *Generator) ResetMetrics() {
	g.metrics.Reset()
}

// GetIDCount 获取已生成的ID总数
func (g *Generator) GetIDCount() uint64 {
	if g.metrics == nil {
		return 0
	}
	return g.metrics.IDCount.Load()
}

// ParseID 解析ID
func (g *Generator) ParseID(id uint64) (*core.IDInfo, error) {
	return g.parser.Parse(id)
}

// ValidateID 验证ID
func (g *Generator) ValidateID(id uint64) error {
	return g.validator.Validate(id)
}

// reserve 推进共享状态，处理序列号耗尽与时钟回拨
func (g *Generator) reserve(want uint64) (reservation, error) {
	var waited time.Duration

	for {
		res := g.state.reserve(g.clock, g.config.ClockBackwardStrategy, want)

		switch res.outcome {
		case outcomeIssued:
			if res.lag > 0 {
				g.metrics.recordClockBackward()
				g.logger.Warn("检测到时钟回拨",
					zap.Uint64("lag_ms", res.lag),
					zap.String("strategy", g.config.ClockBackwardStrategy.String()))
			}
			g.metrics.recordIssued(res.count)
			return res, nil

		case outcomeSaturated:
			// 当前毫秒的序列号已耗尽：退避1ms后从采样时钟重新开始
			g.metrics.recordOverflow()
			if waited >= g.config.MaxWait {
				g.metrics.recordUnavailable()
				g.logger.Error("序列号持续耗尽，超出等待预算",
					zap.Uint64("timestamp", res.timestamp),
					zap.Duration("waited", waited))
				return reservation{}, fmt.Errorf("%w: waited %s at timestamp %d",
					core.ErrUnavailable, waited, res.timestamp)
			}
			waited += g.pause(overflowBackoff)

		case outcomeBackward:
			g.metrics.recordClockBackward()
			if err := g.checkClockBackward(res.lag, waited); err != nil {
				g.logger.Warn("时钟回拨，ID生成失败",
					zap.Uint64("lag_ms", res.lag),
					zap.Error(err))
				return reservation{}, err
			}
			waited += g.pause(time.Duration(res.lag+1) * time.Millisecond)

		case outcomeClockOutOfRange:
			return reservation{}, fmt.Errorf("%w: reading %d exceeds %d bits",
				core.ErrClockUnavailable, res.timestamp, TimestampBits)
		}
	}
}

// checkClockBackward 判断回拨是否可以通过等待解决
func (g *Generator) checkClockBackward(lag uint64, waited time.Duration) error {
	switch g.config.ClockBackwardStrategy {
	case core.StrategyWait:
		if int64(lag) > g.config.ClockBackwardTolerance {
			return fmt.Errorf("%w: backward drift %d ms exceeds tolerance %d ms",
				core.ErrClockMovedBackwards, lag, g.config.ClockBackwardTolerance)
		}
		if waited >= g.config.MaxWait {
			return fmt.Errorf("%w: backward drift persisted after waiting %s",
				core.ErrClockMovedBackwards, waited)
		}
		return nil
	default:
		return fmt.Errorf("%w: detected backward drift of %d ms",
			core.ErrClockMovedBackwards, lag)
	}
}

// pause 阻塞当前调用方并返回实际等待时间
func (g *Generator) pause(d time.Duration) time.Duration {
	start := time.Now()
	time.Sleep(d)
	elapsed := time.Since(start)
	g.metrics.recordWait(elapsed)
	return elapsed
}
