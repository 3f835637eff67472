package core

import "errors"

var (
	// ErrInvalidNodeID 节点ID超出有效范围
	ErrInvalidNodeID = errors.New("invalid node id: must be between 0 and 63")

	// ErrNilClock 未注入时钟源
	ErrNilClock = errors.New("clock cannot be nil")

	// ErrClockUnavailable 时钟源无法给出合法的时间（早于Epoch或超出42位）
	ErrClockUnavailable = errors.New("clock unavailable: reading cannot be dated against the sandflake epoch")

	// ErrClockMovedBackwards 检测到时钟回拨
	ErrClockMovedBackwards = errors.New("clock moved backwards: refusing to generate id")

	// ErrUnavailable 序列号持续耗尽，等待超出预算（暂时不可用，调用方可重试）
	ErrUnavailable = errors.New("id generator temporarily unavailable: sequence saturated beyond wait budget")

	// ErrInvalidSandflakeID 无效的Sandflake ID
	ErrInvalidSandflakeID = errors.New("invalid sandflake id")

	// ErrInvalidObjectClass 无效的对象类别
	ErrInvalidObjectClass = errors.New("invalid object class")

	// ErrInvalidBatchSize 批量生成数量无效
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrNilConfig 配置为nil
	ErrNilConfig = errors.New("config cannot be nil")

	// ErrInvalidConfig 配置校验失败
	ErrInvalidConfig = errors.New("invalid config")
)
