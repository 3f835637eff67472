package core

// IConfigurableGenerator 可配置的生成器接口
type IConfigurableGenerator interface {
	// GetNodeID 获取节点ID
	// 返回值：节点ID（0-63）
	GetNodeID() int64
}

// IMonitorableGenerator 可监控的生成器接口
type IMonitorableGenerator interface {
	// GetMetrics 获取性能监控指标
	GetMetrics() map[string]uint64

	// ResetMetrics 重置性能监控指标
	ResetMetrics()

	// GetIDCount 获取已生成的ID总数
	GetIDCount() uint64
}

// IDInfo ID信息结构
type IDInfo struct {
	ID          uint64 // 原始ID值
	Timestamp   int64  // 时间戳（Unix毫秒）
	Elapsed     uint64 // 相对Epoch的毫秒数（ID中实际存储的42位）
	NodeID      int64  // 节点ID（0-63）
	ObjectClass uint8  // 对象类别（0-15，未标记时为0）
	Sequence    int64  // 序列号（0-4095，同一毫秒内的序号）
}

// IIDParser ID解析器接口
type IIDParser interface {
	// Parse 解析ID，提取完整的元信息
	Parse(id uint64) (*IDInfo, error)

	// ExtractTimestamp 提取时间戳（Unix毫秒）
	ExtractTimestamp(id uint64) int64

	// ExtractNodeID 提取节点ID
	ExtractNodeID(id uint64) int64

	// ExtractObjectClass 提取对象类别
	ExtractObjectClass(id uint64) uint8

	// ExtractSequence 提取序列号
	ExtractSequence(id uint64) int64
}

// IIDValidator ID验证器接口
type IIDValidator interface {
	// Validate 验证ID的有效性
	Validate(id uint64) error

	// ValidateBatch 批量验证ID
	ValidateBatch(ids []uint64) error
}
