package sandflake

import "time"

const (
	// Epoch 起始时间戳 (2021-01-01 00:00:00 UTC)
	// 已发放的ID依赖该值，不可修改
	Epoch int64 = 1609459200000 // 毫秒时间戳

	// 位数分配（从低位到高位）
	SequenceBits    = 12 // 序列号位数
	NodeIDBits      = 6  // 节点ID位数
	ObjectClassBits = 4  // 对象类别位数
	TimestampBits   = 42 // 时间戳位数

	// 最大值计算(切记不是个数)
	MaxSequence    = -1 ^ (-1 << SequenceBits)    // 4095 (2^12 - 1) [0, 4095]
	MaxNodeID      = -1 ^ (-1 << NodeIDBits)      // 63 (2^6 - 1) [0, 63]
	MaxObjectClass = -1 ^ (-1 << ObjectClassBits) // 15 (2^4 - 1) [0, 15]
	MaxTimestamp   = -1 ^ (-1 << TimestampBits)   // 2^42 - 1，约139年

	// 位移量
	NodeIDShift      = SequenceBits                       // 12
	ObjectClassShift = SequenceBits + NodeIDBits          // 18
	TimestampShift   = ObjectClassShift + ObjectClassBits // 22

	// 序列号耗尽后的退避时间
	overflowBackoff = time.Millisecond

	// 默认的总等待预算，超出后返回 core.ErrUnavailable
	defaultMaxWait = time.Second

	// 等待预算的绝对上限
	maxWaitLimit = time.Minute

	// 时钟回拨最大容忍时间（毫秒）
	defaultClockBackwardTolerance = 5

	// 时钟回拨容忍度的绝对上限（毫秒），防止无限等待
	maxClockBackwardToleranceLimit = 1000

	// 批量生成最大数量（支持跨毫秒生成）
	maxBatchSize = 100_000

	// 允许的未来时间容差（毫秒）
	maxFutureTimeTolerance = 60 * 1000 // 1分钟
)
