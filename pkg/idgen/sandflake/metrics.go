package sandflake

import (
	"sync/atomic"
	"time"
)

// Metrics 性能监控指标（单一职责：只负责监控数据）
//
// 所有 record 方法对 nil 接收者安全，未开启监控时直接返回。
type Metrics struct {
	IDCount          atomic.Uint64 // 已生成ID总数
	SequenceOverflow atomic.Uint64 // 序列号溢出次数
	ClockBackward    atomic.Uint64 // 时钟回拨次数
	WaitCount        atomic.Uint64 // 等待次数
	TotalWaitTimeNs  atomic.Uint64 // 总等待时间（纳秒）
	Unavailable      atomic.Uint64 // 超出等待预算的次数
}

// NewMetrics 创建新的监控指标实例
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordIssued(n uint64) {
	if m == nil {
		return
	}
	m.IDCount.Add(n)
}

func (m *Metrics) recordOverflow() {
	if m == nil {
		return
	}
	m.SequenceOverflow.Add(1)
}

func (m *Metrics) recordClockBackward() {
	if m == nil {
		return
	}
	m.ClockBackward.Add(1)
}

func (m *Metrics) recordWait(d time.Duration) {
	if m == nil {
		return
	}
	m.WaitCount.Add(1)
	m.TotalWaitTimeNs.Add(uint64(d.Nanoseconds()))
}

func (m *Metrics) recordUnavailable() {
	if m == nil {
		return
	}
	m.Unavailable.Add(1)
}

// Reset 重置所有监控指标
func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.IDCount.Store(0)
	m.SequenceOverflow.Store(0)
	m.ClockBackward.Store(0)
	m.WaitCount.Store(0)
	m.TotalWaitTimeNs.Store(0)
	m.Unavailable.Store(0)
}

// Snapshot 获取当前指标的快照（不可变性：返回副本）
func (m *Metrics) Snapshot() *Metrics {
	snapshot := NewMetrics()
	if m == nil {
		return snapshot
	}
	snapshot.IDCount.Store(m.IDCount.Load())
	snapshot.SequenceOverflow.Store(m.SequenceOverflow.Load())
	snapshot.ClockBackward.Store(m.ClockBackward.Load())
	snapshot.WaitCount.Store(m.WaitCount.Load())
	snapshot.TotalWaitTimeNs.Store(m.TotalWaitTimeNs.Load())
	snapshot.Unavailable.Store(m.Unavailable.Load())
	return snapshot
}

// ToMap 转换为map格式（便于序列化和展示）
func (m *Metrics) ToMap() map[string]uint64 {
	if m == nil {
		return map[string]uint64{
			"metrics_enabled": 0,
		}
	}

	waitCount := m.WaitCount.Load()
	var avgWaitTime uint64
	if waitCount > 0 {
		avgWaitTime = m.TotalWaitTimeNs.Load() / waitCount
	}

	return map[string]uint64{
		"metrics_enabled":   1,
		"id_count":          m.IDCount.Load(),
		"sequence_overflow": m.SequenceOverflow.Load(),
		"clock_backward":    m.ClockBackward.Load(),
		"wait_count":        waitCount,
		"total_wait_ns":     m.TotalWaitTimeNs.Load(),
		"avg_wait_time_ns":  avgWaitTime,
		"unavailable":       m.Unavailable.Load(),
	}
}
