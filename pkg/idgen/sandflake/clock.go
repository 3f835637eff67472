package sandflake

import (
	"fmt"
	"sync"
	"time"

	"sandflake/pkg/idgen/core"
)

// Clock 时钟源：返回相对 Epoch 经过的整毫秒数
//
// 生成器只通过该接口读取时间，测试中可注入 MockClock 实现确定性控制。
// 无法读取时间属于不可恢复的错误，实现应直接 panic（包装 core.ErrClockUnavailable）。
type Clock interface {
	Millis() uint64
}

// ClockFunc 函数适配器
type ClockFunc func() uint64

// Millis 实现Clock接口
func (f ClockFunc) Millis() uint64 {
	return f()
}

// SystemClock 读取系统墙上时钟
type SystemClock struct{}

// Millis 实现Clock接口
func (SystemClock) Millis() uint64 {
	now := time.Now().UnixMilli()
	if now < Epoch {
		panic(fmt.Errorf("%w: wall clock %d predates epoch %d", core.ErrClockUnavailable, now, Epoch))
	}
	return uint64(now - Epoch)
}

// MonotonicClock 以创建时刻的墙上时间为基准、之后按进程单调时钟推进
//
// NTP 向后校时不会反映到读数上；进程休眠时读数可能“暂停”。
type MonotonicClock struct {
	start       time.Time     // 含单调时钟读数
	startOffset time.Duration // start 相对 Epoch 的偏移（不含单调读数）
}

// NewMonotonicClock 创建单调时钟
func NewMonotonicClock() *MonotonicClock {
	// 注意：不能调用 UTC()，否则会丢弃单调时钟读数
	start := time.Now()
	offset := start.Round(0).Sub(time.UnixMilli(Epoch))
	if offset < 0 {
		panic(fmt.Errorf("%w: wall clock %s predates epoch", core.ErrClockUnavailable, start.UTC()))
	}
	return &MonotonicClock{start: start, startOffset: offset}
}

// Millis 实现Clock接口
func (c *MonotonicClock) Millis() uint64 {
	elapsed := time.Since(c.start) + c.startOffset
	return uint64(elapsed / time.Millisecond)
}

// MockClock 按预设序列返回时间的测试时钟（线程安全）
//
// 序列耗尽后一直返回最后一个值；未设置任何值时返回0。
type MockClock struct {
	mu     sync.Mutex
	values []uint64
	calls  int
}

// NewMockClock 创建测试时钟
func NewMockClock(values ...uint64) *MockClock {
	return &MockClock{values: append([]uint64(nil), values...)}
}

// Hold 追加 n 次相同的读数
func (c *MockClock) Hold(value uint64, n int) *MockClock {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < n; i++ {
		c.values = append(c.values, value)
	}
	return c
}

// Then 追加读数
func (c *MockClock) Then(values ...uint64) *MockClock {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, values...)
	return c
}

// Millis 实现Clock接口
func (c *MockClock) Millis() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.values) == 0 {
		c.calls++
		return 0
	}
	idx := c.calls
	if idx >= len(c.values) {
		idx = len(c.values) - 1
	}
	c.calls++
	return c.values[idx]
}

// Calls 返回 Millis 被调用的次数
func (c *MockClock) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
