package sandflake

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandflake/pkg/idgen/core"
)

// 2021-01-01T00:00:00.001Z 相对Epoch
const testTick uint64 = 1

// TestNew 测试创建生成器
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		nodeID  int64
		wantErr error
	}{
		{"有效参数_最小值", 0, nil},
		{"有效参数_中间值", 10, nil},
		{"有效参数_32", 32, nil},
		{"有效参数_最大值", MaxNodeID, nil},
		{"无效NodeID_负数", -1, core.ErrInvalidNodeID},
		{"无效NodeID_超出", MaxNodeID + 1, core.ErrInvalidNodeID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := New(tt.nodeID, NewMockClock(testTick))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("期望错误 %v，得到: %v", tt.wantErr, err)
				}
				if gen != nil {
					t.Error("失败时不应返回生成器")
				}
				return
			}
			if err != nil {
				t.Fatalf("不期望错误，但得到: %v", err)
			}
			if gen.GetNodeID() != tt.nodeID {
				t.Errorf("GetNodeID() = %d, 期望 %d", gen.GetNodeID(), tt.nodeID)
			}
		})
	}
}

// TestNew_NilClock 测试未注入时钟
func TestNew_NilClock(t *testing.T) {
	gen, err := New(1, nil)
	assert.ErrorIs(t, err, core.ErrNilClock)
	assert.Nil(t, gen)
}

// TestNewWithConfig 测试使用配置创建
func TestNewWithConfig(t *testing.T) {
	t.Run("有效配置", func(t *testing.T) {
		gen, err := NewWithConfig(&Config{NodeID: 7, EnableMetrics: true})
		require.NoError(t, err)
		assert.Equal(t, int64(7), gen.GetNodeID())
		assert.IsType(t, SystemClock{}, gen.clock)
		assert.Equal(t, defaultMaxWait, gen.config.MaxWait)
	})

	t.Run("nil配置", func(t *testing.T) {
		_, err := NewWithConfig(nil)
		assert.ErrorIs(t, err, core.ErrNilConfig)
	})

	t.Run("不修改调用方的配置", func(t *testing.T) {
		cfg := &Config{NodeID: 1}
		_, err := NewWithConfig(cfg)
		require.NoError(t, err)
		assert.Nil(t, cfg.Clock)
		assert.Zero(t, cfg.MaxWait)
	})
}

// TestNewDefault 测试使用系统时钟创建
func TestNewDefault(t *testing.T) {
	gen, err := NewDefault(5)
	require.NoError(t, err)

	before := time.Now().UnixMilli()
	id, err := gen.NextID()
	require.NoError(t, err)
	after := time.Now().UnixMilli()

	assert.GreaterOrEqual(t, id.Timestamp(), before)
	assert.LessOrEqual(t, id.Timestamp(), after)
	assert.Equal(t, NodeID(5), id.NodeID())
	assert.Equal(t, ObjectClassUnknown, id.ObjectClass())
}

// TestNextID_NodeIDField 每个合法节点ID都能从生成的ID中解码出来
func TestNextID_NodeIDField(t *testing.T) {
	for node := int64(0); node <= MaxNodeID; node++ {
		gen, err := New(node, NewMockClock(testTick, testTick, testTick+1))
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			id, err := gen.NextID()
			require.NoError(t, err)
			if got := id.NodeID().Int64(); got != node {
				t.Fatalf("node %d: 解码得到 %d", node, got)
			}
		}
	}
}

// TestNextID_Sequence4096 同一毫秒内恰好发放 0..4095
func TestNextID_Sequence4096(t *testing.T) {
	clock := NewMockClock().Hold(testTick, MaxSequence+1).Then(testTick + 1)
	gen, err := New(1, clock)
	require.NoError(t, err)

	for want := uint64(0); want <= MaxSequence; want++ {
		id, err := gen.NextID()
		require.NoError(t, err)
		if id.Sequence() != want {
			t.Fatalf("第 %d 次调用序列号 = %d", want, id.Sequence())
		}
		if id.Elapsed() != testTick {
			t.Fatalf("第 %d 次调用时间戳 = %d, 期望 %d", want, id.Elapsed(), testTick)
		}
	}

	id, err := gen.NextID()
	require.NoError(t, err)
	assert.Equal(t, testTick+1, id.Elapsed())
	assert.Equal(t, uint64(0), id.Sequence())
	assert.Equal(t, MaxSequence+2, clock.Calls())
}

// TestNextID_SequenceOverflowBlocks 第4097次调用阻塞至少1ms并落在下一毫秒
func TestNextID_SequenceOverflowBlocks(t *testing.T) {
	clock := NewMockClock().Hold(testTick, MaxSequence+2).Then(testTick + 1)
	gen, err := New(1, clock, WithMetrics())
	require.NoError(t, err)

	for i := 0; i <= MaxSequence; i++ {
		_, err := gen.NextID()
		require.NoError(t, err)
	}

	start := time.Now()
	id, err := gen.NextID()
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, elapsed >= time.Millisecond, "阻塞时间 %s 少于1ms", elapsed)
	assert.Equal(t, uint64(0), id.Sequence())
	assert.Equal(t, testTick+1, id.Elapsed())

	metrics := gen.GetMetrics()
	assert.Equal(t, uint64(1), metrics["sequence_overflow"])
	assert.Equal(t, uint64(1), metrics["wait_count"])
	assert.Equal(t, uint64(MaxSequence+2), metrics["id_count"])
}

// TestNextID_UnavailableAfterBudget 时钟停滞时超出等待预算返回 ErrUnavailable
func TestNextID_UnavailableAfterBudget(t *testing.T) {
	gen, err := New(1, NewMockClock(testTick), WithMaxWait(5*time.Millisecond), WithMetrics())
	require.NoError(t, err)

	for i := 0; i <= MaxSequence; i++ {
		_, err := gen.NextID()
		require.NoError(t, err)
	}

	start := time.Now()
	_, err = gen.NextID()
	assert.ErrorIs(t, err, core.ErrUnavailable)
	assert.True(t, time.Since(start) >= 5*time.Millisecond, "未等待完预算")
	assert.Equal(t, uint64(1), gen.GetMetrics()["unavailable"])

	// 时钟仍停滞：再次返回错误，不会产生重复ID
	_, err = gen.NextID()
	assert.ErrorIs(t, err, core.ErrUnavailable)
}

// TestNextObjectID 对象类别只影响第18-21位
func TestNextObjectID(t *testing.T) {
	for _, class := range ObjectClasses() {
		t.Run(class.String(), func(t *testing.T) {
			plain, err := New(9, NewMockClock(testTick, testTick, testTick+3))
			require.NoError(t, err)
			tagged, err := New(9, NewMockClock(testTick, testTick, testTick+3))
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				want, err := plain.NextID()
				require.NoError(t, err)
				got, err := tagged.NextObjectID(class)
				require.NoError(t, err)

				assert.Equal(t, class, got.ObjectClass())
				assert.Equal(t, want, got&^ID(MaxObjectClass<<ObjectClassShift))
				assert.Equal(t, want.Elapsed(), got.Elapsed())
				assert.Equal(t, want.NodeID(), got.NodeID())
				assert.Equal(t, want.Sequence(), got.Sequence())
			}
		})
	}
}

// TestNextObjectID_InvalidClass 未定义的类别
func TestNextObjectID_InvalidClass(t *testing.T) {
	clock := NewMockClock(testTick)
	gen, err := New(1, clock)
	require.NoError(t, err)

	_, err = gen.NextObjectID(ObjectClass(MaxObjectClass))
	assert.ErrorIs(t, err, core.ErrInvalidObjectClass)
	assert.Equal(t, 0, clock.Calls(), "无效类别不应消耗序列号")
}

// TestNextID_ClockBackward 测试各时钟回拨策略
func TestNextID_ClockBackward(t *testing.T) {
	const ahead = 100

	t.Run("沿用上次时间戳", func(t *testing.T) {
		gen, err := New(1, NewMockClock(ahead, ahead-5), WithMetrics())
		require.NoError(t, err)

		first, err := gen.NextID()
		require.NoError(t, err)
		second, err := gen.NextID()
		require.NoError(t, err)

		assert.Equal(t, uint64(ahead), second.Elapsed())
		assert.Equal(t, uint64(1), second.Sequence())
		assert.Greater(t, second.Uint64(), first.Uint64())
		assert.Equal(t, uint64(1), gen.GetMetrics()["clock_backward"])
	})

	t.Run("重置", func(t *testing.T) {
		gen, err := New(1, NewMockClock(ahead, ahead, ahead-5),
			WithClockBackwardStrategy(core.StrategyReset))
		require.NoError(t, err)

		_, err = gen.NextID()
		require.NoError(t, err)
		_, err = gen.NextID()
		require.NoError(t, err)
		third, err := gen.NextID()
		require.NoError(t, err)

		assert.Equal(t, uint64(ahead-5), third.Elapsed())
		assert.Equal(t, uint64(0), third.Sequence())
	})

	t.Run("返回错误", func(t *testing.T) {
		gen, err := New(1, NewMockClock(ahead, ahead-1),
			WithClockBackwardStrategy(core.StrategyError))
		require.NoError(t, err)

		_, err = gen.NextID()
		require.NoError(t, err)
		_, err = gen.NextID()
		assert.ErrorIs(t, err, core.ErrClockMovedBackwards)
	})

	t.Run("等待追上", func(t *testing.T) {
		gen, err := New(1, NewMockClock(ahead, ahead-2, ahead),
			WithClockBackwardStrategy(core.StrategyWait),
			WithClockBackwardTolerance(5))
		require.NoError(t, err)

		_, err = gen.NextID()
		require.NoError(t, err)

		start := time.Now()
		id, err := gen.NextID()
		require.NoError(t, err)
		assert.True(t, time.Since(start) >= 3*time.Millisecond, "未等待时钟追上")
		assert.Equal(t, uint64(ahead), id.Elapsed())
		assert.Equal(t, uint64(1), id.Sequence())
	})

	t.Run("等待_超出容忍范围", func(t *testing.T) {
		gen, err := New(1, NewMockClock(ahead, ahead-50),
			WithClockBackwardStrategy(core.StrategyWait),
			WithClockBackwardTolerance(5))
		require.NoError(t, err)

		_, err = gen.NextID()
		require.NoError(t, err)
		_, err = gen.NextID()
		assert.ErrorIs(t, err, core.ErrClockMovedBackwards)
	})

	t.Run("等待_持续回拨超出预算", func(t *testing.T) {
		gen, err := New(1, NewMockClock(ahead, ahead-1),
			WithClockBackwardStrategy(core.StrategyWait),
			WithClockBackwardTolerance(5),
			WithMaxWait(4*time.Millisecond))
		require.NoError(t, err)

		_, err = gen.NextID()
		require.NoError(t, err)
		_, err = gen.NextID()
		assert.ErrorIs(t, err, core.ErrClockMovedBackwards)
	})
}

// TestNextID_ClockOutOfRange 时钟读数超出42位
func TestNextID_ClockOutOfRange(t *testing.T) {
	gen, err := New(1, ClockFunc(func() uint64 { return MaxTimestamp + 1 }))
	require.NoError(t, err)

	_, err = gen.NextID()
	assert.ErrorIs(t, err, core.ErrClockUnavailable)
}

// TestNextIDBatch 测试批量生成ID
func TestNextIDBatch(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{"批量生成1个", 1, false},
		{"批量生成100个", 100, false},
		{"批量生成跨毫秒", 5000, false},
		{"批量生成最大值", maxBatchSize, false},
		{"无效数量_负数", -1, true},
		{"无效数量_零", 0, true},
		{"无效数量_超过最大值", maxBatchSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tick atomic.Uint64
			tick.Store(testTick)
			// 每次采样前进1ms，保证批量不会饱和等待
			gen, err := New(2, ClockFunc(func() uint64 { return tick.Add(1) }))
			require.NoError(t, err)

			ids, err := gen.NextIDBatch(tt.n)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidBatchSize)
				return
			}
			require.NoError(t, err)
			require.Len(t, ids, tt.n)

			for i := 1; i < len(ids); i++ {
				if ids[i] <= ids[i-1] {
					t.Fatalf("批量ID不是严格递增: [%d]=%d, [%d]=%d", i-1, ids[i-1], i, ids[i])
				}
			}
		})
	}
}

// TestNextIDBatch_SharesTickWithNextID 批量与单个生成共享同一状态
func TestNextIDBatch_SharesTickWithNextID(t *testing.T) {
	gen, err := New(3, NewMockClock(testTick, testTick, testTick+1))
	require.NoError(t, err)

	single, err := gen.NextID()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), single.Sequence())

	ids, err := gen.NextIDBatch(MaxSequence + 10)
	require.NoError(t, err)

	// 第一轮沿用当前毫秒剩余的4095个序列号，第二轮进入下一毫秒
	assert.Equal(t, uint64(1), ids[0].Sequence())
	assert.Equal(t, testTick, ids[MaxSequence-1].Elapsed())
	assert.Equal(t, uint64(MaxSequence), ids[MaxSequence-1].Sequence())
	assert.Equal(t, testTick+1, ids[MaxSequence].Elapsed())
	assert.Equal(t, uint64(0), ids[MaxSequence].Sequence())
	assert.Equal(t, uint64(9), ids[len(ids)-1].Sequence())
}

// TestNextIDBatch_PartialOnError 出错时返回已生成的部分
func TestNextIDBatch_PartialOnError(t *testing.T) {
	gen, err := New(3, NewMockClock(testTick), WithMaxWait(2*time.Millisecond))
	require.NoError(t, err)

	ids, err := gen.NextIDBatch(MaxSequence + 2)
	assert.ErrorIs(t, err, core.ErrUnavailable)
	assert.Len(t, ids, MaxSequence+1)
}

// TestGetMetrics 测试获取监控指标
func TestGetMetrics(t *testing.T) {
	t.Run("开启监控", func(t *testing.T) {
		gen, err := NewDefault(1, WithMetrics())
		require.NoError(t, err)

		count := 100
		for i := 0; i < count; i++ {
			_, err := gen.NextID()
			require.NoError(t, err)
		}
		_, err = gen.NextIDBatch(50)
		require.NoError(t, err)

		assert.Equal(t, uint64(count+50), gen.GetIDCount())
		assert.Equal(t, uint64(1), gen.GetMetrics()["metrics_enabled"])

		gen.ResetMetrics()
		assert.Equal(t, uint64(0), gen.GetIDCount())
	})

	t.Run("关闭监控", func(t *testing.T) {
		gen, err := NewDefault(1)
		require.NoError(t, err)

		_, err = gen.NextID()
		require.NoError(t, err)

		assert.Equal(t, uint64(0), gen.GetIDCount())
		assert.Equal(t, map[string]uint64{"metrics_enabled": 0}, gen.GetMetrics())
		gen.ResetMetrics()
	})
}

// TestParseAndValidateID 测试生成器上的解析与验证
func TestParseAndValidateID(t *testing.T) {
	gen, err := NewDefault(12)
	require.NoError(t, err)

	id, err := gen.NextObjectID(ObjectClassComment)
	require.NoError(t, err)

	info, err := gen.ParseID(id.Uint64())
	require.NoError(t, err)
	assert.Equal(t, int64(12), info.NodeID)
	assert.Equal(t, uint8(ObjectClassComment), info.ObjectClass)

	assert.NoError(t, gen.ValidateID(id.Uint64()))
	assert.ErrorIs(t, gen.ValidateID(0), core.ErrInvalidSandflakeID)
}

// TestConcurrency 多个协程共享生成器时ID两两不同
func TestConcurrency(t *testing.T) {
	strategies := []core.ClockBackwardStrategy{core.StrategyUseLastTimestamp, core.StrategyReset}

	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			// 单调不减的时钟：每3000次采样前进1ms，制造大量同毫秒竞争
			var samples atomic.Uint64
			clock := ClockFunc(func() uint64 { return testTick + samples.Add(1)/3000 })

			gen, err := New(1, clock, WithClockBackwardStrategy(strategy))
			require.NoError(t, err)

			const goroutines = 16
			const idsPerGoroutine = 20000
			results := make([][]ID, goroutines)

			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					local := make([]ID, 0, idsPerGoroutine)
					for j := 0; j < idsPerGoroutine; j++ {
						id, err := gen.NextID()
						if err != nil {
							t.Errorf("生成ID失败: %v", err)
							return
						}
						if n := len(local); n > 0 && id <= local[n-1] {
							t.Errorf("同一协程内ID未递增: %d -> %d", local[n-1], id)
							return
						}
						local = append(local, id)
					}
					results[i] = local
				}(i)
			}
			wg.Wait()

			seen := make(map[ID]struct{}, goroutines*idsPerGoroutine)
			for _, local := range results {
				for _, id := range local {
					if _, ok := seen[id]; ok {
						t.Fatalf("发现重复ID: %d", id)
					}
					seen[id] = struct{}{}
				}
			}
			assert.Len(t, seen, goroutines*idsPerGoroutine)
		})
	}
}

// TestConcurrency_SystemClock 使用真实时钟的并发唯一性
func TestConcurrency_SystemClock(t *testing.T) {
	gen, err := NewDefault(1)
	require.NoError(t, err)

	goroutines := 8
	idsPerGoroutine := 10000
	results := make(chan ID, goroutines*idsPerGoroutine)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				id, err := gen.NextObjectID(ObjectClassTask)
				if err != nil {
					t.Errorf("生成ID失败: %v", err)
					return
				}
				results <- id
			}
		}()
	}

	wg.Wait()
	close(results)

	ids := make(map[ID]bool)
	for id := range results {
		if ids[id] {
			t.Errorf("发现重复ID: %d", id)
		}
		ids[id] = true
	}

	if len(ids) != goroutines*idsPerGoroutine {
		t.Errorf("生成了 %d 个唯一ID，期望 %d 个", len(ids), goroutines*idsPerGoroutine)
	}
}

// BenchmarkNextID 基准测试：单协程生成
func BenchmarkNextID(b *testing.B) {
	gen, err := NewDefault(1)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = gen.NextID()
	}
}

// BenchmarkNextID_Parallel 基准测试：多协程竞争
func BenchmarkNextID_Parallel(b *testing.B) {
	gen, err := NewDefault(1)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = gen.NextID()
		}
	})
}
