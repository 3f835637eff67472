package sandflake

import (
	"math"
	"sync/atomic"

	"sandflake/pkg/idgen/core"
)

// stateUnset 表示尚未发放过任何ID
const stateUnset = math.MaxUint64

// outcome 一次状态推进的结果
type outcome int

const (
	// outcomeIssued 成功预留了序列号
	outcomeIssued outcome = iota
	// outcomeSaturated 当前毫秒的序列号已耗尽
	outcomeSaturated
	// outcomeBackward 时钟回拨且策略不允许直接发放
	outcomeBackward
	// outcomeClockOutOfRange 时钟读数超出42位
	outcomeClockOutOfRange
)

// reservation 一次推进预留的序列号区间 [first, first+count)
type reservation struct {
	outcome   outcome
	timestamp uint64 // 发放使用的时间戳（相对Epoch的毫秒数）
	first     uint64 // 区间内第一个序列号
	count     uint64 // 预留数量
	lag       uint64 // 时钟落后于上次时间戳的毫秒数，未回拨时为0
}

// state (last_timestamp, sequence) 共享状态
//
// 两个字段打包在同一个 atomic.Uint64 中：高位为时间戳，低12位为序列号。
// 每次推进都是 load -> 计算 -> CompareAndSwap，新毫秒的重置与同毫秒的递增
// 对所有调用方呈现为一次原子变化，不存在半更新的中间状态。
type state struct {
	word atomic.Uint64
}

func newState() *state {
	s := &state{}
	s.word.Store(stateUnset)
	return s
}

func packState(timestamp, sequence uint64) uint64 {
	return timestamp<<SequenceBits | sequence
}

func unpackState(word uint64) (timestamp, sequence uint64) {
	return word >> SequenceBits, word & MaxSequence
}

// reserve 从时钟采样并尝试预留最多 want 个连续序列号（want >= 1）
//
// CAS 失败说明其他调用方已推进了状态，此时重新采样时钟后重试。
func (s *state) reserve(clock Clock, strategy core.ClockBackwardStrategy, want uint64) reservation {
	for {
		// 先读状态再采样时钟：时钟不递减时 now 一定 >= 读到的时间戳，
		// 只有真实的时钟回拨才会走到回拨分支
		last := s.word.Load()
		now := clock.Millis()
		if now > MaxTimestamp {
			return reservation{outcome: outcomeClockOutOfRange, timestamp: now}
		}

		var (
			next uint64
			res  reservation
		)

		lastTime, lastSeq := unpackState(last)
		switch {
		case last == stateUnset || now > lastTime:
			// 新的毫秒：序列号从0开始
			res = reservation{timestamp: now, first: 0, count: minUint64(want, MaxSequence+1)}

		case now == lastTime || strategy == core.StrategyUseLastTimestamp:
			// 同一毫秒，或回拨后沿用上次时间戳
			if lastSeq >= MaxSequence {
				return reservation{outcome: outcomeSaturated, timestamp: lastTime, lag: lastTime - now}
			}
			res = reservation{
				timestamp: lastTime,
				first:     lastSeq + 1,
				count:     minUint64(want, MaxSequence-lastSeq),
				lag:       lastTime - now,
			}

		case strategy == core.StrategyReset:
			// 回拨视为新的毫秒，可能与已发放的ID重复
			res = reservation{timestamp: now, first: 0, count: minUint64(want, MaxSequence+1), lag: lastTime - now}

		default:
			return reservation{outcome: outcomeBackward, timestamp: now, lag: lastTime - now}
		}

		next = packState(res.timestamp, res.first+res.count-1)
		if s.word.CompareAndSwap(last, next) {
			res.outcome = outcomeIssued
			return res
		}
	}
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
