package core

import "strings"

// ClockBackwardStrategy 时钟回拨处理策略
type ClockBackwardStrategy int

const (
	// StrategyUseLastTimestamp 沿用上次时间戳继续递增序列号（默认，保证不重复）
	StrategyUseLastTimestamp ClockBackwardStrategy = iota
	// StrategyWait 等待时钟追上（容忍短暂回拨）
	StrategyWait
	// StrategyError 直接返回错误
	StrategyError
	// StrategyReset 视为新的毫秒并重置序列号（回拨时可能产生重复ID）
	StrategyReset
)

// String 实现Stringer接口
func (s ClockBackwardStrategy) String() string {
	switch s {
	case StrategyUseLastTimestamp:
		return "UseLastTimestamp"
	case StrategyWait:
		return "Wait"
	case StrategyError:
		return "Error"
	case StrategyReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// IsValid 验证策略是否有效
func (s ClockBackwardStrategy) IsValid() bool {
	switch s {
	case StrategyUseLastTimestamp, StrategyWait, StrategyError, StrategyReset:
		return true
	default:
		return false
	}
}

// ParseClockBackwardStrategy 从配置字符串解析策略（大小写、连字符不敏感）
func ParseClockBackwardStrategy(s string) (ClockBackwardStrategy, bool) {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(s)))
	switch normalized {
	case "", "uselasttimestamp", "uselast", "pin":
		return StrategyUseLastTimestamp, true
	case "wait":
		return StrategyWait, true
	case "error":
		return StrategyError, true
	case "reset":
		return StrategyReset, true
	default:
		return 0, false
	}
}
