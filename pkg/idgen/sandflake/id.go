package sandflake

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sandflake/pkg/idgen/core"
)

const (
	// maxParseIDStringLength 解析ID字符串的最大长度
	// 说明：二进制格式最长 2+64 个字符
	maxParseIDStringLength = 100
)

// ID Sandflake ID
//
// 位布局（从低位到高位）：
//
//	 0-11  序列号（12位）
//	12-17  节点ID（6位）
//	18-21  对象类别（4位，未标记时为0）
//	22-63  相对Epoch的毫秒数（42位）
type ID uint64

// Compose 由各字段组装ID，是解码的严格逆运算
func Compose(elapsed uint64, node NodeID, class ObjectClass, sequence uint64) (ID, error) {
	if elapsed > MaxTimestamp {
		return 0, fmt.Errorf("%w: timestamp %d exceeds %d bits",
			core.ErrInvalidSandflakeID, elapsed, TimestampBits)
	}
	if uint64(node) > MaxNodeID {
		return 0, fmt.Errorf("%w: got %d, valid range [0, %d]",
			core.ErrInvalidNodeID, node, MaxNodeID)
	}
	if uint64(class) > MaxObjectClass {
		return 0, fmt.Errorf("%w: code %d exceeds %d bits",
			core.ErrInvalidObjectClass, class, ObjectClassBits)
	}
	if sequence > MaxSequence {
		return 0, fmt.Errorf("%w: sequence %d exceeds %d",
			core.ErrInvalidSandflakeID, sequence, MaxSequence)
	}
	return assemble(elapsed, node.bits(), class.bits(), sequence), nil
}

// assemble 不做校验的组装，调用方保证各字段在范围内
func assemble(elapsed, nodeBits, classBits, sequence uint64) ID {
	return ID(elapsed<<TimestampShift | classBits | nodeBits | sequence)
}

// ParseID 从字符串解析ID
// 说明：支持十进制、十六进制(0x)、二进制(0b)
func ParseID(s string) (ID, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("%w: empty string", core.ErrInvalidSandflakeID)
	}
	if len(s) > maxParseIDStringLength {
		return 0, fmt.Errorf("%w: string too long: max %d characters, got %d",
			core.ErrInvalidSandflakeID, maxParseIDStringLength, len(s))
	}

	var (
		val uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		val, err = strconv.ParseUint(s[2:], 16, 64)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		val, err = strconv.ParseUint(s[2:], 2, 64)
	default:
		val, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidSandflakeID, err)
	}
	return ID(val), nil
}

// Uint64 转换为uint64
func (id ID) Uint64() uint64 {
	return uint64(id)
}

// Elapsed 相对Epoch的毫秒数
func (id ID) Elapsed() uint64 {
	return uint64(id) >> TimestampShift
}

// Timestamp Unix毫秒时间戳
func (id ID) Timestamp() int64 {
	return int64(id.Elapsed()) + Epoch
}

// Time 转换为time.Time（UTC）
func (id ID) Time() time.Time {
	return time.UnixMilli(id.Timestamp()).UTC()
}

// NodeID 节点ID
func (id ID) NodeID() NodeID {
	return NodeID((uint64(id) >> NodeIDShift) & MaxNodeID)
}

// ObjectClass 对象类别
func (id ID) ObjectClass() ObjectClass {
	return ObjectClass((uint64(id) >> ObjectClassShift) & MaxObjectClass)
}

// Sequence 序列号
func (id ID) Sequence() uint64 {
	return uint64(id) & MaxSequence
}

// Info 解码全部字段
func (id ID) Info() *core.IDInfo {
	return &core.IDInfo{
		ID:          uint64(id),
		Timestamp:   id.Timestamp(),
		Elapsed:     id.Elapsed(),
		NodeID:      id.NodeID().Int64(),
		ObjectClass: uint8(id.ObjectClass()),
		Sequence:    int64(id.Sequence()),
	}
}

// String 十进制字符串
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Hex 带0x前缀的十六进制字符串
func (id ID) Hex() string {
	return fmt.Sprintf("0x%x", uint64(id))
}

// Binary 带0b前缀、补齐64位的二进制字符串
func (id ID) Binary() string {
	return fmt.Sprintf("0b%064b", uint64(id))
}

// MarshalJSON 序列化为字符串，避免JavaScript精度丢失
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON 支持从字符串或数字反序列化
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty JSON data", core.ErrInvalidSandflakeID)
	}
	if len(data) > maxParseIDStringLength {
		return fmt.Errorf("%w: JSON data too large: max %d bytes, got %d",
			core.ErrInvalidSandflakeID, maxParseIDStringLength, len(data))
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		parsed, err := ParseID(str)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}

	var num uint64
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("%w: expected string or number, got %s", core.ErrInvalidSandflakeID, string(data))
	}
	*id = ID(num)
	return nil
}
