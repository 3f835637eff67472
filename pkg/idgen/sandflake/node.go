package sandflake

import (
	"fmt"
	"strconv"

	"sandflake/pkg/idgen/core"
)

// NodeID 节点标识（0-63），由运维为每个进程分配且全局唯一
type NodeID uint8

// NewNodeID 校验并创建节点标识
func NewNodeID(id int64) (NodeID, error) {
	if id < 0 || id > MaxNodeID {
		return 0, fmt.Errorf("%w: got %d, valid range [0, %d]",
			core.ErrInvalidNodeID, id, MaxNodeID)
	}
	return NodeID(id), nil
}

// Int64 转换为int64
func (n NodeID) Int64() int64 {
	return int64(n)
}

// String 实现fmt.Stringer接口
func (n NodeID) String() string {
	return strconv.Itoa(int(n))
}

// bits 移位到ID中的位置（第12-17位）
func (n NodeID) bits() uint64 {
	return uint64(n) << NodeIDShift
}
