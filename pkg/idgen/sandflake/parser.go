package sandflake

import (
	"fmt"
	"time"

	"sandflake/pkg/idgen/core"
)

var _ core.IIDParser = (*Parser)(nil)

// Parser Sandflake ID解析器
type Parser struct {
	validator core.IIDValidator // 验证器，用于解析前验证ID有效性
}

// NewParser 创建新的解析器实例
func NewParser() *Parser {
	return &Parser{
		validator: NewValidator(),
	}
}

// Parse 解析Sandflake ID，提取完整的元信息
func (p *Parser) Parse(id uint64) (*core.IDInfo, error) {
	// 只解析有效的ID，避免返回错误的元信息
	if err := p.validator.Validate(id); err != nil {
		return nil, fmt.Errorf("invalid sandflake ID: %w", err)
	}
	return ID(id).Info(), nil
}

// ExtractTimestamp 从ID中提取时间戳（Unix毫秒）
func (p *Parser) ExtractTimestamp(id uint64) int64 {
	// 快速失败：无效ID直接返回0
	if id == 0 {
		return 0
	}
	return ID(id).Timestamp()
}

// ExtractTimestampAsTime 从ID中提取时间戳并转换为time.Time
func (p *Parser) ExtractTimestampAsTime(id uint64) time.Time {
	if id == 0 {
		return time.Time{}
	}
	return ID(id).Time()
}

// ExtractNodeID 从ID中提取节点ID
func (p *Parser) ExtractNodeID(id uint64) int64 {
	if id == 0 {
		return -1
	}
	return ID(id).NodeID().Int64()
}

// ExtractObjectClass 从ID中提取对象类别
func (p *Parser) ExtractObjectClass(id uint64) uint8 {
	return uint8(ID(id).ObjectClass())
}

// ExtractSequence 从ID中提取序列号
func (p *Parser) ExtractSequence(id uint64) int64 {
	if id == 0 {
		return -1
	}
	return int64(ID(id).Sequence())
}

// Decode 全局解码函数（不做有效性校验）
func Decode(id uint64) (elapsed uint64, node NodeID, class ObjectClass, sequence uint64) {
	v := ID(id)
	return v.Elapsed(), v.NodeID(), v.ObjectClass(), v.Sequence()
}
