package sandflake

import (
	"fmt"
	"time"

	"sandflake/pkg/idgen/core"
)

var _ core.IIDValidator = (*Validator)(nil)

// Validator Sandflake ID验证器
type Validator struct {
	now func() time.Time
}

// ValidateID 全局验证函数
func ValidateID(id uint64) error {
	return NewValidator().Validate(id)
}

// NewValidator 创建新的验证器实例
// 说明：验证器是无状态的，可以创建多个实例或共享单个实例
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate 验证Sandflake ID的有效性
func (v *Validator) Validate(id uint64) error {
	// 验证1：零值不是任何生成器的输出
	if id == 0 {
		return fmt.Errorf("%w: id must be non-zero", core.ErrInvalidSandflakeID)
	}

	// 验证2：时间戳不能太超前
	// 说明：允许一定的时钟误差，容忍节点之间的时钟偏差
	timestamp := ID(id).Timestamp()
	now := v.now().UnixMilli()
	if timestamp > now+maxFutureTimeTolerance {
		return fmt.Errorf("%w: timestamp %d is too far in the future (current: %d, max tolerance: %d ms)",
			core.ErrInvalidSandflakeID, timestamp, now, maxFutureTimeTolerance)
	}

	// 验证3：对象类别必须是已定义的值
	if class := ID(id).ObjectClass(); !class.IsValid() {
		return fmt.Errorf("%w: undefined object class code %d",
			core.ErrInvalidSandflakeID, uint8(class))
	}

	return nil
}

// ValidateBatch 批量验证ID
func (v *Validator) ValidateBatch(ids []uint64) error {
	if ids == nil {
		return fmt.Errorf("ids slice cannot be nil")
	}

	for i, id := range ids {
		if err := v.Validate(id); err != nil {
			return fmt.Errorf("invalid ID at index %d: %w", i, err)
		}
	}

	return nil
}
