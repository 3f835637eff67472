package sandflake

import (
	"fmt"
	"strconv"
	"strings"

	"sandflake/pkg/idgen/core"
)

// ObjectClass 对象类别，写入ID的第18-21位
//
// 数值编码已随ID发放出去，只能追加，不能修改已有的值。
type ObjectClass uint8

const (
	ObjectClassUnknown  ObjectClass = 0b0000
	ObjectClassProject  ObjectClass = 0b0001
	ObjectClassTask     ObjectClass = 0b0010
	ObjectClassUser     ObjectClass = 0b0011
	ObjectClassComment  ObjectClass = 0b0100
	ObjectClassDownload ObjectClass = 0b0101

	objectClassEnd = ObjectClassDownload + 1 // 哨兵，追加新类别时同步修改
)

// 编译期断言：已定义的类别必须能放进4位
var _ [MaxObjectClass - int(objectClassEnd-1)]struct{}

var objectClassNames = [...]string{
	ObjectClassUnknown:  "unknown",
	ObjectClassProject:  "project",
	ObjectClassTask:     "task",
	ObjectClassUser:     "user",
	ObjectClassComment:  "comment",
	ObjectClassDownload: "download",
}

// ObjectClasses 返回所有已定义的类别
func ObjectClasses() []ObjectClass {
	classes := make([]ObjectClass, 0, int(objectClassEnd))
	for c := ObjectClassUnknown; c < objectClassEnd; c++ {
		classes = append(classes, c)
	}
	return classes
}

// IsValid 是否为已定义的类别
func (c ObjectClass) IsValid() bool {
	return c < objectClassEnd
}

// String 实现fmt.Stringer接口
func (c ObjectClass) String() string {
	if c.IsValid() {
		return objectClassNames[c]
	}
	return fmt.Sprintf("ObjectClass(%d)", uint8(c))
}

// ParseObjectClass 按名称（大小写不敏感）或数值编码解析类别
func ParseObjectClass(s string) (ObjectClass, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c := ObjectClassUnknown; c < objectClassEnd; c++ {
		if objectClassNames[c] == name {
			return c, nil
		}
	}
	if code, err := strconv.ParseUint(name, 10, 8); err == nil && ObjectClass(code).IsValid() {
		return ObjectClass(code), nil
	}
	return 0, fmt.Errorf("%w: %q", core.ErrInvalidObjectClass, s)
}

// bits 移位到ID中的位置
func (c ObjectClass) bits() uint64 {
	return uint64(c) << ObjectClassShift
}
