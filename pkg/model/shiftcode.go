// Package model 定义排班求解引擎的核心数据模型
package model

// ShiftCode 班次代码
// 内部统一使用枚举值，仅在序列化边界映射为展示符号
type ShiftCode string

const (
	// ShiftUnassigned 未分配（搜索过程中的空单元格）
	ShiftUnassigned ShiftCode = ""
	// ShiftNormal 日班
	ShiftNormal ShiftCode = "normal"
	// ShiftEarly 早班
	ShiftEarly ShiftCode = "early"
	// ShiftLate 晚班
	ShiftLate ShiftCode = "late"
	// ShiftOff 休息
	ShiftOff ShiftCode = "off"
)

// CustomShift 创建自定义班次代码
func CustomShift(text string) ShiftCode {
	return ShiftCode("custom:" + text)
}

// SearchDomain 返回求解时使用的标准 4 值域
func SearchDomain() []ShiftCode {
	return []ShiftCode{ShiftNormal, ShiftEarly, ShiftLate, ShiftOff}
}

// IsAssigned 检查单元格是否已分配
func (c ShiftCode) IsAssigned() bool {
	return c != ShiftUnassigned
}

// IsWorking 检查是否为工作班次（已分配且非休息）
func (c ShiftCode) IsWorking() bool {
	return c.IsAssigned() && c != ShiftOff
}

// IsCustom 检查是否为自定义班次
func (c ShiftCode) IsCustom() bool {
	return len(c) > 7 && c[:7] == "custom:"
}

// Symbol 返回传统排班表上的展示符号
func (c ShiftCode) Symbol() string {
	switch c {
	case ShiftNormal:
		return "日"
	case ShiftEarly:
		return "早"
	case ShiftLate:
		return "晚"
	case ShiftOff:
		return "休"
	case ShiftUnassigned:
		return "-"
	default:
		if c.IsCustom() {
			return string(c[7:])
		}
		return string(c)
	}
}

// ParseSymbol 从展示符号解析班次代码
func ParseSymbol(symbol string) ShiftCode {
	switch symbol {
	case "日", "normal":
		return ShiftNormal
	case "早", "early":
		return ShiftEarly
	case "晚", "late":
		return ShiftLate
	case "休", "off":
		return ShiftOff
	case "-", "":
		return ShiftUnassigned
	default:
		return CustomShift(symbol)
	}
}
