// Package model 定义排班求解引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Staff 员工
type Staff struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`   // active/inactive/leave
	Position string    `json:"position"` // 岗位
}

// IsActive 检查员工是否在职可排班
func (s *Staff) IsActive() bool {
	return s.Status == "" || s.Status == "active"
}

// StaffGroup 员工互斥组
// 组内成员不能在同一天同时休息或同时早班；
// 可选地指定补位员工：任一成员休息时补位员工必须上日班
type StaffGroup struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`          // 成员姓名
	Backup  string   `json:"backup,omitempty"` // 补位员工姓名
}

// PriorityLevel 优先级
type PriorityLevel int

const (
	PriorityLow PriorityLevel = iota + 1
	PriorityMedium
	PriorityHigh
)

// PriorityRule 班次优先规则
// High 级别视为硬约束，其余级别作为软性加分项
type PriorityRule struct {
	StaffName string       `json:"staff_name"`
	DayOfWeek time.Weekday `json:"day_of_week"`
	Preferred ShiftCode    `json:"preferred"`
	Level     PriorityLevel `json:"level"`
}

// IsHard 检查规则是否为硬约束
func (r *PriorityRule) IsHard() bool {
	return r.Level >= PriorityHigh
}

// RuleConfig 约束规则配置
// 一次求解期间不可变，可在多个并发求解间共享
type RuleConfig struct {
	MonthlyOffCeiling int            `json:"monthly_off_ceiling"` // 每人每月最大休息天数
	DailyOffCeiling   int            `json:"daily_off_ceiling"`   // 每日最大休息人数
	DailyEarlyCeiling int            `json:"daily_early_ceiling"` // 每日最大早班人数
	DailyLateCeiling  int            `json:"daily_late_ceiling"`  // 每日最大晚班人数
	MinWorkingPerDay  int            `json:"min_working_per_day"` // 每日最少在岗人数
	Groups            []StaffGroup   `json:"groups,omitempty"`
	Priorities        []PriorityRule `json:"priorities,omitempty"`
}

// DefaultRuleConfig 返回默认规则配置
func DefaultRuleConfig() *RuleConfig {
	return &RuleConfig{
		MonthlyOffCeiling: 8,
		DailyOffCeiling:   2,
		DailyEarlyCeiling: 2,
		DailyLateCeiling:  2,
		MinWorkingPerDay:  3,
	}
}
