// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// DailyCeilingConstraint 每日某班次人数上限约束
type DailyCeilingConstraint struct {
	*BaseConstraint
	target  model.ShiftCode
	ceiling int
}

// NewDailyCeilingConstraint 创建每日班次人数上限约束
func NewDailyCeilingConstraint(target model.ShiftCode, ceiling int) *DailyCeilingConstraint {
	return &DailyCeilingConstraint{
		BaseConstraint: NewBaseConstraint(
			fmt.Sprintf("每日%s人数上限", target.Symbol()),
			constraint.ScopeGlobal,
			constraint.SeverityHigh,
		),
		target:  target,
		ceiling: ceiling,
	}
}

// Check 检查假设性分配
func (c *DailyCeilingConstraint) Check(s *model.Schedule, v model.Variable, code model.ShiftCode) bool {
	if code != c.target {
		return true
	}

	si := s.StaffIndex(v.StaffID)
	di := s.DateIndex(v.Date)
	if si < 0 || di < 0 {
		return true
	}

	// 统计当日除目标单元格之外已分配该班次的人数
	count := 0
	for i := range s.Staff {
		if i == si {
			continue
		}
		if s.GetAt(i, di) == c.target {
			count++
		}
	}
	return count+1 <= c.ceiling
}

// Evaluate 评估整个排班表
func (c *DailyCeilingConstraint) Evaluate(s *model.Schedule) []constraint.Violation {
	var violations []constraint.Violation
	for j, date := range s.Dates {
		count := 0
		for i := range s.Staff {
			if s.GetAt(i, j) == c.target {
				count++
			}
		}
		if count > c.ceiling {
			violations = append(violations, constraint.Violation{
				Constraint: c.Name(),
				Severity:   c.Severity(),
				Date:       date,
				Message: fmt.Sprintf("%s 的%s人数为 %d，超过上限 %d",
					date, c.target.Symbol(), count, c.ceiling),
			})
		}
	}
	return violations
}

// MinWorkingConstraint 每日最少在岗人数约束
type MinWorkingConstraint struct {
	*BaseConstraint
	floor int
}

// NewMinWorkingConstraint 创建每日最少在岗人数约束
func NewMinWorkingConstraint(floor int) *MinWorkingConstraint {
	return &MinWorkingConstraint{
		BaseConstraint: NewBaseConstraint(
			"每日最少在岗人数",
			constraint.ScopeGlobal,
			constraint.SeverityCritical,
		),
		floor: floor,
	}
}

// Check 检查假设性分配
// 未分配的单元格按乐观估计处理（仍可能排为工作班次）
func (c *MinWorkingConstraint) Check(s *model.Schedule, v model.Variable, code model.ShiftCode) bool {
	si := s.StaffIndex(v.StaffID)
	di := s.DateIndex(v.Date)
	if si < 0 || di < 0 {
		return true
	}

	possible := 0
	for i := range s.Staff {
		if i == si {
			continue
		}
		cur := s.GetAt(i, di)
		if cur.IsWorking() || !cur.IsAssigned() {
			possible++
		}
	}
	if code.IsWorking() {
		possible++
	}
	return possible >= c.floor
}

// Evaluate 评估整个排班表
// 有未分配单元格的日期不计入违反（结论未定）
func (c *MinWorkingConstraint) Evaluate(s *model.Schedule) []constraint.Violation {
	var violations []constraint.Violation
	for j, date := range s.Dates {
		working := 0
		unassigned := 0
		for i := range s.Staff {
			cur := s.GetAt(i, j)
			if cur.IsWorking() {
				working++
			} else if !cur.IsAssigned() {
				unassigned++
			}
		}
		if unassigned > 0 {
			continue
		}
		if working < c.floor {
			violations = append(violations, constraint.Violation{
				Constraint: c.Name(),
				Severity:   c.Severity(),
				Date:       date,
				Message: fmt.Sprintf("%s 在岗 %d 人，低于下限 %d 人",
					date, working, c.floor),
			})
		}
	}
	return violations
}
