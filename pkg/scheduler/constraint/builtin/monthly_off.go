// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// MonthlyOffConstraint 每人休息天数上限约束
// 以求解的日期范围为统计窗口
type MonthlyOffConstraint struct {
	*BaseConstraint
	ceiling int
}

// NewMonthlyOffConstraint 创建休息天数上限约束
func NewMonthlyOffConstraint(ceiling int) *MonthlyOffConstraint {
	return &MonthlyOffConstraint{
		BaseConstraint: NewBaseConstraint(
			"休息天数上限",
			constraint.ScopeGlobal,
			constraint.SeverityMedium,
		),
		ceiling: ceiling,
	}
}

// Check 检查假设性分配
func (c *MonthlyOffConstraint) Check(s *model.Schedule, v model.Variable, code model.ShiftCode) bool {
	if code != model.ShiftOff {
		return true
	}

	si := s.StaffIndex(v.StaffID)
	di := s.DateIndex(v.Date)
	if si < 0 || di < 0 {
		return true
	}

	// 统计该员工除目标单元格之外的休息天数
	offCount := 0
	for j := range s.Dates {
		if j == di {
			continue
		}
		if s.GetAt(si, j) == model.ShiftOff {
			offCount++
		}
	}
	return offCount+1 <= c.ceiling
}

// Evaluate 评估整个排班表
func (c *MonthlyOffConstraint) Evaluate(s *model.Schedule) []constraint.Violation {
	var violations []constraint.Violation
	for i, st := range s.Staff {
		count := s.CountStaff(i)
		if count.Off > c.ceiling {
			violations = append(violations, constraint.Violation{
				Constraint: c.Name(),
				Severity:   c.Severity(),
				StaffID:    st.ID,
				StaffName:  st.Name,
				Message: fmt.Sprintf("员工 %s 休息 %d 天，超过上限 %d 天",
					st.Name, count.Off, c.ceiling),
			})
		}
	}
	return violations
}
