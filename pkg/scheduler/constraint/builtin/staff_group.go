// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// GroupExclusionConstraint 员工组互斥约束
// 组内成员不能在同一天同时休息，也不能同时早班
type GroupExclusionConstraint struct {
	*BaseConstraint
	groupName string
	members   []uuid.UUID
	memberSet map[uuid.UUID]bool
}

// NewGroupExclusionConstraint 创建员工组互斥约束
func NewGroupExclusionConstraint(groupName string, members []uuid.UUID) *GroupExclusionConstraint {
	set := make(map[uuid.UUID]bool, len(members))
	for _, id := range members {
		set[id] = true
	}
	return &GroupExclusionConstraint{
		BaseConstraint: NewBaseConstraint(
			fmt.Sprintf("组互斥(%s)", groupName),
			constraint.ScopeGlobal,
			constraint.SeverityHigh,
		),
		groupName: groupName,
		members:   members,
		memberSet: set,
	}
}

// Check 检查假设性分配
func (c *GroupExclusionConstraint) Check(s *model.Schedule, v model.Variable, code model.ShiftCode) bool {
	if !c.memberSet[v.StaffID] {
		return true
	}
	if code != model.ShiftOff && code != model.ShiftEarly {
		return true
	}

	// 同组其他成员当天不能已有相同的互斥班次
	for _, id := range c.members {
		if id == v.StaffID {
			continue
		}
		if s.Get(model.Variable{StaffID: id, Date: v.Date}) == code {
			return false
		}
	}
	return true
}

// Evaluate 评估整个排班表
func (c *GroupExclusionConstraint) Evaluate(s *model.Schedule) []constraint.Violation {
	var violations []constraint.Violation
	for _, date := range s.Dates {
		for _, code := range []model.ShiftCode{model.ShiftOff, model.ShiftEarly} {
			count := 0
			for _, id := range c.members {
				if s.Get(model.Variable{StaffID: id, Date: date}) == code {
					count++
				}
			}
			if count > 1 {
				violations = append(violations, constraint.Violation{
					Constraint: c.Name(),
					Severity:   c.Severity(),
					Date:       date,
					Message: fmt.Sprintf("组 %s 有 %d 名成员在 %s 同时为%s",
						c.groupName, count, date, code.Symbol()),
				})
			}
		}
	}
	return violations
}

// CoverageBackupConstraint 组补位约束
// 组内任一成员休息的日期，补位员工必须上日班
type CoverageBackupConstraint struct {
	*BaseConstraint
	groupName string
	members   []uuid.UUID
	memberSet map[uuid.UUID]bool
	backup    uuid.UUID
}

// NewCoverageBackupConstraint 创建组补位约束
func NewCoverageBackupConstraint(groupName string, members []uuid.UUID, backup uuid.UUID) *CoverageBackupConstraint {
	set := make(map[uuid.UUID]bool, len(members))
	for _, id := range members {
		set[id] = true
	}
	return &CoverageBackupConstraint{
		BaseConstraint: NewBaseConstraint(
			fmt.Sprintf("组补位(%s)", groupName),
			constraint.ScopeGlobal,
			constraint.SeverityHigh,
		),
		groupName: groupName,
		members:   members,
		memberSet: set,
		backup:    backup,
	}
}

// anyMemberOff 检查某日是否有成员休息（可排除指定员工）
func (c *CoverageBackupConstraint) anyMemberOff(s *model.Schedule, date string, exclude uuid.UUID) bool {
	for _, id := range c.members {
		if id == exclude {
			continue
		}
		if s.Get(model.Variable{StaffID: id, Date: date}) == model.ShiftOff {
			return true
		}
	}
	return false
}

// Check 检查假设性分配
func (c *CoverageBackupConstraint) Check(s *model.Schedule, v model.Variable, code model.ShiftCode) bool {
	// 给补位员工排班：有成员休息时必须是日班
	if v.StaffID == c.backup {
		if code == model.ShiftNormal {
			return true
		}
		return !c.anyMemberOff(s, v.Date, c.backup)
	}

	// 给成员排休息：补位员工当天若已分配则必须是日班
	if c.memberSet[v.StaffID] && code == model.ShiftOff {
		backupCode := s.Get(model.Variable{StaffID: c.backup, Date: v.Date})
		if backupCode.IsAssigned() && backupCode != model.ShiftNormal {
			return false
		}
	}
	return true
}

// Evaluate 评估整个排班表
func (c *CoverageBackupConstraint) Evaluate(s *model.Schedule) []constraint.Violation {
	var violations []constraint.Violation
	for _, date := range s.Dates {
		if !c.anyMemberOff(s, date, uuid.Nil) {
			continue
		}
		backupCode := s.Get(model.Variable{StaffID: c.backup, Date: date})
		if backupCode.IsAssigned() && backupCode != model.ShiftNormal {
			violations = append(violations, constraint.Violation{
				Constraint: c.Name(),
				Severity:   c.Severity(),
				StaffID:    c.backup,
				Date:       date,
				Message: fmt.Sprintf("组 %s 在 %s 有成员休息，补位员工应为日班，实际为%s",
					c.groupName, date, backupCode.Symbol()),
			})
		}
	}
	return violations
}
