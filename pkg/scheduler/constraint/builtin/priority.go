// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// priorityKey 优先规则索引键
type priorityKey struct {
	staffID uuid.UUID
	weekday time.Weekday
}

// PriorityConstraint 高优先级班次规则约束
// 仅收纳 High 级别规则；低级别规则作为软性加分项由适应度评估处理
type PriorityConstraint struct {
	*BaseConstraint
	rules map[priorityKey]model.ShiftCode
	names map[uuid.UUID]string
}

// NewPriorityConstraint 创建高优先级规则约束
// rules 中的员工姓名必须已解析为 ID
func NewPriorityConstraint(rules map[priorityKey]model.ShiftCode, names map[uuid.UUID]string) *PriorityConstraint {
	return &PriorityConstraint{
		BaseConstraint: NewBaseConstraint(
			"优先班次规则",
			constraint.ScopeUnary,
			constraint.SeverityHigh,
		),
		rules: rules,
		names: names,
	}
}

// BuildPriorityRules 从规则列表构建高优先级索引
func BuildPriorityRules(roster []*model.Staff, rules []model.PriorityRule) (map[priorityKey]model.ShiftCode, map[uuid.UUID]string, error) {
	byName := make(map[string]uuid.UUID, len(roster))
	names := make(map[uuid.UUID]string, len(roster))
	for _, st := range roster {
		byName[st.Name] = st.ID
		names[st.ID] = st.Name
	}

	index := make(map[priorityKey]model.ShiftCode)
	for _, r := range rules {
		if !r.IsHard() {
			continue
		}
		id, ok := byName[r.StaffName]
		if !ok {
			return nil, nil, fmt.Errorf("优先规则引用了未知员工 %q", r.StaffName)
		}
		index[priorityKey{staffID: id, weekday: r.DayOfWeek}] = r.Preferred
	}
	return index, names, nil
}

// Check 检查假设性分配
func (c *PriorityConstraint) Check(s *model.Schedule, v model.Variable, code model.ShiftCode) bool {
	preferred, ok := c.rules[priorityKey{staffID: v.StaffID, weekday: model.Weekday(v.Date)}]
	if !ok {
		return true
	}
	return code == preferred
}

// Evaluate 评估整个排班表
func (c *PriorityConstraint) Evaluate(s *model.Schedule) []constraint.Violation {
	var violations []constraint.Violation
	for _, st := range s.Staff {
		for _, date := range s.Dates {
			key := priorityKey{staffID: st.ID, weekday: model.Weekday(date)}
			preferred, ok := c.rules[key]
			if !ok {
				continue
			}
			actual := s.Get(model.Variable{StaffID: st.ID, Date: date})
			if actual.IsAssigned() && actual != preferred {
				violations = append(violations, constraint.Violation{
					Constraint: c.Name(),
					Severity:   c.Severity(),
					StaffID:    st.ID,
					StaffName:  c.names[st.ID],
					Date:       date,
					Message: fmt.Sprintf("员工 %s 在 %s 应为%s，实际为%s",
						c.names[st.ID], date, preferred.Symbol(), actual.Symbol()),
				})
			}
		}
	}
	return violations
}
