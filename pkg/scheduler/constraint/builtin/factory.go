// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// Build 根据规则配置构建内置约束集
// 员工姓名在此处解析为 ID；引用未知员工时返回错误
func Build(roster []*model.Staff, cfg *model.RuleConfig) ([]constraint.Constraint, error) {
	if cfg == nil {
		cfg = model.DefaultRuleConfig()
	}

	byName := make(map[string]uuid.UUID, len(roster))
	for _, st := range roster {
		byName[st.Name] = st.ID
	}

	var constraints []constraint.Constraint

	if cfg.MinWorkingPerDay > 0 {
		constraints = append(constraints, NewMinWorkingConstraint(cfg.MinWorkingPerDay))
	}
	if cfg.DailyOffCeiling > 0 {
		constraints = append(constraints, NewDailyCeilingConstraint(model.ShiftOff, cfg.DailyOffCeiling))
	}
	if cfg.DailyEarlyCeiling > 0 {
		constraints = append(constraints, NewDailyCeilingConstraint(model.ShiftEarly, cfg.DailyEarlyCeiling))
	}
	if cfg.DailyLateCeiling > 0 {
		constraints = append(constraints, NewDailyCeilingConstraint(model.ShiftLate, cfg.DailyLateCeiling))
	}
	if cfg.MonthlyOffCeiling > 0 {
		constraints = append(constraints, NewMonthlyOffConstraint(cfg.MonthlyOffCeiling))
	}

	for _, g := range cfg.Groups {
		members := make([]uuid.UUID, 0, len(g.Members))
		for _, name := range g.Members {
			id, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("员工组 %q 引用了未知员工 %q", g.Name, name)
			}
			members = append(members, id)
		}
		if len(members) > 1 {
			constraints = append(constraints, NewGroupExclusionConstraint(g.Name, members))
		}
		if g.Backup != "" {
			backupID, ok := byName[g.Backup]
			if !ok {
				return nil, fmt.Errorf("员工组 %q 引用了未知补位员工 %q", g.Name, g.Backup)
			}
			constraints = append(constraints, NewCoverageBackupConstraint(g.Name, members, backupID))
		}
	}

	if len(cfg.Priorities) > 0 {
		rules, names, err := BuildPriorityRules(roster, cfg.Priorities)
		if err != nil {
			return nil, err
		}
		if len(rules) > 0 {
			constraints = append(constraints, NewPriorityConstraint(rules, names))
		}
	}

	return constraints, nil
}
