// Package validator 提供排班验证、修复与整改建议
package validator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/fitness"
)

// Recommendation 整改建议
type Recommendation struct {
	Severity constraint.Severity `json:"severity"`
	Message  string              `json:"message"`
	Action   string              `json:"action"`
}

// Recommender 建议生成器
type Recommender struct {
	rules *model.RuleConfig
}

// NewRecommender 创建建议生成器
func NewRecommender(rules *model.RuleConfig) *Recommender {
	if rules == nil {
		rules = model.DefaultRuleConfig()
	}
	return &Recommender{rules: rules}
}

// Build 根据违反情况与适应度明细生成按严重级别排序的建议
func (r *Recommender) Build(result *constraint.Result, breakdown *fitness.Breakdown, completeness float64) []Recommendation {
	var recs []Recommendation

	if completeness < 100 {
		recs = append(recs, Recommendation{
			Severity: constraint.SeverityCritical,
			Message:  fmt.Sprintf("排班完成度仅 %.1f%%", completeness),
			Action:   "延长求解时限，或放宽每日在岗下限/班次上限",
		})
	}

	// 按约束聚合违反数
	byConstraint := make(map[string]int)
	severityOf := make(map[string]constraint.Severity)
	for _, v := range result.Violations {
		byConstraint[v.Constraint]++
		if cur, ok := severityOf[v.Constraint]; !ok || v.Severity.Rank() < cur.Rank() {
			severityOf[v.Constraint] = v.Severity
		}
	}

	for name, count := range byConstraint {
		recs = append(recs, Recommendation{
			Severity: severityOf[name],
			Message:  fmt.Sprintf("约束 %q 违反 %d 次", name, count),
			Action:   r.actionFor(name),
		})
	}

	if breakdown != nil {
		if breakdown.Balance < 60 {
			recs = append(recs, Recommendation{
				Severity: constraint.SeverityLow,
				Message:  fmt.Sprintf("工作量均衡分仅 %.0f", breakdown.Balance),
				Action:   "启用遗传算法或模拟退火精炼以均衡工作量",
			})
		}
		if breakdown.Distribution < 60 {
			recs = append(recs, Recommendation{
				Severity: constraint.SeverityLow,
				Message:  fmt.Sprintf("班次分布分仅 %.0f", breakdown.Distribution),
				Action:   "调整每日早/晚班上限，使日班占比回到目标区间",
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Severity.Rank() < recs[j].Severity.Rank()
	})
	return recs
}

// actionFor 按约束给出整改动作
func (r *Recommender) actionFor(name string) string {
	switch {
	case name == "每日最少在岗人数":
		return fmt.Sprintf("减少同日休息人数或降低在岗下限（当前 %d）", r.rules.MinWorkingPerDay)
	case name == "休息天数上限":
		return fmt.Sprintf("提高休息天数上限（当前 %d）或缩短排班周期", r.rules.MonthlyOffCeiling)
	case name == "优先班次规则":
		return "下调冲突规则的优先级，或调整涉及员工的固定排班"
	case len(name) >= 9 && name[:9] == "组互斥":
		return "调整员工组成员构成，或错开组内成员的休息日"
	case len(name) >= 9 && name[:9] == "组补位":
		return "确认补位员工当日可排日班，或更换补位人选"
	default:
		return "放宽对应的每日班次人数上限，或增加可排班员工"
	}
}

// Repair 冲突清理：对可平凡修复的违反尝试换值
// 仅改写非固定单元格；返回修复的单元格数
func Repair(s *model.Schedule, engine *constraint.Engine) int {
	repaired := 0
	result := engine.ValidateAll(s)

	for _, violation := range result.Violations {
		if violation.StaffID == uuid.Nil || violation.Date == "" {
			continue
		}
		v := model.Variable{StaffID: violation.StaffID, Date: violation.Date}
		if s.IsFixed(v) {
			continue
		}

		current := s.Get(v)
		for _, code := range model.SearchDomain() {
			if code == current {
				continue
			}
			if engine.CheckAll(s, v, code) {
				s.Set(v, code)
				repaired++
				break
			}
		}
	}
	return repaired
}
