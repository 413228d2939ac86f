// Package solver 提供基于约束满足的排班求解器
package solver

import (
	"sort"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/fitness"
)

// selectVariable 按配置策略选择下一个待赋值单元格
func (s *CSPSolver) selectVariable(sched *model.Schedule, domains *domainStore, unassigned []cellRef) cellRef {
	switch s.cfg.VarSelection {
	case VarMostConstraining:
		return s.selectMostConstraining(sched, unassigned)
	default:
		return s.selectMostConstrained(domains, unassigned)
	}
}

// selectMostConstrained 最少剩余值优先（MRV）
func (s *CSPSolver) selectMostConstrained(domains *domainStore, unassigned []cellRef) cellRef {
	best := unassigned[0]
	bestSize := domains.size(best)
	for _, c := range unassigned[1:] {
		if size := domains.size(c); size < bestSize {
			best, bestSize = c, size
		}
	}
	return best
}

// selectMostConstraining 约束关系最多优先
// 统计同日期未分配单元格数量，同组成员的单元格加倍计入
func (s *CSPSolver) selectMostConstraining(sched *model.Schedule, unassigned []cellRef) cellRef {
	sameDate := make(map[int]int)
	for _, c := range unassigned {
		sameDate[c.dj]++
	}

	best := unassigned[0]
	bestDegree := -1
	for _, c := range unassigned {
		degree := sameDate[c.dj] - 1
		staffID := sched.Staff[c.si].ID
		for _, peer := range s.groupPeers[staffID] {
			pi := sched.StaffIndex(peer)
			if pi >= 0 && !sched.GetAt(pi, c.dj).IsAssigned() {
				degree += 2
			}
		}
		if degree > bestDegree {
			best, bestDegree = c, degree
		}
	}
	return best
}

// orderValues 按配置策略排序候选值
func (s *CSPSolver) orderValues(sched *model.Schedule, domains *domainStore, c cellRef, unassigned []cellRef) []model.ShiftCode {
	domain := domains.get(c)
	values := make([]model.ShiftCode, len(domain))
	copy(values, domain)

	switch s.cfg.ValueOrdering {
	case ValRandom:
		s.rng.Shuffle(len(values), func(i, j int) {
			values[i], values[j] = values[j], values[i]
		})
	case ValLikelihood:
		s.orderByLikelihood(sched, c, values)
	default:
		s.orderByLeastConstraining(sched, domains, c, values, unassigned)
	}
	return values
}

// orderByLikelihood 按工作日/周末先验与优先规则加分降序排序
func (s *CSPSolver) orderByLikelihood(sched *model.Schedule, c cellRef, values []model.ShiftCode) {
	date := sched.Dates[c.dj]
	weekday := model.Weekday(date)
	staffName := sched.Staff[c.si].Name

	score := func(code model.ShiftCode) float64 {
		v := fitness.WeekdayBias(weekday, code)
		for _, r := range s.rules.Priorities {
			if r.StaffName == staffName && r.DayOfWeek == weekday && r.Preferred == code {
				v += 0.2 * float64(r.Level)
			}
		}
		return v
	}

	sort.SliceStable(values, func(i, j int) bool {
		return score(values[i]) > score(values[j])
	})
}

// orderByLeastConstraining 最少约束值优先
// 对每个候选值，统计其会使同日期未分配单元格失去多少候选项，升序排列
func (s *CSPSolver) orderByLeastConstraining(sched *model.Schedule, domains *domainStore, c cellRef, values []model.ShiftCode, unassigned []cellRef) {
	eliminated := make(map[model.ShiftCode]int, len(values))
	for _, code := range values {
		// 假设性写入后评估邻居损失
		sched.SetAt(c.si, c.dj, code)
		count := 0
		for _, n := range unassigned {
			if n == c || n.dj != c.dj {
				continue
			}
			nv := model.Variable{StaffID: sched.Staff[n.si].ID, Date: sched.Dates[n.dj]}
			for _, ncode := range domains.get(n) {
				if !s.engine.CheckAll(sched, nv, ncode) {
					count++
				}
			}
		}
		sched.SetAt(c.si, c.dj, model.ShiftUnassigned)
		eliminated[code] = count
	}

	sort.SliceStable(values, func(i, j int) bool {
		return eliminated[values[i]] < eliminated[values[j]]
	})
}
