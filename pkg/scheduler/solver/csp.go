// Package solver 提供基于约束满足的排班求解器
package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// CSPSolver 回溯搜索求解器
// 每次 Solve 持有独立的域与日志状态，约束引擎与规则配置只读
type CSPSolver struct {
	engine *constraint.Engine
	cfg    *Config
	rules  *model.RuleConfig
	rng    *rand.Rand
	log    *logger.SolverLogger

	// 同组成员索引，用于约束关系度启发式
	groupPeers map[uuid.UUID][]uuid.UUID
}

// NewCSPSolver 创建回溯搜索求解器
func NewCSPSolver(engine *constraint.Engine, cfg *Config, rules *model.RuleConfig, roster []*model.Staff) *CSPSolver {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if rules == nil {
		rules = model.DefaultRuleConfig()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &CSPSolver{
		engine:     engine,
		cfg:        cfg,
		rules:      rules,
		rng:        rand.New(rand.NewSource(seed)),
		log:        logger.NewSolverLogger("csp"),
		groupPeers: buildGroupPeers(roster, rules),
	}
	return s
}

// buildGroupPeers 构建同组成员索引
func buildGroupPeers(roster []*model.Staff, rules *model.RuleConfig) map[uuid.UUID][]uuid.UUID {
	byName := make(map[string]uuid.UUID, len(roster))
	for _, st := range roster {
		byName[st.Name] = st.ID
	}

	peers := make(map[uuid.UUID][]uuid.UUID)
	for _, g := range rules.Groups {
		var ids []uuid.UUID
		for _, name := range g.Members {
			if id, ok := byName[name]; ok {
				ids = append(ids, id)
			}
		}
		for _, id := range ids {
			for _, other := range ids {
				if other != id {
					peers[id] = append(peers[id], other)
				}
			}
		}
	}
	return peers
}

// Name 返回求解器名称
func (s *CSPSolver) Name() string {
	return "CSPSolver"
}

// searchState 单次求解的搜索状态
type searchState struct {
	sched    *model.Schedule
	domains  *domainStore
	stats    *Statistics
	deadline time.Time

	timedOut bool
	// 最深部分解快照（超时返回用）
	bestPartial  *model.Schedule
	bestAssigned int

	// 域变空时的定位信息
	failVar        *model.Variable
	failConstraint string
}

// Solve 在给定的部分排班上执行回溯搜索
// 超时返回最优部分解与完成度，不作为硬错误
func (s *CSPSolver) Solve(ctx context.Context, sched *model.Schedule) (*Result, error) {
	start := time.Now()
	s.engine.ResetCheckCount()

	work := sched.Clone()
	st := &searchState{
		sched:    work,
		domains:  newDomainStore(work),
		stats:    &Statistics{},
		deadline: start.Add(s.cfg.Timeout),
	}

	s.log.StartSolve(s.Name(), len(work.Staff), len(work.Dates))

	unassigned := s.collectUnassigned(work)
	solved := s.backtrack(ctx, st, unassigned)

	st.stats.ConstraintChecks = s.engine.CheckCount()

	result := &Result{
		Feasible:   solved,
		TimedOut:   st.timedOut,
		Statistics: st.stats,
		Duration:   time.Since(start),
	}

	switch {
	case solved:
		result.Schedule = st.sched
	case st.bestPartial != nil:
		result.Schedule = st.bestPartial
	default:
		result.Schedule = st.sched
	}
	result.Completeness = result.Schedule.Completeness()
	result.FailedVariable = st.failVar
	result.FailedConstraint = st.failConstraint

	s.log.SolveComplete(s.Name(), result.Duration, result.Completeness)
	return result, nil
}

// collectUnassigned 收集所有未分配单元格
func (s *CSPSolver) collectUnassigned(sched *model.Schedule) []cellRef {
	var cells []cellRef
	for si := range sched.Staff {
		for dj := range sched.Dates {
			if !sched.GetAt(si, dj).IsAssigned() {
				cells = append(cells, cellRef{si: si, dj: dj})
			}
		}
	}
	return cells
}

// backtrack 递归回溯搜索
// 每层检查一次取消与墙钟截止时间
func (s *CSPSolver) backtrack(ctx context.Context, st *searchState, unassigned []cellRef) bool {
	if len(unassigned) == 0 {
		return true
	}

	if err := ctx.Err(); err != nil {
		st.timedOut = true
		return false
	}
	if time.Now().After(st.deadline) {
		st.timedOut = true
		return false
	}

	c := s.selectVariable(st.sched, st.domains, unassigned)
	v := model.Variable{StaffID: st.sched.Staff[c.si].ID, Date: st.sched.Dates[c.dj]}
	values := s.orderValues(st.sched, st.domains, c, unassigned)

	rest := without(unassigned, c)

	for _, code := range values {
		if !s.engine.CheckAll(st.sched, v, code) {
			continue
		}

		mark := st.domains.mark()
		st.sched.SetAt(c.si, c.dj, code)
		st.domains.narrowTo(c, code)
		st.stats.Assignments++
		s.snapshotIfDeeper(st)

		if s.propagate(st, rest) {
			if s.backtrack(ctx, st, rest) {
				return true
			}
		}

		// 恢复传播前的域快照并撤销赋值
		st.domains.undo(mark)
		st.sched.SetAt(c.si, c.dj, model.ShiftUnassigned)
		st.stats.Backtracks++

		if st.timedOut {
			return false
		}
	}

	return false
}

// propagate 约束传播：迭代删减未分配单元格的域
// 迭代次数受配置上限保护；任一域变空时报告不一致
func (s *CSPSolver) propagate(st *searchState, unassigned []cellRef) bool {
	for round := 0; round < s.cfg.PropagationCap; round++ {
		st.stats.PropagationRounds++
		changed := false

		for _, c := range unassigned {
			v := model.Variable{StaffID: st.sched.Staff[c.si].ID, Date: st.sched.Dates[c.dj]}
			domain := st.domains.get(c)

			// 逆序遍历以便安全移除
			for i := len(domain) - 1; i >= 0; i-- {
				code := domain[i]
				failing := s.engine.FirstFailing(st.sched, v, code)
				if failing == "" {
					continue
				}
				st.domains.remove(c, code)
				changed = true

				if st.domains.size(c) == 0 {
					st.failVar = &v
					st.failConstraint = failing
					return false
				}
			}
		}

		if !changed {
			break
		}
	}
	return true
}

// snapshotIfDeeper 记录更深的部分解快照
func (s *CSPSolver) snapshotIfDeeper(st *searchState) {
	assigned := st.sched.AssignedCount()
	if assigned > st.bestAssigned {
		st.bestAssigned = assigned
		st.bestPartial = st.sched.Clone()
	}
}

// without 从切片中剔除一个单元格
func without(cells []cellRef, c cellRef) []cellRef {
	rest := make([]cellRef, 0, len(cells)-1)
	for _, x := range cells {
		if x != c {
			rest = append(rest, x)
		}
	}
	return rest
}
