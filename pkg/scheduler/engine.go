// Package scheduler 编排约束求解与元启发式精炼的完整排班流程
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/fitness"
	"github.com/paiban/roster/pkg/scheduler/optimizer"
	"github.com/paiban/roster/pkg/scheduler/solver"
	"github.com/paiban/roster/pkg/stats"
	"github.com/paiban/roster/pkg/validator"
)

// EnhanceFunc 外部增强钩子（如预测模型的填充建议）
// 只允许改写非固定单元格；固定单元格的写入会被排班表拒绝
type EnhanceFunc func(s *model.Schedule)

// Options 求解选项
type Options struct {
	UseGA bool `json:"use_ga"`
	UseSA bool `json:"use_sa"`

	Timeout time.Duration `json:"timeout"`
	Seed    int64         `json:"seed"`

	// 低于该适应度视为降级解（非致命警告）
	AcceptThreshold float64 `json:"accept_threshold"`

	CSP *solver.Config      `json:"csp,omitempty"`
	GA  *optimizer.GAConfig `json:"ga,omitempty"`
	SA  *optimizer.SAConfig `json:"sa,omitempty"`
}

// DefaultOptions 返回默认求解选项
func DefaultOptions() *Options {
	return &Options{
		UseGA:           true,
		UseSA:           false,
		Timeout:         60 * time.Second,
		AcceptThreshold: 70,
	}
}

// Request 求解请求
type Request struct {
	Staff     []*model.Staff
	StartDate string
	EndDate   string

	// 稀疏部分排班：员工ID → 日期 → 班次；出现的单元格视为固定
	Partial map[uuid.UUID]map[string]model.ShiftCode

	Rules   *model.RuleConfig
	Options *Options
}

// Report 求解报告
type Report struct {
	SolveID  uuid.UUID       `json:"solve_id"`
	Schedule *model.Schedule `json:"-"`

	Valid        bool    `json:"valid"`
	Degraded     bool    `json:"degraded"`
	Fitness      float64 `json:"fitness"`
	Completeness float64 `json:"completeness"`

	Breakdown  *fitness.Breakdown         `json:"breakdown"`
	Violations []constraint.Violation     `json:"violations"`
	Fairness   *stats.FairnessMetrics     `json:"fairness"`

	CSPResult *solver.Result              `json:"csp_result"`
	GAResult  *optimizer.GAResult         `json:"ga_result,omitempty"`
	SAResult  *optimizer.SAResult         `json:"sa_result,omitempty"`
	Repaired  int                         `json:"repaired"`

	Recommendations []validator.Recommendation `json:"recommendations"`

	Duration time.Duration `json:"duration"`
}

// Engine 排班求解引擎
// 每次 Solve 构建独立的问题状态，约束与规则配置只读，可并发调用
type Engine struct {
	enhance EnhanceFunc
	log     *logger.SolverLogger
}

// NewEngine 创建排班求解引擎
func NewEngine() *Engine {
	return &Engine{log: logger.NewSolverLogger("engine")}
}

// WithEnhancer 注入外部增强钩子
func (e *Engine) WithEnhancer(fn EnhanceFunc) *Engine {
	e.enhance = fn
	return e
}

// Solve 执行完整求解流程：
// CSP 求解 → 外部增强 → 冲突清理 → GA/SA 精炼 → 最终校验与建议
func (e *Engine) Solve(ctx context.Context, req *Request) (*Report, error) {
	start := time.Now()

	opts := req.Options
	if opts == nil {
		opts = DefaultOptions()
	}
	rules := req.Rules
	if rules == nil {
		rules = model.DefaultRuleConfig()
	}

	sched, err := e.buildSchedule(req)
	if err != nil {
		return nil, err
	}

	constraints, err := builtin.Build(req.Staff, rules)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "约束构建失败")
	}
	engine := constraint.NewEngine(constraints...)

	report := &Report{SolveID: uuid.New()}
	e.log.StartSolve(report.SolveID.String(), len(req.Staff), len(sched.Dates))

	// 阶段一：回溯搜索求可行基础解
	cspCfg := opts.CSP
	if cspCfg == nil {
		cspCfg = solver.DefaultConfig()
		cspCfg.Seed = opts.Seed
		if opts.Timeout > 0 {
			cspCfg.Timeout = opts.Timeout / 2
		}
	}
	csp := solver.NewCSPSolver(engine, cspCfg, rules, req.Staff)
	cspResult, err := csp.Solve(ctx, sched)
	if err != nil {
		return nil, err
	}
	report.CSPResult = cspResult
	current := cspResult.Schedule

	if !cspResult.Feasible && !cspResult.TimedOut {
		// 搜索树耗尽：报告最后一致的部分解与肇事约束，绝不静默返回无效排班
		report.Schedule = current
		report.Completeness = cspResult.Completeness
		report.Duration = time.Since(start)
		e.finalize(report, engine, rules, current)

		failVar := ""
		if v := cspResult.FailedVariable; v != nil {
			failVar = v.Date
			if idx := current.StaffIndex(v.StaffID); idx >= 0 {
				failVar = current.Staff[idx].Name + "@" + v.Date
			}
		}
		return report, errors.Infeasible(failVar, cspResult.FailedConstraint)
	}

	// 阶段二：外部增强（仅非固定单元格）
	if e.enhance != nil {
		e.enhance(current)
	}

	// 阶段三：冲突清理
	report.Repaired = validator.Repair(current, engine)

	// 阶段四：元启发式精炼，以 CSP 解为种子
	softRules := rules.Priorities
	if opts.UseGA {
		gaCfg := opts.GA
		if gaCfg == nil {
			gaCfg = optimizer.DefaultGAConfig()
			gaCfg.Seed = opts.Seed
			if opts.Timeout > 0 {
				gaCfg.Timeout = opts.Timeout / 4
			}
		}
		gaEval := fitness.NewEvaluator(engine, fitness.PopulationWeights()).WithSoftRules(softRules)
		ga := optimizer.NewGeneticAlgorithm(gaCfg, gaEval)
		gaResult, gaErr := ga.Evolve(ctx, current)
		if gaErr == nil && gaResult.Best != nil {
			report.GAResult = gaResult
		}
	}
	if opts.UseSA {
		saCfg := opts.SA
		if saCfg == nil {
			saCfg = optimizer.DefaultSAConfig()
			saCfg.Seed = opts.Seed
			if opts.Timeout > 0 {
				saCfg.Timeout = opts.Timeout / 4
			}
		}
		saEval := fitness.NewEvaluator(engine, fitness.AnnealingWeights()).WithSoftRules(softRules)
		sa := optimizer.NewSimulatedAnnealing(saCfg, saEval)
		saResult, saErr := sa.Anneal(ctx, current)
		if saErr == nil && saResult.Best != nil {
			report.SAResult = saResult
		}
	}

	// 以单解权重比较各候选，择优输出
	finalEval := fitness.NewEvaluator(engine, fitness.SingleWeights()).WithSoftRules(softRules)
	bestSched := current
	bestScore := finalEval.Score(current)
	if report.GAResult != nil {
		if score := finalEval.Score(report.GAResult.Best.Genome); score > bestScore {
			bestSched, bestScore = report.GAResult.Best.Genome, score
		}
	}
	if report.SAResult != nil {
		if score := finalEval.Score(report.SAResult.Best); score > bestScore {
			bestSched, bestScore = report.SAResult.Best, score
		}
	}

	// 阶段五：最终校验与报告
	report.Schedule = bestSched
	report.Completeness = bestSched.Completeness()
	report.Duration = time.Since(start)
	e.finalize(report, engine, rules, bestSched)

	if cspResult.TimedOut && report.Completeness < 100 {
		return report, errors.Timeout(report.Completeness)
	}
	if report.Valid && report.Fitness < opts.AcceptThreshold {
		report.Degraded = true
	}

	e.log.SolveComplete(report.SolveID.String(), report.Duration, report.Fitness)
	return report, nil
}

// finalize 填充校验结果、适应度明细、公平性与建议
func (e *Engine) finalize(report *Report, engine *constraint.Engine, rules *model.RuleConfig, sched *model.Schedule) {
	eval := fitness.NewEvaluator(engine, fitness.SingleWeights()).WithSoftRules(rules.Priorities)
	result := engine.ValidateAll(sched)

	report.Valid = result.Valid
	report.Violations = result.Violations
	report.Breakdown = eval.Breakdown(sched)
	report.Fitness = report.Breakdown.Total
	report.Fairness = stats.NewFairnessAnalyzer().Analyze(sched)
	report.Recommendations = validator.NewRecommender(rules).
		Build(result, report.Breakdown, sched.Completeness())
}

// buildSchedule 校验输入并构建带固定单元格的初始排班表
func (e *Engine) buildSchedule(req *Request) (*model.Schedule, error) {
	if len(req.Staff) == 0 {
		return nil, errors.InvalidInput("staff", "员工列表为空")
	}

	seen := make(map[uuid.UUID]bool, len(req.Staff))
	names := make(map[string]bool, len(req.Staff))
	for _, st := range req.Staff {
		if st.ID == uuid.Nil {
			return nil, errors.InvalidInput("staff.id", "员工ID为空")
		}
		if seen[st.ID] {
			return nil, errors.InvalidInput("staff.id", "员工ID重复: "+st.ID.String())
		}
		if st.Name == "" {
			return nil, errors.InvalidInput("staff.name", "员工姓名为空")
		}
		if names[st.Name] {
			return nil, errors.InvalidInput("staff.name", "员工姓名重复: "+st.Name)
		}
		seen[st.ID] = true
		names[st.Name] = true
	}

	dates, err := model.BuildDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidTimeRange, "日期范围无效")
	}

	sched := model.NewSchedule(req.Staff, dates)
	for staffID, row := range req.Partial {
		if sched.StaffIndex(staffID) < 0 {
			return nil, errors.InvalidInput("partial", "部分排班引用了未知员工: "+staffID.String())
		}
		for date, code := range row {
			if sched.DateIndex(date) < 0 {
				return nil, errors.InvalidInput("partial", "部分排班引用了范围外日期: "+date)
			}
			if !code.IsAssigned() {
				continue
			}
			sched.Fix(model.Variable{StaffID: staffID, Date: date}, code)
		}
	}
	return sched, nil
}
