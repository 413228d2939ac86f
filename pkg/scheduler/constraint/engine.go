// Package constraint 定义约束接口和约束引擎
package constraint

import (
	"sort"

	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
)

// Engine 约束引擎
// 约束集在一次求解期间只读，可在多个并发求解间共享
type Engine struct {
	constraints []Constraint
	logger      *logger.SolverLogger

	// 统计计数器（每次求解独立持有一个 Engine 实例时有效）
	checkCount int64
}

// NewEngine 创建约束引擎
func NewEngine(constraints ...Constraint) *Engine {
	e := &Engine{
		constraints: make([]Constraint, 0, len(constraints)),
		logger:      logger.NewSolverLogger("constraint"),
	}
	for _, c := range constraints {
		e.Register(c)
	}
	return e
}

// Register 注册约束，按严重级别排序（严重的在前，先检查先剪枝）
func (e *Engine) Register(c Constraint) {
	e.constraints = append(e.constraints, c)
	sort.SliceStable(e.constraints, func(i, j int) bool {
		return e.constraints[i].Severity().Rank() < e.constraints[j].Severity().Rank()
	})
}

// All 返回所有约束
func (e *Engine) All() []Constraint {
	result := make([]Constraint, len(e.constraints))
	copy(result, e.constraints)
	return result
}

// Count 返回约束数量
func (e *Engine) Count() int {
	return len(e.constraints)
}

// CheckCount 返回累计的约束检查次数
func (e *Engine) CheckCount() int64 {
	return e.checkCount
}

// ResetCheckCount 重置检查计数
func (e *Engine) ResetCheckCount() {
	e.checkCount = 0
}

// Check 检查单个约束的假设性分配
// 约束检查崩溃时按不满足处理（失败关闭），记录日志后继续搜索
func (e *Engine) Check(c Constraint, s *model.Schedule, v model.Variable, code model.ShiftCode) (ok bool) {
	e.checkCount++
	defer func() {
		if r := recover(); r != nil {
			e.logger.ConstraintPanic(c.Name(), r)
			ok = false
		}
	}()
	return c.Check(s, v, code)
}

// CheckAll 检查所有约束是否允许该假设性分配
func (e *Engine) CheckAll(s *model.Schedule, v model.Variable, code model.ShiftCode) bool {
	for _, c := range e.constraints {
		if !e.Check(c, s, v, code) {
			return false
		}
	}
	return true
}

// FirstFailing 返回第一个不满足的约束名，全部满足时返回空串
func (e *Engine) FirstFailing(s *model.Schedule, v model.Variable, code model.ShiftCode) string {
	for _, c := range e.constraints {
		if !e.Check(c, s, v, code) {
			return c.Name()
		}
	}
	return ""
}

// ValidateAll 评估整个排班表
func (e *Engine) ValidateAll(s *model.Schedule) *Result {
	result := &Result{
		Valid:      true,
		Violations: make([]Violation, 0),
		BySeverity: make(map[Severity]int),
	}

	for _, c := range e.constraints {
		violations := e.safeEvaluate(c, s)
		for _, v := range violations {
			result.Violations = append(result.Violations, v)
			result.BySeverity[v.Severity]++
			result.Total++
			if v.Severity == SeverityCritical || v.Severity == SeverityHigh {
				result.Valid = false
			}
			e.logger.ConstraintViolation(v.Constraint, v.Message)
		}
	}

	// 违反按严重级别排序，便于生成建议
	sort.SliceStable(result.Violations, func(i, j int) bool {
		return result.Violations[i].Severity.Rank() < result.Violations[j].Severity.Rank()
	})

	return result
}

// safeEvaluate 带崩溃保护的整表评估
// 评估崩溃时生成一条该约束自身的违反记录
func (e *Engine) safeEvaluate(c Constraint, s *model.Schedule) (violations []Violation) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ConstraintPanic(c.Name(), r)
			violations = []Violation{{
				Constraint: c.Name(),
				Severity:   c.Severity(),
				Message:    "约束评估崩溃，按不满足处理",
			}}
		}
	}()
	return c.Evaluate(s)
}
