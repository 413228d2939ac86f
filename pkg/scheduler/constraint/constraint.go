// Package constraint 定义约束接口和约束引擎
package constraint

import (
	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
)

// Scope 约束作用域
type Scope string

const (
	ScopeUnary  Scope = "unary"  // 单变量约束
	ScopeGlobal Scope = "global" // 全局约束
)

// Severity 约束严重级别
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank 返回严重级别的排序值（越小越严重）
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// PenaltyWeight 返回严重级别对应的惩罚权重
func (s Severity) PenaltyWeight() float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.6
	case SeverityMedium:
		return 0.3
	case SeverityLow:
		return 0.1
	default:
		return 0.1
	}
}

// Constraint 约束接口
// Check 与 Evaluate 都必须是纯函数，不得修改排班表
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Scope 返回约束作用域
	Scope() Scope

	// Severity 返回约束严重级别
	Severity() Severity

	// Check 检查假设性分配：当前排班 + 候选值是否满足约束
	Check(s *model.Schedule, v model.Variable, code model.ShiftCode) bool

	// Evaluate 评估整个排班表，返回所有违反详情
	Evaluate(s *model.Schedule) []Violation
}

// Violation 约束违反详情
type Violation struct {
	Constraint string    `json:"constraint"`
	Severity   Severity  `json:"severity"`
	StaffID    uuid.UUID `json:"staff_id,omitempty"`
	StaffName  string    `json:"staff_name,omitempty"`
	Date       string    `json:"date,omitempty"`
	Message    string    `json:"message"`
}

// Result 约束评估结果
type Result struct {
	Valid      bool               `json:"valid"`
	Violations []Violation        `json:"violations"`
	BySeverity map[Severity]int   `json:"by_severity"`
	Total      int                `json:"total"`
}

// PenaltySum 按严重级别加权的总惩罚值
func (r *Result) PenaltySum() float64 {
	var sum float64
	for _, v := range r.Violations {
		sum += v.Severity.PenaltyWeight()
	}
	return sum
}
