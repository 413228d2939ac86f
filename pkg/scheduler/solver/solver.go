// Package solver 提供基于约束满足的排班求解器
package solver

import (
	"context"
	"time"

	"github.com/paiban/roster/pkg/model"
)

// Solver 求解器接口
type Solver interface {
	// Solve 在给定的部分排班上求解，返回完整或最优部分排班
	Solve(ctx context.Context, s *model.Schedule) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Result 求解结果
type Result struct {
	Schedule     *model.Schedule `json:"-"`
	Feasible     bool            `json:"feasible"`
	TimedOut     bool            `json:"timed_out"`
	Completeness float64         `json:"completeness"` // 0-100
	Statistics   *Statistics     `json:"statistics"`
	Duration     time.Duration   `json:"duration"`

	// 不可行时的定位信息
	FailedVariable   *model.Variable `json:"failed_variable,omitempty"`
	FailedConstraint string          `json:"failed_constraint,omitempty"`
}

// Statistics 求解统计
type Statistics struct {
	Backtracks        int   `json:"backtracks"`
	Assignments       int   `json:"assignments"`
	ConstraintChecks  int64 `json:"constraint_checks"`
	PropagationRounds int   `json:"propagation_rounds"`
}

// VarStrategy 变量选择策略
type VarStrategy string

const (
	// VarMostConstrained 最少剩余值优先（MRV，默认）
	VarMostConstrained VarStrategy = "most_constrained"
	// VarMostConstraining 约束关系最多优先
	VarMostConstraining VarStrategy = "most_constraining"
)

// ValStrategy 取值排序策略
type ValStrategy string

const (
	// ValLeastConstraining 最少约束值优先（默认）
	ValLeastConstraining ValStrategy = "least_constraining"
	// ValLikelihood 基于工作日/周末先验与优先规则的似然排序
	ValLikelihood ValStrategy = "likelihood"
	// ValRandom 随机排序（用于多样化）
	ValRandom ValStrategy = "random"
)

// Config 求解器配置
type Config struct {
	VarSelection   VarStrategy   `json:"var_selection"`
	ValueOrdering  ValStrategy   `json:"value_ordering"`
	PropagationCap int           `json:"propagation_cap"` // 传播迭代上限
	Timeout        time.Duration `json:"timeout"`
	Seed           int64         `json:"seed"` // 0 表示按时间取种子
}

// DefaultConfig 返回默认求解器配置
func DefaultConfig() *Config {
	return &Config{
		VarSelection:   VarMostConstrained,
		ValueOrdering:  ValLeastConstraining,
		PropagationCap: 3,
		Timeout:        30 * time.Second,
	}
}
