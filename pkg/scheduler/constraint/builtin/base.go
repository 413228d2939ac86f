// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/paiban/roster/pkg/scheduler/constraint"
)

// BaseConstraint 约束基类
type BaseConstraint struct {
	name     string
	scope    constraint.Scope
	severity constraint.Severity
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, scope constraint.Scope, severity constraint.Severity) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		scope:    scope,
		severity: severity,
	}
}

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Scope 返回约束作用域
func (c *BaseConstraint) Scope() constraint.Scope { return c.scope }

// Severity 返回约束严重级别
func (c *BaseConstraint) Severity() constraint.Severity { return c.severity }
