package solver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
)

func buildScenario(t *testing.T, names []string, rules *model.RuleConfig) ([]*model.Staff, *model.Schedule, *constraint.Engine) {
	t.Helper()
	staff := make([]*model.Staff, len(names))
	for i, name := range names {
		staff[i] = &model.Staff{ID: uuid.New(), Name: name}
	}
	dates, err := model.BuildDates("2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("BuildDates失败: %v", err)
	}
	s := model.NewSchedule(staff, dates)
	cs, err := builtin.Build(staff, rules)
	if err != nil {
		t.Fatalf("构建约束失败: %v", err)
	}
	return staff, s, constraint.NewEngine(cs...)
}

func TestCSPSolver_Solve(t *testing.T) {
	rules := model.DefaultRuleConfig()
	staff, s, engine := buildScenario(t, []string{"张三", "李四", "王五", "赵六"}, rules)

	cfg := DefaultConfig()
	cfg.Seed = 42
	solver := NewCSPSolver(engine, cfg, rules, staff)

	result, err := solver.Solve(context.Background(), s)
	if err != nil {
		t.Fatalf("Solve失败: %v", err)
	}
	if !result.Feasible {
		t.Fatalf("默认规则下4人7天应可行, 失败约束: %s", result.FailedConstraint)
	}
	if !result.Schedule.Complete() {
		t.Errorf("可行解应完整, 完成度 %.1f", result.Completeness)
	}
	if result.Completeness != 100 {
		t.Errorf("完成度应为100, 实际 %.1f", result.Completeness)
	}
	if result.TimedOut {
		t.Error("小规模问题不应超时")
	}

	// 解通过整表评估
	vr := engine.ValidateAll(result.Schedule)
	if !vr.Valid {
		t.Errorf("解应满足所有硬约束: %+v", vr.Violations)
	}

	// 输入排班不被修改
	if s.AssignedCount() != 0 {
		t.Error("Solve不应修改输入排班")
	}
}

func TestCSPSolver_PreservesFixedCells(t *testing.T) {
	rules := model.DefaultRuleConfig()
	staff, s, engine := buildScenario(t, []string{"张三", "李四", "王五", "赵六"}, rules)

	fixed := model.Variable{StaffID: staff[0].ID, Date: "2026-03-04"}
	s.Fix(fixed, model.ShiftOff)

	cfg := DefaultConfig()
	cfg.Seed = 7
	solver := NewCSPSolver(engine, cfg, rules, staff)

	result, err := solver.Solve(context.Background(), s)
	if err != nil {
		t.Fatalf("Solve失败: %v", err)
	}
	if !result.Feasible {
		t.Fatal("带固定单元格的问题应可行")
	}
	if result.Schedule.Get(fixed) != model.ShiftOff {
		t.Errorf("固定单元格应保留, 实际 %q", result.Schedule.Get(fixed))
	}
}

func TestCSPSolver_CompleteInput(t *testing.T) {
	rules := model.DefaultRuleConfig()
	staff, s, engine := buildScenario(t, []string{"张三", "李四", "王五", "赵六"}, rules)

	// 预先填满：全员日班
	for _, st := range staff {
		for _, d := range s.Dates {
			s.Set(model.Variable{StaffID: st.ID, Date: d}, model.ShiftNormal)
		}
	}

	solver := NewCSPSolver(engine, DefaultConfig(), rules, staff)
	result, err := solver.Solve(context.Background(), s)
	if err != nil {
		t.Fatalf("Solve失败: %v", err)
	}
	if !result.Feasible {
		t.Error("完整输入应直接判定可行")
	}
	if result.Statistics.Backtracks != 0 || result.Statistics.Assignments != 0 {
		t.Errorf("完整输入不应产生搜索: backtracks=%d assignments=%d",
			result.Statistics.Backtracks, result.Statistics.Assignments)
	}
}

func TestCSPSolver_Infeasible(t *testing.T) {
	// 4人但要求每日至少5人在岗，不可能满足
	rules := model.DefaultRuleConfig()
	rules.MinWorkingPerDay = 5
	staff, s, engine := buildScenario(t, []string{"张三", "李四", "王五", "赵六"}, rules)

	cfg := DefaultConfig()
	cfg.Seed = 1
	solver := NewCSPSolver(engine, cfg, rules, staff)

	result, err := solver.Solve(context.Background(), s)
	if err != nil {
		t.Fatalf("Solve失败: %v", err)
	}
	if result.Feasible {
		t.Error("人数不足时问题应不可行")
	}
	if result.TimedOut {
		t.Error("穷尽搜索空间不应报告超时")
	}
}

func TestCSPSolver_Deterministic(t *testing.T) {
	rules := model.DefaultRuleConfig()

	solveOnce := func(seed int64) *model.Schedule {
		staff := []*model.Staff{
			{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Name: "张三"},
			{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Name: "李四"},
			{ID: uuid.MustParse("00000000-0000-0000-0000-000000000003"), Name: "王五"},
			{ID: uuid.MustParse("00000000-0000-0000-0000-000000000004"), Name: "赵六"},
		}
		dates, _ := model.BuildDates("2026-03-02", "2026-03-08")
		s := model.NewSchedule(staff, dates)
		cs, err := builtin.Build(staff, rules)
		if err != nil {
			t.Fatalf("构建约束失败: %v", err)
		}
		cfg := DefaultConfig()
		cfg.Seed = seed
		cfg.ValueOrdering = ValRandom
		result, err := NewCSPSolver(constraint.NewEngine(cs...), cfg, rules, staff).Solve(context.Background(), s)
		if err != nil {
			t.Fatalf("Solve失败: %v", err)
		}
		return result.Schedule
	}

	a := solveOnce(42)
	b := solveOnce(42)
	if a.Hamming(b) != 0 {
		t.Errorf("相同种子应产生相同的解, 汉明距离 %d", a.Hamming(b))
	}
}

func TestCSPSolver_Timeout(t *testing.T) {
	rules := model.DefaultRuleConfig()
	staff, s, engine := buildScenario(t, []string{"张三", "李四", "王五", "赵六"}, rules)

	cfg := DefaultConfig()
	cfg.Timeout = 1 * time.Nanosecond
	solver := NewCSPSolver(engine, cfg, rules, staff)

	result, err := solver.Solve(context.Background(), s)
	if err != nil {
		t.Fatalf("Solve失败: %v", err)
	}
	if result.Feasible {
		t.Error("立即超时不应找到完整解")
	}
	if !result.TimedOut {
		t.Error("应报告超时")
	}
	if result.Schedule == nil {
		t.Error("超时仍应返回部分排班")
	}
}

func TestCSPSolver_ContextCancel(t *testing.T) {
	rules := model.DefaultRuleConfig()
	staff, s, engine := buildScenario(t, []string{"张三", "李四", "王五", "赵六"}, rules)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	solver := NewCSPSolver(engine, DefaultConfig(), rules, staff)
	result, err := solver.Solve(ctx, s)
	if err != nil {
		t.Fatalf("Solve失败: %v", err)
	}
	if result.Feasible {
		t.Error("已取消的上下文不应找到完整解")
	}
	if !result.TimedOut {
		t.Error("取消应按超时处理")
	}
}
