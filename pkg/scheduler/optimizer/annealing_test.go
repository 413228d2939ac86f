package optimizer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/fitness"
)

func smallSAConfig(seed int64) *SAConfig {
	cfg := DefaultSAConfig()
	cfg.MaxIterations = 500
	cfg.Seed = seed
	return cfg
}

func TestSimulatedAnnealing_Anneal(t *testing.T) {
	_, seed, evaluator := buildSeed(t)

	sa := NewSimulatedAnnealing(smallSAConfig(42), evaluator)
	result, err := sa.Anneal(context.Background(), seed)
	if err != nil {
		t.Fatalf("Anneal失败: %v", err)
	}

	if result.Best == nil {
		t.Fatal("应返回最优排班")
	}
	if !result.Best.Complete() {
		t.Error("最优排班应完整（未分配单元格已随机补齐）")
	}
	if result.Iterations < 1 {
		t.Error("至少应迭代一次")
	}
	if result.AcceptanceRate < 0 || result.AcceptanceRate > 1 {
		t.Errorf("接受率应在[0,1]内, 实际 %.3f", result.AcceptanceRate)
	}
	switch result.Stopped {
	case "temp_floor", "iterations", "threshold", "timeout":
	default:
		t.Errorf("未知的终止原因: %q", result.Stopped)
	}
}

func TestSimulatedAnnealing_NeverWorseThanSeed(t *testing.T) {
	_, seed, evaluator := buildSeed(t)
	for _, st := range seed.Staff {
		for _, d := range seed.Dates {
			seed.Set(model.Variable{StaffID: st.ID, Date: d}, model.ShiftNormal)
		}
	}
	initial := evaluator.Score(seed)

	sa := NewSimulatedAnnealing(smallSAConfig(7), evaluator)
	result, err := sa.Anneal(context.Background(), seed)
	if err != nil {
		t.Fatalf("Anneal失败: %v", err)
	}
	if result.BestFitness < initial {
		t.Errorf("最优适应度不应低于种子: %.2f < %.2f", result.BestFitness, initial)
	}
}

func TestSimulatedAnnealing_PreservesFixedCells(t *testing.T) {
	staff, seed, evaluator := buildSeed(t)
	fixed := model.Variable{StaffID: staff[2].ID, Date: "2026-03-06"}
	seed.Fix(fixed, model.ShiftEarly)

	sa := NewSimulatedAnnealing(smallSAConfig(3), evaluator)
	result, err := sa.Anneal(context.Background(), seed)
	if err != nil {
		t.Fatalf("Anneal失败: %v", err)
	}
	if result.Best.Get(fixed) != model.ShiftEarly {
		t.Errorf("固定单元格应保留, 实际 %q", result.Best.Get(fixed))
	}
}

func TestSimulatedAnnealing_Deterministic(t *testing.T) {
	run := func() *SAResult {
		_, seed, evaluator := buildSeed(t)
		sa := NewSimulatedAnnealing(smallSAConfig(99), evaluator)
		result, err := sa.Anneal(context.Background(), seed)
		if err != nil {
			t.Fatalf("Anneal失败: %v", err)
		}
		return result
	}

	a := run()
	b := run()
	if a.BestFitness != b.BestFitness {
		t.Errorf("相同种子应产生相同的最优适应度: %.4f != %.4f", a.BestFitness, b.BestFitness)
	}
	if a.Best.Hamming(b.Best) != 0 {
		t.Error("相同种子应产生相同的最优排班")
	}
}

func TestSimulatedAnnealing_ReheatOnPlateau(t *testing.T) {
	// 空约束引擎 + 仅符合度权重：适应度恒为100，永无改进
	staff := []*model.Staff{
		{ID: uuid.New(), Name: "张三"},
		{ID: uuid.New(), Name: "李四"},
	}
	dates, _ := model.BuildDates("2026-03-02", "2026-03-08")
	seed := model.NewSchedule(staff, dates)

	evaluator := fitness.NewEvaluator(constraint.NewEngine(), fitness.Weights{Compliance: 1.0})

	cfg := DefaultSAConfig()
	cfg.MaxIterations = 100
	cfg.ReheatAfter = 10
	cfg.FitnessThreshold = 101 // 永不达标，强制走完全部迭代
	cfg.AdaptiveWindow = 1000
	cfg.Seed = 1

	sa := NewSimulatedAnnealing(cfg, evaluator)
	result, err := sa.Anneal(context.Background(), seed)
	if err != nil {
		t.Fatalf("Anneal失败: %v", err)
	}

	// 每10次无改进触发一次重加热
	if result.Reheats != 10 {
		t.Errorf("Reheats = %d, expected 10", result.Reheats)
	}
	if result.Stopped != "iterations" {
		t.Errorf("应走完全部迭代, 实际终止原因 %q", result.Stopped)
	}
}

func TestSimulatedAnnealing_Accept(t *testing.T) {
	sa := NewSimulatedAnnealing(smallSAConfig(1), nil)

	if !sa.accept(5.0, 1.0) {
		t.Error("改进解应始终接受")
	}
	if sa.accept(-100, 0.001) {
		t.Error("低温下大幅劣化几乎不应接受")
	}
	if sa.accept(-1, 0) {
		t.Error("零温度下劣解不应接受")
	}
}
