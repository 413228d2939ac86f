package optimizer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/roster/pkg/scheduler/fitness"
)

func buildSeed(t *testing.T) ([]*model.Staff, *model.Schedule, *fitness.Evaluator) {
	t.Helper()
	staff := []*model.Staff{
		{ID: uuid.New(), Name: "张三"},
		{ID: uuid.New(), Name: "李四"},
		{ID: uuid.New(), Name: "王五"},
		{ID: uuid.New(), Name: "赵六"},
	}
	dates, err := model.BuildDates("2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("BuildDates失败: %v", err)
	}
	s := model.NewSchedule(staff, dates)
	cs, err := builtin.Build(staff, model.DefaultRuleConfig())
	if err != nil {
		t.Fatalf("构建约束失败: %v", err)
	}
	evaluator := fitness.NewEvaluator(constraint.NewEngine(cs...), fitness.PopulationWeights())
	return staff, s, evaluator
}

func smallGAConfig(seed int64) *GAConfig {
	cfg := DefaultGAConfig()
	cfg.PopulationSize = 12
	cfg.MaxGenerations = 15
	cfg.StagnationLimit = 15
	cfg.Seed = seed
	return cfg
}

func TestGeneticAlgorithm_Evolve(t *testing.T) {
	_, seed, evaluator := buildSeed(t)

	ga := NewGeneticAlgorithm(smallGAConfig(42), evaluator)
	result, err := ga.Evolve(context.Background(), seed)
	if err != nil {
		t.Fatalf("Evolve失败: %v", err)
	}

	if result.Best == nil || result.Best.Genome == nil {
		t.Fatal("应返回最优个体")
	}
	if !result.Best.Genome.Complete() {
		t.Error("最优个体的染色体应完整")
	}
	if result.Generations < 1 {
		t.Error("至少应演化一代")
	}
	if result.BestFitness < 0 || result.BestFitness > 100 {
		t.Errorf("适应度应在[0,100]内, 实际 %.2f", result.BestFitness)
	}
	switch result.Stopped {
	case "generations", "stagnation", "threshold", "timeout":
	default:
		t.Errorf("未知的终止原因: %q", result.Stopped)
	}
}

func TestGeneticAlgorithm_BestMonotone(t *testing.T) {
	_, seed, evaluator := buildSeed(t)

	ga := NewGeneticAlgorithm(smallGAConfig(7), evaluator)
	result, err := ga.Evolve(context.Background(), seed)
	if err != nil {
		t.Fatalf("Evolve失败: %v", err)
	}

	// 精英保留下历史最优不应回退
	for i := 1; i < len(result.History); i++ {
		if result.History[i].Best < result.History[i-1].Best {
			t.Errorf("第%d代最优回退: %.4f < %.4f",
				i, result.History[i].Best, result.History[i-1].Best)
		}
	}
}

func TestGeneticAlgorithm_PreservesFixedCells(t *testing.T) {
	staff, seed, evaluator := buildSeed(t)
	fixed := model.Variable{StaffID: staff[1].ID, Date: "2026-03-05"}
	seed.Fix(fixed, model.ShiftOff)

	ga := NewGeneticAlgorithm(smallGAConfig(3), evaluator)
	result, err := ga.Evolve(context.Background(), seed)
	if err != nil {
		t.Fatalf("Evolve失败: %v", err)
	}
	if result.Best.Genome.Get(fixed) != model.ShiftOff {
		t.Errorf("固定单元格应保留, 实际 %q", result.Best.Genome.Get(fixed))
	}
}

func TestGeneticAlgorithm_Deterministic(t *testing.T) {
	run := func() *GAResult {
		_, seed, evaluator := buildSeed(t)
		ga := NewGeneticAlgorithm(smallGAConfig(99), evaluator)
		result, err := ga.Evolve(context.Background(), seed)
		if err != nil {
			t.Fatalf("Evolve失败: %v", err)
		}
		return result
	}

	a := run()
	b := run()
	if a.BestFitness != b.BestFitness {
		t.Errorf("相同种子应产生相同的最优适应度: %.4f != %.4f", a.BestFitness, b.BestFitness)
	}
	if a.Best.Genome.Hamming(b.Best.Genome) != 0 {
		t.Error("相同种子应产生相同的最优染色体")
	}
}

func TestGeneticAlgorithm_UniqueFeasible(t *testing.T) {
	staff := []*model.Staff{
		{ID: uuid.New(), Name: "张三"},
		{ID: uuid.New(), Name: "李四"},
		{ID: uuid.New(), Name: "王五"},
		{ID: uuid.New(), Name: "赵六"},
	}
	dates, err := model.BuildDates("2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("BuildDates失败: %v", err)
	}

	// 每人每个星期均有一条高优先级规则：只存在一个零违反的完整排班
	domain := model.SearchDomain()
	weekdays := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	var rules []model.PriorityRule
	for i, st := range staff {
		for _, wd := range weekdays {
			rules = append(rules, model.PriorityRule{
				StaffName: st.Name, DayOfWeek: wd,
				Preferred: domain[(i+int(wd))%len(domain)], Level: model.PriorityHigh,
			})
		}
	}
	idx, names, err := builtin.BuildPriorityRules(staff, rules)
	if err != nil {
		t.Fatalf("构建优先规则失败: %v", err)
	}
	engine := constraint.NewEngine(builtin.NewPriorityConstraint(idx, names))
	evaluator := fitness.NewEvaluator(engine, fitness.Weights{Compliance: 1.0})

	// 以求解阶段的产出同构的种子进化
	seed := model.NewSchedule(staff, dates)
	for i, st := range staff {
		for _, d := range dates {
			seed.Set(model.Variable{StaffID: st.ID, Date: d},
				domain[(i+int(model.Weekday(d)))%len(domain)])
		}
	}

	cfg := DefaultGAConfig()
	cfg.PopulationSize = 30
	cfg.MaxGenerations = 20
	cfg.InitMix = InitMix{Random: 0.25, Biased: 0.20, Pattern: 0.25, Seeded: 0.30}
	cfg.Seed = 7

	ga := NewGeneticAlgorithm(cfg, evaluator)
	result, err := ga.Evolve(context.Background(), seed)
	if err != nil {
		t.Fatalf("Evolve失败: %v", err)
	}

	if result.BestFitness < 99 {
		t.Errorf("唯一零违反排班应在20代内收敛到满分, 实际 %.2f", result.BestFitness)
	}
	if result.Generations > 20 {
		t.Errorf("收敛所用代数应不超过20, 实际 %d", result.Generations)
	}
	if result.Best.Genome.Hamming(seed) != 0 {
		t.Errorf("最优染色体应为唯一零违反排班, 汉明距离 %d", result.Best.Genome.Hamming(seed))
	}
}

func TestPopulation_Best(t *testing.T) {
	var empty Population
	if empty.Best() != nil {
		t.Error("空种群的最优个体应为nil")
	}

	pop := Population{
		{Fitness: 40},
		{Fitness: 80},
		{Fitness: 60},
	}
	if pop.Best().Fitness != 80 {
		t.Errorf("Best().Fitness = %.0f, expected 80", pop.Best().Fitness)
	}
	if pop.AvgFitness() != 60 {
		t.Errorf("AvgFitness() = %.0f, expected 60", pop.AvgFitness())
	}
}

func TestPopulation_Diversity(t *testing.T) {
	staff := []*model.Staff{{ID: uuid.New(), Name: "张三"}}
	dates, _ := model.BuildDates("2026-03-02", "2026-03-05")
	base := model.NewSchedule(staff, dates)
	for _, d := range dates {
		base.Set(model.Variable{StaffID: staff[0].ID, Date: d}, model.ShiftNormal)
	}

	rng := rand.New(rand.NewSource(1))

	// 全部相同的种群多样性最低
	same := Population{{Genome: base.Clone()}, {Genome: base.Clone()}}
	sameDiv := same.Diversity(rng)

	other := base.Clone()
	for _, d := range dates {
		other.Set(model.Variable{StaffID: staff[0].ID, Date: d}, model.ShiftOff)
	}
	diff := Population{{Genome: base.Clone()}, {Genome: other}}
	diffDiv := diff.Diversity(rng)

	if sameDiv >= diffDiv {
		t.Errorf("不同染色体的种群多样性应更高: %.3f >= %.3f", sameDiv, diffDiv)
	}
	if single := (Population{{Genome: base}}).Diversity(rng); single != 0 {
		t.Errorf("单个体种群多样性应为0, 实际 %.3f", single)
	}
}

func TestInjectDiversity(t *testing.T) {
	_, seed, evaluator := buildSeed(t)
	ga := NewGeneticAlgorithm(smallGAConfig(5), evaluator)

	// 全同克隆种群：多样性为零
	base := ga.randomGenome(seed)
	pop := make(Population, 8)
	for i := range pop {
		pop[i] = &Individual{Genome: base.Clone(), Fitness: 50, Shared: 50}
	}

	before := pop.Diversity(ga.rng)
	ga.InjectDiversity(pop, seed, before)
	after := pop.Diversity(ga.rng)

	if after <= before {
		t.Errorf("注入后多样性应提高: %.3f <= %.3f", after, before)
	}
}

func TestApplySharing(t *testing.T) {
	staff := []*model.Staff{{ID: uuid.New(), Name: "张三"}}
	dates, _ := model.BuildDates("2026-03-02", "2026-03-05")
	base := model.NewSchedule(staff, dates)
	for _, d := range dates {
		base.Set(model.Variable{StaffID: staff[0].ID, Date: d}, model.ShiftNormal)
	}

	other := base.Clone()
	for _, d := range dates {
		other.Set(model.Variable{StaffID: staff[0].ID, Date: d}, model.ShiftOff)
	}

	// 两个完全相同的个体互为近重复，第三个完全不同
	pop := Population{
		{Genome: base.Clone(), Fitness: 80, Shared: 80},
		{Genome: base.Clone(), Fitness: 80, Shared: 80},
		{Genome: other, Fitness: 80, Shared: 80},
	}

	ga := NewGeneticAlgorithm(smallGAConfig(1), nil)
	ga.applySharing(pop)

	if pop[0].Shared >= pop[0].Fitness {
		t.Errorf("近重复个体的共享适应度应折减: %.2f", pop[0].Shared)
	}
	if pop[2].Shared != pop[2].Fitness {
		t.Errorf("独特个体不应折减: %.2f", pop[2].Shared)
	}
}
