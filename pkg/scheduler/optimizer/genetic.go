// Package optimizer 提供排班方案的元启发式优化算法
package optimizer

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/fitness"
)

// InitMix 种群初始化策略混合比例，应归一
type InitMix struct {
	Random  float64 `json:"random"`  // 均匀随机
	Biased  float64 `json:"biased"`  // 工作日/周末倾向
	Pattern float64 `json:"pattern"` // 循环模板
	Seeded  float64 `json:"seeded"`  // 来自种子排班
}

// DefaultInitMix 返回默认混合比例
func DefaultInitMix() InitMix {
	return InitMix{Random: 0.40, Biased: 0.30, Pattern: 0.20, Seeded: 0.10}
}

// GAConfig 遗传算法配置
type GAConfig struct {
	PopulationSize   int           `json:"population_size"`
	MaxGenerations   int           `json:"max_generations"`
	TournamentSize   int           `json:"tournament_size"`
	ElitismCount     int           `json:"elitism_count"`
	CrossoverRate    float64       `json:"crossover_rate"`
	BaseMutationRate float64       `json:"base_mutation_rate"`
	InitMix          InitMix       `json:"init_mix"`

	// 多样性保持
	SharingRadius      float64 `json:"sharing_radius"`      // 相似度超过该值计为近重复
	DiversityThreshold float64 `json:"diversity_threshold"` // 低于该值触发注入
	InjectionInterval  int     `json:"injection_interval"`  // 每 N 代周期性注入
	InjectionFraction  float64 `json:"injection_fraction"`  // 替换的最弱个体比例

	// 终止条件
	StagnationLimit  int           `json:"stagnation_limit"`
	FitnessThreshold float64       `json:"fitness_threshold"`
	Timeout          time.Duration `json:"timeout"`
	Seed             int64         `json:"seed"`
}

// DefaultGAConfig 返回默认遗传算法配置
func DefaultGAConfig() *GAConfig {
	return &GAConfig{
		PopulationSize:     50,
		MaxGenerations:     100,
		TournamentSize:     3,
		ElitismCount:       2,
		CrossoverRate:      0.85,
		BaseMutationRate:   0.03,
		InitMix:            DefaultInitMix(),
		SharingRadius:      0.88,
		DiversityThreshold: 0.15,
		InjectionInterval:  20,
		InjectionFraction:  0.15,
		StagnationLimit:    25,
		FitnessThreshold:   99.0,
		Timeout:            30 * time.Second,
	}
}

// GenerationStat 每代统计
type GenerationStat struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Avg        float64 `json:"avg"`
	Diversity  float64 `json:"diversity"`
}

// GAResult 遗传算法结果
type GAResult struct {
	Best        *Individual      `json:"-"`
	BestFitness float64          `json:"best_fitness"`
	Generations int              `json:"generations"`
	History     []GenerationStat `json:"history"`
	Stopped     string           `json:"stopped"` // generations/stagnation/threshold/timeout
}

// GeneticAlgorithm 遗传算法优化器
// 从种子排班出发进行种群化精炼，固定单元格始终不变
type GeneticAlgorithm struct {
	cfg       *GAConfig
	evaluator *fitness.Evaluator
	rng       *rand.Rand
	log       *logger.SolverLogger
}

// NewGeneticAlgorithm 创建遗传算法优化器
func NewGeneticAlgorithm(cfg *GAConfig, evaluator *fitness.Evaluator) *GeneticAlgorithm {
	if cfg == nil {
		cfg = DefaultGAConfig()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GeneticAlgorithm{
		cfg:       cfg,
		evaluator: evaluator,
		rng:       rand.New(rand.NewSource(seed)),
		log:       logger.NewSolverLogger("genetic"),
	}
}

// Evolve 从种子排班演化，返回最优个体与每代历史
// 对合法输入永不硬失败：总会返回某个完整排班
func (ga *GeneticAlgorithm) Evolve(ctx context.Context, seed *model.Schedule) (*GAResult, error) {
	start := time.Now()
	deadline := start.Add(ga.cfg.Timeout)

	pop := ga.initPopulation(seed)
	diversity := pop.Diversity(ga.rng)
	ga.evaluatePopulation(pop, diversity)
	ga.applySharing(pop)

	best := pop.Best().Clone()
	result := &GAResult{Stopped: "generations"}
	stagnation := 0

	for gen := 0; gen < ga.cfg.MaxGenerations; gen++ {
		// 每代检查一次取消与截止时间
		if ctx.Err() != nil || time.Now().After(deadline) {
			result.Stopped = "timeout"
			break
		}

		phase := float64(gen) / float64(ga.cfg.MaxGenerations)
		next := ga.nextGeneration(pop, diversity, best.Fitness, phase)

		diversity = next.Diversity(ga.rng)

		// 多样性注入：阈值触发或周期触发
		if diversity < ga.cfg.DiversityThreshold ||
			(ga.cfg.InjectionInterval > 0 && gen > 0 && gen%ga.cfg.InjectionInterval == 0) {
			ga.InjectDiversity(next, seed, diversity)
			diversity = next.Diversity(ga.rng)
		}

		ga.evaluatePopulation(next, diversity)
		ga.applySharing(next)
		pop = next

		genBest := pop.Best()
		if genBest.Fitness > best.Fitness+1e-9 {
			best = genBest.Clone()
			stagnation = 0
		} else {
			stagnation++
		}

		result.History = append(result.History, GenerationStat{
			Generation: gen,
			Best:       best.Fitness,
			Avg:        pop.AvgFitness(),
			Diversity:  diversity,
		})
		result.Generations = gen + 1
		ga.log.Progress("genetic", gen, best.Fitness)

		if best.Fitness >= ga.cfg.FitnessThreshold {
			result.Stopped = "threshold"
			break
		}
		if stagnation >= ga.cfg.StagnationLimit {
			result.Stopped = "stagnation"
			break
		}
	}

	result.Best = best
	result.BestFitness = best.Fitness
	ga.log.SolveComplete("genetic", time.Since(start), best.Fitness)
	return result, nil
}

// initPopulation 按混合策略初始化种群
func (ga *GeneticAlgorithm) initPopulation(seed *model.Schedule) Population {
	pop := make(Population, 0, ga.cfg.PopulationSize)
	mix := ga.cfg.InitMix

	for i := 0; i < ga.cfg.PopulationSize; i++ {
		r := ga.rng.Float64()
		var genome *model.Schedule
		switch {
		case r < mix.Random:
			genome = ga.randomGenome(seed)
		case r < mix.Random+mix.Biased:
			genome = ga.biasedGenome(seed)
		case r < mix.Random+mix.Biased+mix.Pattern:
			genome = ga.patternGenome(seed, i)
		default:
			genome = ga.seededGenome(seed)
		}
		pop = append(pop, &Individual{Genome: genome, Lineage: uuid.New()})
	}
	return pop
}

// randomGenome 均匀随机：非固定单元格等概率取域值
func (ga *GeneticAlgorithm) randomGenome(seed *model.Schedule) *model.Schedule {
	g := seed.Clone()
	domain := model.SearchDomain()
	for i := range g.Staff {
		for j := range g.Dates {
			g.SetAt(i, j, domain[ga.rng.Intn(len(domain))])
		}
	}
	return g
}

// biasedGenome 约束感知随机：按工作日/周末先验抽样
func (ga *GeneticAlgorithm) biasedGenome(seed *model.Schedule) *model.Schedule {
	g := seed.Clone()
	domain := model.SearchDomain()
	for i := range g.Staff {
		for j, date := range g.Dates {
			weekday := model.Weekday(date)
			total := 0.0
			for _, code := range domain {
				total += fitness.WeekdayBias(weekday, code)
			}
			r := ga.rng.Float64() * total
			acc := 0.0
			picked := domain[len(domain)-1]
			for _, code := range domain {
				acc += fitness.WeekdayBias(weekday, code)
				if r < acc {
					picked = code
					break
				}
			}
			g.SetAt(i, j, picked)
		}
	}
	return g
}

// cyclicPattern 循环模板：日日早日晚日休
var cyclicPattern = []model.ShiftCode{
	model.ShiftNormal, model.ShiftNormal, model.ShiftEarly,
	model.ShiftNormal, model.ShiftLate, model.ShiftNormal, model.ShiftOff,
}

// patternGenome 循环模板：每名员工错开起始相位
func (ga *GeneticAlgorithm) patternGenome(seed *model.Schedule, offset int) *model.Schedule {
	g := seed.Clone()
	for i := range g.Staff {
		phase := (i + offset) % len(cyclicPattern)
		for j := range g.Dates {
			g.SetAt(i, j, cyclicPattern[(phase+j)%len(cyclicPattern)])
		}
	}
	return g
}

// seededGenome 从种子排班出发，仅随机填充未分配单元格
func (ga *GeneticAlgorithm) seededGenome(seed *model.Schedule) *model.Schedule {
	g := seed.Clone()
	domain := model.SearchDomain()
	for i := range g.Staff {
		for j := range g.Dates {
			if !g.GetAt(i, j).IsAssigned() {
				g.SetAt(i, j, domain[ga.rng.Intn(len(domain))])
			}
		}
	}
	return g
}

// evaluatePopulation 评估种群内所有个体的原始适应度
func (ga *GeneticAlgorithm) evaluatePopulation(pop Population, diversity float64) {
	diversityScore := math.Min(diversity*100/0.5, 100) // 0.5 以上的多样性视为满分
	for _, ind := range pop {
		ind.Fitness = ga.evaluator.ScoreWithDiversity(ind.Genome, diversityScore)
		ind.Shared = ind.Fitness
	}
}

// applySharing 适应度共享/小生境
// 相似度超过半径的近重复个体按数量折减选择适应度
func (ga *GeneticAlgorithm) applySharing(pop Population) {
	cells := 0
	if len(pop) > 0 {
		cells = pop[0].Genome.CellCount()
	}
	if cells == 0 {
		return
	}

	for i, ind := range pop {
		nearDup := 0
		for j, other := range pop {
			if i == j {
				continue
			}
			similarity := 1 - float64(ind.Genome.Hamming(other.Genome))/float64(cells)
			if similarity > ga.cfg.SharingRadius {
				nearDup++
			}
		}
		if nearDup > 0 {
			ind.Shared = ind.Fitness / (1 + 0.2*float64(nearDup))
		}
	}
}

// nextGeneration 产生下一代：精英保留 + 锦标赛选择 + 交叉 + 变异
func (ga *GeneticAlgorithm) nextGeneration(pop Population, diversity, bestFitness, phase float64) Population {
	next := make(Population, 0, len(pop))

	// 精英直接进入下一代，不参与变异，年龄加一
	elites := ga.selectElites(pop)
	for _, e := range elites {
		clone := e.Clone()
		clone.Age++
		next = append(next, clone)
	}

	avg := pop.AvgFitness()
	for len(next) < len(pop) {
		p1 := ga.tournament(pop)
		p2 := ga.tournament(pop)

		var child *model.Schedule
		if ga.rng.Float64() < ga.cfg.CrossoverRate {
			child = ga.crossover(p1.Genome, p2.Genome, phase)
		} else {
			child = p1.Genome.Clone()
		}

		rate := ga.adaptiveRate(p1.Fitness, avg, bestFitness, diversity)
		ga.mutate(child, rate)

		next = append(next, &Individual{Genome: child, Lineage: p1.Lineage})
	}
	return next
}

// selectElites 选出原始适应度最高的 k 个个体
func (ga *GeneticAlgorithm) selectElites(pop Population) []*Individual {
	sorted := make([]*Individual, len(pop))
	copy(sorted, pop)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fitness > sorted[j].Fitness
	})
	k := ga.cfg.ElitismCount
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// tournament 锦标赛选择：均匀取 k 个个体中共享适应度最高者
func (ga *GeneticAlgorithm) tournament(pop Population) *Individual {
	best := pop[ga.rng.Intn(len(pop))]
	for i := 1; i < ga.cfg.TournamentSize; i++ {
		candidate := pop[ga.rng.Intn(len(pop))]
		if candidate.Shared > best.Shared {
			best = candidate
		}
	}
	return best
}
