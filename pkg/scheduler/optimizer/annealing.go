// Package optimizer 提供排班方案的元启发式优化算法
package optimizer

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/fitness"
)

// SAConfig 模拟退火配置
type SAConfig struct {
	InitialTemp   float64       `json:"initial_temp"`
	CoolingRate   float64       `json:"cooling_rate"` // 乘性衰减系数
	MinTemp       float64       `json:"min_temp"`
	MaxIterations int           `json:"max_iterations"`

	// 自适应冷却：按观测接受率调节衰减速度
	AdaptiveWindow int `json:"adaptive_window"`

	// 重加热：连续无改进达到该次数时重置温度
	ReheatAfter  int     `json:"reheat_after"`
	ReheatFactor float64 `json:"reheat_factor"` // 初始温度的比例

	FitnessThreshold float64       `json:"fitness_threshold"`
	Timeout          time.Duration `json:"timeout"`
	Seed             int64         `json:"seed"`
}

// DefaultSAConfig 返回默认模拟退火配置
func DefaultSAConfig() *SAConfig {
	return &SAConfig{
		InitialTemp:      10.0,
		CoolingRate:      0.995,
		MinTemp:          0.01,
		MaxIterations:    5000,
		AdaptiveWindow:   50,
		ReheatAfter:      300,
		ReheatFactor:     0.3,
		FitnessThreshold: 99.0,
		Timeout:          30 * time.Second,
	}
}

// SAResult 模拟退火结果
type SAResult struct {
	Best           *model.Schedule `json:"-"`
	BestFitness    float64         `json:"best_fitness"`
	Iterations     int             `json:"iterations"`
	AcceptanceRate float64         `json:"acceptance_rate"`
	Reheats        int             `json:"reheats"`
	FinalTemp      float64         `json:"final_temp"`
	Stopped        string          `json:"stopped"` // temp_floor/iterations/threshold/timeout
}

// SimulatedAnnealing 模拟退火优化器
// 单解精炼：Metropolis 准则接受劣解，自适应冷却加重加热逃逸
type SimulatedAnnealing struct {
	cfg       *SAConfig
	evaluator *fitness.Evaluator
	rng       *rand.Rand
	log       *logger.SolverLogger
}

// NewSimulatedAnnealing 创建模拟退火优化器
func NewSimulatedAnnealing(cfg *SAConfig, evaluator *fitness.Evaluator) *SimulatedAnnealing {
	if cfg == nil {
		cfg = DefaultSAConfig()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedAnnealing{
		cfg:       cfg,
		evaluator: evaluator,
		rng:       rand.New(rand.NewSource(seed)),
		log:       logger.NewSolverLogger("annealing"),
	}
}

// annealingState 退火状态
type annealingState struct {
	current        *model.Schedule
	currentFitness float64
	best           *model.Schedule
	bestFitness    float64
	temperature    float64
}

// Anneal 从种子排班出发执行模拟退火
// 对合法输入永不硬失败：总会返回某个完整排班
func (sa *SimulatedAnnealing) Anneal(ctx context.Context, seed *model.Schedule) (*SAResult, error) {
	start := time.Now()
	deadline := start.Add(sa.cfg.Timeout)

	// 种子中未分配的单元格先随机补齐
	current := seed.Clone()
	for i := range current.Staff {
		for j := range current.Dates {
			if !current.GetAt(i, j).IsAssigned() {
				current.SetAt(i, j, model.SearchDomain()[sa.rng.Intn(4)])
			}
		}
	}

	st := &annealingState{
		current:        current,
		currentFitness: sa.evaluator.Score(current),
		best:           current.Clone(),
		temperature:    sa.cfg.InitialTemp,
	}
	st.bestFitness = st.currentFitness

	result := &SAResult{Stopped: "iterations"}
	accepted := 0
	windowAccepted := 0
	windowTotal := 0
	sinceImprove := 0
	totalIters := 0

	for iter := 0; iter < sa.cfg.MaxIterations; iter++ {
		// 每次迭代检查一次取消与截止时间
		if ctx.Err() != nil || time.Now().After(deadline) {
			result.Stopped = "timeout"
			break
		}
		if st.temperature < sa.cfg.MinTemp {
			result.Stopped = "temp_floor"
			break
		}

		totalIters = iter + 1
		neighbor := sa.neighbor(st.current)
		neighborFitness := sa.evaluator.Score(neighbor)
		delta := neighborFitness - st.currentFitness

		windowTotal++
		if sa.accept(delta, st.temperature) {
			st.current = neighbor
			st.currentFitness = neighborFitness
			accepted++
			windowAccepted++
		}

		if st.currentFitness > st.bestFitness+1e-9 {
			st.best = st.current.Clone()
			st.bestFitness = st.currentFitness
			sinceImprove = 0
		} else {
			sinceImprove++
		}

		// 停滞重加热
		if sa.cfg.ReheatAfter > 0 && sinceImprove >= sa.cfg.ReheatAfter {
			st.temperature = sa.cfg.InitialTemp * sa.cfg.ReheatFactor
			result.Reheats++
			sinceImprove = 0
			sa.log.Progress("annealing-reheat", iter, st.bestFitness)
		}

		// 自适应冷却：窗口期按接受率调节衰减速度
		cooling := sa.cfg.CoolingRate
		if windowTotal >= sa.cfg.AdaptiveWindow {
			rate := float64(windowAccepted) / float64(windowTotal)
			if rate > 0.8 || sinceImprove > sa.cfg.AdaptiveWindow {
				cooling = cooling + (1-cooling)*0.5 // 放缓降温
			} else if rate < 0.1 {
				cooling = cooling * 0.995 // 加快降温
			}
			windowAccepted = 0
			windowTotal = 0
		}
		st.temperature *= cooling

		if st.bestFitness >= sa.cfg.FitnessThreshold {
			result.Stopped = "threshold"
			break
		}
	}

	result.Best = st.best
	result.BestFitness = st.bestFitness
	result.Iterations = totalIters
	result.FinalTemp = st.temperature
	if totalIters > 0 {
		result.AcceptanceRate = float64(accepted) / float64(totalIters)
	}

	sa.log.SolveComplete("annealing", time.Since(start), st.bestFitness)
	return result, nil
}

// neighbor 生成邻域解：扰动约 sqrt(员工数×天数) 个随机非固定单元格
func (sa *SimulatedAnnealing) neighbor(current *model.Schedule) *model.Schedule {
	n := current.Clone()
	staff := len(n.Staff)
	dates := len(n.Dates)
	if staff == 0 || dates == 0 {
		return n
	}

	count := int(math.Round(math.Sqrt(float64(staff * dates))))
	if count < 1 {
		count = 1
	}

	for k := 0; k < count; k++ {
		// 固定单元格跳过，最多重试若干次
		for attempt := 0; attempt < 8; attempt++ {
			i := sa.rng.Intn(staff)
			j := sa.rng.Intn(dates)
			if n.FixedAt(i, j) {
				continue
			}
			n.SetAt(i, j, randomCode(sa.rng, n.GetAt(i, j)))
			break
		}
	}
	return n
}

// accept Metropolis 接受准则
func (sa *SimulatedAnnealing) accept(delta, temperature float64) bool {
	if delta > 0 {
		return true
	}
	if temperature <= 0 {
		return false
	}
	return sa.rng.Float64() < math.Exp(delta/temperature)
}
