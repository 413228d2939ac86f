// Package optimizer 提供排班方案的元启发式优化算法
package optimizer

import (
	"github.com/paiban/roster/pkg/model"
)

// adaptiveRate 计算自适应变异率
// 多样性不足或个体低于种群均值时加强，接近最优时收敛为微调
func (ga *GeneticAlgorithm) adaptiveRate(individual, avg, best, diversity float64) float64 {
	rate := ga.cfg.BaseMutationRate
	if diversity < ga.cfg.DiversityThreshold {
		rate *= 2.0
	}
	if individual < avg {
		rate *= 1.5
	}
	if best >= 95 {
		rate *= 0.5
	}
	if rate > 0.5 {
		rate = 0.5
	}
	return rate
}

// mutate 对染色体执行变异
// 基础为逐格重赋值，叠加偏向工作量均衡的智能变异；固定单元格不变
func (ga *GeneticAlgorithm) mutate(g *model.Schedule, rate float64) {
	for i := range g.Staff {
		for j := range g.Dates {
			if g.FixedAt(i, j) {
				continue
			}
			if ga.rng.Float64() >= rate {
				continue
			}
			if ga.rng.Float64() < 0.5 {
				ga.smartMutateCell(g, i, j)
			} else {
				g.SetAt(i, j, randomCode(ga.rng, g.GetAt(i, j)))
			}
		}
	}
}

// smartMutateCell 智能变异：按该员工的工作量失衡方向选择替换值
// 工作过量推向休息，工作不足推离休息
func (ga *GeneticAlgorithm) smartMutateCell(g *model.Schedule, si, dj int) {
	avg := 0.0
	for i := range g.Staff {
		avg += float64(g.CountStaff(i).Working)
	}
	avg /= float64(len(g.Staff))

	current := g.GetAt(si, dj)
	working := float64(g.CountStaff(si).Working)

	switch {
	case working > avg+0.5 && current.IsWorking():
		g.SetAt(si, dj, model.ShiftOff)
	case working < avg-0.5 && current == model.ShiftOff:
		workCodes := []model.ShiftCode{model.ShiftNormal, model.ShiftEarly, model.ShiftLate}
		g.SetAt(si, dj, workCodes[ga.rng.Intn(len(workCodes))])
	default:
		g.SetAt(si, dj, randomCode(ga.rng, current))
	}
}
