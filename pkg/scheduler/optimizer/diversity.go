// Package optimizer 提供排班方案的元启发式优化算法
package optimizer

import (
	"sort"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
)

// InjectDiversity 多样性注入
// 将最弱的一部分个体替换为全新的随机/偏向个体；
// 多样性极低时提高替换比例
func (ga *GeneticAlgorithm) InjectDiversity(pop Population, seed *model.Schedule, diversity float64) {
	fraction := ga.cfg.InjectionFraction
	if diversity < ga.cfg.DiversityThreshold/2 {
		fraction = fraction * 4 / 3
	}
	count := int(float64(len(pop)) * fraction)
	if count < 1 {
		count = 1
	}
	if count >= len(pop) {
		count = len(pop) - 1
	}

	// 按原始适应度升序，替换排名最弱者
	order := make([]int, len(pop))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pop[order[a]].Fitness < pop[order[b]].Fitness
	})

	for k := 0; k < count; k++ {
		idx := order[k]
		var genome *model.Schedule
		if ga.rng.Float64() < 0.5 {
			genome = ga.randomGenome(seed)
		} else {
			genome = ga.biasedGenome(seed)
		}
		pop[idx] = &Individual{
			Genome:  genome,
			Fitness: ga.evaluator.Score(genome),
			Lineage: uuid.New(),
		}
		pop[idx].Shared = pop[idx].Fitness
	}
}
