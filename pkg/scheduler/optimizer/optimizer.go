// Package optimizer 提供排班方案的元启发式优化算法
package optimizer

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
)

// Individual 遗传算法个体
type Individual struct {
	Genome  *model.Schedule
	Fitness float64 // 原始适应度
	Shared  float64 // 小生境共享折减后的适应度（选择用）
	Age     int
	Lineage uuid.UUID
}

// Clone 深拷贝个体
func (ind *Individual) Clone() *Individual {
	return &Individual{
		Genome:  ind.Genome.Clone(),
		Fitness: ind.Fitness,
		Shared:  ind.Shared,
		Age:     ind.Age,
		Lineage: ind.Lineage,
	}
}

// Population 种群：定长有序个体列表
type Population []*Individual

// Best 返回原始适应度最高的个体
func (p Population) Best() *Individual {
	if len(p) == 0 {
		return nil
	}
	best := p[0]
	for _, ind := range p[1:] {
		if ind.Fitness > best.Fitness {
			best = ind
		}
	}
	return best
}

// AvgFitness 返回种群平均适应度
func (p Population) AvgFitness() float64 {
	if len(p) == 0 {
		return 0
	}
	sum := 0.0
	for _, ind := range p {
		sum += ind.Fitness
	}
	return sum / float64(len(p))
}

// Diversity 计算种群多样性 (0-1)
// 取成对汉明距离比例的均值与唯一染色体占比的加权和；
// 大种群按采样计算成对距离
func (p Population) Diversity(rng *rand.Rand) float64 {
	n := len(p)
	if n < 2 {
		return 0
	}
	cells := p[0].Genome.CellCount()
	if cells == 0 {
		return 0
	}

	// 成对距离：种群较大时采样 2n 对
	var sumRatio float64
	var pairs int
	if n <= 16 {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				sumRatio += float64(p[i].Genome.Hamming(p[j].Genome)) / float64(cells)
				pairs++
			}
		}
	} else {
		for k := 0; k < 2*n; k++ {
			i := rng.Intn(n)
			j := rng.Intn(n)
			if i == j {
				continue
			}
			sumRatio += float64(p[i].Genome.Hamming(p[j].Genome)) / float64(cells)
			pairs++
		}
	}
	meanHamming := 0.0
	if pairs > 0 {
		meanHamming = sumRatio / float64(pairs)
	}

	// 唯一染色体占比
	seen := make(map[uint64]bool, n)
	for _, ind := range p {
		seen[genomeHash(ind.Genome)] = true
	}
	uniqueRatio := float64(len(seen)) / float64(n)

	return meanHamming*0.7 + uniqueRatio*0.3
}

// genomeHash 计算染色体哈希（FNV-1a）
func genomeHash(s *model.Schedule) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := range s.Staff {
		for j := range s.Dates {
			for _, b := range []byte(s.GetAt(i, j)) {
				h ^= uint64(b)
				h *= prime64
			}
			h ^= 0xff
			h *= prime64
		}
	}
	return h
}

// randomCode 返回与 current 不同的随机域值
func randomCode(rng *rand.Rand, current model.ShiftCode) model.ShiftCode {
	domain := model.SearchDomain()
	for {
		code := domain[rng.Intn(len(domain))]
		if code != current {
			return code
		}
	}
}
