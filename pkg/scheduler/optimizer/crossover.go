// Package optimizer 提供排班方案的元启发式优化算法
package optimizer

import (
	"sort"

	"github.com/paiban/roster/pkg/model"
)

// crossoverOp 交叉算子
type crossoverOp int

const (
	opStaffRow crossoverOp = iota // 整行员工交换
	opMultiPoint                  // 日期轴多点交叉
	opUniform                     // 逐格均匀交叉
	opSinglePoint                 // 平铺单点交叉
	opTwoPoint                    // 平铺两点交叉
)

// crossover 按运行阶段加权选择算子并执行交叉
// 前期偏向粗粒度算子（整行/多点），后期偏向细粒度算子（均匀/单双点）
func (ga *GeneticAlgorithm) crossover(p1, p2 *model.Schedule, phase float64) *model.Schedule {
	weights := map[crossoverOp]float64{
		opStaffRow:    0.35 * (1 - phase) + 0.10*phase,
		opMultiPoint:  0.35 * (1 - phase) + 0.15*phase,
		opUniform:     0.10 * (1 - phase) + 0.40*phase,
		opSinglePoint: 0.10 * (1 - phase) + 0.15*phase,
		opTwoPoint:    0.10 * (1 - phase) + 0.20*phase,
	}

	r := ga.rng.Float64() * (weights[opStaffRow] + weights[opMultiPoint] +
		weights[opUniform] + weights[opSinglePoint] + weights[opTwoPoint])
	acc := 0.0
	op := opUniform
	for _, candidate := range []crossoverOp{opStaffRow, opMultiPoint, opUniform, opSinglePoint, opTwoPoint} {
		acc += weights[candidate]
		if r < acc {
			op = candidate
			break
		}
	}

	switch op {
	case opStaffRow:
		return ga.staffRowCrossover(p1, p2)
	case opMultiPoint:
		return ga.multiPointCrossover(p1, p2)
	case opSinglePoint:
		return ga.pointCrossover(p1, p2, 1)
	case opTwoPoint:
		return ga.pointCrossover(p1, p2, 2)
	default:
		return ga.uniformCrossover(p1, p2)
	}
}

// staffRowCrossover 整行员工交换：子代每行随机取自父代之一
func (ga *GeneticAlgorithm) staffRowCrossover(p1, p2 *model.Schedule) *model.Schedule {
	child := p1.Clone()
	for i := range child.Staff {
		if ga.rng.Float64() < 0.5 {
			continue
		}
		for j := range child.Dates {
			child.SetAt(i, j, p2.GetAt(i, j))
		}
	}
	return child
}

// multiPointCrossover 日期轴多点交叉：2-3 个随机切点，分段交替取自父代
func (ga *GeneticAlgorithm) multiPointCrossover(p1, p2 *model.Schedule) *model.Schedule {
	child := p1.Clone()
	dates := len(child.Dates)
	if dates < 2 {
		return child
	}

	cutCount := 2 + ga.rng.Intn(2)
	if cutCount >= dates {
		cutCount = dates - 1
	}
	cuts := make([]int, 0, cutCount)
	for len(cuts) < cutCount {
		c := 1 + ga.rng.Intn(dates-1)
		dup := false
		for _, x := range cuts {
			if x == c {
				dup = true
				break
			}
		}
		if !dup {
			cuts = append(cuts, c)
		}
	}
	sort.Ints(cuts)

	useP2 := false
	cutIdx := 0
	for j := 0; j < dates; j++ {
		for cutIdx < len(cuts) && j == cuts[cutIdx] {
			useP2 = !useP2
			cutIdx++
		}
		if !useP2 {
			continue
		}
		for i := range child.Staff {
			child.SetAt(i, j, p2.GetAt(i, j))
		}
	}
	return child
}

// uniformCrossover 逐格均匀交叉
func (ga *GeneticAlgorithm) uniformCrossover(p1, p2 *model.Schedule) *model.Schedule {
	child := p1.Clone()
	for i := range child.Staff {
		for j := range child.Dates {
			if ga.rng.Float64() < 0.5 {
				child.SetAt(i, j, p2.GetAt(i, j))
			}
		}
	}
	return child
}

// pointCrossover 平铺网格上的单点/两点交叉
func (ga *GeneticAlgorithm) pointCrossover(p1, p2 *model.Schedule, points int) *model.Schedule {
	child := p1.Clone()
	total := child.CellCount()
	if total < 2 {
		return child
	}

	a := ga.rng.Intn(total)
	b := total
	if points == 2 {
		b = ga.rng.Intn(total)
		if b < a {
			a, b = b, a
		}
	}

	dates := len(child.Dates)
	for idx := a; idx < b; idx++ {
		i := idx / dates
		j := idx % dates
		child.SetAt(i, j, p2.GetAt(i, j))
	}
	return child
}
