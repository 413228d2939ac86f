// Package fitness 提供排班方案的复合适应度评估
package fitness

import (
	"fmt"
	"math"
	"time"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/stats"
)

// 班次占比目标：日班为主，早/晚/休受控
const (
	targetNormalRatio = 0.60
	targetEarlyRatio  = 0.125
	targetLateRatio   = 0.125
	targetOffRatio    = 0.15
)

// Weights 适应度各分项权重，单一模式下必须归一
type Weights struct {
	Compliance   float64 `json:"compliance"`   // 约束符合度
	Balance      float64 `json:"balance"`      // 工作量均衡
	Distribution float64 `json:"distribution"` // 班次分布
	Fairness     float64 `json:"fairness"`     // 公平性（GA/SA 模式）
	Diversity    float64 `json:"diversity"`    // 多样性（种群模式）
}

// SingleWeights 单解报告模式的默认权重
func SingleWeights() Weights {
	return Weights{Compliance: 0.70, Balance: 0.20, Distribution: 0.10}
}

// AnnealingWeights 模拟退火模式的默认权重
func AnnealingWeights() Weights {
	return Weights{Compliance: 0.60, Balance: 0.15, Distribution: 0.10, Fairness: 0.15}
}

// PopulationWeights 遗传算法种群模式的默认权重
func PopulationWeights() Weights {
	return Weights{Compliance: 0.50, Balance: 0.15, Distribution: 0.10, Fairness: 0.15, Diversity: 0.10}
}

// Validate 检查权重是否归一
func (w Weights) Validate() error {
	sum := w.Compliance + w.Balance + w.Distribution + w.Fairness + w.Diversity
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("适应度权重之和应为 1.0，实际为 %.3f", sum)
	}
	return nil
}

// Breakdown 适应度分项明细（各分项均为 0-100）
type Breakdown struct {
	Compliance   float64 `json:"compliance"`
	Balance      float64 `json:"balance"`
	Distribution float64 `json:"distribution"`
	Fairness     float64 `json:"fairness"`
	Diversity    float64 `json:"diversity"`
	Total        float64 `json:"total"`
}

// Evaluator 适应度评估器
// 纯函数式评估，不修改排班表；低优先级班次规则在此作为加分项
type Evaluator struct {
	engine     *constraint.Engine
	weights    Weights
	softRules  []model.PriorityRule
	staffNames map[string]string // 员工姓名 → ID 字符串
}

// NewEvaluator 创建适应度评估器
func NewEvaluator(engine *constraint.Engine, weights Weights) *Evaluator {
	return &Evaluator{
		engine:  engine,
		weights: weights,
	}
}

// WithSoftRules 注入低优先级班次规则作为软性加分项
func (e *Evaluator) WithSoftRules(rules []model.PriorityRule) *Evaluator {
	for _, r := range rules {
		if !r.IsHard() {
			e.softRules = append(e.softRules, r)
		}
	}
	return e
}

// Weights 返回当前权重
func (e *Evaluator) Weights() Weights {
	return e.weights
}

// Score 评估排班表，返回 [0,100] 的适应度
// 多样性分项按 0 处理（非种群上下文）
func (e *Evaluator) Score(s *model.Schedule) float64 {
	return e.ScoreWithDiversity(s, 0)
}

// ScoreWithDiversity 评估排班表，外部传入种群多样性分 (0-100)
func (e *Evaluator) ScoreWithDiversity(s *model.Schedule, diversity float64) float64 {
	return e.BreakdownWithDiversity(s, diversity).Total
}

// Breakdown 返回适应度分项明细
func (e *Evaluator) Breakdown(s *model.Schedule) *Breakdown {
	return e.BreakdownWithDiversity(s, 0)
}

// BreakdownWithDiversity 返回含多样性分项的适应度明细
func (e *Evaluator) BreakdownWithDiversity(s *model.Schedule, diversity float64) *Breakdown {
	b := &Breakdown{
		Compliance:   e.complianceScore(s),
		Balance:      e.balanceScore(s),
		Distribution: e.distributionScore(s),
		Fairness:     e.fairnessScore(s),
		Diversity:    diversity,
	}
	b.Total = b.Compliance*e.weights.Compliance +
		b.Balance*e.weights.Balance +
		b.Distribution*e.weights.Distribution +
		b.Fairness*e.weights.Fairness +
		b.Diversity*e.weights.Diversity
	if b.Total > 100 {
		b.Total = 100
	}
	if b.Total < 0 {
		b.Total = 0
	}
	return b
}

// complianceScore 约束符合度：按严重级别加权的罚分取反比
// 罚分按格子数归一，违反越少得分严格越高，重违反区间不饱和
func (e *Evaluator) complianceScore(s *model.Schedule) float64 {
	result := e.engine.ValidateAll(s)
	penalty := result.PenaltySum()
	if cells := s.CellCount(); cells > 0 {
		penalty /= float64(cells)
	}
	score := 100 / (1 + 10*penalty)
	score += e.softRuleBonus(s)
	if score > 100 {
		score = 100
	}
	return score
}

// softRuleBonus 低优先级规则满足时的加分
func (e *Evaluator) softRuleBonus(s *model.Schedule) float64 {
	if len(e.softRules) == 0 {
		return 0
	}

	matched := 0
	applicable := 0
	for _, r := range e.softRules {
		idx := s.StaffByName(r.StaffName)
		if idx < 0 {
			continue
		}
		staffID := s.Staff[idx].ID
		for _, date := range s.Dates {
			if model.Weekday(date) != r.DayOfWeek {
				continue
			}
			applicable++
			if s.Get(model.Variable{StaffID: staffID, Date: date}) == r.Preferred {
				matched++
			}
		}
	}
	if applicable == 0 {
		return 0
	}
	// 最多 5 分的加分空间，按满足比例给分
	return 5 * float64(matched) / float64(applicable)
}

// balanceScore 工作量均衡：每人工作天数标准差的反比
func (e *Evaluator) balanceScore(s *model.Schedule) float64 {
	working := make([]float64, len(s.Staff))
	for i := range s.Staff {
		working[i] = float64(s.CountStaff(i).Working)
	}
	stdDev := stats.StdDev(working)
	return 100 / (1 + stdDev)
}

// distributionScore 班次类型分布与目标占比的接近程度
func (e *Evaluator) distributionScore(s *model.Schedule) float64 {
	total := 0
	counts := map[model.ShiftCode]int{}
	for i := range s.Staff {
		for j := range s.Dates {
			code := s.GetAt(i, j)
			if !code.IsAssigned() {
				continue
			}
			counts[code]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	ratio := func(code model.ShiftCode) float64 {
		return float64(counts[code]) / float64(total)
	}

	// 总偏差最大为 2（分布完全错位）
	deviation := math.Abs(ratio(model.ShiftNormal)-targetNormalRatio) +
		math.Abs(ratio(model.ShiftEarly)-targetEarlyRatio) +
		math.Abs(ratio(model.ShiftLate)-targetLateRatio) +
		math.Abs(ratio(model.ShiftOff)-targetOffRatio)
	score := 100 * (1 - deviation/2)
	if score < 0 {
		score = 0
	}
	return score
}

// fairnessScore 公平性：工作量/休息/早晚班分配的方差子项
func (e *Evaluator) fairnessScore(s *model.Schedule) float64 {
	n := len(s.Staff)
	if n == 0 {
		return 100
	}

	working := make([]float64, n)
	off := make([]float64, n)
	earlyLate := make([]float64, n)
	for i := range s.Staff {
		count := s.CountStaff(i)
		working[i] = float64(count.Working)
		off[i] = float64(count.Off)
		earlyLate[i] = float64(count.Early + count.Late)
	}

	workScore := 100 / (1 + stats.Variance(working))
	offScore := 100 / (1 + stats.Variance(off))
	elScore := 100 / (1 + stats.Variance(earlyLate))
	return workScore*0.5 + offScore*0.25 + elScore*0.25
}

// WeekdayBias 返回某星期某班次的先验倾向，用于启发式取值排序
// 周末休息概率高，工作日以日班为主
func WeekdayBias(weekday time.Weekday, code model.ShiftCode) float64 {
	weekend := weekday == time.Saturday || weekday == time.Sunday
	switch code {
	case model.ShiftNormal:
		if weekend {
			return 0.35
		}
		return 0.60
	case model.ShiftOff:
		if weekend {
			return 0.35
		}
		return 0.10
	case model.ShiftEarly, model.ShiftLate:
		return 0.15
	default:
		return 0.05
	}
}
