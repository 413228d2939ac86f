// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/paiban/roster/pkg/model"
)

// StaffStat 员工统计
type StaffStat struct {
	StaffID     string  `json:"staff_id"`
	StaffName   string  `json:"staff_name"`
	WorkingDays int     `json:"working_days"`
	OffDays     int     `json:"off_days"`
	EarlyDays   int     `json:"early_days"`
	LateDays    int     `json:"late_days"`
	Deviation   float64 `json:"deviation"` // 与平均工作天数的偏差百分比
}

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	WorkloadGini     float64 `json:"workload_gini"`     // 工作天数基尼系数 (0=完全公平)
	WorkloadVariance float64 `json:"workload_variance"` // 工作天数方差
	WorkloadStdDev   float64 `json:"workload_std_dev"`  // 工作天数标准差
	AvgWorkingDays   float64 `json:"avg_working_days"`  // 人均工作天数
	MaxWorkingDays   int     `json:"max_working_days"`
	MinWorkingDays   int     `json:"min_working_days"`

	OffDayVariance    float64 `json:"off_day_variance"`    // 休息天数方差
	EarlyLateVariance float64 `json:"early_late_variance"` // 早晚班分配方差

	ShiftDistribution map[string]float64 `json:"shift_distribution"` // 各班次占比

	StaffStats []StaffStat `json:"staff_stats"`

	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析排班表公平性
func (f *FairnessAnalyzer) Analyze(s *model.Schedule) *FairnessMetrics {
	if s == nil || len(s.Staff) == 0 {
		return &FairnessMetrics{
			ShiftDistribution:    make(map[string]float64),
			OverallFairnessScore: 100,
		}
	}

	n := len(s.Staff)
	working := make([]float64, n)
	offDays := make([]float64, n)
	earlyLate := make([]float64, n)
	staffStats := make([]StaffStat, n)

	for i, st := range s.Staff {
		count := s.CountStaff(i)
		working[i] = float64(count.Working)
		offDays[i] = float64(count.Off)
		earlyLate[i] = float64(count.Early + count.Late)
		staffStats[i] = StaffStat{
			StaffID:     st.ID.String(),
			StaffName:   st.Name,
			WorkingDays: count.Working,
			OffDays:     count.Off,
			EarlyDays:   count.Early,
			LateDays:    count.Late,
		}
	}

	avg := Mean(working)
	variance := Variance(working)
	stdDev := math.Sqrt(variance)

	maxDays, minDays := 0, int(^uint(0)>>1)
	for i := range staffStats {
		if avg > 0 {
			staffStats[i].Deviation = (float64(staffStats[i].WorkingDays) - avg) / avg * 100
		}
		if staffStats[i].WorkingDays > maxDays {
			maxDays = staffStats[i].WorkingDays
		}
		if staffStats[i].WorkingDays < minDays {
			minDays = staffStats[i].WorkingDays
		}
	}

	gini := Gini(working)
	offVar := Variance(offDays)
	elVar := Variance(earlyLate)

	// 按工作天数降序排列
	sort.Slice(staffStats, func(i, j int) bool {
		return staffStats[i].WorkingDays > staffStats[j].WorkingDays
	})

	return &FairnessMetrics{
		WorkloadGini:         gini,
		WorkloadVariance:     variance,
		WorkloadStdDev:       stdDev,
		AvgWorkingDays:       avg,
		MaxWorkingDays:       maxDays,
		MinWorkingDays:       minDays,
		OffDayVariance:       offVar,
		EarlyLateVariance:    elVar,
		ShiftDistribution:    shiftDistribution(s),
		StaffStats:           staffStats,
		OverallFairnessScore: overallScore(gini, variance, offVar, elVar),
	}
}

// shiftDistribution 统计各班次在已分配单元格中的占比
func shiftDistribution(s *model.Schedule) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for i := range s.Staff {
		for j := range s.Dates {
			code := s.GetAt(i, j)
			if !code.IsAssigned() {
				continue
			}
			counts[string(code)]++
			total++
		}
	}

	dist := make(map[string]float64, len(counts))
	if total == 0 {
		return dist
	}
	for code, c := range counts {
		dist[code] = float64(c) / float64(total)
	}
	return dist
}

// overallScore 计算综合公平性评分
// 三个方差子项与基尼系数各自归一后加权平均
func overallScore(gini, workVar, offVar, elVar float64) float64 {
	giniScore := (1 - math.Min(gini, 1)) * 100
	workScore := 100 / (1 + workVar)
	offScore := 100 / (1 + offVar)
	elScore := 100 / (1 + elVar)

	score := giniScore*0.4 + workScore*0.3 + offScore*0.15 + elScore*0.15
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Mean 计算平均值
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance 计算方差
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// StdDev 计算标准差
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Gini 计算基尼系数
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}
	return gini / (float64(n) * sum)
}
