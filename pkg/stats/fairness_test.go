package stats

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"空切片", nil, 0},
		{"单值", []float64{5}, 5},
		{"多值", []float64{1, 2, 3, 4}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.values); got != tt.expected {
				t.Errorf("Mean() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestVariance(t *testing.T) {
	if got := Variance(nil); got != 0 {
		t.Errorf("空切片方差应为0, 实际 %v", got)
	}
	if got := Variance([]float64{3, 3, 3}); got != 0 {
		t.Errorf("相同值方差应为0, 实际 %v", got)
	}
	// 总体方差: mean=3, diffs=[-2,0,2], var=8/3
	got := Variance([]float64{1, 3, 5})
	if math.Abs(got-8.0/3.0) > 1e-9 {
		t.Errorf("Variance() = %v, expected %v", got, 8.0/3.0)
	}
	if got := StdDev([]float64{1, 3, 5}); math.Abs(got-math.Sqrt(8.0/3.0)) > 1e-9 {
		t.Errorf("StdDev() = %v", got)
	}
}

func TestGini(t *testing.T) {
	if got := Gini(nil); got != 0 {
		t.Errorf("空切片基尼系数应为0, 实际 %v", got)
	}
	if got := Gini([]float64{0, 0, 0}); got != 0 {
		t.Errorf("全零基尼系数应为0, 实际 %v", got)
	}
	if got := Gini([]float64{5, 5, 5, 5}); got != 0 {
		t.Errorf("完全均等的基尼系数应为0, 实际 %v", got)
	}

	// 完全集中时基尼系数趋近 (n-1)/n
	got := Gini([]float64{0, 0, 0, 10})
	if math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Gini() = %v, expected 0.75", got)
	}

	// 不平等程度越高基尼系数越大
	if Gini([]float64{4, 5, 6}) >= Gini([]float64{1, 5, 9}) {
		t.Error("更不均等的分布应有更高的基尼系数")
	}
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	staff := []*model.Staff{
		{ID: uuid.New(), Name: "张三"},
		{ID: uuid.New(), Name: "李四"},
		{ID: uuid.New(), Name: "王五"},
	}
	dates, err := model.BuildDates("2026-03-02", "2026-03-08")
	if err != nil {
		t.Fatalf("BuildDates失败: %v", err)
	}
	s := model.NewSchedule(staff, dates)

	t.Run("完全均匀的排班", func(t *testing.T) {
		for _, st := range staff {
			for _, d := range dates {
				s.Set(model.Variable{StaffID: st.ID, Date: d}, model.ShiftNormal)
			}
		}

		m := NewFairnessAnalyzer().Analyze(s)
		if m.WorkloadGini != 0 {
			t.Errorf("均匀排班基尼系数应为0, 实际 %v", m.WorkloadGini)
		}
		if m.WorkloadVariance != 0 {
			t.Errorf("均匀排班方差应为0, 实际 %v", m.WorkloadVariance)
		}
		if m.AvgWorkingDays != 7 {
			t.Errorf("人均工作天数应为7, 实际 %v", m.AvgWorkingDays)
		}
		if m.MaxWorkingDays != 7 || m.MinWorkingDays != 7 {
			t.Errorf("最大/最小工作天数应为7/7, 实际 %d/%d", m.MaxWorkingDays, m.MinWorkingDays)
		}
		if m.ShiftDistribution["normal"] != 1.0 {
			t.Errorf("全日班占比应为1.0, 实际 %v", m.ShiftDistribution["normal"])
		}
		if m.OverallFairnessScore < 99 {
			t.Errorf("均匀排班综合评分应接近100, 实际 %v", m.OverallFairnessScore)
		}
		if len(m.StaffStats) != 3 {
			t.Errorf("应有3条员工统计, 实际 %d", len(m.StaffStats))
		}
	})

	t.Run("不均匀的排班降低评分", func(t *testing.T) {
		// 张三全休，其余人全勤
		for _, d := range dates {
			s.Set(model.Variable{StaffID: staff[0].ID, Date: d}, model.ShiftOff)
		}
		m := NewFairnessAnalyzer().Analyze(s)
		if m.WorkloadGini <= 0 {
			t.Error("不均匀排班基尼系数应大于0")
		}
		if m.MinWorkingDays != 0 || m.MaxWorkingDays != 7 {
			t.Errorf("最大/最小工作天数应为7/0, 实际 %d/%d", m.MaxWorkingDays, m.MinWorkingDays)
		}
		if m.OverallFairnessScore >= 99 {
			t.Errorf("不均匀排班评分应明显下降, 实际 %v", m.OverallFairnessScore)
		}
		// 员工统计按工作天数降序
		if m.StaffStats[len(m.StaffStats)-1].StaffName != "张三" {
			t.Error("工作天数最少的员工应排在最后")
		}
	})

	t.Run("空输入", func(t *testing.T) {
		m := NewFairnessAnalyzer().Analyze(nil)
		if m.OverallFairnessScore != 100 {
			t.Errorf("空输入评分应为100, 实际 %v", m.OverallFairnessScore)
		}
	})
}
