package builtin

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/roster/pkg/model"
)

func makeSchedule(t *testing.T, names []string, start, end string) ([]*model.Staff, *model.Schedule) {
	t.Helper()
	staff := make([]*model.Staff, len(names))
	for i, name := range names {
		staff[i] = &model.Staff{ID: uuid.New(), Name: name}
	}
	dates, err := model.BuildDates(start, end)
	if err != nil {
		t.Fatalf("BuildDates失败: %v", err)
	}
	return staff, model.NewSchedule(staff, dates)
}

func TestDailyCeilingConstraint(t *testing.T) {
	staff, s := makeSchedule(t, []string{"张三", "李四", "王五"}, "2026-03-02", "2026-03-02")
	c := NewDailyCeilingConstraint(model.ShiftOff, 1)

	v0 := model.Variable{StaffID: staff[0].ID, Date: "2026-03-02"}
	v1 := model.Variable{StaffID: staff[1].ID, Date: "2026-03-02"}

	// 非目标班次不受限
	if !c.Check(s, v0, model.ShiftNormal) {
		t.Error("非目标班次应始终通过")
	}

	// 第一个休息可行，第二个超限
	if !c.Check(s, v0, model.ShiftOff) {
		t.Error("首个休息应通过")
	}
	s.Set(v0, model.ShiftOff)
	if c.Check(s, v1, model.ShiftOff) {
		t.Error("超出上限的休息应被拒绝")
	}

	// Evaluate 检出超限日期
	s.Set(v1, model.ShiftOff)
	violations := c.Evaluate(s)
	if len(violations) != 1 {
		t.Fatalf("应检出1条违反, 实际 %d", len(violations))
	}
	if violations[0].Date != "2026-03-02" {
		t.Errorf("违反日期错误: %s", violations[0].Date)
	}
}

func TestMinWorkingConstraint(t *testing.T) {
	staff, s := makeSchedule(t, []string{"张三", "李四", "王五"}, "2026-03-02", "2026-03-02")
	c := NewMinWorkingConstraint(2)

	v0 := model.Variable{StaffID: staff[0].ID, Date: "2026-03-02"}
	v1 := model.Variable{StaffID: staff[1].ID, Date: "2026-03-02"}
	v2 := model.Variable{StaffID: staff[2].ID, Date: "2026-03-02"}

	// 其余未分配按乐观估计仍可能在岗
	if !c.Check(s, v0, model.ShiftOff) {
		t.Error("仍有足够未分配单元格时休息应通过")
	}

	// 两人已休息，第三人再休息会使在岗人数无法达标
	s.Set(v0, model.ShiftOff)
	s.Set(v1, model.ShiftOff)
	if c.Check(s, v2, model.ShiftOff) {
		t.Error("在岗人数无法达标时休息应被拒绝")
	}
	if !c.Check(s, v2, model.ShiftNormal) {
		t.Error("乐观估计下排日班应通过")
	}

	// 有未分配单元格的日期不计入违反
	if vs := c.Evaluate(s); len(vs) != 0 {
		t.Errorf("未定日期不应计入违反, 实际 %d 条", len(vs))
	}

	// 全部分配后在岗人数不足
	s.Set(v2, model.ShiftNormal)
	violations := c.Evaluate(s)
	if len(violations) != 1 {
		t.Fatalf("应检出1条违反, 实际 %d", len(violations))
	}
}

func TestMonthlyOffConstraint(t *testing.T) {
	staff, s := makeSchedule(t, []string{"张三"}, "2026-03-02", "2026-03-05")
	c := NewMonthlyOffConstraint(2)

	s.Set(model.Variable{StaffID: staff[0].ID, Date: "2026-03-02"}, model.ShiftOff)
	s.Set(model.Variable{StaffID: staff[0].ID, Date: "2026-03-03"}, model.ShiftOff)

	v := model.Variable{StaffID: staff[0].ID, Date: "2026-03-04"}
	if c.Check(s, v, model.ShiftOff) {
		t.Error("超出休息天数上限应被拒绝")
	}
	if !c.Check(s, v, model.ShiftNormal) {
		t.Error("日班不受休息上限影响")
	}

	s.Set(v, model.ShiftOff)
	violations := c.Evaluate(s)
	if len(violations) != 1 {
		t.Fatalf("应检出1条违反, 实际 %d", len(violations))
	}
	if violations[0].StaffID != staff[0].ID {
		t.Error("违反应归属到具体员工")
	}
}

func TestGroupExclusionConstraint(t *testing.T) {
	staff, s := makeSchedule(t, []string{"张三", "李四", "王五"}, "2026-03-02", "2026-03-02")
	members := []uuid.UUID{staff[0].ID, staff[1].ID}
	c := NewGroupExclusionConstraint("前台", members)

	s.Set(model.Variable{StaffID: staff[0].ID, Date: "2026-03-02"}, model.ShiftOff)

	v1 := model.Variable{StaffID: staff[1].ID, Date: "2026-03-02"}
	if c.Check(s, v1, model.ShiftOff) {
		t.Error("同组成员同日休息应被拒绝")
	}
	if !c.Check(s, v1, model.ShiftEarly) {
		t.Error("不同互斥班次应通过")
	}
	if !c.Check(s, v1, model.ShiftNormal) {
		t.Error("日班不在互斥范围内")
	}

	// 组外员工不受限
	v2 := model.Variable{StaffID: staff[2].ID, Date: "2026-03-02"}
	if !c.Check(s, v2, model.ShiftOff) {
		t.Error("组外员工不应受限")
	}

	s.Set(v1, model.ShiftOff)
	if vs := c.Evaluate(s); len(vs) != 1 {
		t.Errorf("应检出1条违反, 实际 %d", len(vs))
	}
}

func TestCoverageBackupConstraint(t *testing.T) {
	staff, s := makeSchedule(t, []string{"张三", "李四", "赵六"}, "2026-03-02", "2026-03-02")
	members := []uuid.UUID{staff[0].ID, staff[1].ID}
	backup := staff[2].ID
	c := NewCoverageBackupConstraint("前台", members, backup)

	s.Set(model.Variable{StaffID: staff[0].ID, Date: "2026-03-02"}, model.ShiftOff)

	// 有成员休息时补位员工只能排日班
	vb := model.Variable{StaffID: backup, Date: "2026-03-02"}
	if c.Check(s, vb, model.ShiftOff) {
		t.Error("成员休息时补位员工不能休息")
	}
	if c.Check(s, vb, model.ShiftEarly) {
		t.Error("成员休息时补位员工不能早班")
	}
	if !c.Check(s, vb, model.ShiftNormal) {
		t.Error("补位员工排日班应通过")
	}

	// 补位员工已排非日班时，成员不能再休息
	s.Set(vb, model.ShiftEarly)
	v1 := model.Variable{StaffID: staff[1].ID, Date: "2026-03-02"}
	if c.Check(s, v1, model.ShiftOff) {
		t.Error("补位员工非日班时成员休息应被拒绝")
	}

	violations := c.Evaluate(s)
	if len(violations) != 1 {
		t.Fatalf("应检出1条违反, 实际 %d", len(violations))
	}
	if violations[0].StaffID != backup {
		t.Error("违反应归属到补位员工")
	}
}

func TestPriorityConstraint(t *testing.T) {
	staff, s := makeSchedule(t, []string{"张三", "李四"}, "2026-03-02", "2026-03-08")
	rules := []model.PriorityRule{
		{StaffName: "张三", DayOfWeek: time.Monday, Preferred: model.ShiftOff, Level: model.PriorityHigh},
		{StaffName: "李四", DayOfWeek: time.Tuesday, Preferred: model.ShiftEarly, Level: model.PriorityLow},
	}

	index, names, err := BuildPriorityRules(staff, rules)
	if err != nil {
		t.Fatalf("BuildPriorityRules失败: %v", err)
	}
	// 仅收纳 High 级别规则
	if len(index) != 1 {
		t.Fatalf("应只收纳1条硬规则, 实际 %d", len(index))
	}

	c := NewPriorityConstraint(index, names)

	// 2026-03-02 是周一
	monday := model.Variable{StaffID: staff[0].ID, Date: "2026-03-02"}
	if c.Check(s, monday, model.ShiftNormal) {
		t.Error("违反硬规则的班次应被拒绝")
	}
	if !c.Check(s, monday, model.ShiftOff) {
		t.Error("符合硬规则的班次应通过")
	}

	// 其他日期不受限
	tuesday := model.Variable{StaffID: staff[0].ID, Date: "2026-03-03"}
	if !c.Check(s, tuesday, model.ShiftNormal) {
		t.Error("无规则的日期不应受限")
	}

	s.Set(monday, model.ShiftNormal)
	violations := c.Evaluate(s)
	if len(violations) != 1 {
		t.Fatalf("应检出1条违反, 实际 %d", len(violations))
	}
	if violations[0].StaffName != "张三" {
		t.Errorf("违反员工错误: %s", violations[0].StaffName)
	}
}

func TestBuild(t *testing.T) {
	staff := []*model.Staff{
		{ID: uuid.New(), Name: "张三"},
		{ID: uuid.New(), Name: "李四"},
	}

	t.Run("默认配置", func(t *testing.T) {
		cs, err := Build(staff, model.DefaultRuleConfig())
		if err != nil {
			t.Fatalf("Build失败: %v", err)
		}
		// 最少在岗 + 三个每日上限 + 月休上限
		if len(cs) != 5 {
			t.Errorf("默认配置应产生5个约束, 实际 %d", len(cs))
		}
	})

	t.Run("完整配置", func(t *testing.T) {
		cfg := model.DefaultRuleConfig()
		cfg.Groups = []model.StaffGroup{{Name: "前台", Members: []string{"张三", "李四"}, Backup: "李四"}}
		cfg.Priorities = []model.PriorityRule{
			{StaffName: "张三", DayOfWeek: time.Monday, Preferred: model.ShiftOff, Level: model.PriorityHigh},
		}
		cs, err := Build(staff, cfg)
		if err != nil {
			t.Fatalf("Build失败: %v", err)
		}
		if len(cs) != 8 {
			t.Errorf("应产生8个约束, 实际 %d", len(cs))
		}
	})

	t.Run("未知组成员", func(t *testing.T) {
		cfg := model.DefaultRuleConfig()
		cfg.Groups = []model.StaffGroup{{Name: "前台", Members: []string{"张三", "不存在"}}}
		if _, err := Build(staff, cfg); err == nil {
			t.Error("引用未知员工应报错")
		}
	})

	t.Run("未知补位员工", func(t *testing.T) {
		cfg := model.DefaultRuleConfig()
		cfg.Groups = []model.StaffGroup{{Name: "前台", Members: []string{"张三", "李四"}, Backup: "不存在"}}
		if _, err := Build(staff, cfg); err == nil {
			t.Error("引用未知补位员工应报错")
		}
	})

	t.Run("未知优先规则员工", func(t *testing.T) {
		cfg := model.DefaultRuleConfig()
		cfg.Priorities = []model.PriorityRule{
			{StaffName: "不存在", DayOfWeek: time.Monday, Preferred: model.ShiftOff, Level: model.PriorityHigh},
		}
		if _, err := Build(staff, cfg); err == nil {
			t.Error("优先规则引用未知员工应报错")
		}
	})
}
