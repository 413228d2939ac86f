// Package model 定义排班求解引擎的核心数据模型
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Variable 排班变量：一个 (员工, 日期) 单元格
type Variable struct {
	StaffID uuid.UUID `json:"staff_id"`
	Date    string    `json:"date"` // YYYY-MM-DD
}

// Schedule 排班表
// 按员工 × 日期的密集网格存储班次分配；
// 来自输入部分排班的固定单元格在求解过程中不可改写
type Schedule struct {
	Staff []*Staff
	Dates []string

	cells [][]ShiftCode // [员工下标][日期下标]
	fixed [][]bool

	staffIdx map[uuid.UUID]int
	dateIdx  map[string]int
}

// NewSchedule 创建空排班表
func NewSchedule(staff []*Staff, dates []string) *Schedule {
	s := &Schedule{
		Staff:    staff,
		Dates:    dates,
		cells:    make([][]ShiftCode, len(staff)),
		fixed:    make([][]bool, len(staff)),
		staffIdx: make(map[uuid.UUID]int, len(staff)),
		dateIdx:  make(map[string]int, len(dates)),
	}
	for i, st := range staff {
		s.cells[i] = make([]ShiftCode, len(dates))
		s.fixed[i] = make([]bool, len(dates))
		s.staffIdx[st.ID] = i
	}
	for j, d := range dates {
		s.dateIdx[d] = j
	}
	return s
}

// StaffIndex 返回员工下标，不存在时返回 -1
func (s *Schedule) StaffIndex(id uuid.UUID) int {
	if i, ok := s.staffIdx[id]; ok {
		return i
	}
	return -1
}

// DateIndex 返回日期下标，不存在时返回 -1
func (s *Schedule) DateIndex(date string) int {
	if j, ok := s.dateIdx[date]; ok {
		return j
	}
	return -1
}

// StaffByName 按姓名查找员工下标，不存在时返回 -1
func (s *Schedule) StaffByName(name string) int {
	for i, st := range s.Staff {
		if st.Name == name {
			return i
		}
	}
	return -1
}

// Get 读取单元格
func (s *Schedule) Get(v Variable) ShiftCode {
	i, j := s.StaffIndex(v.StaffID), s.DateIndex(v.Date)
	if i < 0 || j < 0 {
		return ShiftUnassigned
	}
	return s.cells[i][j]
}

// GetAt 按下标读取单元格
func (s *Schedule) GetAt(staffIdx, dateIdx int) ShiftCode {
	return s.cells[staffIdx][dateIdx]
}

// Set 写入单元格；固定单元格不可改写，返回 false
func (s *Schedule) Set(v Variable, code ShiftCode) bool {
	i, j := s.StaffIndex(v.StaffID), s.DateIndex(v.Date)
	if i < 0 || j < 0 {
		return false
	}
	return s.SetAt(i, j, code)
}

// SetAt 按下标写入单元格；固定单元格不可改写
func (s *Schedule) SetAt(staffIdx, dateIdx int, code ShiftCode) bool {
	if s.fixed[staffIdx][dateIdx] {
		return false
	}
	s.cells[staffIdx][dateIdx] = code
	return true
}

// Fix 写入并固定单元格（来自输入部分排班）
func (s *Schedule) Fix(v Variable, code ShiftCode) bool {
	i, j := s.StaffIndex(v.StaffID), s.DateIndex(v.Date)
	if i < 0 || j < 0 {
		return false
	}
	s.cells[i][j] = code
	s.fixed[i][j] = true
	return true
}

// IsFixed 检查单元格是否固定
func (s *Schedule) IsFixed(v Variable) bool {
	i, j := s.StaffIndex(v.StaffID), s.DateIndex(v.Date)
	if i < 0 || j < 0 {
		return false
	}
	return s.fixed[i][j]
}

// FixedAt 按下标检查单元格是否固定
func (s *Schedule) FixedAt(staffIdx, dateIdx int) bool {
	return s.fixed[staffIdx][dateIdx]
}

// CellCount 返回单元格总数
func (s *Schedule) CellCount() int {
	return len(s.Staff) * len(s.Dates)
}

// AssignedCount 返回已分配单元格数
func (s *Schedule) AssignedCount() int {
	count := 0
	for i := range s.cells {
		for j := range s.cells[i] {
			if s.cells[i][j].IsAssigned() {
				count++
			}
		}
	}
	return count
}

// Complete 检查是否所有单元格都已分配
func (s *Schedule) Complete() bool {
	return s.AssignedCount() == s.CellCount()
}

// Completeness 返回完成度百分比 (0-100)
func (s *Schedule) Completeness() float64 {
	total := s.CellCount()
	if total == 0 {
		return 100
	}
	return float64(s.AssignedCount()) / float64(total) * 100
}

// Unassigned 返回所有未分配变量（员工优先序）
func (s *Schedule) Unassigned() []Variable {
	var vars []Variable
	for i, st := range s.Staff {
		for j, d := range s.Dates {
			if !s.cells[i][j].IsAssigned() {
				vars = append(vars, Variable{StaffID: st.ID, Date: d})
			}
		}
	}
	return vars
}

// Clone 深拷贝排班表（共享只读的员工与日期切片）
func (s *Schedule) Clone() *Schedule {
	clone := &Schedule{
		Staff:    s.Staff,
		Dates:    s.Dates,
		cells:    make([][]ShiftCode, len(s.cells)),
		fixed:    s.fixed,
		staffIdx: s.staffIdx,
		dateIdx:  s.dateIdx,
	}
	for i := range s.cells {
		row := make([]ShiftCode, len(s.cells[i]))
		copy(row, s.cells[i])
		clone.cells[i] = row
	}
	return clone
}

// Hamming 计算与另一排班表的汉明距离（不同单元格数）
func (s *Schedule) Hamming(other *Schedule) int {
	dist := 0
	for i := range s.cells {
		for j := range s.cells[i] {
			if s.cells[i][j] != other.cells[i][j] {
				dist++
			}
		}
	}
	return dist
}

// DayCount 某日的班次统计
type DayCount struct {
	Off     int
	Early   int
	Late    int
	Normal  int
	Working int // 已分配且非休息
}

// CountDay 统计某日各班次人数
func (s *Schedule) CountDay(dateIdx int) DayCount {
	var c DayCount
	for i := range s.cells {
		switch s.cells[i][dateIdx] {
		case ShiftOff:
			c.Off++
		case ShiftEarly:
			c.Early++
			c.Working++
		case ShiftLate:
			c.Late++
			c.Working++
		case ShiftNormal:
			c.Normal++
			c.Working++
		case ShiftUnassigned:
		default:
			c.Working++
		}
	}
	return c
}

// StaffCount 某员工在整个日期范围内的班次统计
type StaffCount struct {
	Off     int
	Early   int
	Late    int
	Normal  int
	Working int
}

// CountStaff 统计某员工的班次分布
func (s *Schedule) CountStaff(staffIdx int) StaffCount {
	var c StaffCount
	for j := range s.cells[staffIdx] {
		switch s.cells[staffIdx][j] {
		case ShiftOff:
			c.Off++
		case ShiftEarly:
			c.Early++
			c.Working++
		case ShiftLate:
			c.Late++
			c.Working++
		case ShiftNormal:
			c.Normal++
			c.Working++
		case ShiftUnassigned:
		default:
			c.Working++
		}
	}
	return c
}

// ToMap 导出为稀疏映射（员工ID → 日期 → 班次），用于序列化边界
func (s *Schedule) ToMap() map[string]map[string]string {
	out := make(map[string]map[string]string, len(s.Staff))
	for i, st := range s.Staff {
		row := make(map[string]string, len(s.Dates))
		for j, d := range s.Dates {
			row[d] = s.cells[i][j].Symbol()
		}
		out[st.ID.String()] = row
	}
	return out
}

// BuildDates 构造 [start, end] 的连续日期序列
func BuildDates(startDate, endDate string) ([]string, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("无效的开始日期 %q: %w", startDate, err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("无效的结束日期 %q: %w", endDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("结束日期 %s 早于开始日期 %s", endDate, startDate)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}

// IsWeekend 判断日期是否为周末
func IsWeekend(date string) bool {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Weekday 返回日期的星期，解析失败返回 time.Sunday
func Weekday(date string) time.Weekday {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Sunday
	}
	return t.Weekday()
}
