// Package solver 提供基于约束满足的排班求解器
package solver

import (
	"github.com/paiban/roster/pkg/model"
)

// cellRef 单元格引用
type cellRef struct {
	si int // 员工下标
	dj int // 日期下标
}

// trailEntry 域删减记录：从某单元格的域中移除了某个值
type trailEntry struct {
	cell cellRef
	code model.ShiftCode
}

// domainStore 各单元格的剩余域与增量回溯日志
// 回溯时按日志逆序恢复被删减的值，避免整域深拷贝
type domainStore struct {
	dates   int
	domains [][]model.ShiftCode // 按 si*dates+dj 索引
	trail   []trailEntry
}

// newDomainStore 根据排班表初始化域
// 固定单元格的域为单值；已分配的非固定单元格保留当前值在域首
func newDomainStore(s *model.Schedule) *domainStore {
	staff := len(s.Staff)
	dates := len(s.Dates)
	d := &domainStore{
		dates:   dates,
		domains: make([][]model.ShiftCode, staff*dates),
	}
	for si := 0; si < staff; si++ {
		for dj := 0; dj < dates; dj++ {
			idx := si*dates + dj
			if s.FixedAt(si, dj) {
				d.domains[idx] = []model.ShiftCode{s.GetAt(si, dj)}
				continue
			}
			d.domains[idx] = model.SearchDomain()
		}
	}
	return d
}

// get 返回单元格的剩余域
func (d *domainStore) get(c cellRef) []model.ShiftCode {
	return d.domains[c.si*d.dates+c.dj]
}

// size 返回单元格剩余域大小
func (d *domainStore) size(c cellRef) int {
	return len(d.domains[c.si*d.dates+c.dj])
}

// mark 返回当前回溯点
func (d *domainStore) mark() int {
	return len(d.trail)
}

// remove 从域中移除一个值并记录到日志；值不存在时返回 false
func (d *domainStore) remove(c cellRef, code model.ShiftCode) bool {
	idx := c.si*d.dates + c.dj
	domain := d.domains[idx]
	for i, v := range domain {
		if v == code {
			d.domains[idx] = append(domain[:i], domain[i+1:]...)
			d.trail = append(d.trail, trailEntry{cell: c, code: code})
			return true
		}
	}
	return false
}

// narrowTo 将域收窄到单个值，其余全部记录到日志
func (d *domainStore) narrowTo(c cellRef, code model.ShiftCode) {
	idx := c.si*d.dates + c.dj
	for _, v := range d.domains[idx] {
		if v != code {
			d.trail = append(d.trail, trailEntry{cell: c, code: v})
		}
	}
	d.domains[idx] = d.domains[idx][:0]
	d.domains[idx] = append(d.domains[idx], code)
}

// undo 恢复到指定回溯点
func (d *domainStore) undo(mark int) {
	for len(d.trail) > mark {
		entry := d.trail[len(d.trail)-1]
		d.trail = d.trail[:len(d.trail)-1]
		idx := entry.cell.si*d.dates + entry.cell.dj
		d.domains[idx] = append(d.domains[idx], entry.code)
	}
}
