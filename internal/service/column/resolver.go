// Package column 在半结构化表头区域中定位日历日对应的列。
package column

import (
	"strconv"
	"strings"

	"fieldtrack/internal/model"
)

// HeaderWindow 表头搜索窗口（行列均从 1 开始，闭区间）
type HeaderWindow struct {
	FirstRow int
	LastRow  int
	FirstCol int
	LastCol  int
}

// 各表的表头窗口，边界需与现有表格保持一致
var (
	// TrackingHeaderWindow 跟踪表：多行表头 × 宽列范围
	TrackingHeaderWindow = HeaderWindow{FirstRow: 1, LastRow: 6, FirstCol: 1, LastCol: 120}
	// RosterHeaderWindow 考勤表：第 4–9 行的窄表头带
	RosterHeaderWindow = HeaderWindow{FirstRow: 4, LastRow: 9, FirstCol: 1, LastCol: 80}
)

// 双周分页布局的回退公式常量：column = base + ((day - reference) % cycle) * stride
const (
	FallbackBase      = 14
	FallbackReference = 21
	FallbackCycle     = 30
	FallbackStride    = 2
)

// WindowFor 按表类型返回表头窗口
func WindowFor(kind model.SheetKind) HeaderWindow {
	if kind == model.SheetKindRoster {
		return RosterHeaderWindow
	}
	return TrackingHeaderWindow
}

// ResolveDayColumn 在窗口内逐行逐列查找文本等于 day 的单元格，返回其列号；
// 找不到时按回退公式计算。总是返回一个值。
func ResolveDayColumn(grid [][]string, window HeaderWindow, day int) int {
	if col, ok := FindDayColumn(grid, window, day); ok {
		return col
	}
	return FallbackColumn(day)
}

// FindDayColumn 只做表头查找
func FindDayColumn(grid [][]string, window HeaderWindow, day int) (int, bool) {
	want := strconv.Itoa(day)
	for r := window.FirstRow; r <= window.LastRow && r <= len(grid); r++ {
		if r < 1 {
			continue
		}
		row := grid[r-1]
		for c := window.FirstCol; c <= window.LastCol && c <= len(row); c++ {
			if c < 1 {
				continue
			}
			if strings.TrimSpace(row[c-1]) == want {
				return c, true
			}
		}
	}
	return 0, false
}

// FallbackColumn 回退公式；使用 Go 的截断取余（21→14, 20→12, 22→16），
// 早于 reference 的日期可能得到非正列号，由调用方判定
func FallbackColumn(day int) int {
	return FallbackBase + ((day-FallbackReference)%FallbackCycle)*FallbackStride
}
