package column_test

import (
	"strconv"
	"testing"

	"fieldtrack/internal/service/column"
)

func TestFallbackColumnDocumentedValues(t *testing.T) {
	tests := []struct {
		day  int
		want int
	}{
		{21, 14},
		{20, 12},
		{22, 16},
		{31, 34},
		{15, 2},
	}
	for _, tt := range tests {
		if got := column.FallbackColumn(tt.day); got != tt.want {
			t.Fatalf("FallbackColumn(%d)=%d, want %d", tt.day, got, tt.want)
		}
	}
}

func TestResolveDayColumnPrefersHeader(t *testing.T) {
	// 表头第 5 行：第 20 列起每两列一天，从 1 号开始
	grid := make([][]string, 9)
	for i := range grid {
		grid[i] = make([]string, 90)
	}
	for d := 1; d <= 31; d++ {
		grid[4][19+(d-1)*2] = " " + strconv.Itoa(d) + " "
	}

	for d := 1; d <= 31; d++ {
		got := column.ResolveDayColumn(grid, column.RosterHeaderWindow, d)
		want := 20 + (d-1)*2
		if got != want {
			t.Fatalf("day %d: got %d, want %d", d, got, want)
		}
	}
}

func TestResolveDayColumnFallsBackOutsideWindow(t *testing.T) {
	// 日期写在第 2 行，不在考勤表窗口（4–9 行）内
	grid := [][]string{
		{},
		{"", "", "21", "22"},
	}
	if got := column.ResolveDayColumn(grid, column.RosterHeaderWindow, 21); got != 14 {
		t.Fatalf("got %d, want fallback 14", got)
	}
	if got := column.ResolveDayColumn(grid, column.TrackingHeaderWindow, 21); got != 3 {
		t.Fatalf("got %d, want header column 3", got)
	}
}

func TestResolveDayColumnFirstMatchWins(t *testing.T) {
	grid := [][]string{
		{"", "", "", "", "", "7"},
		{"", "7"},
	}
	if got := column.ResolveDayColumn(grid, column.TrackingHeaderWindow, 7); got != 6 {
		t.Fatalf("got %d, want 6 (row-major first match)", got)
	}
}

func TestResolveDayColumnEmptyGrid(t *testing.T) {
	for d := 1; d <= 31; d++ {
		if got, want := column.ResolveDayColumn(nil, column.TrackingHeaderWindow, d), column.FallbackColumn(d); got != want {
			t.Fatalf("day %d: got %d, want %d", d, got, want)
		}
	}
}
