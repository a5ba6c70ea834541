package tabular

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"fieldtrack/internal/model"
)

// FaultFunc 故障注入：返回非 nil 时对应操作失败
type FaultFunc func(op, sheet string, row, col int) error

// MemoryStore 内存表格存储
type MemoryStore struct {
	workbooks map[string]*MemoryWorkbook
	mu        sync.RWMutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workbooks: make(map[string]*MemoryWorkbook),
	}
}

// AddWorkbook 添加（或返回已有的）工作簿
func (s *MemoryStore) AddWorkbook(title string) *MemoryWorkbook {
	s.mu.Lock()
	defer s.mu.Unlock()

	if wb, ok := s.workbooks[title]; ok {
		return wb
	}
	wb := &MemoryWorkbook{
		title:  title,
		sheets: make(map[string]*MemorySheet),
	}
	s.workbooks[title] = wb
	return wb
}

// RemoveWorkbook 删除工作簿（模拟不可达）
func (s *MemoryStore) RemoveWorkbook(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workbooks, title)
}

// Open 打开工作簿
func (s *MemoryStore) Open(ctx context.Context, identity string) (Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, opErr(ErrConnection, "open", identity, 0, 0, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	wb, ok := s.workbooks[identity]
	if !ok {
		return nil, opErr(ErrConnection, "open", identity, 0, 0, errors.New("workbook not found"))
	}
	return wb, nil
}

// ListTitlesContaining 列出标题包含子串的工作簿
func (s *MemoryStore) ListTitlesContaining(ctx context.Context, substring string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(substring)
	result := make([]string, 0, len(s.workbooks))
	for title := range s.workbooks {
		if strings.Contains(strings.ToLower(title), needle) {
			result = append(result, title)
		}
	}
	sort.Strings(result)
	return result, nil
}

// MemoryWorkbook 内存工作簿
type MemoryWorkbook struct {
	title  string
	sheets map[string]*MemorySheet
	mu     sync.RWMutex
}

func (w *MemoryWorkbook) Title() string {
	return w.title
}

// Sheet 获取工作表
func (w *MemoryWorkbook) Sheet(name string) (Sheet, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	sh, ok := w.sheets[name]
	if !ok {
		return nil, opErr(ErrConnection, "sheet", name, 0, 0, fmt.Errorf("%w in %q", ErrSheetNotFound, w.title))
	}
	return sh, nil
}

// AddSheet 添加工作表
func (w *MemoryWorkbook) AddSheet(name string) (Sheet, error) {
	return w.Seed(name, nil), nil
}

// Seed 以给定网格创建（或覆盖）工作表，返回具体类型便于测试断言
func (w *MemoryWorkbook) Seed(name string, grid [][]string) *MemorySheet {
	w.mu.Lock()
	defer w.mu.Unlock()

	sh := &MemorySheet{
		name:    name,
		values:  make(map[cellKey]any),
		notes:   make(map[cellKey]string),
		formats: make(map[cellKey]model.FormatAttributes),
	}
	for r, row := range grid {
		for c, v := range row {
			if v != "" {
				sh.values[cellKey{r + 1, c + 1}] = v
			}
		}
	}
	w.sheets[name] = sh
	return sh
}

type cellKey struct {
	row int
	col int
}

// MemorySheet 内存工作表
type MemorySheet struct {
	name    string
	values  map[cellKey]any
	notes   map[cellKey]string
	formats map[cellKey]model.FormatAttributes
	calls   map[string]int
	fault   FaultFunc
	mu      sync.RWMutex
}

// SetFault 设置故障注入
func (s *MemorySheet) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Calls 某类操作的调用次数
func (s *MemorySheet) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// Value 读取单元格文本
func (s *MemorySheet) Value(row, col int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return formatValue(s.values[cellKey{row, col}])
}

// Note 读取单元格备注
func (s *MemorySheet) Note(row, col int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[cellKey{row, col}]
	return n, ok
}

// Format 读取单元格格式
func (s *MemorySheet) Format(row, col int) (model.FormatAttributes, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.formats[cellKey{row, col}]
	return f, ok
}

func (s *MemorySheet) Name() string {
	return s.name
}

// check 记录调用并执行故障注入，调用方需持有写锁
func (s *MemorySheet) check(op string, row, col int) error {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[op]++
	if s.fault == nil {
		return nil
	}
	return s.fault(op, s.name, row, col)
}

func (s *MemorySheet) GetAllValues() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("get_all_values", 0, 0); err != nil {
		return nil, opErr(ErrConnection, "get_all_values", s.name, 0, 0, err)
	}

	maxRow, maxCol := 0, 0
	for k := range s.values {
		if k.row > maxRow {
			maxRow = k.row
		}
		if k.col > maxCol {
			maxCol = k.col
		}
	}

	grid := make([][]string, maxRow)
	for r := 1; r <= maxRow; r++ {
		// 与 excelize.GetRows 一致：去掉行尾空单元格
		last := 0
		for c := 1; c <= maxCol; c++ {
			if formatValue(s.values[cellKey{r, c}]) != "" {
				last = c
			}
		}
		row := make([]string, last)
		for c := 1; c <= last; c++ {
			row[c-1] = formatValue(s.values[cellKey{r, c}])
		}
		grid[r-1] = row
	}
	return grid, nil
}

func (s *MemorySheet) UpdateCell(row, col int, value any) error {
	return s.UpdateCells([]model.CellUpdate{{Row: row, Col: col, Value: value}})
}

func (s *MemorySheet) UpdateCells(updates []model.CellUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		if u.Row < 1 || u.Col < 1 {
			return opErr(ErrLookup, "update_cell", s.name, u.Row, u.Col, errors.New("invalid coordinates"))
		}
		if err := s.check("update_cell", u.Row, u.Col); err != nil {
			return opErr(ErrConnection, "update_cell", s.name, u.Row, u.Col, err)
		}
	}
	for _, u := range updates {
		s.values[cellKey{u.Row, u.Col}] = u.Value
	}
	return nil
}

func (s *MemorySheet) InsertNote(row, col int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("insert_note", row, col); err != nil {
		return opErr(ErrAuditNote, "insert_note", s.name, row, col, err)
	}
	s.notes[cellKey{row, col}] = text
	return nil
}

func (s *MemorySheet) SetCellFormat(row, col int, attrs model.FormatAttributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("set_format", row, col); err != nil {
		return opErr(ErrFormat, "set_format", s.name, row, col, err)
	}
	s.formats[cellKey{row, col}] = attrs
	return nil
}

func (s *MemorySheet) GetCellFormat(row, col int) (model.FormatAttributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("get_format", row, col); err != nil {
		return model.FormatAttributes{}, opErr(ErrFormat, "get_format", s.name, row, col, err)
	}
	return s.formats[cellKey{row, col}], nil
}

func (s *MemorySheet) AppendRow(values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("append_row", 0, 0); err != nil {
		return opErr(ErrConnection, "append_row", s.name, 0, 0, err)
	}
	next := 1
	for k := range s.values {
		if k.row >= next {
			next = k.row + 1
		}
	}
	for i, v := range values {
		s.values[cellKey{next, i + 1}] = v
	}
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
