package tabular

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"fieldtrack/internal/model"
)

const workbookExt = ".xlsx"

// noteAuthor 写入批注时使用的作者名
const noteAuthor = "fieldtrack"

// DirStore 以目录下的 .xlsx 文件作为工作簿，标题即文件名（不含扩展名）
type DirStore struct {
	dir string

	mu   sync.Mutex
	open map[string]*xlsxWorkbook
}

// NewDirStore 创建目录存储
func NewDirStore(dir string) *DirStore {
	return &DirStore{
		dir:  dir,
		open: make(map[string]*xlsxWorkbook),
	}
}

// Dir 工作簿目录
func (s *DirStore) Dir() string {
	return s.dir
}

// Open 打开工作簿（同一标题复用句柄；磁盘文件变化后在下次操作前重新加载）
func (s *DirStore) Open(ctx context.Context, identity string) (Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, opErr(ErrConnection, "open", identity, 0, 0, err)
	}

	identity = strings.TrimSpace(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if wb, ok := s.open[identity]; ok {
		return wb, nil
	}
	if identity == "" {
		return nil, opErr(ErrConnection, "open", identity, 0, 0, errors.New("empty workbook title"))
	}

	path := filepath.Join(s.dir, identity+workbookExt)
	info, err := os.Stat(path)
	if err != nil {
		return nil, opErr(ErrConnection, "open", identity, 0, 0, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, opErr(ErrConnection, "open", identity, 0, 0, fmt.Errorf("failed to open excel: %w", err))
	}

	wb := newXlsxWorkbook(identity, path, f)
	wb.stamp(info)
	s.open[identity] = wb
	return wb, nil
}

// ListTitlesContaining 列出标题包含子串（大小写不敏感）的工作簿，按标题排序
func (s *DirStore) ListTitlesContaining(ctx context.Context, substring string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, opErr(ErrConnection, "list", s.dir, 0, 0, err)
	}

	needle := strings.ToLower(substring)
	titles := make([]string, 0)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), workbookExt) {
			continue
		}
		// Excel 打开时产生的锁文件
		if strings.HasPrefix(name, "~$") {
			continue
		}
		title := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.Contains(strings.ToLower(title), needle) {
			titles = append(titles, title)
		}
	}
	sort.Strings(titles)
	return titles, nil
}

// Close 关闭所有已打开的工作簿
func (s *DirStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for title, wb := range s.open {
		if err := wb.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", title, err))
		}
	}
	s.open = make(map[string]*xlsxWorkbook)
	return errors.Join(errs...)
}

// WrapFile 将内存中的 excelize 文件包装为工作簿（不落盘，用于测试与预览）
func WrapFile(title string, f *excelize.File) Workbook {
	return newXlsxWorkbook(title, "", f)
}

type xlsxWorkbook struct {
	title string
	path  string
	file  *excelize.File

	// 最近一次加载或保存时的文件状态
	modTime time.Time
	size    int64

	mu     sync.Mutex
	styles map[string]int
}

func newXlsxWorkbook(title, path string, f *excelize.File) *xlsxWorkbook {
	return &xlsxWorkbook{
		title:  title,
		path:   path,
		file:   f,
		styles: make(map[string]int),
	}
}

func (w *xlsxWorkbook) Title() string {
	return w.title
}

func (w *xlsxWorkbook) Sheet(name string) (Sheet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.refresh(); err != nil {
		return nil, opErr(ErrConnection, "sheet", name, 0, 0, err)
	}

	idx, err := w.file.GetSheetIndex(name)
	if err != nil || idx < 0 {
		if err == nil {
			err = fmt.Errorf("%w in %q", ErrSheetNotFound, w.title)
		}
		return nil, opErr(ErrConnection, "sheet", name, 0, 0, err)
	}
	return &xlsxSheet{wb: w, name: name}, nil
}

func (w *xlsxWorkbook) AddSheet(name string) (Sheet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.refresh(); err != nil {
		return nil, opErr(ErrConnection, "add_sheet", name, 0, 0, err)
	}

	if _, err := w.file.NewSheet(name); err != nil {
		return nil, opErr(ErrConnection, "add_sheet", name, 0, 0, err)
	}
	if err := w.save(); err != nil {
		return nil, opErr(ErrConnection, "add_sheet", name, 0, 0, err)
	}
	return &xlsxSheet{wb: w, name: name}, nil
}

func (w *xlsxWorkbook) stamp(info os.FileInfo) {
	w.modTime = info.ModTime()
	w.size = info.Size()
}

// refresh 文件在磁盘上被改动过则重新加载，调用方持有 w.mu
func (w *xlsxWorkbook) refresh() error {
	if w.path == "" {
		return nil
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return nil
	}

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to reload excel: %w", err)
	}
	if err := w.file.Close(); err != nil {
		zap.S().Debugf("close stale %s: %v", w.title, err)
	}
	w.file = f
	w.styles = make(map[string]int)
	w.stamp(info)
	zap.S().Infof("workbook %s changed on disk, reloaded", w.title)
	return nil
}

// save 每次变更后落盘（对应远端存储的一次往返）
func (w *xlsxWorkbook) save() error {
	if w.path == "" {
		return nil
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	w.stamp(info)
	return nil
}

// styleID 按格式属性复用样式
func (w *xlsxWorkbook) styleID(attrs model.FormatAttributes) (int, error) {
	key := styleKey(attrs)
	if id, ok := w.styles[key]; ok {
		return id, nil
	}

	style := &excelize.Style{
		Font: &excelize.Font{
			Family: attrs.FontFamily,
			Color:  ColorHex(attrs.TextColor),
			Bold:   attrs.Bold,
		},
	}
	if attrs.Background != nil {
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{ColorHex(*attrs.Background)}, Pattern: 1}
	}

	id, err := w.file.NewStyle(style)
	if err != nil {
		return 0, err
	}
	w.styles[key] = id
	return id, nil
}

func styleKey(attrs model.FormatAttributes) string {
	bg := "-"
	if attrs.Background != nil {
		bg = ColorHex(*attrs.Background)
	}
	return fmt.Sprintf("%s|%s|%s|%t", attrs.FontFamily, ColorHex(attrs.TextColor), bg, attrs.Bold)
}

type xlsxSheet struct {
	wb   *xlsxWorkbook
	name string
}

func (s *xlsxSheet) Name() string {
	return s.name
}

func (s *xlsxSheet) GetAllValues() ([][]string, error) {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()

	if err := s.wb.refresh(); err != nil {
		return nil, opErr(ErrConnection, "get_all_values", s.name, 0, 0, err)
	}

	rows, err := s.wb.file.GetRows(s.name)
	if err != nil {
		return nil, opErr(ErrConnection, "get_all_values", s.name, 0, 0, err)
	}
	return rows, nil
}

func (s *xlsxSheet) UpdateCell(row, col int, value any) error {
	return s.UpdateCells([]model.CellUpdate{{Row: row, Col: col, Value: value}})
}

func (s *xlsxSheet) UpdateCells(updates []model.CellUpdate) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()

	if err := s.wb.refresh(); err != nil {
		return opErr(ErrConnection, "update_cell", s.name, 0, 0, err)
	}

	for _, u := range updates {
		cell, err := excelize.CoordinatesToCellName(u.Col, u.Row)
		if err != nil {
			return opErr(ErrLookup, "update_cell", s.name, u.Row, u.Col, err)
		}
		if err := s.wb.file.SetCellValue(s.name, cell, u.Value); err != nil {
			return opErr(ErrConnection, "update_cell", s.name, u.Row, u.Col, err)
		}
	}
	if err := s.wb.save(); err != nil {
		return opErr(ErrConnection, "update_cell", s.name, 0, 0, err)
	}
	return nil
}

func (s *xlsxSheet) InsertNote(row, col int, text string) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()

	if err := s.wb.refresh(); err != nil {
		return opErr(ErrConnection, "insert_note", s.name, 0, 0, err)
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return opErr(ErrLookup, "insert_note", s.name, row, col, err)
	}

	// 同一单元格只保留最新备注
	if err := s.wb.file.DeleteComment(s.name, cell); err != nil {
		zap.S().Debugf("delete comment %s!%s: %v", s.name, cell, err)
	}
	err = s.wb.file.AddComment(s.name, excelize.Comment{
		Author:    noteAuthor,
		Cell:      cell,
		Paragraph: []excelize.RichTextRun{{Text: text}},
	})
	if err != nil {
		return opErr(ErrAuditNote, "insert_note", s.name, row, col, err)
	}
	if err := s.wb.save(); err != nil {
		return opErr(ErrAuditNote, "insert_note", s.name, row, col, err)
	}
	return nil
}

func (s *xlsxSheet) SetCellFormat(row, col int, attrs model.FormatAttributes) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()

	if err := s.wb.refresh(); err != nil {
		return opErr(ErrConnection, "set_format", s.name, 0, 0, err)
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return opErr(ErrLookup, "set_format", s.name, row, col, err)
	}
	id, err := s.wb.styleID(attrs)
	if err != nil {
		return opErr(ErrFormat, "set_format", s.name, row, col, err)
	}
	if err := s.wb.file.SetCellStyle(s.name, cell, cell, id); err != nil {
		return opErr(ErrFormat, "set_format", s.name, row, col, err)
	}
	if err := s.wb.save(); err != nil {
		return opErr(ErrFormat, "set_format", s.name, row, col, err)
	}
	return nil
}

func (s *xlsxSheet) GetCellFormat(row, col int) (model.FormatAttributes, error) {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()

	if err := s.wb.refresh(); err != nil {
		return model.FormatAttributes{}, opErr(ErrConnection, "get_format", s.name, 0, 0, err)
	}

	var attrs model.FormatAttributes
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return attrs, opErr(ErrLookup, "get_format", s.name, row, col, err)
	}
	id, err := s.wb.file.GetCellStyle(s.name, cell)
	if err != nil {
		return attrs, opErr(ErrFormat, "get_format", s.name, row, col, err)
	}
	style, err := s.wb.file.GetStyle(id)
	if err != nil {
		return attrs, opErr(ErrFormat, "get_format", s.name, row, col, err)
	}

	if style.Font != nil {
		attrs.FontFamily = style.Font.Family
		attrs.Bold = style.Font.Bold
		if c, ok := ParseHexColor(style.Font.Color); ok {
			attrs.TextColor = c
		}
	}
	if style.Fill.Type == "pattern" && style.Fill.Pattern == 1 && len(style.Fill.Color) > 0 {
		if c, ok := ParseHexColor(style.Fill.Color[0]); ok {
			attrs.Background = &c
		}
	}
	return attrs, nil
}

func (s *xlsxSheet) AppendRow(values []any) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()

	if err := s.wb.refresh(); err != nil {
		return opErr(ErrConnection, "append_row", s.name, 0, 0, err)
	}

	rows, err := s.wb.file.GetRows(s.name)
	if err != nil {
		return opErr(ErrConnection, "append_row", s.name, 0, 0, err)
	}
	next := len(rows) + 1
	cell, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		return opErr(ErrLookup, "append_row", s.name, next, 1, err)
	}
	row := make([]any, len(values))
	copy(row, values)
	if err := s.wb.file.SetSheetRow(s.name, cell, &row); err != nil {
		return opErr(ErrConnection, "append_row", s.name, next, 1, err)
	}
	if err := s.wb.save(); err != nil {
		return opErr(ErrConnection, "append_row", s.name, next, 1, err)
	}
	return nil
}
