package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fieldtrack/internal/metrics"
	"fieldtrack/internal/model"
	"fieldtrack/internal/service/column"
	"fieldtrack/internal/store"
	"fieldtrack/internal/tabular"
)

// DefaultStoppageSheet 停工日志工作表名
const DefaultStoppageSheet = "Stoppages"

// Journal 考勤提交日志
type Journal interface {
	RecordShiftCommit(c store.ShiftCommit) error
}

// Options 考勤表定位
type Options struct {
	// Workbook 考勤工作簿标题；为空时按 TitlePattern 查找
	Workbook string
	// TitlePattern 取标题包含该串的最后一个工作簿（如 "Roster 2025 12"）
	TitlePattern  string
	Sheet         string
	StoppageSheet string
	Journal       Journal
	Now           func() time.Time
}

// Ledger 考勤台账
type Ledger struct {
	store tabular.Store
	opts  Options
	now   func() time.Time
}

// NewLedger 创建台账
func NewLedger(st tabular.Store, opts Options) *Ledger {
	if opts.StoppageSheet == "" {
		opts.StoppageSheet = DefaultStoppageSheet
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: st, opts: opts, now: now}
}

// CommitRequest 一天的考勤提交
type CommitRequest struct {
	Day      int                   `json:"day"`
	Entries  []model.WorkerEntry   `json:"entries"`
	Meta     model.AuditMeta       `json:"meta"`
	Stoppage *model.StoppageRecord `json:"stoppage,omitempty"`
}

// CommitResult 提交结果；Skipped 为考勤表中找不到的人员
type CommitResult struct {
	ID             string   `json:"id"`
	Workbook       string   `json:"workbook"`
	Sheet          string   `json:"sheet"`
	DayColumn      int      `json:"dayColumn"`
	Written        int      `json:"written"`
	Skipped        []string `json:"skipped"`
	StoppageLogged bool     `json:"stoppageLogged"`
	Warnings       []string `json:"warnings,omitempty"`
}

// ResolveWorkbook 返回考勤工作簿标题
func (l *Ledger) ResolveWorkbook(ctx context.Context) (string, error) {
	if l.opts.Workbook != "" {
		return l.opts.Workbook, nil
	}
	if l.opts.TitlePattern == "" {
		return "", &tabular.OpError{Kind: tabular.ErrConnection, Op: "resolve_roster", Err: errors.New("no roster workbook configured")}
	}
	titles, err := l.store.ListTitlesContaining(ctx, l.opts.TitlePattern)
	if err != nil {
		return "", &tabular.OpError{Kind: tabular.ErrConnection, Op: "resolve_roster", Err: err}
	}
	if len(titles) == 0 {
		return "", &tabular.OpError{Kind: tabular.ErrConnection, Op: "resolve_roster", Err: fmt.Errorf("no workbook title contains %q", l.opts.TitlePattern)}
	}
	return titles[len(titles)-1], nil
}

func (l *Ledger) open(ctx context.Context) (tabular.Workbook, tabular.Sheet, error) {
	title, err := l.ResolveWorkbook(ctx)
	if err != nil {
		return nil, nil, err
	}
	wb, err := l.store.Open(ctx, title)
	if err != nil {
		return nil, nil, err
	}
	sheet, err := wb.Sheet(l.opts.Sheet)
	if err != nil {
		return nil, nil, err
	}
	return wb, sheet, nil
}

// Workers 列出考勤表中的人员（从第 RosterFirstWorkerRow 行开始）
func (l *Ledger) Workers(ctx context.Context) ([]model.RosterWorker, error) {
	_, sheet, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	grid, err := sheet.GetAllValues()
	if err != nil {
		return nil, err
	}
	return ParseWorkers(grid), nil
}

// ParseWorkers 从网格中提取人员，跳过空 id 行
func ParseWorkers(grid [][]string) []model.RosterWorker {
	var workers []model.RosterWorker
	for i := model.RosterFirstWorkerRow - 1; i < len(grid); i++ {
		id := cell(grid, i, model.RosterIDCol)
		if id == "" {
			continue
		}
		workers = append(workers, model.RosterWorker{
			ID:        id,
			Name:      cell(grid, i, model.RosterNameCol),
			Category:  ParseCategory(cell(grid, i, model.RosterCategoryCol)),
			SourceRow: i + 1,
		})
	}
	return workers
}

// ParseCategory 仓库类别识别，其余均视为现场
func ParseCategory(s string) model.WorkerCategory {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WAREHOUSE", "ALMACEN", "ALMACÉN", "BODEGA":
		return model.CategoryWarehouse
	default:
		return model.CategorySite
	}
}

// FindWorkerRow 线性扫描 id 列；未命中时再按姓名（忽略大小写）匹配
func FindWorkerRow(grid [][]string, key string) (int, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, false
	}
	for i := model.RosterFirstWorkerRow - 1; i < len(grid); i++ {
		if cell(grid, i, model.RosterIDCol) == key {
			return i + 1, true
		}
	}
	for i := model.RosterFirstWorkerRow - 1; i < len(grid); i++ {
		if strings.EqualFold(cell(grid, i, model.RosterNameCol), key) {
			return i + 1, true
		}
	}
	return 0, false
}

// DayColumn 解析考勤表中某日对应的列
func (l *Ledger) DayColumn(ctx context.Context, day int) (int, error) {
	_, sheet, err := l.open(ctx)
	if err != nil {
		return 0, err
	}
	grid, err := sheet.GetAllValues()
	if err != nil {
		return 0, err
	}
	return dayColumn(grid, sheet.Name(), day)
}

func dayColumn(grid [][]string, sheetName string, day int) (int, error) {
	if day < 1 || day > 31 {
		return 0, &tabular.OpError{Kind: tabular.ErrLookup, Op: "day_column", Sheet: sheetName, Err: fmt.Errorf("invalid day %d", day)}
	}
	col := column.ResolveDayColumn(grid, column.RosterHeaderWindow, day)
	if col < 1 {
		return 0, &tabular.OpError{Kind: tabular.ErrLookup, Op: "day_column", Sheet: sheetName, Col: col, Err: fmt.Errorf("no column for day %d", day)}
	}
	return col, nil
}

// CommitShifts 写入一天的班次字母（dayColumn）与工时（dayColumn+1），一次批量调用。
// 找不到的人员跳过并记入 Skipped；停工记录追加失败只产生警告。
func (l *Ledger) CommitShifts(ctx context.Context, req CommitRequest) (CommitResult, error) {
	res := CommitResult{Skipped: []string{}}
	if req.Meta.At.IsZero() {
		req.Meta.At = l.now()
	}

	wb, sheet, err := l.open(ctx)
	if err != nil {
		return res, err
	}
	res.Workbook = wb.Title()
	res.Sheet = sheet.Name()

	// 只有停工记录时不需要定位日期列
	var grid [][]string
	col := 0
	if len(req.Entries) > 0 {
		grid, err = sheet.GetAllValues()
		if err != nil {
			return res, err
		}
		col, err = dayColumn(grid, sheet.Name(), req.Day)
		if err != nil {
			return res, err
		}
		res.DayColumn = col
	}

	updates := make([]model.CellUpdate, 0, len(req.Entries)*2)
	for _, e := range req.Entries {
		row, ok := FindWorkerRow(grid, e.WorkerID)
		if !ok {
			res.Skipped = append(res.Skipped, e.WorkerID)
			zap.S().Infof("roster: worker %q not found in %s, skipped", e.WorkerID, sheet.Name())
			continue
		}
		updates = append(updates,
			model.CellUpdate{Row: row, Col: col, Value: e.Shift.Letter},
			model.CellUpdate{Row: row, Col: col + 1, Value: e.Shift.HoursTotal},
		)
		res.Written++
	}
	if len(updates) > 0 {
		if err := sheet.UpdateCells(updates); err != nil {
			res.Written = 0
			metrics.ObserveRosterCommit(false)
			return res, err
		}
	}

	if req.Stoppage != nil {
		rec := *req.Stoppage
		if rec.Date == "" {
			rec.Date = req.Meta.At.Format("2006-01-02")
		}
		if rec.Context == "" {
			rec.Context = req.Meta.Context
		}
		if rec.Actor == "" {
			rec.Actor = req.Meta.Actor
		}
		if err := l.appendStoppage(wb, rec); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("stoppage: %v", err))
			zap.S().Warnf("roster: append stoppage: %v", err)
		} else {
			res.StoppageLogged = true
		}
	}

	res.ID = uuid.New().String()
	if l.opts.Journal != nil {
		if err := l.opts.Journal.RecordShiftCommit(store.ShiftCommit{
			ID:             res.ID,
			Workbook:       res.Workbook,
			Sheet:          res.Sheet,
			Day:            req.Day,
			DayColumn:      col,
			Written:        res.Written,
			SkippedIDs:     res.Skipped,
			StoppageLogged: res.StoppageLogged,
			Context:        req.Meta.Context,
			Actor:          req.Meta.Actor,
		}); err != nil {
			zap.S().Warnf("journal shift commit: %v", err)
		}
	}
	metrics.ObserveRosterCommit(true)
	zap.S().Infof("roster %s day %d (col %d): %d written, %d skipped", res.Workbook, req.Day, col, res.Written, len(res.Skipped))
	return res, nil
}

// appendStoppage 追加停工记录；工作表不存在时先创建并写表头
func (l *Ledger) appendStoppage(wb tabular.Workbook, rec model.StoppageRecord) error {
	sheet, err := wb.Sheet(l.opts.StoppageSheet)
	if err != nil {
		if !errors.Is(err, tabular.ErrSheetNotFound) {
			return err
		}
		sheet, err = wb.AddSheet(l.opts.StoppageSheet)
		if err != nil {
			return err
		}
		header := make([]any, len(model.StoppageHeader))
		for i, h := range model.StoppageHeader {
			header[i] = h
		}
		if err := sheet.AppendRow(header); err != nil {
			return err
		}
	}
	return sheet.AppendRow(rec.Values())
}

func cell(grid [][]string, rowIdx, col int) string {
	if rowIdx < 0 || rowIdx >= len(grid) || col < 1 || col > len(grid[rowIdx]) {
		return ""
	}
	return strings.TrimSpace(grid[rowIdx][col-1])
}
