// Package writer 向单个单元格写入一次状态变更：值 + 审计备注 + 格式，
// 并在主写成功后尽力镜像到备份工作簿。
package writer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fieldtrack/internal/metrics"
	"fieldtrack/internal/model"
	"fieldtrack/internal/service/codec"
	"fieldtrack/internal/store"
	"fieldtrack/internal/tabular"
)

// Invalidator 写入后失效快照
type Invalidator interface {
	Invalidate(ref model.SheetRef)
}

// Journal 本地写入日志
type Journal interface {
	RecordWrite(w store.WriteLog) error
}

// Options 写入器选项
type Options struct {
	// BackupWorkbook 备份工作簿标题，空表示不镜像
	BackupWorkbook string
	Invalidator    Invalidator
	Journal        Journal
	Now            func() time.Time
}

// Writer 状态写入器
type Writer struct {
	store  tabular.Store
	backup string
	inv    Invalidator
	jrnl   Journal
	now    func() time.Time
}

// New 创建写入器
func New(st tabular.Store, opts Options) *Writer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Writer{
		store:  st,
		backup: opts.BackupWorkbook,
		inv:    opts.Invalidator,
		jrnl:   opts.Journal,
		now:    now,
	}
}

// BackupWorkbook 当前配置的备份工作簿
func (w *Writer) BackupWorkbook() string {
	return w.backup
}

// Result 一次写入的结果；OK 只反映主存储
type Result struct {
	Ref           model.SheetRef `json:"ref"`
	Row           int            `json:"row"`
	Col           int            `json:"col"`
	Value         string         `json:"value"`
	Status        model.Status   `json:"status"`
	OK            bool           `json:"ok"`
	NoteApplied   bool           `json:"noteApplied"`
	FormatApplied bool           `json:"formatApplied"`
	Backup        string         `json:"backup"` // store.BackupSkipped / BackupMirrored / BackupFailed
	Warnings      []string       `json:"warnings,omitempty"`
	Err           error          `json:"-"`
}

// FullySucceeded 主写、备注、格式、备份全部成功
func (r Result) FullySucceeded() bool {
	return r.OK && r.NoteApplied && r.FormatApplied && r.Backup != store.BackupFailed
}

// Error 主写失败原因
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// AuditNote "<value> - <HH:MM>\n<context>\n<actor>"，可选追加警告行
func AuditNote(value string, at time.Time, meta model.AuditMeta) string {
	note := fmt.Sprintf("%s - %s\n%s\n%s", value, at.Format("15:04"), meta.Context, meta.Actor)
	if meta.Warning != "" {
		note += "\n" + meta.Warning
	}
	return note
}

// WriteStatus 写值 -> 备注 -> 格式；主写失败时不再写备注与格式
func (w *Writer) WriteStatus(ctx context.Context, ref model.SheetRef, row, col int, value string, style model.Status, meta model.AuditMeta) Result {
	return w.write(ctx, ref, row, col, value, style, meta, "")
}

// WriteSpanItem 与 WriteStatus 相同，并在日志中关联批次
func (w *Writer) WriteSpanItem(ctx context.Context, ref model.SheetRef, row, col int, value string, style model.Status, meta model.AuditMeta, runID string) Result {
	return w.write(ctx, ref, row, col, value, style, meta, runID)
}

func (w *Writer) write(ctx context.Context, ref model.SheetRef, row, col int, value string, style model.Status, meta model.AuditMeta, runID string) Result {
	res := Result{
		Ref:    ref,
		Row:    row,
		Col:    col,
		Value:  value,
		Status: style,
		Backup: store.BackupSkipped,
	}
	if meta.At.IsZero() {
		meta.At = w.now()
	}

	defer func() {
		metrics.ObserveWrite(res.OK, res.Backup)
		w.journal(res, meta, runID)
	}()

	if row < 1 || col < 1 {
		res.Err = &tabular.OpError{Kind: tabular.ErrLookup, Op: "write_status", Sheet: ref.Sheet, Row: row, Col: col, Err: fmt.Errorf("invalid cell")}
		return res
	}

	sheet, err := tabular.OpenSheet(ctx, w.store, ref)
	if err != nil {
		res.Err = err
		zap.S().Warnf("write %s R%dC%d: %v", ref.Key(), row, col, err)
		return res
	}
	if err := sheet.UpdateCell(row, col, value); err != nil {
		res.Err = err
		zap.S().Warnf("write %s R%dC%d: %v", ref.Key(), row, col, err)
		return res
	}
	res.OK = true

	note := AuditNote(value, meta.At, meta)
	attrs := codec.Encode(style)
	res.NoteApplied, res.FormatApplied, res.Warnings = decorate(sheet, row, col, note, attrs, "")

	if w.inv != nil {
		w.inv.Invalidate(ref)
	}

	if w.backup != "" && w.backup != ref.Workbook {
		res.Backup = w.mirror(ctx, ref, row, col, value, note, attrs, &res)
	}
	return res
}

// WriteValue 只写值，不带备注与格式（里程碑类型等说明性单元格）
func (w *Writer) WriteValue(ctx context.Context, ref model.SheetRef, row, col int, value string) error {
	if row < 1 || col < 1 {
		return &tabular.OpError{Kind: tabular.ErrLookup, Op: "write_value", Sheet: ref.Sheet, Row: row, Col: col, Err: fmt.Errorf("invalid cell")}
	}
	sheet, err := tabular.OpenSheet(ctx, w.store, ref)
	if err != nil {
		return err
	}
	if err := sheet.UpdateCell(row, col, value); err != nil {
		return err
	}
	if w.inv != nil {
		w.inv.Invalidate(ref)
	}
	return nil
}

// decorate 备注与格式都是尽力而为，失败只产生警告
func decorate(sheet tabular.Sheet, row, col int, note string, attrs model.FormatAttributes, prefix string) (noteOK, formatOK bool, warnings []string) {
	if err := sheet.InsertNote(row, col, note); err != nil {
		warnings = append(warnings, fmt.Sprintf("%saudit note: %v", prefix, err))
	} else {
		noteOK = true
	}
	if err := sheet.SetCellFormat(row, col, attrs); err != nil {
		warnings = append(warnings, fmt.Sprintf("%sformat: %v", prefix, err))
	} else {
		formatOK = true
	}
	return noteOK, formatOK, warnings
}

// mirror 主写成功后写入备份工作簿；非事务，不回滚
func (w *Writer) mirror(ctx context.Context, ref model.SheetRef, row, col int, value, note string, attrs model.FormatAttributes, res *Result) string {
	backupRef := model.SheetRef{Workbook: w.backup, Sheet: ref.Sheet}
	sheet, err := tabular.OpenSheet(ctx, w.store, backupRef)
	if err == nil {
		err = sheet.UpdateCell(row, col, value)
	}
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("backup: %v", err))
		zap.S().Warnf("backup mirror %s R%dC%d failed: %v", backupRef.Key(), row, col, err)
		return store.BackupFailed
	}

	noteOK, formatOK, warnings := decorate(sheet, row, col, note, attrs, "backup ")
	res.Warnings = append(res.Warnings, warnings...)
	if !noteOK || !formatOK {
		return store.BackupFailed
	}
	return store.BackupMirrored
}

func (w *Writer) journal(res Result, meta model.AuditMeta, runID string) {
	if w.jrnl == nil {
		return
	}
	warnings := res.Warnings
	if res.Err != nil {
		warnings = append([]string{res.Err.Error()}, warnings...)
	}
	err := w.jrnl.RecordWrite(store.WriteLog{
		Workbook:    res.Ref.Workbook,
		Sheet:       res.Ref.Sheet,
		Row:         res.Row,
		Col:         res.Col,
		Value:       res.Value,
		Status:      string(res.Status),
		Context:     meta.Context,
		Actor:       meta.Actor,
		PrimaryOK:   res.OK,
		BackupState: res.Backup,
		Warnings:    warnings,
		SpanRunID:   runID,
	})
	if err != nil {
		zap.S().Warnf("journal write: %v", err)
	}
}
