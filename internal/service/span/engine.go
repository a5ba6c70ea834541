// Package span 对有序点位列表中的一段连续区间批量应用电缆状态（敷设/紧固）。
//
// 电缆在整段上是连续的，但只有段首和段尾两个点位记录完成日期：
// 首尾写日期，中间点位写空值，所有点位使用相同的样式。
package span

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fieldtrack/internal/metrics"
	"fieldtrack/internal/model"
	"fieldtrack/internal/service/workitem"
	"fieldtrack/internal/service/writer"
	"fieldtrack/internal/store"
	"fieldtrack/internal/tabular"
)

// DateLayout 未指定日期时使用的格式
const DateLayout = "2006-01-02"

// StatusWriter 单点位写入
type StatusWriter interface {
	WriteSpanItem(ctx context.Context, ref model.SheetRef, row, col int, value string, style model.Status, meta model.AuditMeta, runID string) writer.Result
}

// RunJournal 批次日志
type RunJournal interface {
	StartSpanRun(r store.SpanRun) error
	FinishSpanRun(id string, updated int, failedIDs []string) error
}

// Request 一次区间更新
type Request struct {
	FromID   string
	ToID     string
	Target   model.Status // LAID 或 CLAMPED
	Date     string       // 段首尾写入的日期，空则取当天
	Meta     model.AuditMeta
	Progress func(ProgressEvent)
}

// Result 区间更新结果
type Result struct {
	RunID    string   `json:"runId"`
	IDs      []string `json:"ids"`
	Updated  int      `json:"updated"`
	Failed   []string `json:"failed"`
	Warnings []string `json:"warnings,omitempty"`
}

// Step 区间内单个点位的写入计划
type Step struct {
	ID    string
	Value string
}

// Engine 区间更新引擎
type Engine struct {
	writer  StatusWriter
	journal RunJournal
	now     func() time.Time
}

// NewEngine 创建引擎；journal 可为 nil
func NewEngine(w StatusWriter, journal RunJournal) *Engine {
	return &Engine{
		writer:  w,
		journal: journal,
		now:     time.Now,
	}
}

// SelectRange 定位 from/to（顺序无关），返回闭区间下标
func SelectRange(orderedIDs []string, fromID, toID string) (lo, hi int, err error) {
	lo, hi = -1, -1
	for i, id := range orderedIDs {
		if id == fromID && lo < 0 {
			lo = i
		}
		if id == toID && hi < 0 {
			hi = i
		}
	}
	if lo < 0 {
		return 0, 0, &tabular.OpError{Kind: tabular.ErrLookup, Op: "span", Err: fmt.Errorf("item %q not found", fromID)}
	}
	if hi < 0 {
		return 0, 0, &tabular.OpError{Kind: tabular.ErrLookup, Op: "span", Err: fmt.Errorf("item %q not found", toID)}
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, nil
}

// Plan 生成写入计划：日期只写在首尾
func Plan(orderedIDs []string, fromID, toID, date string) ([]Step, error) {
	lo, hi, err := SelectRange(orderedIDs, fromID, toID)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		value := ""
		if i == lo || i == hi {
			value = date
		}
		steps = append(steps, Step{ID: orderedIDs[i], Value: value})
	}
	return steps, nil
}

// ApplySpan 对快照中的区间逐个写入；单点失败不中断，无回滚
func (e *Engine) ApplySpan(ctx context.Context, snap *workitem.Snapshot, req Request) (Result, error) {
	var res Result
	if !req.Target.IsSpanStatus() {
		return res, fmt.Errorf("span target must be %s or %s, got %q", model.StatusLaid, model.StatusClamped, req.Target)
	}
	if snap == nil {
		return res, &tabular.OpError{Kind: tabular.ErrConnection, Op: "span", Err: fmt.Errorf("no snapshot")}
	}

	if req.Meta.At.IsZero() {
		req.Meta.At = e.now()
	}
	date := req.Date
	if date == "" {
		date = req.Meta.At.Format(DateLayout)
	}

	steps, err := Plan(snap.IDs(), req.FromID, req.ToID, date)
	if err != nil {
		return res, err
	}

	res.RunID = uuid.New().String()
	res.IDs = make([]string, len(steps))
	for i, s := range steps {
		res.IDs[i] = s.ID
	}
	res.Failed = []string{}

	if e.journal != nil {
		if err := e.journal.StartSpanRun(store.SpanRun{
			ID:        res.RunID,
			Workbook:  snap.Ref.Workbook,
			Sheet:     snap.Ref.Sheet,
			FromID:    req.FromID,
			ToID:      req.ToID,
			Target:    string(req.Target),
			DateValue: date,
			Total:     len(steps),
			Actor:     req.Meta.Actor,
		}); err != nil {
			zap.S().Warnf("journal span run: %v", err)
		}
	}

	for i, step := range steps {
		item, _ := snap.Get(step.ID)
		wr := e.writer.WriteSpanItem(ctx, snap.Ref, item.SourceRow, model.TrackingCableSpanCol, step.Value, req.Target, req.Meta, res.RunID)
		if wr.OK {
			res.Updated++
		} else {
			res.Failed = append(res.Failed, step.ID)
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", step.ID, wr.Error()))
		}
		for _, w := range wr.Warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", step.ID, w))
		}
		reportProgress(req.Progress, i+1, len(steps), step.ID, wr.OK)
	}

	if e.journal != nil {
		if err := e.journal.FinishSpanRun(res.RunID, res.Updated, res.Failed); err != nil {
			zap.S().Warnf("journal span run: %v", err)
		}
	}
	metrics.ObserveSpan(res.Updated, len(res.Failed))
	zap.S().Infof("span %s %s..%s -> %s: %d/%d updated", res.RunID, req.FromID, req.ToID, req.Target, res.Updated, len(steps))
	return res, nil
}
