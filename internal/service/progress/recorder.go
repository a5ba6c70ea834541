package progress

import (
	"context"
	"fmt"
	"strings"

	"fieldtrack/internal/model"
	"fieldtrack/internal/service/writer"
	"fieldtrack/internal/tabular"
)

// MilestoneKind 里程碑类型
type MilestoneKind string

const (
	KindFoundation MilestoneKind = "foundation"
	KindPole       MilestoneKind = "pole"
	KindBracket    MilestoneKind = "bracket"
	KindAnchor     MilestoneKind = "anchor"
)

// CellWriter 里程碑写入依赖的写入器
type CellWriter interface {
	WriteValue(ctx context.Context, ref model.SheetRef, row, col int, value string) error
	WriteStatus(ctx context.Context, ref model.SheetRef, row, col int, value string, style model.Status, meta model.AuditMeta) writer.Result
}

// MilestoneRequest 一次里程碑登记
type MilestoneRequest struct {
	Kind  MilestoneKind `json:"kind"`
	Index int           `json:"index"` // 仅拉线使用，0..AnchorCount-1
	Type  string        `json:"type"`
	Date  string        `json:"date"`
	Flags PoleFlags     `json:"flags"` // 仅电杆使用
}

// Recorder 里程碑写入
type Recorder struct {
	w CellWriter
}

// NewRecorder 创建 Recorder
func NewRecorder(w CellWriter) *Recorder {
	return &Recorder{w: w}
}

// Columns 里程碑对应的 (类型列, 日期列)
func Columns(kind MilestoneKind, index int) (typeCol, dateCol int, err error) {
	switch kind {
	case KindFoundation:
		return model.TrackingFoundationTypeCol, model.TrackingFoundationDateCol, nil
	case KindPole:
		return model.TrackingPoleTypeCol, model.TrackingPoleDateCol, nil
	case KindBracket:
		return model.TrackingBracketTypeCol, model.TrackingBracketDateCol, nil
	case KindAnchor:
		if index < 0 || index >= model.AnchorCount {
			return 0, 0, fmt.Errorf("anchor index %d out of range [0,%d)", index, model.AnchorCount)
		}
		return model.AnchorColumns[index][0], model.AnchorColumns[index][1], nil
	}
	return 0, 0, fmt.Errorf("unknown milestone kind %q", kind)
}

// RecordMilestone 写类型单元格（纯值）与日期单元格（值 + 备注 + 格式）。
// 电杆日期的格式由勾选项决定，其余里程碑一律 NORMAL。
func (r *Recorder) RecordMilestone(ctx context.Context, ref model.SheetRef, item *model.WorkItem, req MilestoneRequest, meta model.AuditMeta) (writer.Result, error) {
	if item == nil {
		return writer.Result{}, &tabular.OpError{Kind: tabular.ErrLookup, Op: "record_milestone", Sheet: ref.Sheet, Err: fmt.Errorf("no item")}
	}
	typeCol, dateCol, err := Columns(req.Kind, req.Index)
	if err != nil {
		return writer.Result{}, err
	}

	if t := strings.TrimSpace(req.Type); t != "" {
		if err := r.w.WriteValue(ctx, ref, item.SourceRow, typeCol, t); err != nil {
			return writer.Result{}, err
		}
	}

	style := model.StatusNormal
	if req.Kind == KindPole {
		style = StatusFor(normalize(req.Flags))
	}
	res := r.w.WriteStatus(ctx, ref, item.SourceRow, dateCol, strings.TrimSpace(req.Date), style, meta)
	return res, res.Err
}
