package workitem

import (
	"strings"

	"fieldtrack/internal/model"
	"fieldtrack/internal/service/codec"
	"fieldtrack/internal/service/progress"
)

// Derive 由行文本与单元格格式推导子状态；格式读取失败按 NORMAL/未完成处理。
// 编号不在 A 列的行无法对应布局，全部视为未完成。
func Derive(item *model.WorkItem, formats codec.FormatReader) model.Progress {
	p := model.Progress{CableSpan: model.CableSpanState{Status: model.SpanPending}}
	if !item.InLayout() {
		return p
	}

	p.Foundation = milestone(item, model.TrackingFoundationTypeCol, model.TrackingFoundationDateCol)
	p.Bracket = milestone(item, model.TrackingBracketTypeCol, model.TrackingBracketDateCol)
	for i, cols := range model.AnchorColumns {
		p.Anchors[i] = milestone(item, cols[0], cols[1])
	}

	poleDate := field(item, model.TrackingPoleDateCol)
	flags := progress.FlagsFromStatus(codec.DecodeCell(formats, item.SourceRow, model.TrackingPoleDateCol), poleDate != "")
	p.Pole = model.PoleState{
		Type:         field(item, model.TrackingPoleTypeCol),
		CompletedOn:  poleDate,
		GiroDone:     flags.Giro,
		IsolatorDone: flags.Isolator,
		Complete:     flags.Complete,
	}

	p.CableSpan = model.CableSpanState{Status: model.SpanPending, CompletedOn: field(item, model.TrackingCableSpanCol)}
	switch codec.DecodeCell(formats, item.SourceRow, model.TrackingCableSpanCol) {
	case model.StatusLaid:
		p.CableSpan.Status = model.SpanLaid
	case model.StatusClamped:
		p.CableSpan.Status = model.SpanClamped
	}
	return p
}

func milestone(item *model.WorkItem, typeCol, dateCol int) model.Milestone {
	return model.Milestone{
		Type:        field(item, typeCol),
		CompletedOn: field(item, dateCol),
	}
}

func field(item *model.WorkItem, col int) string {
	return strings.TrimSpace(item.Field(col))
}
