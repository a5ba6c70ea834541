package model

// 跟踪表列布局（从 1 开始）
const (
	TrackingIDCol = 1

	TrackingFoundationTypeCol = 2
	TrackingFoundationDateCol = 3
	TrackingPoleTypeCol       = 4
	TrackingPoleDateCol       = 5
	TrackingBracketTypeCol    = 6
	TrackingBracketDateCol    = 7

	TrackingCableSpanCol = 16
)

// AnchorCount 每个点位的拉线数量
const AnchorCount = 4

// AnchorColumns 拉线 (类型列, 日期列)
var AnchorColumns = [AnchorCount][2]int{
	{8, 9},
	{10, 11},
	{12, 13},
	{14, 15},
}

// WorkItem 跟踪表中的一个点位（一行）
type WorkItem struct {
	ID        string   `json:"id"`
	SourceRow int      `json:"sourceRow"` // 仅在当前快照内有效
	RawFields []string `json:"rawFields"`
	// IDCol 编号所在列，0 视为 TrackingIDCol
	IDCol int `json:"idCol,omitempty"`
}

// InLayout 编号位于 A 列时，其余列才按跟踪表布局解读
func (w *WorkItem) InLayout() bool {
	return w != nil && (w.IDCol == 0 || w.IDCol == TrackingIDCol)
}

// Field 按列号（从 1 开始）取原始文本
func (w *WorkItem) Field(col int) string {
	if w == nil || col < 1 || col > len(w.RawFields) {
		return ""
	}
	return w.RawFields[col-1]
}

// SpanState 电缆段状态
type SpanState string

const (
	SpanPending SpanState = "PENDING"
	SpanLaid    SpanState = "LAID"
	SpanClamped SpanState = "CLAMPED"
)

// Milestone 基础/横担/拉线
type Milestone struct {
	Type        string `json:"type"`
	CompletedOn string `json:"completedOn"`
}

// PoleState 电杆
type PoleState struct {
	Type         string `json:"type"`
	CompletedOn  string `json:"completedOn"`
	GiroDone     bool   `json:"giroDone"`
	IsolatorDone bool   `json:"isolatorDone"`
	Complete     bool   `json:"complete"`
}

// CableSpanState 电缆段（日期只在段首尾）
type CableSpanState struct {
	Status      SpanState `json:"status"`
	CompletedOn string    `json:"completedOn"`
}

// Progress 由行内容 + 单元格格式推导出的子状态
type Progress struct {
	Foundation Milestone              `json:"foundation"`
	Pole       PoleState              `json:"pole"`
	Bracket    Milestone              `json:"bracket"`
	Anchors    [AnchorCount]Milestone `json:"anchors"`
	CableSpan  CableSpanState         `json:"cableSpan"`
}
