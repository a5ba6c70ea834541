package model

import "time"

// SheetKind 工作表类型（决定表头窗口与列布局）
type SheetKind string

const (
	SheetKindTracking SheetKind = "tracking" // 施工进度跟踪表
	SheetKindRoster   SheetKind = "roster"   // 人员考勤表
)

// SheetRef 工作簿 + 工作表定位
type SheetRef struct {
	Workbook string `json:"workbook"`
	Sheet    string `json:"sheet"`
}

// Key 缓存键
func (r SheetRef) Key() string {
	return r.Workbook + "!" + r.Sheet
}

// AuditMeta 写入备注所需的上下文
type AuditMeta struct {
	Context string    `json:"context"` // 施工段/班组等
	Actor   string    `json:"actor"`   // 操作人
	Warning string    `json:"warning"` // 可选警告行
	At      time.Time `json:"at"`
}

// CellUpdate 单元格批量写入项（行列均从 1 开始）
type CellUpdate struct {
	Row   int
	Col   int
	Value any
}
