package model

import "strings"

// Status 单元格编码的完成状态
type Status string

const (
	StatusNormal           Status = "NORMAL"
	StatusGirosPending     Status = "GIROS_PENDING"
	StatusIsolatorsPending Status = "ISOLATORS_PENDING"
	StatusLaid             Status = "LAID"
	StatusClamped          Status = "CLAMPED"
)

// AllStatuses 全部可编码状态
var AllStatuses = []Status{
	StatusNormal,
	StatusGirosPending,
	StatusIsolatorsPending,
	StatusLaid,
	StatusClamped,
}

// ParseStatus 解析状态名（大小写不敏感，空串视为 NORMAL）
func ParseStatus(s string) (Status, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return StatusNormal, true
	}
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsSpanStatus 是否为电缆段状态
func (s Status) IsSpanStatus() bool {
	return s == StatusLaid || s == StatusClamped
}

// Color RGB 颜色，分量取值 0..1
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// FormatAttributes 承载状态编码的单元格格式
type FormatAttributes struct {
	FontFamily string `json:"fontFamily"`
	TextColor  Color  `json:"textColor"`
	Background *Color `json:"background,omitempty"` // nil 表示无填充
	Bold       bool   `json:"bold"`
}
