// Package codec 将完成状态编码为单元格格式（字体/颜色/填充），并从格式解码回状态。
//
// 解码优先级：先看填充色（LAID/CLAMPED），再看字体族，否则 NORMAL。
// 单元格可能残留旧的字体标记，填充色必须优先。
package codec

import (
	"math"
	"strings"

	"fieldtrack/internal/model"
)

// Version 编码表版本
const Version = 1

// 字体族
const (
	FontPrimary   = "Arial"
	FontMonospace = "Courier New"
	FontSerif     = "Times New Roman"
)

var (
	Black = model.Color{R: 0, G: 0, B: 0}
	Red   = model.Color{R: 1, G: 0, B: 0}
	Blue  = model.Color{R: 0, G: 0, B: 1}

	LaidBackground    = model.Color{R: 0.4, G: 0.6, B: 1.0}
	ClampedBackground = model.Color{R: 0.4, G: 0.9, B: 0.4}
)

// colorTolerance 颜色分量容差（8 位量化误差约 0.002）
const colorTolerance = 0.03

var monospaceFamilies = []string{"courier new", "courier", "consolas", "monospace", "roboto mono", "source code pro"}

var serifFamilies = []string{"times new roman", "times", "georgia", "serif", "cambria"}

// Encode 状态 -> 格式属性
func Encode(status model.Status) model.FormatAttributes {
	switch status {
	case model.StatusGirosPending:
		return model.FormatAttributes{FontFamily: FontMonospace, TextColor: Red, Bold: true}
	case model.StatusIsolatorsPending:
		return model.FormatAttributes{FontFamily: FontSerif, TextColor: Blue, Bold: true}
	case model.StatusLaid:
		bg := LaidBackground
		return model.FormatAttributes{FontFamily: FontPrimary, TextColor: Black, Background: &bg, Bold: true}
	case model.StatusClamped:
		bg := ClampedBackground
		return model.FormatAttributes{FontFamily: FontPrimary, TextColor: Black, Background: &bg, Bold: true}
	default:
		return model.FormatAttributes{FontFamily: FontPrimary, TextColor: Black}
	}
}

// Decode 格式属性 -> 状态
func Decode(attrs model.FormatAttributes) model.Status {
	if attrs.Background != nil {
		switch {
		case colorNear(*attrs.Background, LaidBackground):
			return model.StatusLaid
		case colorNear(*attrs.Background, ClampedBackground):
			return model.StatusClamped
		}
	}

	family := strings.ToLower(strings.TrimSpace(attrs.FontFamily))
	switch {
	case family == "":
		return model.StatusNormal
	case containsFamily(monospaceFamilies, family):
		return model.StatusGirosPending
	case containsFamily(serifFamilies, family):
		return model.StatusIsolatorsPending
	}
	return model.StatusNormal
}

// FormatReader 可读取单元格格式的对象（tabular.Sheet 满足）
type FormatReader interface {
	GetCellFormat(row, col int) (model.FormatAttributes, error)
}

// DecodeCell 读取并解码单元格，读取失败视为 NORMAL
func DecodeCell(r FormatReader, row, col int) model.Status {
	if r == nil {
		return model.StatusNormal
	}
	attrs, err := r.GetCellFormat(row, col)
	if err != nil {
		return model.StatusNormal
	}
	return Decode(attrs)
}

func colorNear(a, b model.Color) bool {
	return math.Abs(a.R-b.R) <= colorTolerance &&
		math.Abs(a.G-b.G) <= colorTolerance &&
		math.Abs(a.B-b.B) <= colorTolerance
}

func containsFamily(families []string, family string) bool {
	for _, f := range families {
		if f == family {
			return true
		}
	}
	return false
}
