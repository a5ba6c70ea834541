// Package tabular 抽象外部表格存储：只提供单元格值、单元格格式和单元格备注。
package tabular

import (
	"context"

	"fieldtrack/internal/model"
)

// Store 表格存储
type Store interface {
	// Open 按标题打开工作簿，不存在时返回 ErrConnection
	Open(ctx context.Context, identity string) (Workbook, error)
	// ListTitlesContaining 列出标题包含子串的工作簿
	ListTitlesContaining(ctx context.Context, substring string) ([]string, error)
}

// Workbook 已打开的工作簿
type Workbook interface {
	Title() string
	Sheet(name string) (Sheet, error)
	AddSheet(name string) (Sheet, error)
}

// Sheet 工作表，行列均从 1 开始
type Sheet interface {
	Name() string
	GetAllValues() ([][]string, error)
	UpdateCell(row, col int, value any) error
	UpdateCells(updates []model.CellUpdate) error
	InsertNote(row, col int, text string) error
	SetCellFormat(row, col int, attrs model.FormatAttributes) error
	GetCellFormat(row, col int) (model.FormatAttributes, error)
	AppendRow(values []any) error
}

// OpenSheet 打开工作簿并定位工作表
func OpenSheet(ctx context.Context, store Store, ref model.SheetRef) (Sheet, error) {
	if store == nil {
		return nil, opErr(ErrConnection, "open", ref.Sheet, 0, 0, errNilStore)
	}
	wb, err := store.Open(ctx, ref.Workbook)
	if err != nil {
		return nil, err
	}
	return wb.Sheet(ref.Sheet)
}
