package tabular

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection 工作簿/工作表不可达
	ErrConnection = errors.New("store unreachable")
	// ErrLookup 目标行/列不存在
	ErrLookup = errors.New("target not found")
	// ErrFormat 样式读写失败
	ErrFormat = errors.New("format channel failed")
	// ErrAuditNote 备注写入失败
	ErrAuditNote = errors.New("audit note failed")
	// ErrSheetNotFound 工作簿可达但没有该工作表（与 ErrConnection 同时成立）
	ErrSheetNotFound = errors.New("sheet not found")

	errNilStore = errors.New("nil store")
)

// OpError 一次表格操作的失败
type OpError struct {
	Kind  error // ErrConnection / ErrLookup / ErrFormat / ErrAuditNote
	Op    string
	Sheet string
	Row   int
	Col   int
	Err   error
}

func (e *OpError) Error() string {
	if e.Row > 0 || e.Col > 0 {
		return fmt.Sprintf("%s %q R%dC%d: %v: %v", e.Op, e.Sheet, e.Row, e.Col, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %q: %v: %v", e.Op, e.Sheet, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func opErr(kind error, op, sheet string, row, col int, err error) *OpError {
	return &OpError{Kind: kind, Op: op, Sheet: sheet, Row: row, Col: col, Err: err}
}
