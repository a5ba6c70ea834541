package tabular_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"fieldtrack/internal/model"
	"fieldtrack/internal/tabular"
)

func writeWorkbook(t *testing.T, dir, title, sheet string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName failed: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}
	if err := f.SaveAs(filepath.Join(dir, title+".xlsx")); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
}

func TestDirStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "Tracking 2025", "Avance", [][]any{
		{"ITEM", "Fundación"},
		{"P-001", "F1"},
	})

	st := tabular.NewDirStore(dir)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	sheet, err := tabular.OpenSheet(ctx, st, model.SheetRef{Workbook: "Tracking 2025", Sheet: "Avance"})
	if err != nil {
		t.Fatalf("OpenSheet failed: %v", err)
	}

	if err := sheet.UpdateCell(2, 16, "2025-03-01"); err != nil {
		t.Fatalf("UpdateCell failed: %v", err)
	}
	if err := sheet.InsertNote(2, 16, "2025-03-01 - 10:30\nTramo 1\nana"); err != nil {
		t.Fatalf("InsertNote failed: %v", err)
	}
	bg := model.Color{R: 0.4, G: 0.6, B: 1.0}
	if err := sheet.SetCellFormat(2, 16, model.FormatAttributes{FontFamily: "Arial", Background: &bg, Bold: true}); err != nil {
		t.Fatalf("SetCellFormat failed: %v", err)
	}

	attrs, err := sheet.GetCellFormat(2, 16)
	if err != nil {
		t.Fatalf("GetCellFormat failed: %v", err)
	}
	if attrs.FontFamily != "Arial" || !attrs.Bold {
		t.Fatalf("unexpected font attrs: %+v", attrs)
	}
	if attrs.Background == nil || tabular.ColorHex(*attrs.Background) != tabular.ColorHex(bg) {
		t.Fatalf("unexpected background: %+v", attrs.Background)
	}

	// 重新从磁盘读取，确认已落盘
	f, err := excelize.OpenFile(filepath.Join(dir, "Tracking 2025.xlsx"))
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	v, _ := f.GetCellValue("Avance", "P2")
	if v != "2025-03-01" {
		t.Fatalf("P2=%q, want 2025-03-01", v)
	}
	comments, err := f.GetComments("Avance")
	if err != nil {
		t.Fatalf("GetComments failed: %v", err)
	}
	found := false
	for _, c := range comments {
		if c.Cell != "P2" {
			continue
		}
		text := c.Text
		for _, run := range c.Paragraph {
			text += run.Text
		}
		if strings.Contains(text, "Tramo 1") {
			found = true
		}
	}
	if !found {
		t.Fatalf("note on P2 not persisted: %+v", comments)
	}
}

func TestDirStoreAppendRowAndAddSheet(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "Roster 2025 12", "Roster", [][]any{{"ID", "Nombre"}})

	st := tabular.NewDirStore(dir)
	t.Cleanup(func() { _ = st.Close() })

	wb, err := st.Open(context.Background(), "Roster 2025 12")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := wb.Sheet("Paradas"); !errors.Is(err, tabular.ErrConnection) || !errors.Is(err, tabular.ErrSheetNotFound) {
		t.Fatalf("missing sheet err=%v, want ErrConnection+ErrSheetNotFound", err)
	}
	sheet, err := wb.AddSheet("Paradas")
	if err != nil {
		t.Fatalf("AddSheet failed: %v", err)
	}
	if err := sheet.AppendRow([]any{"date", "context"}); err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}
	if err := sheet.AppendRow([]any{"2025-12-03", "Tramo 2"}); err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}

	rows, err := sheet.GetAllValues()
	if err != nil {
		t.Fatalf("GetAllValues failed: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "Tramo 2" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

// editOnDisk 模拟另一位编辑者直接修改文件
func editOnDisk(t *testing.T, path, cell, value string, bump time.Duration) {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if err := f.SetCellValue("Avance", cell, value); err != nil {
		t.Fatalf("SetCellValue failed: %v", err)
	}
	if err := f.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	_ = f.Close()
	// 保证 mtime 与上次保存不同
	at := time.Now().Add(bump)
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
}

func TestDirStoreSeesExternalEdits(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "Track", "Avance", [][]any{{"P-001", "old"}})
	path := filepath.Join(dir, "Track.xlsx")

	st := tabular.NewDirStore(dir)
	t.Cleanup(func() { _ = st.Close() })

	sheet, err := tabular.OpenSheet(context.Background(), st, model.SheetRef{Workbook: "Track", Sheet: "Avance"})
	if err != nil {
		t.Fatalf("OpenSheet failed: %v", err)
	}
	if rows, _ := sheet.GetAllValues(); len(rows) != 1 {
		t.Fatalf("unexpected rows: %v", rows)
	}

	editOnDisk(t, path, "A2", "P-002", 2*time.Second)
	rows, err := sheet.GetAllValues()
	if err != nil {
		t.Fatalf("GetAllValues failed: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "P-002" {
		t.Fatalf("external edit not visible: %v", rows)
	}

	// 写入前未再读取，也不能覆盖他人的修改
	editOnDisk(t, path, "A3", "P-003", 4*time.Second)
	if err := sheet.UpdateCell(1, 3, "ours"); err != nil {
		t.Fatalf("UpdateCell failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()
	for cell, want := range map[string]string{"A2": "P-002", "A3": "P-003", "C1": "ours", "B1": "old"} {
		got, err := f.GetCellValue("Avance", cell)
		if err != nil {
			t.Fatalf("GetCellValue %s failed: %v", cell, err)
		}
		if got != want {
			t.Fatalf("%s=%q, want %q", cell, got, want)
		}
	}
}

func TestDirStoreOpenMissingWorkbook(t *testing.T) {
	st := tabular.NewDirStore(t.TempDir())
	_, err := st.Open(context.Background(), "nope")
	if !errors.Is(err, tabular.ErrConnection) {
		t.Fatalf("err=%v, want ErrConnection", err)
	}
}

func TestListTitlesContaining(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "Roster 2025 11", "Roster", nil)
	writeWorkbook(t, dir, "Roster 2025 12 (empty)", "Roster", nil)
	writeWorkbook(t, dir, "Tracking", "Avance", nil)

	st := tabular.NewDirStore(dir)
	titles, err := st.ListTitlesContaining(context.Background(), "roster")
	if err != nil {
		t.Fatalf("ListTitlesContaining failed: %v", err)
	}
	want := []string{"Roster 2025 11", "Roster 2025 12 (empty)"}
	if len(titles) != len(want) {
		t.Fatalf("titles=%v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("titles[%d]=%q, want %q", i, titles[i], want[i])
		}
	}
}

func TestWrapFileDoesNotRequireDisk(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	wb := tabular.WrapFile("preview", f)
	sheet, err := wb.Sheet("Sheet1")
	if err != nil {
		t.Fatalf("Sheet failed: %v", err)
	}
	if err := sheet.UpdateCells([]model.CellUpdate{{Row: 1, Col: 1, Value: "x"}, {Row: 1, Col: 2, Value: 8.0}}); err != nil {
		t.Fatalf("UpdateCells failed: %v", err)
	}
	rows, _ := sheet.GetAllValues()
	if len(rows) != 1 || rows[0][0] != "x" || rows[0][1] != "8" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"#6699FF", "#6699FF", true},
		{"FF6699FF", "#6699FF", true},
		{"ff0000", "#FF0000", true},
		{"", "", false},
		{"#12", "", false},
	}
	for _, tt := range tests {
		c, ok := tabular.ParseHexColor(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseHexColor(%q) ok=%v, want %v", tt.in, ok, tt.ok)
		}
		if ok && tabular.ColorHex(c) != tt.want {
			t.Fatalf("ParseHexColor(%q)=%s, want %s", tt.in, tabular.ColorHex(c), tt.want)
		}
	}
}
