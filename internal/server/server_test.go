package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"fieldtrack/internal/config"
)

func TestServerServesTrackingWorkbook(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Server.DevMode = true
	cfg.Data.DataDir = filepath.Join(dir, "data")
	cfg.Workbooks.Dir = filepath.Join(dir, "books")
	cfg.Workbooks.TrackingBook = "Seguimiento"
	cfg.Workbooks.TrackingSheet = "Sheet1"

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "ITEM")
	_ = f.SetCellValue("Sheet1", "A2", "P-01")
	_ = f.SetCellValue("Sheet1", "A3", "P-02")
	if err := f.SaveAs(filepath.Join(cfg.Workbooks.Dir, "Seguimiento.xlsx")); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	_ = f.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("items: %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "online" {
		t.Fatalf("health: %d %q", w.Code, w.Body.String())
	}

	for _, path := range []string{"/live", "/ready", "/metrics"} {
		req = httptest.NewRequest(http.MethodGet, path, nil)
		w = httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", path, w.Code, w.Body.String())
		}
	}
	if !strings.Contains(w.Body.String(), "fieldtrack_cached_snapshots") {
		t.Fatalf("metrics missing cache gauge")
	}
}
