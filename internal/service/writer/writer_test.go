package writer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldtrack/internal/model"
	"fieldtrack/internal/service/codec"
	"fieldtrack/internal/service/writer"
	"fieldtrack/internal/store"
	"fieldtrack/internal/tabular"
)

var ref = model.SheetRef{Workbook: "Seguimiento", Sheet: "Avance"}

var fixedNow = time.Date(2025, 3, 1, 9, 7, 0, 0, time.UTC)

type recordingInvalidator struct{ refs []model.SheetRef }

func (r *recordingInvalidator) Invalidate(ref model.SheetRef) { r.refs = append(r.refs, ref) }

type recordingJournal struct{ entries []store.WriteLog }

func (r *recordingJournal) RecordWrite(w store.WriteLog) error {
	r.entries = append(r.entries, w)
	return nil
}

func setup(t *testing.T, backup bool) (*tabular.MemoryStore, *tabular.MemorySheet, *tabular.MemorySheet) {
	t.Helper()
	st := tabular.NewMemoryStore()
	primary := st.AddWorkbook(ref.Workbook).Seed(ref.Sheet, [][]string{{"P-001"}})
	var mirror *tabular.MemorySheet
	if backup {
		mirror = st.AddWorkbook("Seguimiento (backup)").Seed(ref.Sheet, nil)
	}
	return st, primary, mirror
}

func meta() model.AuditMeta {
	return model.AuditMeta{Context: "Tramo 3", Actor: "ana"}
}

func TestAuditNoteFormat(t *testing.T) {
	got := writer.AuditNote("2025-03-01", fixedNow, model.AuditMeta{Context: "Tramo 3", Actor: "ana"})
	assert.Equal(t, "2025-03-01 - 09:07\nTramo 3\nana", got)

	got = writer.AuditNote("x", fixedNow, model.AuditMeta{Context: "c", Actor: "a", Warning: "fecha futura"})
	assert.Equal(t, "x - 09:07\nc\na\nfecha futura", got)
}

func TestWriteStatusSuccess(t *testing.T) {
	st, primary, _ := setup(t, false)
	inv := &recordingInvalidator{}
	jr := &recordingJournal{}
	w := writer.New(st, writer.Options{Invalidator: inv, Journal: jr, Now: func() time.Time { return fixedNow }})

	res := w.WriteStatus(context.Background(), ref, 1, model.TrackingPoleDateCol, "2025-03-01", model.StatusGirosPending, meta())
	require.True(t, res.OK)
	assert.True(t, res.FullySucceeded())
	assert.Equal(t, store.BackupSkipped, res.Backup)

	assert.Equal(t, "2025-03-01", primary.Value(1, model.TrackingPoleDateCol))
	note, ok := primary.Note(1, model.TrackingPoleDateCol)
	require.True(t, ok)
	assert.Equal(t, "2025-03-01 - 09:07\nTramo 3\nana", note)
	attrs, ok := primary.Format(1, model.TrackingPoleDateCol)
	require.True(t, ok)
	assert.Equal(t, model.StatusGirosPending, codec.Decode(attrs))

	assert.Equal(t, []model.SheetRef{ref}, inv.refs)
	require.Len(t, jr.entries, 1)
	assert.True(t, jr.entries[0].PrimaryOK)
	assert.Equal(t, "GIROS_PENDING", jr.entries[0].Status)
}

func TestWriteStatusPrimaryFailureAppliesNothing(t *testing.T) {
	st, primary, mirror := setup(t, true)
	primary.SetFault(func(op, _ string, _, _ int) error {
		if op == "update_cell" {
			return errors.New("503")
		}
		return nil
	})
	inv := &recordingInvalidator{}
	jr := &recordingJournal{}
	w := writer.New(st, writer.Options{BackupWorkbook: "Seguimiento (backup)", Invalidator: inv, Journal: jr})

	res := w.WriteStatus(context.Background(), ref, 1, model.TrackingCableSpanCol, "2025-03-01", model.StatusLaid, meta())
	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, tabular.ErrConnection))
	assert.Equal(t, 0, primary.Calls("insert_note"))
	assert.Equal(t, 0, primary.Calls("set_format"))
	assert.Equal(t, 0, mirror.Calls("update_cell"), "backup is never written when primary fails")
	assert.Empty(t, inv.refs)
	require.Len(t, jr.entries, 1)
	assert.False(t, jr.entries[0].PrimaryOK)
}

func TestWriteStatusUnreachableWorkbook(t *testing.T) {
	w := writer.New(tabular.NewMemoryStore(), writer.Options{})
	res := w.WriteStatus(context.Background(), ref, 1, 1, "v", model.StatusNormal, meta())
	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, tabular.ErrConnection))
}

func TestWriteStatusFormatAndNoteFailuresDegrade(t *testing.T) {
	st, primary, _ := setup(t, false)
	primary.SetFault(func(op, _ string, _, _ int) error {
		if op == "set_format" || op == "insert_note" {
			return errors.New("quota")
		}
		return nil
	})
	w := writer.New(st, writer.Options{})

	res := w.WriteStatus(context.Background(), ref, 1, model.TrackingCableSpanCol, "2025-03-01", model.StatusClamped, meta())
	assert.True(t, res.OK, "value is still committed")
	assert.False(t, res.NoteApplied)
	assert.False(t, res.FormatApplied)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, "2025-03-01", primary.Value(1, model.TrackingCableSpanCol))
}

func TestWriteStatusMirrorsBackup(t *testing.T) {
	st, _, mirror := setup(t, true)
	w := writer.New(st, writer.Options{BackupWorkbook: "Seguimiento (backup)"})

	res := w.WriteStatus(context.Background(), ref, 1, model.TrackingCableSpanCol, "2025-03-01", model.StatusLaid, meta())
	require.True(t, res.OK)
	assert.Equal(t, store.BackupMirrored, res.Backup)
	assert.Equal(t, "2025-03-01", mirror.Value(1, model.TrackingCableSpanCol))
	attrs, _ := mirror.Format(1, model.TrackingCableSpanCol)
	assert.Equal(t, model.StatusLaid, codec.Decode(attrs))
}

func TestWriteStatusBackupFailureIsWarning(t *testing.T) {
	st, primary, mirror := setup(t, true)
	mirror.SetFault(func(string, string, int, int) error { return errors.New("backup down") })
	w := writer.New(st, writer.Options{BackupWorkbook: "Seguimiento (backup)"})

	res := w.WriteStatus(context.Background(), ref, 1, model.TrackingCableSpanCol, "2025-03-01", model.StatusLaid, meta())
	assert.True(t, res.OK)
	assert.Equal(t, store.BackupFailed, res.Backup)
	assert.False(t, res.FullySucceeded())
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "backup")
	assert.Equal(t, "2025-03-01", primary.Value(1, model.TrackingCableSpanCol))
}

func TestWriteStatusMissingBackupWorkbook(t *testing.T) {
	st, _, _ := setup(t, false)
	w := writer.New(st, writer.Options{BackupWorkbook: "does-not-exist"})

	res := w.WriteStatus(context.Background(), ref, 1, 2, "HA-2", model.StatusNormal, meta())
	assert.True(t, res.OK)
	assert.Equal(t, store.BackupFailed, res.Backup)
}

func TestWriteStatusRejectsInvalidCell(t *testing.T) {
	st, _, _ := setup(t, false)
	res := writer.New(st, writer.Options{}).WriteStatus(context.Background(), ref, 0, 3, "v", model.StatusNormal, meta())
	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, tabular.ErrLookup))
}
