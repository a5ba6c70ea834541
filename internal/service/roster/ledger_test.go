package roster_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldtrack/internal/model"
	"fieldtrack/internal/service/roster"
	"fieldtrack/internal/store"
	"fieldtrack/internal/tabular"
)

const rosterSheet = "Roster"

type commitJournal struct{ commits []store.ShiftCommit }

func (j *commitJournal) RecordShiftCommit(c store.ShiftCommit) error {
	j.commits = append(j.commits, c)
	return nil
}

// 第 5 行为日期表头：第 d 日位于第 10+2d 列
func rosterGrid(withHeader bool) [][]string {
	grid := make([][]string, 12)
	if withHeader {
		header := make([]string, 80)
		for d := 1; d <= 31 && 10+2*d <= 80; d++ {
			header[10+2*d-1] = strconv.Itoa(d)
		}
		grid[4] = header
	}
	grid[9] = []string{"W-01", "Georgi Ivanov", "SITE"}
	grid[10] = []string{"W-02", "Ana Garcia", "Almacén"}
	grid[11] = []string{"W-03", "Pedro Lopez", ""}
	return grid
}

func newLedger(t *testing.T, title string, withHeader bool) (*tabular.MemoryStore, *tabular.MemoryWorkbook, *tabular.MemorySheet, *commitJournal, *roster.Ledger) {
	t.Helper()
	st := tabular.NewMemoryStore()
	wb := st.AddWorkbook(title)
	sh := wb.Seed(rosterSheet, rosterGrid(withHeader))
	jr := &commitJournal{}
	l := roster.NewLedger(st, roster.Options{
		TitlePattern: "Roster",
		Sheet:        rosterSheet,
		Journal:      jr,
		Now:          func() time.Time { return time.Date(2025, 12, 3, 18, 0, 0, 0, time.UTC) },
	})
	return st, wb, sh, jr, l
}

func shift(letter string, hours float64) model.Shift {
	return model.Shift{Letter: letter, HoursTotal: hours, IsNight: letter == model.ShiftLetterNight}
}

func TestWorkers(t *testing.T) {
	_, _, _, _, l := newLedger(t, "Roster 2025 12", true)
	workers, err := l.Workers(context.Background())
	require.NoError(t, err)
	require.Len(t, workers, 3)
	assert.Equal(t, model.RosterWorker{ID: "W-01", Name: "Georgi Ivanov", Category: model.CategorySite, SourceRow: 10}, workers[0])
	assert.Equal(t, model.CategoryWarehouse, workers[1].Category)
	assert.Equal(t, model.CategorySite, workers[2].Category)
}

func TestCommitShiftsSkipsMissingWorker(t *testing.T) {
	_, _, sh, jr, l := newLedger(t, "Roster 2025 12", true)

	res, err := l.CommitShifts(context.Background(), roster.CommitRequest{
		Day: 3,
		Entries: []model.WorkerEntry{
			{WorkerID: "W-01", Shift: shift("D", 8)},
			{WorkerID: "W-99", Shift: shift("D", 8)},
			{WorkerID: "W-03", Shift: shift("N", 7.5)},
		},
		Meta: model.AuditMeta{Context: "Tramo 2", Actor: "ana"},
	})
	require.NoError(t, err)
	assert.Equal(t, 16, res.DayColumn)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, []string{"W-99"}, res.Skipped)
	assert.NotEmpty(t, res.ID)

	assert.Equal(t, "D", sh.Value(10, 16))
	assert.Equal(t, "8", sh.Value(10, 17))
	assert.Equal(t, "N", sh.Value(12, 16))
	assert.Equal(t, "7.5", sh.Value(12, 17))
	assert.Equal(t, "", sh.Value(11, 16))
	assert.Equal(t, 1, sh.Calls("get_all_values"))

	require.Len(t, jr.commits, 1)
	assert.Equal(t, []string{"W-99"}, jr.commits[0].SkippedIDs)
	assert.Equal(t, 16, jr.commits[0].DayColumn)
}

func TestCommitShiftsMatchesByName(t *testing.T) {
	_, _, sh, _, l := newLedger(t, "Roster 2025 12", true)
	res, err := l.CommitShifts(context.Background(), roster.CommitRequest{
		Day:     1,
		Entries: []model.WorkerEntry{{WorkerID: "ana garcia", Shift: shift("D", 9)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, "D", sh.Value(11, 12))
}

func TestCommitShiftsFallbackColumn(t *testing.T) {
	_, _, sh, _, l := newLedger(t, "Roster 2025 12", false)
	res, err := l.CommitShifts(context.Background(), roster.CommitRequest{
		Day:     21,
		Entries: []model.WorkerEntry{{WorkerID: "W-01", Shift: shift("D", 8)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 14, res.DayColumn)
	assert.Equal(t, "D", sh.Value(10, 14))
}

func TestCommitShiftsNonPositiveFallbackIsLookupError(t *testing.T) {
	_, _, sh, _, l := newLedger(t, "Roster 2025 12", false)
	_, err := l.CommitShifts(context.Background(), roster.CommitRequest{
		Day:     5,
		Entries: []model.WorkerEntry{{WorkerID: "W-01", Shift: shift("D", 8)}},
	})
	assert.True(t, errors.Is(err, tabular.ErrLookup), "err=%v", err)
	assert.Equal(t, 0, sh.Calls("update_cell"))
}

func TestCommitShiftsAppendsStoppage(t *testing.T) {
	_, wb, _, _, l := newLedger(t, "Roster 2025 12", true)
	stop := &model.StoppageRecord{StartTime: "10:00", EndTime: "11:30", DurationHours: 1.5, Reason: "lluvia"}

	for i := 0; i < 2; i++ {
		res, err := l.CommitShifts(context.Background(), roster.CommitRequest{
			Day:      3,
			Entries:  []model.WorkerEntry{{WorkerID: "W-01", Shift: shift("D", 8)}},
			Meta:     model.AuditMeta{Context: "Tramo 2", Actor: "ana"},
			Stoppage: stop,
		})
		require.NoError(t, err)
		assert.True(t, res.StoppageLogged)
	}

	s, err := wb.Sheet(roster.DefaultStoppageSheet)
	require.NoError(t, err)
	grid, err := s.GetAllValues()
	require.NoError(t, err)
	require.Len(t, grid, 3, "header plus two records")
	assert.Equal(t, model.StoppageHeader, grid[0])
	assert.Equal(t, []string{"2025-12-03", "Tramo 2", "10:00", "11:30", "1.5", "lluvia", "ana"}, grid[1])
}

func TestCommitShiftsUnreachableRoster(t *testing.T) {
	st := tabular.NewMemoryStore()
	l := roster.NewLedger(st, roster.Options{TitlePattern: "Roster", Sheet: rosterSheet})
	_, err := l.CommitShifts(context.Background(), roster.CommitRequest{Day: 3})
	assert.True(t, errors.Is(err, tabular.ErrConnection))
}

func TestCommitShiftsBatchFailure(t *testing.T) {
	_, _, sh, jr, l := newLedger(t, "Roster 2025 12", true)
	sh.SetFault(func(op, _ string, _, _ int) error {
		if op == "update_cell" {
			return errors.New("503")
		}
		return nil
	})
	res, err := l.CommitShifts(context.Background(), roster.CommitRequest{
		Day:     3,
		Entries: []model.WorkerEntry{{WorkerID: "W-01", Shift: shift("D", 8)}},
	})
	assert.True(t, errors.Is(err, tabular.ErrConnection))
	assert.Equal(t, 0, res.Written)
	assert.Empty(t, jr.commits)
}

func TestResolveWorkbookPicksLastMatch(t *testing.T) {
	st, _, _, _, l := newLedger(t, "Roster 2025 11", true)
	st.AddWorkbook("Roster 2025 12 (empty)").Seed(rosterSheet, rosterGrid(true))
	st.AddWorkbook("Seguimiento")

	title, err := l.ResolveWorkbook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Roster 2025 12 (empty)", title)

	fixed := roster.NewLedger(st, roster.Options{Workbook: "Roster 2025 11", TitlePattern: "Roster"})
	title, err = fixed.ResolveWorkbook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Roster 2025 11", title)
}

func TestDayColumn(t *testing.T) {
	_, _, _, _, l := newLedger(t, "Roster 2025 12", true)
	col, err := l.DayColumn(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 70, col)

	_, err = l.DayColumn(context.Background(), 0)
	assert.True(t, errors.Is(err, tabular.ErrLookup))
}

func TestCommitStoppageOnlySkipsDayColumn(t *testing.T) {
	_, wb, sh, jr, l := newLedger(t, "Roster 2025 12", false)
	res, err := l.CommitShifts(context.Background(), roster.CommitRequest{
		Stoppage: &model.StoppageRecord{StartTime: "14:00", EndTime: "15:00", DurationHours: 1, Reason: "tormenta"},
		Meta:     model.AuditMeta{Actor: "ana"},
	})
	require.NoError(t, err)
	assert.True(t, res.StoppageLogged)
	assert.Equal(t, 0, res.DayColumn)
	assert.Equal(t, 0, sh.Calls("get_all_values"))
	assert.Equal(t, 0, sh.Calls("update_cell"))
	require.Len(t, jr.commits, 1)

	s, err := wb.Sheet(roster.DefaultStoppageSheet)
	require.NoError(t, err)
	grid, err := s.GetAllValues()
	require.NoError(t, err)
	require.Len(t, grid, 2)
	assert.Equal(t, "tormenta", grid[1][5])
}

// flakyWorkbook 停工表读取时返回连接错误
type flakyWorkbook struct {
	tabular.Workbook
	added int
}

func (w *flakyWorkbook) Sheet(name string) (tabular.Sheet, error) {
	if name == roster.DefaultStoppageSheet {
		return nil, &tabular.OpError{Kind: tabular.ErrConnection, Op: "sheet", Sheet: name, Err: errors.New("timeout")}
	}
	return w.Workbook.Sheet(name)
}

func (w *flakyWorkbook) AddSheet(name string) (tabular.Sheet, error) {
	w.added++
	return w.Workbook.AddSheet(name)
}

type flakyStore struct {
	*tabular.MemoryStore
	wb *flakyWorkbook
}

func (s *flakyStore) Open(ctx context.Context, identity string) (tabular.Workbook, error) {
	wb, err := s.MemoryStore.Open(ctx, identity)
	if err != nil {
		return nil, err
	}
	s.wb.Workbook = wb
	return s.wb, nil
}

func TestCommitStoppageUnreachableSheetIsNotRecreated(t *testing.T) {
	mem := tabular.NewMemoryStore()
	mem.AddWorkbook("Roster 2025 12").Seed(rosterSheet, rosterGrid(true))
	st := &flakyStore{MemoryStore: mem, wb: &flakyWorkbook{}}
	l := roster.NewLedger(st, roster.Options{TitlePattern: "Roster", Sheet: rosterSheet})

	res, err := l.CommitShifts(context.Background(), roster.CommitRequest{
		Day:      3,
		Entries:  []model.WorkerEntry{{WorkerID: "W-01", Shift: shift("D", 8)}},
		Stoppage: &model.StoppageRecord{Reason: "lluvia"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.False(t, res.StoppageLogged)
	assert.Equal(t, 0, st.wb.added)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "timeout")
}
