package store

import "fmt"

// JournalStats 本地日志统计
type JournalStats struct {
	Writes       int `json:"writes"`
	FailedWrites int `json:"failedWrites"`
	BackupFailed int `json:"backupFailed"`
	SpanRuns     int `json:"spanRuns"`
	PartialSpans int `json:"partialSpans"`
	ShiftCommits int `json:"shiftCommits"`
}

// GetJournalStats 汇总本地日志
func (s *Store) GetJournalStats() (JournalStats, error) {
	var st JournalStats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(1) FROM write_log),
			(SELECT COUNT(1) FROM write_log WHERE primary_ok = 0),
			(SELECT COUNT(1) FROM write_log WHERE backup_state = ?),
			(SELECT COUNT(1) FROM span_runs),
			(SELECT COUNT(1) FROM span_runs WHERE status = 'partial'),
			(SELECT COUNT(1) FROM shift_commits)
	`, BackupFailed).Scan(&st.Writes, &st.FailedWrites, &st.BackupFailed, &st.SpanRuns, &st.PartialSpans, &st.ShiftCommits)
	if err != nil {
		return st, fmt.Errorf("query journal stats failed: %w", err)
	}
	return st, nil
}
