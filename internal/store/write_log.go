package store

import (
	"fmt"
	"strings"
	"time"
)

// BackupState 备份镜像结果
const (
	BackupSkipped  = "skipped"
	BackupMirrored = "mirrored"
	BackupFailed   = "failed"
)

// WriteLog 一次单元格状态写入
type WriteLog struct {
	ID          int64     `json:"id"`
	Workbook    string    `json:"workbook"`
	Sheet       string    `json:"sheet"`
	Row         int       `json:"row"`
	Col         int       `json:"col"`
	Value       string    `json:"value"`
	Status      string    `json:"status"`
	Context     string    `json:"context"`
	Actor       string    `json:"actor"`
	PrimaryOK   bool      `json:"primaryOk"`
	BackupState string    `json:"backupState"`
	Warnings    []string  `json:"warnings"`
	SpanRunID   string    `json:"spanRunId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RecordWrite 记录一次写入
func (s *Store) RecordWrite(w WriteLog) error {
	backup := w.BackupState
	if backup == "" {
		backup = BackupSkipped
	}
	_, err := s.db.Exec(`
		INSERT INTO write_log (
			workbook, sheet, row_no, col_no, value, status,
			context, actor, primary_ok, backup_state, warnings, span_run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.Workbook, w.Sheet, w.Row, w.Col, w.Value, w.Status,
		w.Context, w.Actor, w.PrimaryOK, backup, strings.Join(w.Warnings, "\n"), w.SpanRunID)
	if err != nil {
		return fmt.Errorf("failed to record write: %w", err)
	}
	return nil
}

// ListWrites 最近的写入记录（按时间倒序）
func (s *Store) ListWrites(limit int) ([]WriteLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, workbook, sheet, row_no, col_no, value, status,
			context, actor, primary_ok, backup_state, warnings, span_run_id, created_at
		FROM write_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query write log failed: %w", err)
	}
	defer rows.Close()

	out := make([]WriteLog, 0)
	for rows.Next() {
		var w WriteLog
		var warnings string
		if err := rows.Scan(&w.ID, &w.Workbook, &w.Sheet, &w.Row, &w.Col, &w.Value, &w.Status,
			&w.Context, &w.Actor, &w.PrimaryOK, &w.BackupState, &warnings, &w.SpanRunID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan write log failed: %w", err)
		}
		if warnings != "" {
			w.Warnings = strings.Split(warnings, "\n")
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate write log failed: %w", err)
	}
	return out, nil
}

// SpanRun 一次电缆段批量更新
type SpanRun struct {
	ID        string   `json:"id"`
	Workbook  string   `json:"workbook"`
	Sheet     string   `json:"sheet"`
	FromID    string   `json:"fromId"`
	ToID      string   `json:"toId"`
	Target    string   `json:"target"`
	DateValue string   `json:"dateValue"`
	Total     int      `json:"total"`
	Updated   int      `json:"updated"`
	FailedIDs []string `json:"failedIds"`
	Actor     string   `json:"actor"`
	Status    string   `json:"status"`
}

// StartSpanRun 创建批次记录
func (s *Store) StartSpanRun(r SpanRun) error {
	_, err := s.db.Exec(`
		INSERT INTO span_runs (id, workbook, sheet, from_id, to_id, target_status, date_value, total, actor, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'running')
	`, r.ID, r.Workbook, r.Sheet, r.FromID, r.ToID, r.Target, r.DateValue, r.Total, r.Actor)
	if err != nil {
		return fmt.Errorf("failed to start span run: %w", err)
	}
	return nil
}

// FinishSpanRun 完成批次记录
func (s *Store) FinishSpanRun(id string, updated int, failedIDs []string) error {
	status := "completed"
	if len(failedIDs) > 0 {
		status = "partial"
	}
	_, err := s.db.Exec(`
		UPDATE span_runs SET
			updated = ?,
			failed_ids = ?,
			status = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, updated, strings.Join(failedIDs, ","), status, id)
	if err != nil {
		return fmt.Errorf("failed to finish span run: %w", err)
	}
	return nil
}

// GetSpanRun 查询批次
func (s *Store) GetSpanRun(id string) (*SpanRun, error) {
	var r SpanRun
	var failed string
	err := s.db.QueryRow(`
		SELECT id, workbook, sheet, from_id, to_id, target_status, date_value, total, updated, failed_ids, actor, status
		FROM span_runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Workbook, &r.Sheet, &r.FromID, &r.ToID, &r.Target, &r.DateValue,
		&r.Total, &r.Updated, &failed, &r.Actor, &r.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to get span run %s: %w", id, err)
	}
	if failed != "" {
		r.FailedIDs = strings.Split(failed, ",")
	}
	return &r, nil
}

// ShiftCommit 一次考勤提交
type ShiftCommit struct {
	ID             string   `json:"id"`
	Workbook       string   `json:"workbook"`
	Sheet          string   `json:"sheet"`
	Day            int      `json:"day"`
	DayColumn      int      `json:"dayColumn"`
	Written        int      `json:"written"`
	SkippedIDs     []string `json:"skippedIds"`
	StoppageLogged bool     `json:"stoppageLogged"`
	Context        string   `json:"context"`
	Actor          string   `json:"actor"`
}

// RecordShiftCommit 记录考勤提交
func (s *Store) RecordShiftCommit(c ShiftCommit) error {
	_, err := s.db.Exec(`
		INSERT INTO shift_commits (id, workbook, sheet, day, day_column, written, skipped_ids, stoppage_logged, context, actor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Workbook, c.Sheet, c.Day, c.DayColumn, c.Written, strings.Join(c.SkippedIDs, ","),
		c.StoppageLogged, c.Context, c.Actor)
	if err != nil {
		return fmt.Errorf("failed to record shift commit: %w", err)
	}
	return nil
}
