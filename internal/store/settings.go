package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// 设置项键
const (
	SettingTrackingWorkbook = "tracking_workbook"
	SettingTrackingSheet    = "tracking_sheet"
)

// GetSetting 获取设置项
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("setting not found: %s", key)
		}
		return "", err
	}
	return value, nil
}

// GetTrackingSelection 获取当前选择的跟踪表，未设置时返回空串
func (s *Store) GetTrackingSelection() (workbook, sheet string) {
	workbook, _ = s.GetSetting(SettingTrackingWorkbook)
	sheet, _ = s.GetSetting(SettingTrackingSheet)
	return workbook, sheet
}

// SetTrackingSelection 切换当前跟踪表
func (s *Store) SetTrackingSelection(workbook, sheet string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range map[string]string{
		SettingTrackingWorkbook: workbook,
		SettingTrackingSheet:    sheet,
	} {
		if _, err := tx.Exec(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
		`, key, value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}
	return tx.Commit()
}
