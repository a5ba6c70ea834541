// Package roster 负责考勤表：班次工时计算、人员行定位、按日批量写入以及停工日志。
package roster

import (
	"fmt"
	"math"
	"strings"
	"time"

	"fieldtrack/internal/model"
)

// TimeLayout 上下班时间格式
const TimeLayout = "15:04"

// MealDeduction 固定扣除的用餐时长（小时）
const MealDeduction = 1.0

// 夜班判定：开工时间落在 [21:00, 24:00) 或 [00:00, 04:59]
const (
	nightStartHour = 21
	nightEndHour   = 4
)

// ParseOverride 空串视为 AUTO
func ParseOverride(s string) (model.ShiftOverride, error) {
	switch o := model.ShiftOverride(strings.ToUpper(strings.TrimSpace(s))); o {
	case "":
		return model.ShiftAuto, nil
	case model.ShiftAuto, model.ShiftDay, model.ShiftNight:
		return o, nil
	default:
		return "", fmt.Errorf("unknown shift override %q", s)
	}
}

// ComputeShift 计算工时与班次。结束早于开始时视为跨零点（+24h）。
func ComputeShift(start, end string, override model.ShiftOverride, mealDeduction bool) (model.Shift, error) {
	st, err := time.Parse(TimeLayout, strings.TrimSpace(start))
	if err != nil {
		return model.Shift{}, fmt.Errorf("invalid start time %q: %w", start, err)
	}
	et, err := time.Parse(TimeLayout, strings.TrimSpace(end))
	if err != nil {
		return model.Shift{}, fmt.Errorf("invalid end time %q: %w", end, err)
	}

	d := et.Sub(st)
	if d < 0 {
		d += 24 * time.Hour
	}
	hours := d.Hours()
	if mealDeduction {
		hours = math.Max(0, hours-MealDeduction)
	}

	var night bool
	switch override {
	case model.ShiftNight:
		night = true
	case model.ShiftDay:
		night = false
	case model.ShiftAuto, "":
		h := st.Hour()
		night = h >= nightStartHour || h <= nightEndHour
	default:
		return model.Shift{}, fmt.Errorf("unknown shift override %q", override)
	}

	letter := model.ShiftLetterDay
	if night {
		letter = model.ShiftLetterNight
	}
	return model.Shift{
		HoursTotal: math.Round(hours*100) / 100,
		Letter:     letter,
		IsNight:    night,
	}, nil
}
