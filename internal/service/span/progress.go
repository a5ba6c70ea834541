package span

// ProgressEvent 电缆段更新进度（每写完一个点位触发一次）
type ProgressEvent struct {
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	ItemID  string `json:"itemId"`
	OK      bool   `json:"ok"`
}

func reportProgress(progress func(ProgressEvent), done, total int, itemID string, ok bool) {
	if progress == nil {
		return
	}
	percent := 100
	if total > 0 {
		percent = done * 100 / total
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	progress(ProgressEvent{
		Done:    done,
		Total:   total,
		Percent: percent,
		ItemID:  itemID,
		OK:      ok,
	})
}
