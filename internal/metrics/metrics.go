package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	cellWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldtrack_cell_writes_total",
			Help: "Status cell writes by primary outcome and backup state",
		},
		[]string{"primary", "backup"},
	)
	spanRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldtrack_span_runs_total",
			Help: "Span updates by outcome",
		},
		[]string{"outcome"},
	)
	rosterCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldtrack_roster_commits_total",
			Help: "Roster day commits by outcome",
		},
		[]string{"outcome"},
	)
	cachedSnapshots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldtrack_cached_snapshots",
			Help: "Work item snapshots currently held in cache",
		},
	)
)

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// ObserveWrite 记录一次状态写入
func ObserveWrite(primaryOK bool, backupState string) {
	cellWrites.WithLabelValues(outcome(primaryOK), backupState).Inc()
}

// ObserveSpan 记录一次电缆段批次；有失败项即为 partial
func ObserveSpan(succeeded, failed int) {
	switch {
	case failed == 0:
		spanRuns.WithLabelValues("ok").Inc()
	case succeeded == 0:
		spanRuns.WithLabelValues("failed").Inc()
	default:
		spanRuns.WithLabelValues("partial").Inc()
	}
}

// ObserveRosterCommit 记录一次考勤提交
func ObserveRosterCommit(ok bool) {
	rosterCommits.WithLabelValues(outcome(ok)).Inc()
}

// SetCachedSnapshots 更新缓存快照数
func SetCachedSnapshots(n int) {
	cachedSnapshots.Set(float64(n))
}
