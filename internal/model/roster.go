package model

// WorkerCategory 人员类别
type WorkerCategory string

const (
	CategorySite      WorkerCategory = "SITE"
	CategoryWarehouse WorkerCategory = "WAREHOUSE"
)

// 考勤表布局
const (
	RosterFirstWorkerRow = 10
	RosterIDCol          = 1
	RosterNameCol        = 2
	RosterCategoryCol    = 3
)

// RosterWorker 考勤表中的一名人员
type RosterWorker struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  WorkerCategory `json:"category"`
	SourceRow int            `json:"sourceRow"`
}

// ShiftOverride 班次判定方式
type ShiftOverride string

const (
	ShiftAuto  ShiftOverride = "AUTO"
	ShiftDay   ShiftOverride = "DAY"
	ShiftNight ShiftOverride = "NIGHT"
)

// 班次字母
const (
	ShiftLetterDay   = "D"
	ShiftLetterNight = "N"
)

// Shift 班次计算结果
type Shift struct {
	HoursTotal float64 `json:"hoursTotal"`
	Letter     string  `json:"letter"`
	IsNight    bool    `json:"isNight"`
}

// WorkerEntry 单个人员的考勤写入
type WorkerEntry struct {
	WorkerID string `json:"workerId"`
	Shift    Shift  `json:"shift"`
}

// StoppageRecord 停工记录（追加写入）
type StoppageRecord struct {
	Date          string  `json:"date"`
	Context       string  `json:"context"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	DurationHours float64 `json:"durationHours"`
	Reason        string  `json:"reason"`
	Actor         string  `json:"actor"`
}

// StoppageHeader 停工日志表头
var StoppageHeader = []string{"date", "context", "startTime", "endTime", "durationHours", "reason", "actor"}

// Values 按表头顺序输出
func (r StoppageRecord) Values() []any {
	return []any{r.Date, r.Context, r.StartTime, r.EndTime, r.DurationHours, r.Reason, r.Actor}
}
