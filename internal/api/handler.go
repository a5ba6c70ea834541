package api

import (
	"github.com/gin-gonic/gin"

	"fieldtrack/internal/model"
	"fieldtrack/internal/service/progress"
	"fieldtrack/internal/service/roster"
	"fieldtrack/internal/service/span"
	"fieldtrack/internal/service/workitem"
	"fieldtrack/internal/service/writer"
	"fieldtrack/internal/store"
	"fieldtrack/internal/tabular"
)

// Deps API 依赖
type Deps struct {
	Tabular  tabular.Store
	Journal  *store.Store
	Items    *workitem.Repository
	Writer   *writer.Writer
	Spans    *span.Engine
	Recorder *progress.Recorder
	Roster   *roster.Ledger
	// Tracking 默认跟踪表；本地设置中保存的选择优先
	Tracking      model.SheetRef
	MealDeduction bool
}

// Handler API 处理器
type Handler struct {
	Deps
}

// NewHandler 创建 API 处理器
func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 跟踪表选择
	router.GET("/sheets", h.ListSheets)
	router.POST("/sheets/select", h.SelectSheet)

	// 点位
	router.GET("/items", h.ListItems)
	router.GET("/items/:id", h.GetItem)
	router.POST("/items/:id/status", h.WriteItemStatus)
	router.POST("/items/:id/milestones", h.RecordMilestone)

	// 电缆段
	router.POST("/spans", h.ApplySpan)
	router.POST("/spans/stream", h.ApplySpanStream)

	// 日期列
	router.GET("/columns/day", h.ResolveDayColumn)

	// 考勤
	router.POST("/roster/shift/preview", h.PreviewShift)
	router.GET("/roster/workers", h.ListWorkers)
	router.POST("/roster/shifts", h.CommitShifts)

	// 本地日志与缓存
	router.GET("/journal", h.ListJournal)
	router.POST("/cache/invalidate", h.InvalidateCache)
}

// trackingRef 当前跟踪表
func (h *Handler) trackingRef() model.SheetRef {
	ref := h.Tracking
	if h.Journal != nil {
		if wb, sh := h.Journal.GetTrackingSelection(); wb != "" {
			ref.Workbook = wb
			if sh != "" {
				ref.Sheet = sh
			}
		}
	}
	return ref
}
