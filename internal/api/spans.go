package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fieldtrack/internal/model"
	"fieldtrack/internal/service/column"
	"fieldtrack/internal/service/span"
	"fieldtrack/internal/service/workitem"
	"fieldtrack/internal/tabular"
)

type applySpanRequest struct {
	FromID  string `json:"fromId"`
	ToID    string `json:"toId"`
	Target  string `json:"target"`
	Date    string `json:"date"`
	Context string `json:"context"`
	Actor   string `json:"actor"`
}

// prepareSpan 校验请求并加载快照；失败时已写出响应
func (h *Handler) prepareSpan(c *gin.Context) (*workitem.Snapshot, span.Request, bool) {
	var req applySpanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return nil, span.Request{}, false
	}
	target, ok := model.ParseStatus(req.Target)
	if !ok || !target.IsSpanStatus() {
		badRequest(c, fmt.Sprintf("target must be %s or %s", model.StatusLaid, model.StatusClamped))
		return nil, span.Request{}, false
	}

	snap, err := h.Items.LoadAll(contextOf(c), h.trackingRef())
	if err != nil {
		fail(c, err)
		return nil, span.Request{}, false
	}
	return snap, span.Request{
		FromID: req.FromID,
		ToID:   req.ToID,
		Target: target,
		Date:   req.Date,
		Meta:   model.AuditMeta{Context: req.Context, Actor: req.Actor},
	}, true
}

// ApplySpan 对一段连续点位批量写入电缆状态
// POST /api/spans
func (h *Handler) ApplySpan(c *gin.Context) {
	snap, req, ok := h.prepareSpan(c)
	if !ok {
		return
	}
	res, err := h.Spans.ApplySpan(contextOf(c), snap, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type spanStreamEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ApplySpanStream 电缆段批量写入（SSE：start、每个点位一条 progress、最后 done 或 error）
// POST /api/spans/stream
func (h *Handler) ApplySpanStream(c *gin.Context) {
	snap, req, ok := h.prepareSpan(c)
	if !ok {
		return
	}
	lo, hi, err := span.SelectRange(snap.IDs(), req.FromID, req.ToID)
	if err != nil {
		fail(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event spanStreamEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	send(spanStreamEvent{
		Type:    "start",
		Message: fmt.Sprintf("%s..%s -> %s", req.FromID, req.ToID, req.Target),
		Data: map[string]any{
			"total": hi - lo + 1,
		},
		Timestamp: time.Now(),
	})

	req.Progress = func(p span.ProgressEvent) {
		send(spanStreamEvent{
			Type:      "progress",
			Message:   p.ItemID,
			Data:      p,
			Timestamp: time.Now(),
		})
	}

	res, err := h.Spans.ApplySpan(contextOf(c), snap, req)
	if err != nil {
		send(spanStreamEvent{
			Type:      "error",
			Message:   err.Error(),
			Data:      map[string]any{},
			Timestamp: time.Now(),
		})
		return
	}
	send(spanStreamEvent{
		Type:      "done",
		Message:   fmt.Sprintf("%d updated, %d failed", res.Updated, len(res.Failed)),
		Data:      res,
		Timestamp: time.Now(),
	})
}

// ResolveDayColumn 解析某日对应的列
// GET /api/columns/day?day=12&kind=roster
func (h *Handler) ResolveDayColumn(c *gin.Context) {
	day, err := strconv.Atoi(c.Query("day"))
	if err != nil || day < 1 || day > 31 {
		badRequest(c, "day must be 1..31")
		return
	}

	kind := model.SheetKind(c.DefaultQuery("kind", string(model.SheetKindRoster)))
	switch kind {
	case model.SheetKindRoster:
		col, err := h.Roster.DayColumn(contextOf(c), day)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": kind, "day": day, "column": col})
	case model.SheetKindTracking:
		ref := h.trackingRef()
		sheet, err := tabular.OpenSheet(contextOf(c), h.Tabular, ref)
		if err != nil {
			fail(c, err)
			return
		}
		grid, err := sheet.GetAllValues()
		if err != nil {
			fail(c, err)
			return
		}
		col, found := column.FindDayColumn(grid, column.TrackingHeaderWindow, day)
		if !found {
			col = column.FallbackColumn(day)
		}
		c.JSON(http.StatusOK, gin.H{"kind": kind, "day": day, "column": col, "fallback": !found})
	default:
		badRequest(c, fmt.Sprintf("unknown sheet kind %q", kind))
	}
}
