package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"fieldtrack/internal/model"
	"fieldtrack/internal/service/progress"
	"fieldtrack/internal/service/workitem"
	"fieldtrack/internal/tabular"
)

type itemView struct {
	ID       string          `json:"id"`
	Row      int             `json:"row"`
	Fields   []string        `json:"fields,omitempty"`
	Progress *model.Progress `json:"progress,omitempty"`
}

type listItemsResponse struct {
	Tracking model.SheetRef `json:"tracking"`
	Items    []itemView     `json:"items"`
	Total    int            `json:"total"`
	LoadedAt string         `json:"loadedAt"`
}

// ListItems 点位列表（按表内顺序）；progress=1 时附带推导出的子状态
// GET /api/items?q=P-0&progress=1
func (h *Handler) ListItems(c *gin.Context) {
	ref := h.trackingRef()
	snap, err := h.Items.LoadAll(contextOf(c), ref)
	if err != nil {
		fail(c, err)
		return
	}

	withProgress, _ := strconv.ParseBool(c.DefaultQuery("progress", "false"))
	var formats tabular.Sheet
	if withProgress {
		// 格式读取失败时按 NORMAL 处理，不影响列表
		formats, _ = tabular.OpenSheet(contextOf(c), h.Tabular, ref)
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	items := make([]itemView, 0, snap.Len())
	for _, it := range snap.Items {
		if q != "" && !strings.Contains(strings.ToLower(it.ID), q) {
			continue
		}
		v := itemView{ID: it.ID, Row: it.SourceRow}
		if withProgress {
			p := workitem.Derive(it, formats)
			v.Progress = &p
		}
		items = append(items, v)
	}

	c.JSON(http.StatusOK, listItemsResponse{
		Tracking: ref,
		Items:    items,
		Total:    len(items),
		LoadedAt: snap.LoadedAt.Format("2006-01-02 15:04:05"),
	})
}

// GetItem 单个点位及其子状态
// GET /api/items/:id
func (h *Handler) GetItem(c *gin.Context) {
	ref, item, ok := h.lookupItem(c)
	if !ok {
		return
	}
	formats, _ := tabular.OpenSheet(contextOf(c), h.Tabular, ref)
	p := workitem.Derive(item, formats)
	c.JSON(http.StatusOK, itemView{
		ID:       item.ID,
		Row:      item.SourceRow,
		Fields:   item.RawFields,
		Progress: &p,
	})
}

type writeStatusRequest struct {
	Col     int    `json:"col"`
	Value   string `json:"value"`
	Status  string `json:"status"`
	Context string `json:"context"`
	Actor   string `json:"actor"`
	Warning string `json:"warning"`
}

// WriteItemStatus 向点位某列写入值 + 审计备注 + 状态格式
// POST /api/items/:id/status
func (h *Handler) WriteItemStatus(c *gin.Context) {
	var req writeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	status, ok := model.ParseStatus(req.Status)
	if !ok {
		badRequest(c, fmt.Sprintf("unknown status %q", req.Status))
		return
	}
	if req.Col < 1 {
		badRequest(c, "col must be >= 1")
		return
	}

	ref, item, ok := h.lookupItem(c)
	if !ok {
		return
	}
	res := h.Writer.WriteStatus(contextOf(c), ref, item.SourceRow, req.Col, req.Value, status, model.AuditMeta{
		Context: req.Context,
		Actor:   req.Actor,
		Warning: req.Warning,
	})
	if !res.OK {
		fail(c, res.Err, res.Warnings...)
		return
	}
	c.JSON(http.StatusOK, res)
}

type milestoneRequest struct {
	progress.MilestoneRequest
	// Events 电杆勾选事件，依次归约到 Flags 上
	Events  []progress.Event `json:"events"`
	Context string           `json:"context"`
	Actor   string           `json:"actor"`
}

// RecordMilestone 登记基础/电杆/横担/拉线
// POST /api/items/:id/milestones
func (h *Handler) RecordMilestone(c *gin.Context) {
	var req milestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if _, _, err := progress.Columns(req.Kind, req.Index); err != nil {
		badRequest(c, err.Error())
		return
	}

	ref, item, ok := h.lookupItem(c)
	if !ok {
		return
	}
	mr := req.MilestoneRequest
	mr.Flags = progress.ReduceAll(mr.Flags, req.Events...)

	res, err := h.Recorder.RecordMilestone(contextOf(c), ref, item, mr, model.AuditMeta{
		Context: req.Context,
		Actor:   req.Actor,
	})
	if err != nil {
		fail(c, err, res.Warnings...)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result": res,
		"flags":  mr.Flags,
	})
}

// lookupItem 按路径参数 id 定位点位；失败时已写出响应
func (h *Handler) lookupItem(c *gin.Context) (model.SheetRef, *model.WorkItem, bool) {
	ref := h.trackingRef()
	snap, err := h.Items.LoadAll(contextOf(c), ref)
	if err != nil {
		fail(c, err)
		return ref, nil, false
	}
	id := strings.TrimSpace(c.Param("id"))
	item, ok := snap.Get(id)
	if !ok {
		fail(c, &tabular.OpError{Kind: tabular.ErrLookup, Op: "item", Sheet: ref.Sheet, Err: fmt.Errorf("item %q not found", id)})
		return ref, nil, false
	}
	return ref, item, true
}
