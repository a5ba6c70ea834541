package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldtrack/internal/model"
	"fieldtrack/internal/service/roster"
)

type shiftInput struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Override string `json:"override"`
	// MealDeduction 为空时使用配置
	MealDeduction *bool `json:"mealDeduction"`
}

func (h *Handler) computeShift(in shiftInput) (model.Shift, error) {
	override, err := roster.ParseOverride(in.Override)
	if err != nil {
		return model.Shift{}, err
	}
	meal := h.MealDeduction
	if in.MealDeduction != nil {
		meal = *in.MealDeduction
	}
	return roster.ComputeShift(in.Start, in.End, override, meal)
}

// PreviewShift 计算工时与班次（不写入）
// POST /api/roster/shift/preview
func (h *Handler) PreviewShift(c *gin.Context) {
	var in shiftInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	shift, err := h.computeShift(in)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, shift)
}

// ListWorkers 考勤表人员
// GET /api/roster/workers?category=SITE
func (h *Handler) ListWorkers(c *gin.Context) {
	workers, err := h.Roster.Workers(contextOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	if cat := c.Query("category"); cat != "" {
		filtered := workers[:0]
		for _, w := range workers {
			if string(w.Category) == cat {
				filtered = append(filtered, w)
			}
		}
		workers = filtered
	}
	if workers == nil {
		workers = []model.RosterWorker{}
	}
	c.JSON(http.StatusOK, gin.H{"items": workers, "total": len(workers)})
}

type shiftEntryRequest struct {
	WorkerID string `json:"workerId"`
	shiftInput
}

type commitShiftsRequest struct {
	Day      int                   `json:"day"`
	Entries  []shiftEntryRequest   `json:"entries"`
	Context  string                `json:"context"`
	Actor    string                `json:"actor"`
	Stoppage *model.StoppageRecord `json:"stoppage"`
}

// CommitShifts 写入一天的考勤；找不到的人员跳过并在 skipped 中返回
// POST /api/roster/shifts
func (h *Handler) CommitShifts(c *gin.Context) {
	var req commitShiftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if len(req.Entries) == 0 && req.Stoppage == nil {
		badRequest(c, "nothing to commit")
		return
	}

	entries := make([]model.WorkerEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		shift, err := h.computeShift(e.shiftInput)
		if err != nil {
			badRequest(c, fmt.Sprintf("%s: %v", e.WorkerID, err))
			return
		}
		entries = append(entries, model.WorkerEntry{WorkerID: e.WorkerID, Shift: shift})
	}

	res, err := h.Roster.CommitShifts(contextOf(c), roster.CommitRequest{
		Day:      req.Day,
		Entries:  entries,
		Meta:     model.AuditMeta{Context: req.Context, Actor: req.Actor},
		Stoppage: req.Stoppage,
	})
	if err != nil {
		fail(c, err, res.Warnings...)
		return
	}
	c.JSON(http.StatusOK, res)
}
