package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fieldtrack/internal/model"
	"fieldtrack/internal/tabular"
)

// ListSheets 列出标题包含关键字的工作簿
// GET /api/sheets?q=Seguimiento
func (h *Handler) ListSheets(c *gin.Context) {
	titles, err := h.Tabular.ListTitlesContaining(contextOf(c), strings.TrimSpace(c.Query("q")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current": h.trackingRef(),
		"items":   titles,
	})
}

type selectSheetRequest struct {
	Workbook string `json:"workbook"`
	Sheet    string `json:"sheet"`
}

// SelectSheet 切换当前跟踪表（影响：点位列表/状态写入/电缆段）
// POST /api/sheets/select
func (h *Handler) SelectSheet(c *gin.Context) {
	var req selectSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ref := model.SheetRef{Workbook: strings.TrimSpace(req.Workbook), Sheet: strings.TrimSpace(req.Sheet)}
	if ref.Workbook == "" {
		badRequest(c, "workbook is required")
		return
	}
	if ref.Sheet == "" {
		ref.Sheet = h.Tracking.Sheet
	}

	// 校验工作表可达，避免切到不存在的表
	if _, err := tabular.OpenSheet(contextOf(c), h.Tabular, ref); err != nil {
		fail(c, err)
		return
	}
	if h.Journal != nil {
		if err := h.Journal.SetTrackingSelection(ref.Workbook, ref.Sheet); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	h.Items.Invalidate(ref)

	snap, err := h.Items.LoadAll(contextOf(c), ref)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tracking":  ref,
		"itemCount": snap.Len(),
	})
}
