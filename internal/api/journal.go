package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldtrack/internal/store"
)

// ListJournal 最近的写入记录；run=<id> 时返回该电缆段批次
// GET /api/journal?limit=50
func (h *Handler) ListJournal(c *gin.Context) {
	if h.Journal == nil {
		c.JSON(http.StatusOK, gin.H{"items": []store.WriteLog{}})
		return
	}

	if runID := c.Query("run"); runID != "" {
		run, err := h.Journal.GetSpanRun(runID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, run)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.Journal.ListWrites(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []store.WriteLog{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// InvalidateCache 清空快照缓存，下次读取强制访问存储
// POST /api/cache/invalidate
func (h *Handler) InvalidateCache(c *gin.Context) {
	dropped := h.Items.Cached()
	h.Items.InvalidateAll()
	c.JSON(http.StatusOK, gin.H{"dropped": dropped})
}
