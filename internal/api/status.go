package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldtrack/internal/model"
	"fieldtrack/internal/service/codec"
	"fieldtrack/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Tracking        model.SheetRef      `json:"tracking"`
	Reachable       bool                `json:"reachable"` // 跟踪表是否可读取
	ItemCount       int                 `json:"itemCount"` // 点位数量
	CachedSnapshots int                 `json:"cachedSnapshots"`
	BackupWorkbook  string              `json:"backupWorkbook"`
	CodecVersion    int                 `json:"codecVersion"`
	Journal         *store.JournalStats `json:"journal,omitempty"`
	Error           string              `json:"error,omitempty"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ref := h.trackingRef()
	resp := StatusResponse{
		Tracking:     ref,
		CodecVersion: codec.Version,
	}
	if h.Writer != nil {
		resp.BackupWorkbook = h.Writer.BackupWorkbook()
	}

	snap, err := h.Items.LoadAll(contextOf(c), ref)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Reachable = true
		resp.ItemCount = snap.Len()
	}
	resp.CachedSnapshots = h.Items.Cached()

	if h.Journal != nil {
		if stats, err := h.Journal.GetJournalStats(); err == nil {
			resp.Journal = &stats
		}
	}

	c.JSON(http.StatusOK, resp)
}

func contextOf(c *gin.Context) context.Context {
	if c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}
