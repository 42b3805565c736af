package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized     bool   `json:"initialized"`     // 是否已有摄取数据
	TotalRecords    int    `json:"totalRecords"`    // 用量记录总数
	ResolvedRecords int    `json:"resolvedRecords"` // 已归属记录数
	NetworkMappings int    `json:"networkMappings"` // 网络映射条目数
	PartnerMappings int    `json:"partnerMappings"` // 伙伴映射条目数
	LastIngestTime  string `json:"lastIngestTime"`  // 最近一次摄取完成时间
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	total, resolved, err := h.store.UsageCounts()
	if err != nil {
		c.JSON(http.StatusOK, StatusResponse{Initialized: false})
		return
	}

	lastIngest, err := h.store.LastIngestTime()
	if err != nil {
		lastIngest = ""
	}

	c.JSON(http.StatusOK, StatusResponse{
		Initialized:     total > 0,
		TotalRecords:    total,
		ResolvedRecords: resolved,
		NetworkMappings: h.networkStore.Len(),
		PartnerMappings: h.partnerStore.Len(),
		LastIngestTime:  lastIngest,
	})
}
