package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roamstat/internal/mapping"
	"roamstat/internal/pipeline"
)

// ListUnresolved 列出存量数据里待人工补录的标识对
// GET /api/unresolved
func (h *Handler) ListUnresolved(c *gin.Context) {
	pairs, err := h.store.ListUnresolved()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(pairs),
		"pairs": pairs,
	})
}

// CorrectionsRequest 人工补录请求
type CorrectionsRequest struct {
	Corrections []pipeline.Correction `json:"corrections" binding:"required"`
}

// SaveCorrections 保存一批人工补录并回填存量记录
// POST /api/mappings/corrections
func (h *Handler) SaveCorrections(c *gin.Context) {
	var req CorrectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	networkAdded, partnerAdded, err := h.pipeline.ApplyCorrections(req.Corrections)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyCorrection) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "补录批次里没有一条填写了国家"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 补录生效后把国家回填到尚未归属的存量记录
	var backfilled int64
	for _, corr := range req.Corrections {
		country := mapping.NormalizeCountry(corr.Country)
		networkID := strings.TrimSpace(corr.NetworkID)
		if networkID == "" || country == "" {
			continue
		}
		n, err := h.store.ApplyCountry(networkID, country)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		backfilled += n
	}

	c.JSON(http.StatusOK, gin.H{
		"networkAdded": networkAdded,
		"partnerAdded": partnerAdded,
		"backfilled":   backfilled,
	})
}

// ListNetworkMappings 列出网络标识到国家的映射表
// GET /api/mappings/network
func (h *Handler) ListNetworkMappings(c *gin.Context) {
	if err := h.networkStore.Load(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": h.networkStore.Len(),
		"pairs": h.networkStore.Pairs(),
	})
}

// ListPartnerMappings 列出伙伴名称到国家的映射表
// GET /api/mappings/partner
func (h *Handler) ListPartnerMappings(c *gin.Context) {
	if err := h.partnerStore.Load(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": h.partnerStore.Len(),
		"pairs": h.partnerStore.Pairs(),
	})
}
