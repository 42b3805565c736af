package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roamstat/internal/exporter"
	"roamstat/internal/model"
)

// ListYears 列出可供查询的年份
// GET /api/usage/years
func (h *Handler) ListYears(c *gin.Context) {
	years, err := h.store.ListYears()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(years) == 0 {
		// 数据里没有任何识别出年份且已归属的记录
		c.JSON(http.StatusNotFound, gin.H{"error": "没有可用年份，请先摄取文件名含年份的报表"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"years": years})
}

// CountryUsageResponse 国家用量排行响应
type CountryUsageResponse struct {
	Year    int                  `json:"year"`
	Metric  string               `json:"metric"`
	TopN    int                  `json:"topN"`
	Usage   []model.CountryUsage `json:"usage"`
	Metrics []string             `json:"metrics"` // 可选指标列表
}

// ListCountryUsage 按 年份+指标 取国家用量排行（附 ISO3）
// GET /api/usage/countries?year=2020&metric=Total%20Volume(KB)&topN=15
func (h *Handler) ListCountryUsage(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少有效的 year 参数"})
		return
	}

	metric := c.Query("metric")
	if metric == "" {
		metric = model.ColTotalVolumeKB
	}

	topN := h.defaultTopN
	if raw := c.Query("topN"); raw != "" {
		topN, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "topN 必须是整数"})
			return
		}
	}
	topN = clampTopN(topN, h.defaultTopN)

	usage, err := h.exporter.RankedUsage(exporter.ExportOptions{
		Year:   year,
		Metric: metric,
		TopN:   topN,
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, CountryUsageResponse{
		Year:    year,
		Metric:  metric,
		TopN:    topN,
		Usage:   usage,
		Metrics: model.UsageMetrics,
	})
}

// clampTopN 排行条数限制在 5~30，非法值回落到默认
func clampTopN(n, def int) int {
	if n == 0 {
		return def
	}
	if n < 5 {
		return 5
	}
	if n > 30 {
		return 30
	}
	return n
}
