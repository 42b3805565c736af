package v1

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"roamstat/internal/exporter"
	"roamstat/internal/model"
)

// ExportRequest 报表导出请求
type ExportRequest struct {
	Year   int    `json:"year" binding:"required"`
	Metric string `json:"metric"`
	TopN   int    `json:"topN"`
	Format string `json:"format"` // xlsx / html，空值取 xlsx
}

// Export 生成导出文件并返回一次性下载令牌
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	format := req.Format
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "html" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不支持的导出格式: %s", format)})
		return
	}

	metric := req.Metric
	if metric == "" {
		metric = model.ColTotalVolumeKB
	}
	topN := clampTopN(req.TopN, h.defaultTopN)
	opts := exporter.ExportOptions{
		Year:   req.Year,
		Metric: metric,
		TopN:   topN,
	}

	if err := os.MkdirAll(h.exportDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("创建导出目录失败: %v", err)})
		return
	}

	filePath := filepath.Join(h.exportDir, uuid.New().String()+"."+format)

	switch format {
	case "xlsx":
		f, err := h.exporter.ExportWorkbook(opts)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		saveErr := f.SaveAs(filePath)
		_ = f.Close()
		if saveErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("保存导出文件失败: %v", saveErr)})
			return
		}
	case "html":
		html, err := h.exporter.ExportChartHTML(opts)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err := os.WriteFile(filePath, html, 0o644); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("保存导出文件失败: %v", err)})
			return
		}
	}

	fileName := fmt.Sprintf("roaming_usage_%d_top%d.%s", req.Year, topN, format)
	token := h.downloads.put(filePath, fileName, req.Year, opts.Metric, h.downloadTTL)

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"fileName":    fileName,
		"expiresIn":   int(h.downloadTTL.Seconds()),
		"downloadUrl": "/api/export/download/" + token,
	})
}

// DownloadExport 凭令牌下载导出文件
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")

	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载令牌不存在或已过期"})
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件已不存在"})
		return
	}

	c.FileAttachment(item.filePath, item.fileName)
}
