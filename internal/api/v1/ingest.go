package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"roamstat/internal/pipeline"
)

// Ingest 摄取上传的漫游用量工作簿 (SSE 流式响应)
// POST /api/ingest  (multipart 字段 "file"，可多文件)
func (h *Handler) Ingest(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的表单数据"})
		return
	}

	fileHeaders := form.File["file"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	// 整批先完整读入内存再处理
	var files []pipeline.UploadFile
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("打开上传文件失败: %s", fh.Filename)})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("读取上传文件失败: %s", fh.Filename)})
			return
		}
		files = append(files, pipeline.UploadFile{Filename: fh.Filename, Data: data})
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	emit := func(event pipeline.ProgressEvent) {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now()
		}
		eventData, err := json.Marshal(event)
		if err != nil {
			return
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}

	runID := uuid.New().String()
	if err := h.store.CreateIngestRun(runID, len(files)); err != nil {
		emit(pipeline.ProgressEvent{Type: "error", Message: fmt.Sprintf("创建运行日志失败: %v", err)})
		return
	}

	result, err := h.pipeline.Run(files, emit)
	if err != nil {
		_ = h.store.CompleteIngestRun(runID, 0, 0, 0, 0, "error", err.Error())
		if !errors.Is(err, pipeline.ErrNoUsableData) {
			// 映射表结构错误等致命问题，pipeline 内部未发过事件
			emit(pipeline.ProgressEvent{Type: "error", Message: err.Error()})
		}
		return
	}

	if err := h.store.BatchInsertUsage(runID, result.Records); err != nil {
		_ = h.store.CompleteIngestRun(runID, len(result.Records), len(result.Unresolved),
			result.NewNetwork, result.NewPartner, "error", err.Error())
		emit(pipeline.ProgressEvent{Type: "error", Message: fmt.Sprintf("保存用量记录失败: %v", err)})
		return
	}

	_ = h.store.CompleteIngestRun(runID, len(result.Records), len(result.Unresolved),
		result.NewNetwork, result.NewPartner, "done", "")

	if !result.YearDetected {
		// 整批无一条记录识别出年份，按年份分组的看板将无数可用
		emit(pipeline.ProgressEvent{
			Type:    "warning",
			Message: "未能从任何文件名识别出年份，请确认文件名包含如 2019、2020 等年份",
		})
	}

	emit(pipeline.ProgressEvent{
		Type:    "result",
		Message: "摄取结果",
		Data: gin.H{
			"runId":              runID,
			"rows":               len(result.Records),
			"unresolved":         result.Unresolved,
			"newNetworkMappings": result.NewNetwork,
			"newPartnerMappings": result.NewPartner,
			"reports":            result.Reports,
			"yearDetected":       result.YearDetected,
		},
	})
}
