package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"roamstat/internal/exporter"
	"roamstat/internal/geo"
	"roamstat/internal/mapping"
	"roamstat/internal/pipeline"
	"roamstat/internal/store"
)

// Handler V1 API 处理器
type Handler struct {
	store        *store.Store
	pipeline     *pipeline.Pipeline
	networkStore *mapping.Store
	partnerStore *mapping.Store
	exporter     *exporter.Exporter
	exportDir    string
	downloadTTL  time.Duration
	defaultTopN  int
	downloads    *exportDownloadStore
}

// Options 处理器装配参数
type Options struct {
	Store        *store.Store
	Pipeline     *pipeline.Pipeline
	NetworkStore *mapping.Store
	PartnerStore *mapping.Store
	Catalog      *geo.Catalog
	ExportDir    string
	DownloadTTL  time.Duration
	DefaultTopN  int
}

// NewHandler 创建 V1 API 处理器
func NewHandler(opts Options) *Handler {
	if opts.DownloadTTL <= 0 {
		opts.DownloadTTL = 10 * time.Minute
	}
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = 15
	}
	return &Handler{
		store:        opts.Store,
		pipeline:     opts.Pipeline,
		networkStore: opts.NetworkStore,
		partnerStore: opts.PartnerStore,
		exporter:     exporter.NewExporter(opts.Store, opts.Catalog),
		exportDir:    opts.ExportDir,
		downloadTTL:  opts.DownloadTTL,
		defaultTopN:  opts.DefaultTopN,
		downloads:    newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 数据摄取
	router.POST("/ingest", h.Ingest)

	// 用量查询
	router.GET("/usage/years", h.ListYears)
	router.GET("/usage/countries", h.ListCountryUsage)

	// 待补录与人工补录
	router.GET("/unresolved", h.ListUnresolved)
	router.POST("/mappings/corrections", h.SaveCorrections)

	// 映射表查看
	router.GET("/mappings/network", h.ListNetworkMappings)
	router.GET("/mappings/partner", h.ListPartnerMappings)

	// 报表导出
	router.POST("/export", h.Export)
	router.GET("/export/download/:token", h.DownloadExport)
}
