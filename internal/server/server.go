package server

import (
	"log"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	v1 "roamstat/internal/api/v1"
	"roamstat/internal/config"
	"roamstat/internal/geo"
	"roamstat/internal/mapping"
	"roamstat/internal/model"
	"roamstat/internal/pipeline"
	"roamstat/internal/resolver"
	"roamstat/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	v1     *v1.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}
	dbPath := filepath.Join(dataDir, "roamstat.db")

	sqliteStore, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 映射表：网络标识 / 伙伴名称 两张 CSV
	networkStore := mapping.NewStore(config.MappingPath(cfg, cfg.Mapping.NetworkFile), model.ColNetworkID)
	partnerStore := mapping.NewStore(config.MappingPath(cfg, cfg.Mapping.PartnerFile), model.ColPartnerName)

	catalog := geo.NewCatalog()
	res := resolver.New(catalog)
	pipe := pipeline.New(networkStore, partnerStore, res)

	v1Handler := v1.NewHandler(v1.Options{
		Store:        sqliteStore,
		Pipeline:     pipe,
		NetworkStore: networkStore,
		PartnerStore: partnerStore,
		Catalog:      catalog,
		ExportDir:    filepath.Join(dataDir, "exports"),
		DownloadTTL:  time.Duration(cfg.Export.DownloadTTLMinutes) * time.Minute,
		DefaultTopN:  cfg.Export.DefaultTopN,
	})

	s := &Server{
		router: gin.Default(),
		store:  sqliteStore,
		v1:     v1Handler,
	}

	s.setupRoutes()

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// V1 API 路由
	api := s.router.Group("/api")
	{
		s.v1.RegisterRoutes(api)
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 关闭底层存储
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
