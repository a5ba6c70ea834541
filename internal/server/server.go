package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fieldtrack/internal/api"
	"fieldtrack/internal/config"
	"fieldtrack/internal/model"
	"fieldtrack/internal/service/progress"
	"fieldtrack/internal/service/roster"
	"fieldtrack/internal/service/span"
	"fieldtrack/internal/service/workitem"
	"fieldtrack/internal/service/writer"
	"fieldtrack/internal/store"
	"fieldtrack/internal/tabular"
)

// Server HTTP服务器
type Server struct {
	router    *gin.Engine
	store     *store.Store
	workbooks *tabular.DirStore
	api       *api.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite 本地日志
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}
	journal, err := store.New(filepath.Join(dataDir, cfg.Data.JournalFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	booksDir := config.WorkbooksDir(cfg)
	if err := os.MkdirAll(booksDir, 0755); err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("failed to create workbooks directory: %w", err)
	}
	workbooks := tabular.NewDirStore(booksDir)

	s := &Server{
		router:    gin.New(),
		store:     journal,
		workbooks: workbooks,
		api:       api.NewHandler(buildDeps(cfg, workbooks, journal)),
	}
	s.setupRoutes()

	zap.S().Infof("workbooks: %s, journal: %s", booksDir, filepath.Join(dataDir, cfg.Data.JournalFile))
	return s, nil
}

// buildDeps 组装服务层
func buildDeps(cfg *config.AppConfig, books tabular.Store, journal *store.Store) api.Deps {
	items := workitem.NewRepository(books, cfg.CacheTTL())
	w := writer.New(books, writer.Options{
		BackupWorkbook: cfg.Workbooks.BackupWorkbook,
		Invalidator:    items,
		Journal:        journal,
	})
	return api.Deps{
		Tabular:  books,
		Journal:  journal,
		Items:    items,
		Writer:   w,
		Spans:    span.NewEngine(w, journal),
		Recorder: progress.NewRecorder(w),
		Roster: roster.NewLedger(books, roster.Options{
			Workbook:      cfg.Workbooks.RosterBook,
			TitlePattern:  cfg.Workbooks.RosterPattern,
			Sheet:         cfg.Workbooks.RosterSheet,
			StoppageSheet: cfg.Workbooks.StoppageSheet,
			Journal:       journal,
		}),
		Tracking: model.SheetRef{
			Workbook: cfg.Workbooks.TrackingBook,
			Sheet:    cfg.Workbooks.TrackingSheet,
		},
		MealDeduction: cfg.Roster.MealDeduction,
	}
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 访问日志与 panic 恢复
	s.router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	s.router.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// 健康检查
	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "online")
	})
	health := s.healthHandler()
	s.router.GET("/live", gin.WrapH(health))
	s.router.GET("/ready", gin.WrapH(health))
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := s.router.Group("/api")
	{
		s.api.RegisterRoutes(apiGroup)
	}
}

// healthHandler 存活：协程数；就绪：本地日志库与工作簿目录可访问
func (s *Server) healthHandler() healthcheck.Handler {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	health.AddReadinessCheck("journal", s.store.Ping)
	health.AddReadinessCheck("workbooks", func() error {
		_, err := s.workbooks.ListTitlesContaining(context.Background(), "")
		return err
	})
	return health
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close 关闭工作簿与本地日志
func (s *Server) Close() error {
	return errors.Join(s.workbooks.Close(), s.store.Close())
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
