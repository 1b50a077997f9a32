package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gmvmax_dev_v1_202602/internal/config"
	"gmvmax_dev_v1_202602/internal/controller"
	"gmvmax_dev_v1_202602/internal/middleware"
	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/internal/repository"
	"gmvmax_dev_v1_202602/internal/router"
	"gmvmax_dev_v1_202602/internal/service"
	"gmvmax_dev_v1_202602/internal/task"
	"gmvmax_dev_v1_202602/pkg/database"
	"gmvmax_dev_v1_202602/pkg/net"
)

func main() {
	cfg := config.Load()

	// 1. 初始化数据库
	db := initDatabase(cfg)

	// 2. 初始化依赖
	deps := initDependencies(cfg, db)

	// 3. 启动后台任务
	deps.TaskManager.Start()
	defer deps.TaskManager.Stop()

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.Controllers)

	// 5. 启动服务
	startServer(cfg, r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Dispatcher  net.Dispatcher
	Services    *Services
	Controllers *router.Controllers
	TaskManager *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	Scope        repository.ScopeRepository
	Preset       repository.PresetRepository
	ProductCache repository.ProductCacheRepository
	Slice        repository.SliceRepository
	ActionLog    repository.ActionLogRepository
	SyncRun      repository.SyncRunRepository
}

// Services 服务集合
type Services struct {
	Query    *service.QueryService
	Scope    *service.ScopeService
	Series   *service.SeriesService
	Strategy *service.StrategyService
	Sync     *service.SyncService
	Session  *service.SessionService
	Health   *service.HealthService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) *gorm.DB {
	db := database.InitDB(cfg.DBDSN,
		// 作用域
		&model.ScopeSnapshot{}, &model.ScopePresetRecord{},
		// 持久化缓存
		&model.ProductCacheRecord{}, &model.SliceSnapshot{},
		// 审计与同步记录
		&model.ActionLogRecord{}, &model.SyncRunRecord{},
	)
	middleware.RegisterAuditCallbacks(db)
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Scope:        repository.NewScopeRepository(db),
		Preset:       repository.NewPresetRepository(db),
		ProductCache: repository.NewProductCacheRepository(db),
		Slice:        repository.NewSliceRepository(db),
		ActionLog:    repository.NewActionLogRepository(db),
		SyncRun:      repository.NewSyncRunRepository(db),
	}

	// -------- 网络层 --------
	meta := net.NewMetaStore()
	dispatcher := net.NewDispatcher(cfg.APIRoot(), meta)

	// -------- 业务服务 --------
	services := &Services{}
	services.Query = service.NewQueryService(dispatcher)
	services.Scope = service.NewScopeService(services.Query, dispatcher, repos.Scope, repos.Preset)
	services.Series = service.NewSeriesService(dispatcher, services.Query, repos.ActionLog)
	services.Strategy = service.NewStrategyService(dispatcher, services.Query)
	services.Sync = service.NewSyncService(dispatcher, services.Query, repos.SyncRun)
	services.Session = service.NewSessionService(repos.Slice, repos.ProductCache)
	services.Health = service.NewHealthService(dispatcher)

	// -------- JWT 配置 --------
	if cfg.JWTSecret != "" {
		jwtCfg := middleware.DefaultJWTConfig()
		jwtCfg.SecretKey = cfg.JWTSecret
		middleware.SetJWTConfig(jwtCfg)
	}

	// -------- 后台任务 --------
	taskManager := task.NewTaskManager(&task.TaskManagerDeps{
		ScopeRepo:     repos.Scope,
		ActionLogRepo: repos.ActionLog,
		SyncRunRepo:   repos.SyncRun,
		QueryService:  services.Query,
		SyncService:   services.Sync,
		HealthService: services.Health,
	}, nil)

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Scope:    controller.NewScopeController(services.Scope, services.Query, services.Session),
		Series:   controller.NewSeriesController(services.Series, services.Scope, services.Query, services.Session),
		Strategy: controller.NewStrategyController(services.Strategy, services.Scope),
		Sync:     controller.NewSyncController(services.Sync, services.Scope, taskManager),
		Meta:     controller.NewMetaController(meta, services.Health),
		Session:  controller.NewSessionController(services.Session),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Dispatcher:  dispatcher,
		Services:    services,
		Controllers: controllers,
		TaskManager: taskManager,
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(cfg *config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}
