package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"obra_catalog/internal/catalog"
	"obra_catalog/internal/controller"
	"obra_catalog/internal/middleware"
	"obra_catalog/internal/model"
	"obra_catalog/internal/repository"
	"obra_catalog/internal/router"
	"obra_catalog/internal/service"
	"obra_catalog/internal/task"
	"obra_catalog/pkg/config"
	"obra_catalog/pkg/database"
	"obra_catalog/pkg/logger"
	"obra_catalog/pkg/utils"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.LogLevel, cfg.Debug)
	defer func() { _ = log.Sync() }()

	// 1. 初始化数据库
	db := initDatabase(cfg, log)

	// 2. 初始化依赖
	deps := initDependencies(cfg, db, log)

	// 3. 启动定时任务
	tasks := initTasks(cfg, deps, log)
	defer tasks.Stop()

	// 4. 初始化路由
	r := setupRouter(cfg, deps, log)

	// 5. 启动服务
	startServer(cfg.ServerPort, r, log)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers router.Controllers
	Limiter     *middleware.RateLimiter
	Tokens      *middleware.TokenManager
}

// Repositories 仓库集合
type Repositories struct {
	Product   repository.ProductRepository
	AiCallLog repository.AICallLogRepository
	User      repository.UserRepository
}

// Services 服务集合
type Services struct {
	Catalog *service.CatalogService
	Storage *service.StorageService
	AI      *service.AIService
	Search  *service.SearchService
	Image   *service.ImageService
	Batch   *service.BatchImageService
	Quote   *service.QuoteService
	Auth    *service.AuthService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config, log *zap.Logger) *gorm.DB {
	level := gormlogger.Warn
	if cfg.Debug {
		level = gormlogger.Info
	}

	db, err := database.InitDB(database.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: level,
	},
		// Catalog
		&model.CatalogOverride{}, &model.UserProduct{},
		// AI
		&model.AICallLog{},
		// 后台账号
		&model.SysUser{},
	)
	if err != nil {
		log.Fatal("数据库初始化失败", zap.Error(err))
	}
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, log *zap.Logger) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Product:   repository.NewProductRepository(db),
		AiCallLog: repository.NewAICallLogRepository(db),
		User:      repository.NewUserRepository(db),
	}

	// -------- 基础目录 --------
	base, err := catalog.LoadBaseCatalog()
	if err != nil {
		log.Fatal("加载基础目录失败", zap.Error(err))
	}
	log.Info("基础目录已加载", zap.Int("products", len(base)))

	httpClient := utils.NewHTTPClient(30 * time.Second)
	tokens := middleware.NewTokenManager(middleware.JWTConfig{
		SecretKey:       cfg.Auth.JWTSecret,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		Issuer:          cfg.Auth.Issuer,
	})

	// -------- 存储 & AI 服务 --------
	storageSvc := initStorageService(cfg, httpClient, log)
	aiSvc := initAIService(cfg, repos.AiCallLog, log)

	// -------- 业务服务 --------
	catalogSvc := service.NewCatalogService(base, repos.Product, log)

	var provider service.SearchProvider
	if aiSvc.Available() {
		provider = aiSvc
	}

	services := &Services{
		Catalog: catalogSvc,
		Storage: storageSvc,
		AI:      aiSvc,
		Search:  service.NewSearchService(catalogSvc, provider, cfg.AI.SearchTimeout, log),
		Image:   service.NewImageService(catalogSvc, storageSvc, aiSvc, httpClient, cfg.Image.BaseURL, log),
		Quote:   service.NewQuoteService(catalogSvc, cfg.Task.CartIdleTTL, log),
		Auth:    service.NewAuthService(repos.User, tokens, log),
	}
	services.Batch = service.NewBatchImageService(services.Image, cfg.Task.BatchConcurrency, cfg.Task.BatchStatusRetained, log)

	if _, err := services.Auth.EnsureAdmin(context.Background(), cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatal("初始化管理员失败", zap.Error(err))
	}

	// -------- Controller 层 --------
	productCtl := controller.NewProductController(services.Catalog, services.Image, services.AI)
	controllers := router.Controllers{
		Product:   productCtl,
		Search:    controller.NewSearchController(services.Search, productCtl),
		Quote:     controller.NewQuoteController(services.Quote),
		Image:     controller.NewImageController(services.Image, services.Batch),
		Assistant: controller.NewAssistantController(services.AI, services.Catalog, repos.AiCallLog),
		Auth:      controller.NewAuthController(services.Auth),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
		Limiter:     middleware.NewRateLimiter(),
		Tokens:      tokens,
	}
}

// initStorageService 初始化存储服务
func initStorageService(cfg *config.Config, httpClient *resty.Client, log *zap.Logger) *service.StorageService {
	provider, err := service.NewStorageProvider(cfg.Storage, httpClient)
	if err != nil {
		log.Fatal("存储服务初始化失败", zap.String("provider", cfg.Storage.Provider), zap.Error(err))
	}
	return service.NewStorageService(provider)
}

// initAIService 未配置 GEMINI_API_KEY 时 AI 功能返回 503，搜索退回本地过滤
func initAIService(cfg *config.Config, callLogRepo repository.AICallLogRepository, log *zap.Logger) *service.AIService {
	backend, err := service.NewGenAIBackend(context.Background(), cfg.AI.APIKey)
	if err != nil {
		log.Warn("Gemini 未启用", zap.Error(err))
	}
	return service.NewAIService(cfg.AI, backend, callLogRepo, log)
}

// ==================== 路由 ====================

func setupRouter(cfg *config.Config, deps *Dependencies, log *zap.Logger) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS())

	// 本地存储的图片由服务自身提供
	if cfg.Storage.Provider == "local" {
		r.Static("/uploads", cfg.Storage.BasePath)
	}

	router.InitRoutes(r, deps.Controllers, deps.Limiter, cfg.AI.RateInterval, deps.Tokens)
	return r
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(cfg *config.Config, deps *Dependencies, log *zap.Logger) *task.TaskManager {
	tm := task.NewTaskManager(task.TaskManagerDeps{
		Finder:      deps.Services.Image,
		Batch:       deps.Services.Batch,
		CallLogRepo: deps.Repos.AiCallLog,
		Carts:       deps.Services.Quote,
		Jobs:        deps.Services.Batch,
	}, cfg.Task, log)

	if err := tm.Start(); err != nil {
		log.Fatal("定时任务启动失败", zap.Error(err))
	}
	return tm
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(port string, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 异步启动服务
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务强制关闭", zap.Error(err))
		return
	}

	log.Info("服务已退出")
}
