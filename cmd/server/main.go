package main

import (
	"time"

	"github.com/blues/cfc/internal/config"
	"github.com/blues/cfc/internal/ledger"
	"github.com/blues/cfc/internal/logger"
	"github.com/blues/cfc/internal/logic"
	"github.com/blues/cfc/internal/router"
	"github.com/blues/cfc/internal/scheduler"
	"github.com/blues/cfc/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 加载环境变量与配置
	_ = godotenv.Load()
	cfg := config.Load()

	// 初始化日志
	level := logger.ParseLogLevel(cfg.Log.Level)
	if cfg.Log.Output == "file" {
		fileLogger, err := logger.NewWithFileRotation(level, cfg.Log.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(fileLogger)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := store.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	cache := store.NewStore(db)

	// 初始化账本客户端
	ledgerClient, err := ledger.Init(cfg.Ledger)
	if err != nil {
		logger.Fatal("Failed to initialize ledger client: %v", err)
	}

	// 组装业务层
	listing := logic.NewListingService(ledgerClient)
	executor := logic.NewSettlementExecutor(
		ledgerClient,
		ledgerClient,
		cache,
		time.Duration(cfg.Ledger.ConfirmTimeout)*time.Second,
	)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(listing, executor, ledgerClient, cache, cfg)

	// 启动定时任务
	manager := scheduler.Start(listing, cache, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
