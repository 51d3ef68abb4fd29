// Package main 是服务端的入口点
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"knowledge-studio-server/internal/config"
	"knowledge-studio-server/internal/handler"
	"knowledge-studio-server/internal/llm"
	"knowledge-studio-server/internal/middleware"
	"knowledge-studio-server/internal/model"
	"knowledge-studio-server/internal/repository"
	"knowledge-studio-server/internal/service"
	"knowledge-studio-server/pkg/projectlog"
)

func main() {
	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	projectlog.Init(cfg.Log)

	// 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}

	// 自动迁移数据库表
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化模型目录和补全网关
	catalog := llm.NewCatalog(cfg.LLM.Models)
	gateway := llm.NewGateway(cfg.LLM)

	// 初始化 Repository 层
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	spaceRepo := repository.NewSpaceRepository(db)
	modelConfigRepo := repository.NewModelConfigRepository(db)
	appSettingRepo := repository.NewAppSettingRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)

	// 初始化 Service 层
	// 对话服务和聊天服务共用对话级锁，两条消息写入路径互斥
	locker := service.NewConversationLocker()
	conversationService := service.NewConversationService(conversationRepo, messageRepo, locker)
	chatService := service.NewChatService(db, conversationRepo, messageRepo, apiKeyRepo, gateway, catalog, cfg.LLM.APIKeys, locker)
	spaceService := service.NewSpaceService(spaceRepo)
	settingsService := service.NewSettingsService(db, modelConfigRepo, appSettingRepo, apiKeyRepo)

	// 初始化 Handler 层
	conversationHandler := handler.NewConversationHandler(conversationService)
	chatHandler := handler.NewChatHandler(chatService)
	spaceHandler := handler.NewSpaceHandler(spaceService)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	modelHandler := handler.NewModelHandler(catalog)
	knowledgeHandler := handler.NewKnowledgeHandler()

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	router := gin.New()

	// CORS 允许的来源取自配置，未配置时保持默认的全放开
	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORS) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORS
	}

	// 全局中间件
	router.Use(middleware.RecoveryMiddleware())       // 恢复 panic
	router.Use(middleware.LoggerMiddleware())         // 请求日志
	router.Use(middleware.CORSMiddleware(corsConfig)) // CORS

	// 注册路由
	registerRoutes(router, conversationHandler, chatHandler, spaceHandler, settingsHandler, modelHandler, knowledgeHandler)

	// 创建 HTTP 服务器
	// 桌面应用只监听本机回环地址
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// 流式回复可能持续数分钟，写超时必须覆盖整个流
		WriteTimeout: 10 * time.Minute,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Infof("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

// initDatabase 初始化数据库连接
// 默认使用用户目录下的 SQLite 文件，也可以切换到 MySQL
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	// 配置 GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	gormConfig := &gorm.Config{
		Logger: gormLogger,
		// 把方言层的唯一约束冲突翻译成 gorm.ErrDuplicatedKey
		TranslateError: true,
	}

	var db *gorm.DB
	var err error
	switch cfg.Database.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			cfg.Database.Username,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Database,
			cfg.Database.Charset,
		)
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
	default:
		var path string
		path, err = cfg.Database.SQLitePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve sqlite path: %w", err)
		}
		db, err = gorm.Open(sqlite.Open(path), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 获取底层 sql.DB 并配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.MaxLifetime) * time.Second)

	log.Info("Database connected successfully")
	return db, nil
}

// autoMigrate 自动迁移数据库表
func autoMigrate(db *gorm.DB) error {
	log.Info("Running database migrations...")

	if err := db.AutoMigrate(
		&model.Project{},
		&model.Conversation{},
		&model.Message{},
		&model.Topic{},
		&model.KnowledgePoint{},
		&model.ExplorationLink{},
		&model.KnowledgeSpace{},
		&model.ModelConfig{},
		&model.AppSettings{},
		&model.APIKeyStorage{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	log.Info("Database migrations completed")
	return nil
}

// registerRoutes 注册所有路由
func registerRoutes(
	router *gin.Engine,
	conversationHandler *handler.ConversationHandler,
	chatHandler *handler.ChatHandler,
	spaceHandler *handler.SpaceHandler,
	settingsHandler *handler.SettingsHandler,
	modelHandler *handler.ModelHandler,
	knowledgeHandler *handler.KnowledgeHandler,
) {
	// 根路径和健康检查
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Knowledge Studio API",
			"version": "1.0.0",
			"status":  "running",
		})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API 路由组
	api := router.Group("/api")

	// 对话相关
	conversations := api.Group("/conversations")
	{
		conversations.GET("", conversationHandler.ListConversations)
		conversations.POST("", conversationHandler.CreateConversation)
		conversations.GET("/:conversation_id", conversationHandler.GetConversation)
		conversations.DELETE("/:conversation_id", conversationHandler.DeleteConversation)
		conversations.GET("/:conversation_id/messages", conversationHandler.ListMessages)
		conversations.POST("/:conversation_id/messages", conversationHandler.AddMessage)
	}

	// 聊天相关
	chat := api.Group("/chat")
	{
		chat.POST("", chatHandler.Chat)
		chat.POST("/stream", chatHandler.ChatStream)
		chat.POST("/:conversation_id", chatHandler.SendMessage)
	}

	// 模型目录
	models := api.Group("/models")
	{
		models.GET("", modelHandler.ListModels)
		models.GET("/:provider", modelHandler.ListProviderModels)
	}

	// 知识空间
	spaces := api.Group("/spaces")
	{
		spaces.GET("", spaceHandler.ListSpaces)
		spaces.POST("", spaceHandler.CreateSpace)
		spaces.PUT("/:space_id", spaceHandler.UpdateSpace)
		spaces.PATCH("/:space_id", spaceHandler.UpdateSpace)
		spaces.DELETE("/:space_id", spaceHandler.DeleteSpace)
	}

	// 知识点
	knowledge := api.Group("/knowledge")
	{
		knowledge.GET("", knowledgeHandler.ListKnowledgePoints)
		knowledge.POST("", knowledgeHandler.CreateKnowledgePoint)
	}

	// 设置相关
	settings := api.Group("/settings")
	{
		settings.GET("/models", settingsHandler.ListModelConfigs)
		settings.POST("/models", settingsHandler.CreateModelConfig)
		settings.GET("/models/:config_id", settingsHandler.GetModelConfig)
		settings.PUT("/models/:config_id", settingsHandler.UpdateModelConfig)
		settings.PATCH("/models/:config_id", settingsHandler.UpdateModelConfig)
		settings.DELETE("/models/:config_id", settingsHandler.DeleteModelConfig)

		settings.GET("/app", settingsHandler.ListAppSettings)
		settings.POST("/app", settingsHandler.CreateAppSetting)
		settings.GET("/app/:key", settingsHandler.GetAppSetting)
		settings.PUT("/app/:key", settingsHandler.UpdateAppSetting)
		settings.PATCH("/app/:key", settingsHandler.UpdateAppSetting)
		settings.DELETE("/app/:key", settingsHandler.DeleteAppSetting)

		settings.GET("/api-keys", settingsHandler.ListAPIKeys)
		settings.POST("/api-keys", settingsHandler.SaveAPIKey)
		settings.GET("/api-keys/:provider", settingsHandler.GetAPIKeyStatus)
		settings.DELETE("/api-keys/:provider", settingsHandler.DeleteAPIKey)
	}
}
