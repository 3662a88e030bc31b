// Package main 是应用程序的入口点。
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

	"github.com/gauravrathore2u/ai-documentation-chat/internal/config"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/handler"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/middleware"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/model"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/pipeline"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/repository"
	"github.com/gauravrathore2u/ai-documentation-chat/internal/service"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/database"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/embedding"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/es"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/kafka"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/llm"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/log"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/storage"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/tika"
	"github.com/gauravrathore2u/ai-documentation-chat/pkg/token"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化基础设施客户端
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatal("MySQL 初始化失败", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	rdb, err := database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("Redis 初始化失败", err)
	}

	minioClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatal("MinIO 初始化失败", err)
	}

	esStore, err := es.NewStore(cfg.Elasticsearch, cfg.Embedding.Dimensions)
	if err != nil {
		log.Fatal("Elasticsearch 初始化失败", err)
	}

	producer := kafka.NewProducer(cfg.Kafka)
	consumer := kafka.NewConsumer(cfg.Kafka, rdb, minioClient, cfg.RAG.MaxJobAttempts)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	fileRepo := repository.NewFileRepository(rdb)
	chatRepo := repository.NewChatRepository(rdb)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	userService := service.NewUserService(userRepo, jwtManager)
	uploadService := service.NewUploadService(minioClient, producer)
	documentService := service.NewDocumentService(fileRepo, esStore)
	searchService := service.NewSearchService(embeddingClient, esStore)
	chatService := service.NewChatService(searchService, llmClient, chatRepo, cfg.RAG)

	// 6. 初始化摄取管道 (Processor)
	processor := pipeline.NewProcessor(
		minioClient,
		tikaClient,
		embeddingClient,
		esStore,
		fileRepo,
		cfg.Embedding.Model,
		cfg.RAG,
	)

	// 7. 启动后台 Kafka 消费者
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Run(consumerCtx, processor)
	}()

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	userHandler := handler.NewUserHandler(userService)
	uploadHandler := handler.NewUploadHandler(uploadService)
	documentHandler := handler.NewDocumentHandler(documentService)
	chatHandler := handler.NewChatHandler(chatService)

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", userHandler.RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的路由
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", userHandler.GetProfile)
			}
		}

		// 文档与问答路由，全部需要认证
		authed := apiV1.Group("/")
		authed.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			authed.POST("/upload", uploadHandler.Upload)
			authed.GET("/files", documentHandler.ListFiles)
			authed.DELETE("/file/:id", documentHandler.DeleteFile)

			authed.POST("/chat", chatHandler.Chat)
			authed.GET("/chats", chatHandler.GetChats)
			authed.POST("/start-new-chat", chatHandler.StartNewChat)
		}
	}

	// 10. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 先停 HTTP 再停消费者：正在处理的摄取任务要么完成并提交 offset，
	// 要么在重启后被重新投递。
	stopConsumer()
	select {
	case <-consumerDone:
	case <-time.After(10 * time.Second):
		log.Warnf("等待 Kafka 消费者退出超时")
	}
	if err := producer.Close(); err != nil {
		log.Errorf("关闭 Kafka 生产者失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
