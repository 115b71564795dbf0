package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shopdesk/supportbot/internal/api"
	"github.com/shopdesk/supportbot/internal/auth"
	"github.com/shopdesk/supportbot/internal/chat"
	"github.com/shopdesk/supportbot/internal/db"
	"github.com/shopdesk/supportbot/internal/extract"
	"github.com/shopdesk/supportbot/internal/knowledge"
	"github.com/shopdesk/supportbot/internal/llm"
	"github.com/shopdesk/supportbot/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: failed to build: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx := context.Background()

	postgres, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		sugar.Fatalf("postgres: failed to connect: %v", err)
	}
	defer postgres.Close()

	if err := postgres.Ping(ctx); err != nil {
		sugar.Fatalf("postgres: ping failed: %v", err)
	}
	if err := postgres.EnsureSchema(ctx); err != nil {
		sugar.Fatalf("postgres: ensure schema: %v", err)
	}

	mongoStore, err := db.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		sugar.Fatalf("mongo: failed to connect: %v", err)
	}
	defer func() {
		if err := mongoStore.Close(context.Background()); err != nil {
			sugar.Warnf("mongo: close error: %v", err)
		}
	}()

	if err := mongoStore.EnsureCollections(ctx); err != nil {
		sugar.Fatalf("mongo: ensure collections: %v", err)
	}

	kb, err := knowledge.Load(cfg.DataDir)
	if err != nil {
		sugar.Fatalf("knowledge: failed to load: %v", err)
	}
	sugar.Infow("knowledge base loaded",
		"catalog_docs", len(kb.Catalog()),
		"report_docs", len(kb.Reports()),
	)

	model, err := llm.NewClient(ctx, cfg.Gemini, sugar)
	if err != nil {
		sugar.Fatalf("llm: failed to initialise: %v", err)
	}

	authService, err := auth.NewService(cfg.JWTSecret, 24*time.Hour, db.NewUsers(postgres))
	if err != nil {
		sugar.Fatalf("auth: failed to initialise: %v", err)
	}

	conversations := db.NewConversationStore(mongoStore)
	chatService := chat.NewService(conversations, model, kb, sugar)
	extractor := extract.New(cfg.ExtractTimeout)

	router := setupRouter(cfg, authService, chatService, conversations, extractor, sugar)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infof("server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("server crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnf("graceful shutdown failed: %v", err)
	}

	sugar.Info("server stopped cleanly")
}

func setupRouter(cfg *utils.Config, authService *auth.Service, chatService *chat.Service, conversations api.ConversationReader, extractor *extract.Extractor, logger *zap.SugaredLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	if len(cfg.FrontendOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.FrontendOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}))
	}

	api.NewHandler(authService, chatService, conversations, extractor, logger).RegisterRoutes(router)

	return router
}
