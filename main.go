package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"studyhub/config"
	"studyhub/handlers"
	"studyhub/logger"
	"studyhub/middleware"
	"studyhub/models"
	"studyhub/routes"
	"studyhub/seeds"
	"studyhub/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "studyhub:", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDB(cfg, log)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := seeds.EnsureReferenceData(db); err != nil {
		return err
	}
	if cfg.SeedDemoData {
		rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
		if err := seeds.DemoData(db, rng, seeds.DefaultDemoSize, log); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	// Initialize Redis, when chat events fan out across instances
	var bus services.Bus
	if cfg.RedisEnabled {
		rdb, err := config.InitRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		redisBus, err := services.NewRedisBus(rdb, cfg.RedisChannel, log)
		if err != nil {
			return err
		}
		bus = redisBus
	}

	// Initialize services
	identity := services.NewIdentityService(db, log)
	catalog := services.NewCatalogService(db, log)
	quizzes := services.NewQuizService(db, services.NewRandomSampler(cfg.QuizSeed), log)
	chats := services.NewChatService(db, log)
	teaching := services.NewTeachingService(db, log)

	// Initialize WebSocket hub
	hub := services.NewHub(chats, bus, services.HubConfig{
		PongWait:       cfg.WSPongWait,
		WriteWait:      cfg.WSWriteWait,
		MaxMessageSize: cfg.WSMaxMessageSize,
	}, log)
	go hub.Run(ctx)
	if bus != nil {
		if err := bus.StartForwarder(ctx, hub.Deliver); err != nil {
			return err
		}
		defer bus.Close()
	}

	// Initialize handlers
	handlers.UseJSONFieldNames()
	paging := handlers.Paging{DefaultSize: cfg.PageSize, MaxSize: cfg.MaxPageSize}
	h := routes.Handlers{
		Catalog:  handlers.NewCatalogHandler(catalog, paging, log),
		Quiz:     handlers.NewQuizHandler(quizzes, identity, paging, log),
		Chat:     handlers.NewChatHandler(chats, hub, cfg.CORSOrigins, paging, log),
		Teaching: handlers.NewTeachingHandler(teaching, log),
	}

	// Setup Gin router
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	auth := middleware.NewAuthMiddleware(cfg.JWTSecret, identity, log)
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.CORS(cfg.CORSOrigins),
		auth.Authenticate(),
	)
	routes.SetupRoutes(router, h)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "env", cfg.Env, "redis", cfg.RedisEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
