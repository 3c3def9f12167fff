package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-engine/internal/api/handlers"
	"auction-engine/internal/config"
	"auction-engine/internal/domain"
	"auction-engine/internal/infrastructure/mysql"
	"auction-engine/internal/infrastructure/redis"
	"auction-engine/internal/infrastructure/websocket"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting auction engine")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db := utils.InitializeMySQL(ctx, cfg, log)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()
	log.Info("Connected to MySQL")

	store := mysql.NewMySQLAuctionStore(db)
	eventPublisher := redis.NewRedisEventPublisher(rdb)
	eventSubscriber := redis.NewRedisEventSubscriber(rdb, log)

	// Notification fan-out over websockets
	connManager := websocket.NewConnectionManager(log)
	notifier := websocket.NewNotifier(connManager)

	// The engine itself
	svc := services.NewAuctionService(notifier, store, eventPublisher,
		cfg.Scheduler.SweepInterval, log)
	if err := svc.Start(ctx); err != nil {
		log.Error("Failed to start auction service", "error", err)
		os.Exit(1)
	}

	// Drop a closed auction's sockets once its closure notifications are out.
	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	go func() {
		err := eventSubscriber.SubscribeToAuctionEvents(subCtx, func(event *domain.AuctionEvent) error {
			if event.Type == domain.EventAuctionClosed {
				connManager.CloseAuctionConnections(event.AuctionID)
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event subscriber failed", "error", err)
		}
	}()

	// REST API
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
	}))

	auctionHandler := handlers.NewAuctionHandler(svc, log)
	auctionHandler.Register(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-engine",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting API server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("API server failed", "error", err)
			os.Exit(1)
		}
	}()

	// WebSocket gateway
	router := mux.NewRouter()
	wsHandler := websocket.NewHandler(svc, connManager, log)
	wsHandler.Register(router)

	gateway := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Gateway.Port),
		Handler: router,
	}
	go func() {
		log.Info("Starting websocket gateway", "address", gateway.Addr)
		if err := gateway.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Websocket gateway failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction engine...")

	// Stop scheduled closures first so nothing fires mid-teardown.
	svc.Shutdown()
	subCancel()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error("API server forced to shutdown", "error", err)
	}
	if err := gateway.Shutdown(ctx); err != nil {
		log.Error("Websocket gateway forced to shutdown", "error", err)
	}

	log.Info("Auction engine stopped")
}
