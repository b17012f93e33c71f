package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/itqanpos/ITQN/api/swagger" // swagger docs
	"github.com/itqanpos/ITQN/internal/clock"
	"github.com/itqanpos/ITQN/internal/config"
	"github.com/itqanpos/ITQN/internal/database"
	"github.com/itqanpos/ITQN/internal/handler"
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/middleware"
	"github.com/itqanpos/ITQN/internal/repository"
	"github.com/itqanpos/ITQN/internal/service"
	"github.com/itqanpos/ITQN/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// outbox rows left unpublished by a previous process are pushed at startup
const relayBatchSize = 500

// @title           ITQN POS API
// @version         1.0
// @description     Multi-tenant point-of-sale order fulfillment: orders, invoices, inventory, treasury and commissions.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	appLog, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Logger initialization failed: %v", err)
	}
	defer func() { _ = appLog.Sync() }()

	db, err := database.NewConnection(cfg.Postgres.GetDSN(), appLog)
	if err != nil {
		appLog.Fatalw("database connection failed", "error", err)
	}
	appLog.Infow("connected to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.DBName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystemClock(cfg.Fulfillment.Location())

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(appLog.With("component", "websocket"))
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	productRepo := repository.NewProductRepository(db)
	inventoryLogRepo := repository.NewInventoryLogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	treasuryRepo := repository.NewTreasuryRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	eventRepo := repository.NewEventRepository(db)

	runner := service.NewTxRunner(repository.NewTransactionManager(db), service.RetryPolicyFromConfig(cfg.Fulfillment), appLog)
	events := service.NewEventPublisher(eventRepo, wsHub, clk, appLog)

	sequenceService := service.NewSequenceService(sequenceRepo, clk)
	inventoryService := service.NewInventoryService(productRepo, inventoryLogRepo, tenantRepo, auditRepo, events, runner, appLog)
	treasuryService := service.NewTreasuryService(treasuryRepo, tenantRepo, auditRepo, runner, clk, appLog)
	commissionService := service.NewCommissionService(commissionRepo, userRepo, tenantRepo)
	orderService := service.NewOrderService(orderRepo, productRepo, tenantRepo, auditRepo, sequenceService, runner)
	invoiceService := service.NewInvoiceService(saleRepo, sequenceService, runner)
	fulfillmentService := service.NewFulfillmentService(
		orderRepo, saleRepo, userRepo, tenantRepo, productRepo, commissionRepo, auditRepo,
		sequenceService, inventoryService, treasuryService, commissionService,
		events, runner, clk, appLog.With("component", "fulfillment"),
	)
	tenantService := service.NewTenantService(tenantRepo, userRepo, sequenceRepo, treasuryRepo, auditRepo, runner, cfg.Fulfillment, clk, appLog)
	userService := service.NewUserService(userRepo, auditRepo, runner, clk, cfg.Auth.Secret(), cfg.Auth.TokenTTL)
	auditService := service.NewAuditService(auditRepo, userRepo)

	if n, err := events.RelayPending(ctx, relayBatchSize); err != nil {
		appLog.Warnw("outbox relay failed", "error", err)
	} else if n > 0 {
		appLog.Infow("outbox relayed pending events", "count", n)
	}

	// Initialize Handlers
	secureCookie := cfg.Server.GinMode == gin.ReleaseMode
	tenantHandler := handler.NewTenantHandler(tenantService)
	userHandler := handler.NewUserHandler(userService, int(cfg.Auth.TokenTTL.Seconds()), secureCookie)
	orderHandler := handler.NewOrderHandler(orderService, fulfillmentService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	treasuryHandler := handler.NewTreasuryHandler(treasuryService)
	commissionHandler := handler.NewCommissionHandler(commissionService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", handler.IdempotencyKeyHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, cfg.Auth.Secret())
	})

	// API Routing
	public := router.Group("/api")
	tenantHandler.RegisterPublicRoutes(public)
	userHandler.RegisterPublicRoutes(public)

	protected := router.Group("/api")
	protected.Use(middleware.Authenticate(cfg.Auth.Secret()))
	userHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)
	invoiceHandler.RegisterRoutes(protected)
	inventoryHandler.RegisterRoutes(protected)
	treasuryHandler.RegisterRoutes(protected)
	commissionHandler.RegisterRoutes(protected)
	auditHandler.RegisterRoutes(protected)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Infow("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	appLog.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Errorw("graceful shutdown failed", "error", err)
	}
}
