package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mosaical/nftvault/internal/config"
	"github.com/mosaical/nftvault/internal/custody"
	"github.com/mosaical/nftvault/internal/dpo"
	"github.com/mosaical/nftvault/internal/handler"
	"github.com/mosaical/nftvault/internal/middleware"
	"github.com/mosaical/nftvault/internal/model"
	"github.com/mosaical/nftvault/internal/oracle"
	"github.com/mosaical/nftvault/internal/pkg/logger"
	"github.com/mosaical/nftvault/internal/repository"
	"github.com/mosaical/nftvault/internal/service"
	"github.com/mosaical/nftvault/internal/stream"
	"github.com/mosaical/nftvault/internal/vault"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// 2. Initialize Persistence
	// Postgres (optional): vault state, audit, accounts, usage
	var db *sqlx.DB
	if cfg.Database.DSN != "" {
		db, err = repository.NewDB(cfg)
		if err != nil {
			logger.Error("⚠️ Failed to connect to DB, running in-memory", "error", err)
			db = nil
		} else {
			logger.Info("✅ Connected to PostgreSQL")
		}
	}

	// Redis (optional): idempotency, usage counters, audit ring
	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err != nil {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
			redisClient = nil
		} else {
			logger.Info("✅ Connected to Redis")
		}
	}

	// Vault state store (Postgres > Memory)
	var state vault.State
	if db != nil {
		state = repository.NewPostgresState(db)
	} else {
		state = repository.NewMemoryState()
	}

	// Borrow usage (Redis > Postgres > Memory)
	var usageRepo service.UsageRepo
	switch {
	case redisClient != nil:
		usageRepo = redisClient
	case db != nil:
		usageRepo = repository.NewPostgresUsageRepo(db)
	default:
		usageRepo = service.NewBorrowUsageStore()
	}

	// Audit persistence (Postgres > Local File)
	var auditRepo service.AuditRepo
	if db != nil {
		auditRepo = repository.NewPostgresAuditRepo(db)
	}

	// Idempotency (Redis > Postgres > Memory)
	var idempotencyStore model.IdempotencyStore
	switch {
	case redisClient != nil:
		idempotencyStore = repository.NewRedisIdempotencyStore(redisClient, time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
	case db != nil:
		idempotencyStore = repository.NewPostgresIdempotencyStore(db)
	default:
		idempotencyStore = middleware.NewInMemIdempotencyStore()
	}

	// 3. Initialize Core Services
	var accountRepo service.AccountRepo
	if db != nil {
		accountRepo = repository.NewPostgresAccountRepo(db)
	}
	accountManager := service.NewAccountManager(cfg, accountRepo)

	treasury := common.HexToAddress(cfg.Vault.TreasuryAddress)
	priceFeed := oracle.NewFeed()
	custodyBook := custody.NewBook()
	dpoLedger := dpo.NewLedger()
	dpoLedger.AuthorizeMinter(treasury, true)

	engine := vault.NewEngine(treasury, priceFeed, dpo.NewMinter(dpoLedger, treasury), custodyBook)
	engine.SetState(state)
	engine.SetAccrualPolicy(vault.AccrualPolicy{CompoundOnTopUp: cfg.Vault.CompoundOnTopUp})
	engine.SetSettlement(vault.SettlementMode(cfg.Vault.LiquidationSettlement))

	eventHub := stream.NewHub()

	auditSvc, err := service.NewAuditService(cfg.Vault.AuditLogDir, auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	riskEngine := service.NewRiskEngine(usageRepo, cfg.Risk)

	vaultSvc := service.NewVaultService(engine, priceFeed, eventHub, riskEngine)

	// 4. Initialize Handlers
	vaultHandler := handler.NewVaultHandler(vaultSvc)
	adminHandler := handler.NewAdminHandler(vaultSvc, priceFeed, accountManager, dpoLedger, custodyBook)
	auditHandler := handler.NewAuditHandler(auditSvc)

	// 5. Setup Router
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(auditSvc))
	r.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "nftvault"})
	})

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API V1 Routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, accountManager))
	v1.Use(middleware.RateLimitMiddleware(accountManager))
	v1.Use(middleware.IdempotencyMiddleware(idempotencyStore))
	{
		v1.POST("/vault/deposits", vaultHandler.Deposit)
		v1.DELETE("/vault/deposits", vaultHandler.Withdraw)
		v1.POST("/vault/loans", vaultHandler.Borrow)
		v1.POST("/vault/loans/repay", vaultHandler.Repay)
		v1.POST("/vault/liquidations", vaultHandler.Liquidate)
		v1.GET("/vault/positions/:collection/:item", vaultHandler.Position)
		v1.GET("/vault/collections", vaultHandler.Collections)
		v1.GET("/vault/accounts/me", vaultHandler.AccountSummary)
		v1.GET("/vault/events", eventHub.Handler())
		v1.GET("/audit", auditHandler.List)
	}

	// Admin Routes
	admin := r.Group("/v1/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.POST("/collections", adminHandler.AddCollection)
		admin.PUT("/collections", adminHandler.SetRiskTier)
		admin.DELETE("/collections/:collection", adminHandler.RemoveCollection)
		admin.POST("/oracle/floor-price", adminHandler.SetFloorPrice)
		admin.POST("/oracle/utility-score", adminHandler.SetUtilityScore)
		admin.POST("/oracle/active-asset", adminHandler.SetActiveAsset)
		admin.POST("/fund", adminHandler.Fund)
		admin.POST("/settlement", adminHandler.SetSettlement)
		admin.POST("/minters", adminHandler.AuthorizeMinter)
		admin.POST("/custody/items", adminHandler.RegisterItem)
		admin.POST("/accounts", adminHandler.RegisterAccount)
		admin.GET("/accounts", adminHandler.ListAccounts)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 NFT Vault started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	eventHub.Close()
	auditSvc.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}
