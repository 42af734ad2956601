package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"numerusx/internal/agent"
	"numerusx/internal/client/dexscreener"
	"numerusx/internal/client/jupiter"
	"numerusx/internal/client/rugcheck"
	"numerusx/internal/client/solana"
	"numerusx/internal/config"
	cronrunner "numerusx/internal/cron"
	"numerusx/internal/db"
	"numerusx/internal/engine"
	"numerusx/internal/handler"
	"numerusx/internal/logger"
	"numerusx/internal/notifications"
	gormrepository "numerusx/internal/repository/gorm"
	"numerusx/internal/risk"
	"numerusx/internal/security"
	"numerusx/internal/service"
	signalhub "numerusx/internal/signal"

	_ "numerusx/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("NX_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("NX_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	dexClient := dexscreener.NewClient(cfg.MarketData)
	jupiterClient := jupiter.NewClient(cfg.Jupiter)
	solanaClient := solana.NewClient(cfg.Solana)
	rugcheckClient := rugcheck.NewClient(cfg.Security)

	checker := security.NewChecker(rugcheckClient, store, cfg.Security, logger)
	riskMgr := &risk.Manager{Config: cfg.Risk, Repo: store, Logger: logger}
	book := &engine.Book{Repo: store}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	baseCtx := ctx

	dryRun := cfg.Executor.DryRun
	var signer *engine.Signer
	if !dryRun {
		signer, err = engine.NewSignerFromEnv()
		if err != nil {
			logger.Warn("wallet key unavailable, falling back to dry-run", zap.Error(err))
			dryRun = true
		}
	}
	auditLog := &service.SystemLogService{Repo: store, Logger: logger}

	executorCfg := cfg.Executor
	executorCfg.DryRun = dryRun
	executor := &engine.Executor{
		Jupiter: jupiterClient,
		Solana:  solanaClient,
		Repo:    store,
		Book:    book,
		Signer:  signer,
		Logger:  logger,
		Audit:   auditLog,
		Config:  executorCfg,
		Chain:   cfg.Solana,
	}

	notifier := notifications.NewSender(cfg.Notifications, logger)

	var decider agent.Decider
	llm, err := agent.NewLLMDecider(cfg.Agent, logger)
	if err != nil {
		logger.Warn("llm decider unavailable, rule-based fallback only", zap.Error(err))
	} else {
		decider = llm
	}
	agentRunner := &agent.Runner{
		Aggregator: &agent.Aggregator{Repo: store, Checker: checker, Risk: cfg.Risk},
		Decider:    decider,
		Fallback:   &agent.FallbackDecider{MaxSizeUSD: cfg.Risk.MaxPerTokenUSD},
		Risk:       riskMgr,
		Repo:       store,
		Executor:   executor,
		Notifier:   notifier,
		Gate:       settingsSvc,
		Logger:     logger,
		Config:     cfg.Agent,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	(&handler.HealthHandler{DB: dbConn.Gorm, Started: time.Now()}).Register(router)
	(&handler.TokenHandler{Repo: store, Checker: checker}).Register(router)
	(&handler.SignalHandler{Repo: store}).Register(router)
	(&handler.DecisionHandler{Repo: store, Reviewer: agentRunner}).Register(router)
	(&handler.TradeHandler{Repo: store}).Register(router)
	(&handler.PositionHandler{Repo: store, Closer: agentRunner}).Register(router)
	(&handler.AnalyticsHandler{Repo: store}).Register(router)
	(&handler.SettingsHandler{Repo: store, Settings: settingsSvc}).Register(router)
	(&handler.LogHandler{Repo: store}).Register(router)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	hub := signalhub.NewHub(store, logger)
	if settingsSvc.IsEnabled(baseCtx, service.FeatureMarketData, true) {
		hub.Register(&signalhub.DexScreenerCollector{
			Client:          dexClient,
			Repo:            store,
			Logger:          logger,
			Watchlist:       cfg.MarketData.Watchlist,
			PollInterval:    cfg.MarketData.PollInterval,
			MinLiquidityUSD: cfg.MarketData.MinLiquidityUSD,
		})
	}
	if cfg.PumpStream.Enabled && settingsSvc.IsEnabled(baseCtx, service.FeaturePumpStream, true) {
		hub.Register(&signalhub.PumpStreamCollector{
			Logger:        logger,
			URL:           cfg.PumpStream.URL,
			TrackTrades:   cfg.PumpStream.TrackTrades,
			MinTradeSOL:   cfg.PumpStream.MinTradeSOL,
			ReconnectBase: cfg.PumpStream.ReconnectBase,
			ReconnectMax:  cfg.PumpStream.ReconnectMax,
		})
	}
	if settingsSvc.IsEnabled(baseCtx, service.FeatureMomentumScan, true) {
		hub.Register(&signalhub.MomentumScanCollector{
			Repo:   store,
			Logger: logger,
		})
	}
	go func() {
		if err := hub.Run(baseCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("signal hub stopped", zap.Error(err))
		}
	}()

	if settingsSvc.IsEnabled(baseCtx, service.FeatureAgent, true) {
		go func() {
			if err := agentRunner.Run(baseCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("agent runner stopped", zap.Error(err))
			}
		}()
	}

	portfolioSvc := &service.PortfolioService{Repo: store, Book: book, Flags: settingsSvc, Logger: logger}
	dailyStats := &service.DailyStatsService{Repo: store, Logger: logger, Flags: settingsSvc}
	maintenance := &service.MaintenanceService{Repo: store, Logger: logger, SnapshotKeep: cfg.MarketData.SnapshotKeep}

	cronRunner := cronrunner.New(logger, baseCtx)
	if cfg.Cron.Enabled {
		registerCronJobs(cronRunner, cfg.Cron, logger, cronJobs{
			priceRefresh:      portfolioSvc.RefreshPrices,
			portfolioSnapshot: portfolioSvc.SnapshotPortfolio,
			dailyStats:        dailyStats.RunOnce,
			signalCleanup:     maintenance.Cleanup,
			securityRefresh: func(ctx context.Context) error {
				if !settingsSvc.IsEnabled(ctx, service.FeatureSecurityRefresh, true) {
					return nil
				}
				return refreshOpenPositionSecurity(ctx, store, checker)
			},
			decisionExpiry: func(ctx context.Context) error {
				_, err := agentRunner.ExpireStale(ctx)
				return err
			},
			tradeConfirm: executor.ConfirmInFlight,
		})
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

type cronJobs struct {
	priceRefresh      func(context.Context) error
	portfolioSnapshot func(context.Context) error
	dailyStats        func(context.Context) error
	signalCleanup     func(context.Context) error
	securityRefresh   func(context.Context) error
	decisionExpiry    func(context.Context) error
	tradeConfirm      func(context.Context) error
}

func registerCronJobs(runner *cronrunner.Runner, cfg config.CronConfig, logger *zap.Logger, jobs cronJobs) {
	specs := []struct {
		spec string
		name string
		job  func(context.Context) error
	}{
		{cfg.PriceRefresh, "price_refresh", jobs.priceRefresh},
		{cfg.PortfolioSnapshot, "portfolio_snapshot", jobs.portfolioSnapshot},
		{cfg.DailyStats, "daily_stats", jobs.dailyStats},
		{cfg.SignalCleanup, "signal_cleanup", jobs.signalCleanup},
		{cfg.SecurityRefresh, "security_refresh", jobs.securityRefresh},
		{cfg.DecisionExpiry, "decision_expiry", jobs.decisionExpiry},
		{cfg.TradeConfirm, "trade_confirm", jobs.tradeConfirm},
	}
	for _, entry := range specs {
		if entry.spec == "" || entry.job == nil {
			continue
		}
		if _, err := runner.Add(entry.spec, entry.name, entry.job); err != nil {
			logger.Warn("cron register failed", zap.String("job", entry.name), zap.Error(err))
		}
	}
}

// refreshOpenPositionSecurity re-pulls reports for every held mint so a
// token turning dangerous mid-position is caught.
func refreshOpenPositionSecurity(ctx context.Context, store *gormrepository.Store, checker *security.Checker) error {
	positions, err := store.ListOpenPositions(ctx)
	if err != nil {
		return err
	}
	for _, pos := range positions {
		if _, err := checker.Refresh(ctx, pos.Mint); err != nil {
			return err
		}
	}
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
