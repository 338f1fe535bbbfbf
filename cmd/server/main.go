package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nexora/backend/internal/application/services"
	"github.com/nexora/backend/internal/bootstrap"
	"github.com/nexora/backend/internal/config"
	"github.com/nexora/backend/internal/infrastructure/cache"
	"github.com/nexora/backend/internal/infrastructure/database"
	"github.com/nexora/backend/internal/infrastructure/metrics"
	"github.com/nexora/backend/internal/infrastructure/persistence"
	"github.com/nexora/backend/internal/interfaces/middleware"
	"github.com/nexora/backend/internal/interfaces/rest"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	cfgFile := flags.String("config", "", "config file (default ./"+config.DefaultFile+" when present)")
	flags.Int("port", 0, "HTTP port")
	flags.String("db-driver", "", "database driver: mysql or sqlite")
	flags.String("redis-addr", "", "Redis address; enables the shared cache and save lock")
	_ = flags.Parse(os.Args[1:])

	config.LoadDotEnv()
	cfg, err := config.Load(*cfgFile, flags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.CheckAuth(); err != nil {
		log.Fatalf("Invalid auth configuration: %v", err)
	}
	if cfg.Auth.Disabled {
		log.Printf("⚠️  Authentication disabled; every request acts as admin of tenant %q", cfg.Auth.DefaultTenant)
	}

	// Initialize database connection
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("✅ Database connection established (%s)", db.Driver())

	if err := bootstrap.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	m := metrics.New()
	deps := services.Dependencies{
		Repo:    persistence.NewIVRFlowRepository(db),
		Metrics: m,
		Retry:   services.RetryPolicy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: cfg.Retry.BaseDelay},
	}

	if cfg.Redis.Enabled() {
		client := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()

		flowCache := cache.NewFlowCache(client, cache.WithTTL(cfg.Redis.CacheTTL))
		if err := flowCache.Ping(context.Background()); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err)
		}
		deps.Cache = flowCache
		deps.Locker = cache.NewLocker(client, "")
		log.Printf("📦 Redis flow cache and save lock enabled (%s)", cfg.Redis.Addr)
	} else {
		deps.Locker = cache.NewLocalLocker()
		log.Println("⚠️  Redis not configured; using in-process save lock and no flow cache")
	}

	svcMgr := services.NewServiceManager(deps)
	log.Println("🔧 Service manager initialized")

	if cfg.Seed.SampleFlow {
		if err := bootstrap.SeedSampleFlow(context.Background(), svcMgr.Flows, cfg.Auth.DefaultTenant); err != nil {
			log.Printf("⚠️  Warning: Failed to seed sample flow: %v", err)
		}
	}

	router := newRouter(cfg, db, svcMgr)

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("═══════════════════════════════════════════════════════════════════════════")
	log.Println("🚀 Nexora IVR Backend Started Successfully")
	log.Println("═══════════════════════════════════════════════════════════════════════════")
	log.Printf("📍 Server:         http://localhost:%d", cfg.Server.Port)
	log.Printf("☎️  IVR API:        http://localhost:%d/api/ivr", cfg.Server.Port)
	log.Printf("📊 Metrics:        http://localhost:%d/metrics", cfg.Server.Port)
	log.Printf("💚 Health check:   http://localhost:%d/health", cfg.Server.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("❌ Server stopped with error: %v", err)
	}
	svcMgr.EventBus.Clear()
	log.Println("Server exiting")
}

func newRouter(cfg *config.Config, db *database.Connection, svcMgr *services.ServiceManager) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.Cors(cfg.Server.Origins()))
	router.Use(middleware.Metrics(svcMgr.Metrics))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": db.Driver()})
	})
	router.GET("/metrics", gin.WrapH(svcMgr.Metrics.Handler()))

	api := router.Group("/api")
	api.Use(middleware.RequireAuth(cfg.Auth))
	rest.NewIVRFlowHandler(svcMgr.Flows).Register(api, middleware.RequireEditor())

	return router
}
