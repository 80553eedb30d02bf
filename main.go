package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/utsingh/portfolio-api/handlers"
	"github.com/utsingh/portfolio-api/internal/assets"
	"github.com/utsingh/portfolio-api/internal/config"
	"github.com/utsingh/portfolio-api/internal/database"
	"github.com/utsingh/portfolio-api/internal/portfolio/cache"
	"github.com/utsingh/portfolio-api/internal/portfolio/handler"
	"github.com/utsingh/portfolio-api/internal/portfolio/repository"
	"github.com/utsingh/portfolio-api/internal/portfolio/service"
	"github.com/utsingh/portfolio-api/internal/storage"
	"github.com/utsingh/portfolio-api/pkg/logger"
	"github.com/utsingh/portfolio-api/pkg/metrics"
	"github.com/utsingh/portfolio-api/pkg/middleware"
)

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)
	logger.SetEnvironment(cfg.Server.Environment)
	logger.Infof("config loaded: env=%s level=%s store=%s redis=%v minio=%v", cfg.Server.Environment, logger.LevelString(), cfg.Store.Backend, cfg.Redis.Addr() != "", cfg.MinIO.Endpoint != "")

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	ctx := context.Background()
	checks := map[string]handlers.Check{}

	var repo repository.Repository
	var store *database.Store
	if cfg.Store.Backend == "memory" {
		logger.Warn("using in-memory portfolio store; data is lost on restart")
		repo = repository.NewMemoryRepo()
	} else {
		store = database.NewStore(cfg.MongoDB)
		col, err := store.Collection(ctx, cfg.MongoDB.Collection)
		if err != nil {
			logger.Fatalf("failed to connect to MongoDB: %v", err)
		}
		logger.Infof("connected to MongoDB database %q", cfg.MongoDB.Database)
		mongoRepo := repository.NewMongoRepo(col)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			logger.Fatalf("failed to ensure portfolio indexes: %v", err)
		}
		repo = mongoRepo
		checks["mongo"] = store.Ping
	}

	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v; cache and shared rate limit disabled", addr, err)
			_ = rdb.Close()
			rdb = nil
		} else {
			logger.Infof("connected to Redis: %s", addr)
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	var opts []service.Option
	if cfg.Cache.Enabled && rdb != nil {
		opts = append(opts, service.WithCache(cache.NewRedisCache(rdb, cfg.Cache.Key, cfg.Cache.TTL)))
		logger.Infof("portfolio read cache enabled (ttl=%s)", cfg.Cache.TTL)
	}
	svc := service.NewService(repo, opts...)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.CorrelationID(), middleware.RequestLogger(), metrics.GinMiddleware(), middleware.CORS(cfg.Server.AllowedOrigins))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Portfolio API is running")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	api := r.Group("")
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			api.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second))
			logger.Infof("rate limiter enabled (redis)")
		} else {
			api.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
			logger.Infof("rate limiter enabled (memory)")
		}
	}
	handler.RegisterPortfolioRoutes(api, svc, cfg.Server.IsProduction())

	if cfg.MinIO.Endpoint != "" {
		assetStore, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("asset storage disabled: %v", err)
		} else {
			assets.RegisterRoutes(api, assetStore)
			checks["minio"] = assetStore.Ping
			logger.Infof("asset storage enabled (bucket=%s)", cfg.MinIO.Bucket)
		}
	}
	handlers.RegisterHealth(r, checks)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("server running on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if store != nil {
		if err := store.Disconnect(sctx); err != nil {
			logger.Errorf("mongo disconnect: %v", err)
		}
	}
}
