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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaos-io/tryon/cache"
	"github.com/chaos-io/tryon/config"
	"github.com/chaos-io/tryon/handler"
	"github.com/chaos-io/tryon/middleware"
	"github.com/chaos-io/tryon/store"
	"github.com/chaos-io/tryon/tryon"
	"github.com/chaos-io/tryon/util"
	nhttp "github.com/chaos-io/tryon/util/http"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := util.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.Sync()

	util.Logger.Info("starting tryon server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		util.Logger.Fatal("invalid engine config", zap.Error(err))
	}
	engineLogger := util.NewEngineLogger(cfg.Server.Mode)

	// 商品图缓存：进程内 LRU，启用 redis 时作为二级缓存
	lruCache, err := cache.NewLRUCache(cfg.Engine.CacheSize)
	if err != nil {
		util.Logger.Fatal("failed to create item cache", zap.Error(err))
	}
	var itemCache tryon.ItemCache = lruCache
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedisCache(&cfg.Redis)
		if err := redisCache.Ping(context.Background()); err != nil {
			util.Logger.Warn("redis connection failed, using in-process cache only", zap.Error(err))
		} else {
			util.Logger.Info("redis connected successfully")
			itemCache = &cache.Tiered{L1: lruCache, L2: redisCache}
		}
		defer redisCache.Close()
	}

	httpClient := nhttp.NewHTTPClientWithTimeout(cfg.Fetch.Timeout)
	fetcher := tryon.NewHTTPFetcher(httpClient, cfg.Fetch.MaxBytes)

	var remover tryon.Remover
	if cfg.Engine.Remover == "remote" {
		remover = tryon.NewRemoteRemover(cfg.Engine.RemoverURL, httpClient, cfg.Fetch.MaxBytes, engineLogger)
		util.Logger.Info("using remote background remover", zap.String("url", cfg.Engine.RemoverURL))
	}

	sessions := store.New(cfg.Session.TTL, func(p tryon.Profile) *tryon.Session {
		return tryon.NewSession(p,
			tryon.WithOptions(engineOpts),
			tryon.WithLogger(engineLogger),
			tryon.WithFetcher(fetcher),
			tryon.WithRemover(remover),
			tryon.WithCache(itemCache),
		)
	}, util.Logger)
	if err := sessions.Start(cfg.Session.SweepSpec); err != nil {
		util.Logger.Fatal("failed to schedule session sweep", zap.Error(err))
	}

	sessionHandler := handler.NewSessionHandler(cfg, sessions)

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.Server.AllowOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"version":  Version,
			"sessions": sessions.Len(),
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	sessionHandler.Register(r.Group("/api/v1"))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		util.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	util.Logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions.Stop(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Error("server forced to shutdown", zap.Error(err))
	}
}
