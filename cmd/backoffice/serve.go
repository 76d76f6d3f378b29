package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	myPostgresRepo "github.com/Miraines/management-company/backoffice/internal/adapters/db/postgres"
	myRedisRepo "github.com/Miraines/management-company/backoffice/internal/adapters/db/redis"
	myHTTP "github.com/Miraines/management-company/backoffice/internal/adapters/transport/http"
	apphasher "github.com/Miraines/management-company/backoffice/internal/app/auth/hasher"
	"github.com/Miraines/management-company/backoffice/internal/app/auth/jwt"
	"github.com/Miraines/management-company/backoffice/internal/app/auth/principal"
	appsvc "github.com/Miraines/management-company/backoffice/internal/app/auth/service"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/repo"
	"github.com/Miraines/management-company/backoffice/internal/infra/config"
	"github.com/Miraines/management-company/backoffice/internal/infra/database"
	lg "github.com/Miraines/management-company/backoffice/internal/infra/log"
	"github.com/Miraines/management-company/backoffice/internal/infra/metrics"
	"github.com/Miraines/management-company/backoffice/internal/infra/migrate"
	"github.com/Miraines/management-company/backoffice/internal/infra/server"
	"github.com/Miraines/management-company/backoffice/internal/infra/workerpool"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var migrateOnStart bool

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	zapLog, err := lg.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = zapLog.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL, zapLog)
	if err != nil {
		zapLog.Error("failed to connect to database", zap.Error(err))
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if migrateOnStart {
		if err := migrate.Up(sqlDB); err != nil {
			zapLog.Error("run migrations", zap.Error(err))
			return err
		}
	}

	m := metrics.New()
	pool := workerpool.New(cfg.HashWorkers, m.PoolInFlight)
	defer func() {
		zapLog.Info("draining password pool")
		pool.Close()
	}()

	hasher := apphasher.NewArgon2Hasher(cfg.Argon2Params(), pool, m.HashDuration)
	codec, err := jwt.NewJWTCodec(cfg.Secret(), cfg.TokenTTL)
	if err != nil {
		zapLog.Error("failed to init token codec", zap.Error(err))
		return err
	}

	userRepo := myPostgresRepo.NewPostgresUserRepo(db)
	employeeRepo := myPostgresRepo.NewPostgresEmployeeRepo(db)

	var directory repo.UserDirectory = userRepo
	opts := []appsvc.Option{appsvc.WithLogger(zapLog)}
	checks := map[string]myHTTP.Check{
		"database": sqlDB.PingContext,
	}
	if cfg.RedisAddress != "" {
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()

		cache := myRedisRepo.NewRedisUserCache(userRepo, redisCli, cfg.ExistenceCacheTTL, zapLog)
		directory = cache
		opts = append(opts, appsvc.WithExistenceCache(cache))
		checks["redis"] = func(ctx context.Context) error {
			return redisCli.Ping(ctx).Err()
		}
	}

	svc := appsvc.New(userRepo, employeeRepo, hasher, codec, validator.New(), opts...)
	extractor := principal.NewExtractor(codec, directory,
		principal.WithLogger(zapLog),
		principal.WithOutcomes(m.AuthOutcomes),
	)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := myHTTP.NewRouter(myHTTP.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Metrics:        m.Handler(),
		Checks:         checks,
	}, myHTTP.NewHandler(svc, extractor, zapLog), zapLog)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, cfg.HTTPAddress, router, cfg.RequestTimeout, zapLog)
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("shutdown signal received")
		return nil
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
		return err
	}
	return nil
}
