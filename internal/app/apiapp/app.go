package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Douba03/Datingapp-sub001/internal/config"
	"github.com/Douba03/Datingapp-sub001/internal/notify"
	pgrepo "github.com/Douba03/Datingapp-sub001/internal/repo/postgres"
	redrepo "github.com/Douba03/Datingapp-sub001/internal/repo/redis"
	allowancesvc "github.com/Douba03/Datingapp-sub001/internal/services/allowance"
	authsvc "github.com/Douba03/Datingapp-sub001/internal/services/auth"
	matchessvc "github.com/Douba03/Datingapp-sub001/internal/services/matches"
	ratesvc "github.com/Douba03/Datingapp-sub001/internal/services/rate"
	swipesvc "github.com/Douba03/Datingapp-sub001/internal/services/swipes"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if cfg.Postgres.MigrationsDir != "" {
			if err := pgrepo.MigrateUp(cfg.Postgres.MigrationsDir, cfg.Postgres.DSN); err != nil {
				log.Warn("migrations failed", zap.Error(err))
			}
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	streamRepo := redrepo.NewStreamRepo(redisClient)
	allowanceRepo := pgrepo.NewAllowanceRepo(pool)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	allowanceManager := allowancesvc.NewManager(pool, allowanceRepo, allowancesvc.Config{
		FullAllowance: cfg.Engine.FullAllowance,
		RefillPeriod:  cfg.Engine.RefillPeriod,
	})
	rateLimiter := ratesvc.NewLimiter(
		rateRepo,
		cfg.Engine.BurstPerMinute,
		cfg.Engine.BurstPer10Seconds,
	)
	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		Pool:   pool,
		Ledger: swipeRepo,
		Store:  matchRepo,
	})
	dispatcher := notify.NewStreamDispatcher(streamRepo, cfg.Notify.Stream, log)
	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Pool:        pool,
		Allowance:   allowanceManager,
		SwipeStore:  swipeRepo,
		Detector:    matchesService,
		RateLimiter: rateLimiter,
		Dispatcher:  dispatcher,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AllowanceManager: allowanceManager,
		MatchService:     matchesService,
		SwipeService:     swipeService,
		JWTManager:       jwtManager,
		Logger:           log,
		Config:           cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
