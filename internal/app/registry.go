package app

import (
	"errors"
	"time"

	"go-elms/internal/config"
	"go-elms/internal/leave"
	"go-elms/internal/leave/remote"
	"go-elms/internal/messaging/kafka"
	"go-elms/internal/middleware"
	"go-elms/internal/profile"
	"go-elms/internal/rbac"
	"go-elms/internal/shared/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func registerModules(
	router *gin.Engine,
	cfg *config.Config,
	infra *infrastructure,
	m *metrics.Leave,
	logger *zap.Logger,
) error {
	// --- Repositories ---
	var (
		leaveRepo   leave.Repository
		entitlement leave.EntitlementSource = leave.StaticEntitlement(cfg.Leave.EntitlementDays)
		profileRepo profile.Repository
	)
	switch cfg.Leave.Backing {
	case config.BackingMemory:
		leaveRepo = leave.NewMemoryRepository()
	case config.BackingPostgres:
		// Events are written in the same transaction as the change.
		publisher := leave.NewOutboxPublisher(kafka.NewOutboxRepository(infra.sqlDB), logger)
		leaveRepo = leave.NewRepository(infra.gormDB, publisher)
		profileRepo = profile.NewRepository(infra.gormDB)
	case config.BackingRemote:
		leaveRepo = remote.NewRepository(infra.api, logger)
		entitlement = remote.NewEntitlementSource(infra.api)
	}

	var profileSource profile.Source
	switch {
	case infra.api != nil:
		profileSource = profile.NewRemoteSource(infra.api, profileRepo, logger)
	case profileRepo != nil:
		profileSource = profileRepo
	default:
		return errors.New("profiles need api.base_url or the postgres backing")
	}

	// --- RBAC Core ---
	enforcer, err := rbac.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(enforcer, logger)

	// --- Leave Core ---
	calc := leave.NewCalculator(leave.BalancePolicy{
		Mode:           leave.CountMode(cfg.Leave.CountMode),
		IncludePending: cfg.Leave.IncludePending,
	})
	store := leave.NewStore(leaveRepo, m, logger)
	store.SetMaxAge(cfg.Leave.StoreMaxAge)
	ledger := leave.NewLedger(store, calc, entitlement)
	balanceCache := leave.NewBalanceCache(infra.rdb, cfg.Leave.BalanceCacheTTL, logger)
	store.Subscribe(balanceCache.Observe)

	// --- Services ---
	profileService := profile.NewService(profileSource, infra.rdb, 0, logger)
	leaveService := leave.NewService(leave.ServiceDeps{
		Store:     store,
		Ledger:    ledger,
		Validator: leave.NewValidator(calc, time.Now),
		Workflow:  leave.NewWorkflow(store, ledger, m, logger),
		Cache:     balanceCache,
		Directory: profileService,
		Metrics:   m,
	}, logger)

	// --- Handlers ---
	leaveHandler := leave.NewHandlerWithRedis(leaveService, infra.rdb, logger)
	profileHandler := profile.NewHandler(profileService, logger)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Routes Registration ---
	auth := middleware.AuthMiddleware(cfg.Auth.JWTSecret)
	submitGuards := []gin.HandlerFunc{
		middleware.RateLimitByUser(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		middleware.Idempotency(infra.rdb),
	}

	api := router.Group("/api/v1", middleware.RateLimitByIP(rate.Limit(cfg.RateLimit.IPRPS), cfg.RateLimit.IPBurst))
	{
		leave.RegisterRoutes(api, leaveHandler, rbacService, auth, submitGuards...)
		profile.RegisterRoutes(api, profileHandler, rbacService, auth)
		rbac.RegisterRoutes(api, rbacHandler, auth)
	}

	return nil
}
