package app

import (
	"database/sql"
	"errors"

	"go-elms/internal/apiclient"
	"go-elms/internal/bootstrap"
	"go-elms/internal/config"
	"go-elms/internal/shared/connection"
	"go-elms/internal/shared/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// infrastructure holds the connections a process opened. Fields stay nil
// when the configuration does not call for them.
type infrastructure struct {
	gormDB *gorm.DB
	sqlDB  *sql.DB
	rdb    *redis.Client
	api    *apiclient.Client
}

func (i *infrastructure) close() {
	if i.rdb != nil {
		_ = i.rdb.Close()
	}
	if i.sqlDB != nil {
		_ = i.sqlDB.Close()
	}
}

// App is the wired api process.
type App struct {
	Router *gin.Engine
	infra  *infrastructure
}

func (a *App) Close() {
	a.infra.close()
}

// BuildApp opens the connections the configured backing needs and mounts every
// route on a new router.
func BuildApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewLeave(reg)

	infra, err := connect(cfg, m, logger)
	if err != nil {
		return nil, err
	}

	router := bootstrap.NewRouter(logger)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	if err := registerModules(router, cfg, infra, m, logger); err != nil {
		infra.close()
		return nil, err
	}
	return &App{Router: router, infra: infra}, nil
}

func connect(cfg *config.Config, m *metrics.Leave, logger *zap.Logger) (*infrastructure, error) {
	infra := &infrastructure{}

	if cfg.Leave.Backing == config.BackingPostgres {
		gormDB, sqlDB, err := openDatabase(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		infra.gormDB, infra.sqlDB = gormDB, sqlDB
	}

	if cfg.Redis.Addr != "" {
		rdb, err := connection.ConnectRedisWithRetry(cfg.Redis, maxRetries(cfg), logger)
		if err != nil {
			infra.close()
			return nil, err
		}
		infra.rdb = rdb
	}

	if cfg.API.BaseURL != "" {
		api, err := apiclient.New(cfg.API, m, logger)
		if err != nil {
			infra.close()
			return nil, err
		}
		infra.api = api
	}

	if cfg.Leave.Backing == config.BackingRemote && infra.api == nil {
		infra.close()
		return nil, errors.New("remote backing requires api.base_url")
	}
	return infra, nil
}

// openDatabase connects through gorm and applies the embedded migrations.
func openDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, *sql.DB, error) {
	gormDB, err := connection.ConnectGORMWithRetry(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, err
	}

	if err := connection.RunMigrations(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}

	logger.Info("database ready", zap.String("addr", connection.HostPort(cfg.Host, cfg.Port)))
	return gormDB, sqlDB, nil
}

func maxRetries(cfg *config.Config) int {
	if cfg.Database.MaxRetries > 0 {
		return cfg.Database.MaxRetries
	}
	return 5
}
