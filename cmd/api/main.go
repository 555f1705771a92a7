package main

import (
	"flag"

	"go-elms/internal/app"
	"go-elms/internal/bootstrap"
	"go-elms/internal/config"
	"go-elms/internal/shared/apperror"
	"go-elms/internal/shared/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if cfg.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}
	apperror.Init()

	// build dependency + routes
	a, err := app.BuildApp(cfg, log)
	if err != nil {
		log.Fatal("build app failed", zap.Error(err))
	}
	defer a.Close()

	if err := bootstrap.StartHTTPServer(a.Router, cfg.Server, bootstrap.NewStdoutAuditLogger(log)); err != nil {
		log.Error("api server exited", zap.Error(err))
	}
}
