package main

import (
	"flag"

	"go-elms/internal/app"
	"go-elms/internal/config"
	"go-elms/internal/shared/apperror"
	"go-elms/internal/shared/logger"

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

	apperror.Init()

	if err := app.RunWorker(cfg); err != nil {
		log.Fatal("run worker failed", zap.Error(err))
	}
}
