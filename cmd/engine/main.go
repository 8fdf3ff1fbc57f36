package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"titanic/internal/config"
	"titanic/internal/engine"
	"titanic/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "engine.yml", "engine config file (optional)")
	pipelinePath := flag.String("pipeline", "", "pipeline spec, overrides the engine config")
	flag.Parse()

	logging.InitFromEnv()
	cfg, err := config.LoadEngineConfig(*cfgPath)
	if err != nil {
		logging.L().Error("config", "err", err)
		os.Exit(1)
	}
	if cfg.Log.Level != "" || cfg.Log.JSON {
		logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	}
	if *pipelinePath != "" {
		cfg.PipelineYml = *pipelinePath
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		logging.L().Error("bootstrap", "err", err)
		os.Exit(1)
	}
	if err := e.Run(ctx); err != nil {
		logging.L().Error("engine", "err", err)
		os.Exit(1)
	}
}
