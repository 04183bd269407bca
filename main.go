package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plantCo2/water-device/confs"
	"github.com/plantCo2/water-device/db"
	"github.com/plantCo2/water-device/logging"
	"github.com/plantCo2/water-device/server"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := confs.LoadConfig()
	if err != nil {
		logging.Component("main").Error("loading config", "error", err)
		os.Exit(1)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logging.Init(level, cfg.LogJSON)
	log := logging.Component("main")
	if level != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		log.Error("connecting to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	log.Info("database ready", "dialect", database.Dialect())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, database)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
