package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/plantCo2/water-device/confs"
	"github.com/plantCo2/water-device/db"
	"github.com/plantCo2/water-device/handlers"
	httpHandler "github.com/plantCo2/water-device/handlers/http"
	"github.com/plantCo2/water-device/logging"
	"github.com/plantCo2/water-device/repositories"
	"github.com/plantCo2/water-device/services"
	"github.com/plantCo2/water-device/usecases"
	"github.com/plantCo2/water-device/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	app  *gin.Engine
	db   db.Database
	cfg  *confs.Config
	feed *ws.Manager
	http *http.Server
}

func NewServer(cfg *confs.Config, database db.Database) *Server {
	s := &Server{
		app:  gin.New(),
		db:   database,
		cfg:  cfg,
		feed: ws.NewManager(),
	}
	s.routes()
	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.app,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.app }

func (s *Server) routes() {
	s.app.Use(gin.Recovery(), logging.GinMiddleware())

	config := cors.DefaultConfig()
	if len(s.cfg.CORSOrigins) == 0 || (len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = s.cfg.CORSOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", logging.RequestIDHeader}
	config.ExposeHeaders = []string{logging.RequestIDHeader}
	s.app.Use(cors.New(config))

	repos := repositories.New(s.db)

	readingsUseCase := usecases.NewReadingsUseCase(repos.Readings)
	settingsUseCase := usecases.NewSettingsUseCase(repos.Settings)
	commandsUseCase := usecases.NewCommandsUseCase(repos.Commands)
	syncUseCase := usecases.NewSyncUseCase(s.db)

	retention := services.NewRetentionService(readingsUseCase, s.cfg.RetentionWindow)

	readingHandler := httpHandler.NewReadingHandler(readingsUseCase, s.feed, s.cfg.HistoryWindow, s.cfg.RetentionWindow)
	settingsHandler := httpHandler.NewSettingsHandler(settingsUseCase)
	cmdHandler := httpHandler.NewCommandHandler(commandsUseCase, syncUseCase)
	maintenanceHandler := httpHandler.NewMaintenanceHandler(retention)
	healthHandler := httpHandler.NewHealthHandler(s.db)
	feedHandler := handlers.NewFeedHandler(s.feed)

	s.app.GET("/health", healthHandler.Health)

	api := s.app.Group("/api")
	{
		// Device contract
		api.POST("/update_readings", readingHandler.UpdateReadings)
		api.GET("/get_commands", cmdHandler.Poll)

		api.POST("/valve/control", cmdHandler.ControlValve)
		api.GET("/settings", settingsHandler.GetSettings)
		api.POST("/settings", settingsHandler.UpdateSettings)

		readings := api.Group("/readings")
		{
			readings.GET("", readingHandler.GetLatest)
			readings.GET("/history", readingHandler.GetHistory)
		}

		commands := api.Group("/commands")
		{
			commands.GET("", cmdHandler.GetRecent)
			commands.GET("/pending", cmdHandler.GetPending)
		}

		api.POST("/maintenance/sweep", maintenanceHandler.Sweep)
		api.GET("/feed/subscribers", feedHandler.GetSubscribers)
	}

	s.app.GET("/ws/readings", feedHandler.HandleReadings)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logging.Component("server").Info("listening", "addr", s.cfg.HTTPAddr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drops feed subscribers and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.feed.CloseAll()
	return s.http.Shutdown(ctx)
}
