package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"BerryBox/config"
	"BerryBox/core/cover"
	"BerryBox/core/daemon"
	"BerryBox/core/player"
	"BerryBox/logger"
	"BerryBox/repository"
)

// Start initializes every component and runs the HTTP server until a
// shutdown signal arrives.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxMB,
		MaxBackups: 3,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	})
	defer logger.Sync()

	ensureDirExists(cfg.DataDir)
	ensureDirExists(cfg.ImagesDir)

	repo := repository.NewFileCatalogRepository(cfg.CatalogPath, cfg.ResumeExpiry)
	if err := repo.Load(); err != nil {
		logger.Warn("catalog load failed, starting empty", logger.ErrorField(err))
	}

	covers := cover.NewCollector(cfg.ImagesDir, repo)
	if removed := covers.CleanupTemp(); removed > 0 {
		logger.Info("removed leftover temp covers", logger.Int("count", removed))
	}
	if err := covers.Reindex(); err != nil {
		logger.Warn("cover reindex failed", logger.ErrorField(err))
	}

	daemonClient := daemon.NewClient(cfg)
	confirms := player.NewConfirmationRegistry(cfg.ConfirmTimeout)
	agg := player.NewAggregator(daemonClient, repo, confirms)
	agg.SetCoverCollector(covers)

	saver := player.NewSaver(agg, repo, cfg.SaveInterval, cfg.PositionDelta)
	agg.SetPauseHook(saver.SaveNow)
	controller := player.NewController(daemonClient, agg, repo, confirms, saver)

	hub := NewHub(agg, cfg.BroadcastInterval)
	agg.SetNotifier(hub.Notify)
	go hub.Run()
	saver.Start()

	listener := daemon.NewListener(cfg, agg.Apply, func() {
		logger.Info("daemon event stream connected")
		hub.Notify()
	})
	listener.Start()

	// The admin backend writes the same catalog document; pick up its
	// edits without a restart.
	watcher, err := repository.NewWatcher(repo, hub.Notify)
	if err != nil {
		logger.Warn("catalog watcher unavailable", logger.ErrorField(err))
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	apiHandler := NewAPIHandler(controller, agg, repo, covers, hub, cfg)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/play", apiHandler.PlayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/pause", apiHandler.PauseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/resume", apiHandler.ResumeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/next", apiHandler.NextHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/prev", apiHandler.PrevHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/seek", apiHandler.SeekHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/volume", apiHandler.VolumeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/now-playing", apiHandler.NowPlayingHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/catalog", apiHandler.GetCatalogHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/catalog", apiHandler.SaveCatalogItemHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/catalog/{id}", apiHandler.GetCatalogItemHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/catalog/{id}", apiHandler.DeleteCatalogItemHandler).Methods(http.MethodDelete)

	router.HandleFunc("/api/progress", apiHandler.GetProgressHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/progress/{uri}", apiHandler.GetProgressHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/progress/{uri}", apiHandler.DeleteProgressHandler).Methods(http.MethodDelete)

	router.HandleFunc("/ws", apiHandler.WebSocketHandler)

	router.PathPrefix("/images/").Handler(
		http.StripPrefix("/images/", http.FileServer(http.Dir(cfg.ImagesDir))))

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	listener.Stop()
	saver.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", logger.ErrorField(err))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ensureDirExists(path string) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		logger.Fatal("failed to create directory",
			logger.String("path", path),
			logger.ErrorField(err))
	}
}
