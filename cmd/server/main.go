package main

import (
	"context"
	"crowned-trader/config"
	"crowned-trader/controllers"
	"crowned-trader/database"
	"crowned-trader/interfaces"
	"crowned-trader/selector"
	"crowned-trader/services"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const selectionRetention = 180 * 24 * time.Hour

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	var provider interfaces.ChainProvider
	switch cfg.DataProvider {
	case config.ProviderPolygon:
		provider = services.NewPolygonOptionsDataService(cfg.PolygonAPIKey)
	default:
		provider = services.NewAlpacaOptionsDataService(cfg.AlpacaAPIKey, cfg.AlpacaSecretKey, cfg.AlpacaTradingURL, cfg.ChainFetchTimeout)
	}

	storage, err := database.NewLocalStorage(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open storage")
	}
	defer storage.Close()

	if err := storage.CleanupOldData(time.Now().Add(-selectionRetention)); err != nil {
		logger.WithError(err).Warn("Failed to clean up old selections")
	}

	journal := services.NewSelectionJournal(cfg.JournalDir)

	var notifier services.Notifier
	if cfg.DiscordWebhookURL != "" {
		discord, err := services.NewDiscordNotifier(cfg.DiscordWebhookURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Discord notifier")
		}
		notifier = discord
	}

	pipeline := selector.NewPipeline(selector.WithMaxChainAge(cfg.ChainMaxAge))
	contractService := services.NewContractService(provider, pipeline, storage, journal, notifier, services.ContractServiceConfig{
		FetchTimeout:     cfg.ChainFetchTimeout,
		BatchConcurrency: cfg.BatchConcurrency,
	})
	contractService.SetLogLevel(cfg.LogLevel)

	if cfg.LogLevel < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := controllers.NewRouter(
		controllers.NewSelectionController(contractService, storage),
		controllers.NewJournalController(journal),
		logger,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.ServerPort,
			"provider": cfg.DataProvider,
		}).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server exiting")
}
