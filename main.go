package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"travel-admin-panel/config"
	"travel-admin-panel/internal/adapters/backend"
	"travel-admin-panel/internal/audit"
	"travel-admin-panel/internal/handlers"
	"travel-admin-panel/internal/ws"
	"travel-admin-panel/pkg/logger"
)

func main() {
	logger.InitLogger()

	log.Info().Msg("Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	backendClient, err := backend.NewClient(cfg.BackendBaseURL, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backend API client")
	}

	auditPub := audit.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue, cfg.RabbitQueuePrefix)
	defer auditPub.Close()

	chatHandler := ws.NewHandler(backendClient, auditPub, cfg.PollInterval)
	server := handlers.NewServer(backendClient, auditPub, chatHandler, cfg.StatsCacheTTL)

	log.Info().Str("port", cfg.Port).Dur("pollInterval", cfg.PollInterval).Msg("Admin panel server starting")
	if err := http.ListenAndServe(":"+cfg.Port, server.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
