package main

import (
	"os"

	"github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/config"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/platform"
)

func main() {
	settings, err := config.Load(os.Getenv("SRAP_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	logFile, err := initLogger(settings.Paths.Logs, settings.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer logFile.Close()

	log.Info().Str("version", Version).Str("root", settings.Root).Msg("StarRailAutoProxy Agent Service")

	if len(os.Args) < 2 {
		log.Fatal().Msg("Usage: service <identifier>")
	}

	if settings.HighPriority {
		if err := platform.RaisePriority(); err != nil {
			log.Warn().Err(err).Msg("Failed to raise process priority")
		}
	}

	identifier := os.Args[1]
	log.Info().Str("identifier", identifier).Msg("Starting agent server")

	if err := registerAll(settings); err != nil {
		log.Fatal().Err(err).Msg("Failed to register custom components")
	}

	// Start the agent server
	if err := maa.AgentServerStartUp(identifier); err != nil {
		log.Fatal().Err(err).Msg("Failed to start agent server")
	}
	log.Info().Msg("Agent server started")

	// Wait for the server to finish
	maa.AgentServerJoin()

	// Shutdown
	maa.AgentServerShutDown()
	log.Info().Msg("Agent server shutdown")
}
