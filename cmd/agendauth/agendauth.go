package main

import (
	"context"

	"github.com/agendauth/agendauth/internal/bootstrap"
	"github.com/agendauth/agendauth/internal/config"
	"github.com/agendauth/agendauth/internal/utils"
	"github.com/agendauth/agendauth/internal/utils/loaders"

	"github.com/rs/zerolog/log"
	"github.com/traefik/paerser/cli"
)

func NewAgendauthCmdConfiguration() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:    3000,
			Address: "0.0.0.0",
		},
		Store: config.StoreConfig{
			Backend: "sqlite",
			Path:    "./agendauth.db",
		},
		Log: config.LogConfig{
			Level: "info",
			Json:  false,
		},
	}
}

func main() {
	cfg := NewAgendauthCmdConfiguration()

	resourceLoaders := []cli.ResourceLoader{
		&loaders.FileLoader{},
		&loaders.FlagLoader{},
		&loaders.EnvLoader{},
	}

	cmdAgendauth := &cli.Command{
		Name:          "agendauth",
		Description:   "OAuth authorization server for agenda apps.",
		Configuration: cfg,
		Resources:     resourceLoaders,
		Run: func(_ []string) error {
			return runCmd(*cfg)
		},
	}

	for _, sub := range []*cli.Command{versionCmd(), healthcheckCmd(), appCmd()} {
		if err := cmdAgendauth.AddCommand(sub); err != nil {
			log.Fatal().Err(err).Str("command", sub.Name).Msg("Failed to add command")
		}
	}

	if err := cli.Execute(cmdAgendauth); err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}

func runCmd(cfg config.Config) error {
	utils.InitLogger(&utils.LoggerConfig{
		Level: cfg.Log.Level,
		Json:  cfg.Log.Json,
	})

	log.Info().Str("version", config.Version).Msg("Starting agendauth")

	app := bootstrap.NewBootstrapApp(cfg)

	if err := app.Setup(context.Background()); err != nil {
		return err
	}

	return app.Start()
}
