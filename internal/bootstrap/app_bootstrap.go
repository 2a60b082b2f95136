package bootstrap

import (
	"context"
	"fmt"

	"github.com/agendauth/agendauth/internal/config"
	"github.com/agendauth/agendauth/internal/controller"
	"github.com/agendauth/agendauth/internal/middleware"
	"github.com/agendauth/agendauth/internal/server"

	"github.com/rs/zerolog/log"
)

type BootstrapApp struct {
	config   config.Config
	services Services
	server   *server.Server
}

func NewBootstrapApp(config config.Config) *BootstrapApp {
	return &BootstrapApp{
		config: config,
	}
}

func (app *BootstrapApp) Setup(ctx context.Context) error {
	backingStore, err := app.SetupStore(ctx)

	if err != nil {
		return fmt.Errorf("failed to setup store: %w", err)
	}

	if err := backingStore.Ping(ctx); err != nil {
		return fmt.Errorf("store is not reachable: %w", err)
	}

	services, err := app.initServices(backingStore)

	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	app.services = services

	srv, err := server.NewServer(app.config.Server, []server.Middleware{
		middleware.NewZerologMiddleware(),
		middleware.NewCorsMiddleware(),
	})

	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	app.server = srv

	api := srv.Group("/api")
	protected := srv.Group("/api", middleware.NewAuthMiddleware(services.accessService))

	controllers := []server.Controller{
		controller.NewHealthController(api),
		controller.NewOAuthController(api, services.flowService, services.exchangeService, services.grantService, services.verifier),
		controller.NewSessionController(protected),
	}

	for _, ctrl := range controllers {
		ctrl.SetupRoutes()
	}

	log.Info().Msg("Application bootstrapped")

	return nil
}

func (app *BootstrapApp) Start() error {
	return app.server.Start()
}
