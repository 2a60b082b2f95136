package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/agendauth/agendauth/internal/bootstrap"
	"github.com/agendauth/agendauth/internal/config"
	"github.com/agendauth/agendauth/internal/service"
	"github.com/agendauth/agendauth/internal/utils"
	"github.com/agendauth/agendauth/internal/utils/loaders"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/traefik/paerser/cli"
)

// CreateAppConfig is the registration input; the protocol only ever reads
// the record this command produces.
type CreateAppConfig struct {
	Store       config.StoreConfig `description:"Backing store configuration."`
	Interactive bool               `description:"Register the app interactively."`
	Name        string             `description:"App display name."`
	Owner       string             `description:"User id of the app owner."`
	RedirectURL string             `description:"OAuth redirect URL."`
	MaxCalls    int64              `description:"Monthly API call quota."`
}

func NewCreateAppConfig() *CreateAppConfig {
	return &CreateAppConfig{
		Store: config.StoreConfig{
			Backend: "sqlite",
			Path:    "./agendauth.db",
		},
		MaxCalls: 1000,
	}
}

func appCmd() *cli.Command {
	cmd := &cli.Command{
		Name:          "app",
		Description:   "Manage registered apps",
		Configuration: nil,
		Resources:     nil,
		Run: func(_ []string) error {
			return errors.New("use agendauth app create or agendauth app list")
		},
	}

	if err := cmd.AddCommand(createAppCmd()); err != nil {
		log.Fatal().Err(err).Msg("Failed to add app create command")
	}

	if err := cmd.AddCommand(listAppsCmd()); err != nil {
		log.Fatal().Err(err).Msg("Failed to add app list command")
	}

	return cmd
}

func createAppCmd() *cli.Command {
	cfg := NewCreateAppConfig()

	return &cli.Command{
		Name:          "create",
		Description:   "Register a new app and print its credentials",
		Configuration: cfg,
		Resources: []cli.ResourceLoader{
			&loaders.FlagLoader{},
			&loaders.EnvLoader{},
		},
		Run: func(_ []string) error {
			utils.InitLogger(&utils.LoggerConfig{Level: "info", Json: false})

			if cfg.Interactive {
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().Title("App name").Value(&cfg.Name).Validate(func(s string) error {
							if s == "" {
								return errors.New("name cannot be empty")
							}
							return nil
						}),
						huh.NewInput().Title("Owner user id").Value(&cfg.Owner).Validate(func(s string) error {
							if s == "" {
								return errors.New("owner cannot be empty")
							}
							return nil
						}),
						huh.NewInput().Title("Redirect URL").Value(&cfg.RedirectURL).Validate(validateRedirectURL),
					),
				)

				if err := form.WithTheme(huh.ThemeBase()).Run(); err != nil {
					return fmt.Errorf("failed to run interactive prompt: %w", err)
				}
			}

			if cfg.Name == "" || cfg.Owner == "" {
				return errors.New("name and owner cannot be empty")
			}

			if err := validateRedirectURL(cfg.RedirectURL); err != nil {
				return err
			}

			apps, cleanup, err := openAppService(cfg.Store)

			if err != nil {
				return err
			}

			defer cleanup()

			app, err := apps.CreateApp(context.Background(), cfg.Name, cfg.Owner, cfg.RedirectURL, cfg.MaxCalls)

			if err != nil {
				return fmt.Errorf("failed to create app: %w", err)
			}

			builder := strings.Builder{}

			fmt.Fprintf(&builder, "Registered app %s\n\n", app.Name)
			fmt.Fprintf(&builder, "Client ID: %s\n", app.ID)
			fmt.Fprintf(&builder, "Client Secret: %s\n", app.Secret)
			fmt.Fprintf(&builder, "Redirect URL: %s\n", app.RedirectURL)
			fmt.Fprintf(&builder, "Monthly quota: %d calls\n\n", app.MaxCalls)
			fmt.Fprintln(&builder, "Save these credentials, the secret cannot be recovered later.")

			fmt.Print(builder.String())

			return nil
		},
	}
}

func listAppsCmd() *cli.Command {
	cfg := NewCreateAppConfig()

	return &cli.Command{
		Name:          "list",
		Description:   "List apps registered by an owner",
		Configuration: cfg,
		Resources: []cli.ResourceLoader{
			&loaders.FlagLoader{},
			&loaders.EnvLoader{},
		},
		AllowArg: true,
		Run: func(args []string) error {
			utils.InitLogger(&utils.LoggerConfig{Level: "info", Json: false})

			owner := cfg.Owner

			if len(args) > 0 {
				owner = args[0]
			}

			if owner == "" {
				return errors.New("owner is required, use agendauth app list <owner>")
			}

			apps, cleanup, err := openAppService(cfg.Store)

			if err != nil {
				return err
			}

			defer cleanup()

			records, err := apps.ListAppsByOwner(context.Background(), owner)

			if err != nil {
				return fmt.Errorf("failed to list apps: %w", err)
			}

			if len(records) == 0 {
				fmt.Println("No apps registered for this owner.")
				return nil
			}

			for _, app := range records {
				fmt.Printf("%s\t%s\t%s\t%d/%d calls\n", app.ID, app.Name, app.RedirectURL, app.ApiCalls, app.MaxCalls)
			}

			return nil
		},
	}
}

func openAppService(storeCfg config.StoreConfig) (*service.AppService, func(), error) {
	app := bootstrap.NewBootstrapApp(config.Config{Store: storeCfg})

	backingStore, err := app.SetupStore(context.Background())

	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	cleanup := func() {
		if err := backingStore.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}

	return service.NewAppService(backingStore), cleanup, nil
}

func validateRedirectURL(raw string) error {
	parsed, err := url.Parse(raw)

	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("redirect URL must be absolute")
	}

	return nil
}
