package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/agendauth/agendauth/internal/utils"

	"github.com/rs/zerolog/log"
	"github.com/traefik/paerser/cli"
)

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func healthcheckCmd() *cli.Command {
	return &cli.Command{
		Name:          "healthcheck",
		Description:   "Perform a health check against a running instance",
		Configuration: nil,
		Resources:     nil,
		AllowArg:      true,
		Run: func(args []string) error {
			utils.InitLogger(&utils.LoggerConfig{
				Level: "info",
				Json:  false,
			})

			appURL := os.Getenv("AGENDAUTH_APP_URL")

			if len(args) > 0 {
				appURL = args[0]
			}

			if appURL == "" {
				return errors.New("AGENDAUTH_APP_URL is not set and no argument was provided")
			}

			log.Info().Str("app_url", appURL).Msg("Performing health check")

			client := http.Client{
				Timeout: 30 * time.Second,
			}

			resp, err := client.Get(appURL + "/api/health")

			if err != nil {
				return fmt.Errorf("failed to perform request: %w", err)
			}

			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("service is not healthy, got: %s", resp.Status)
			}

			body, err := io.ReadAll(resp.Body)

			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			var health healthResponse

			if err := json.Unmarshal(body, &health); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			log.Info().Interface("response", health).Msg("Agendauth is healthy")

			return nil
		},
	}
}
