package loaders

import (
	"os"

	"github.com/traefik/paerser/cli"
	"github.com/traefik/paerser/file"
)

// FileLoader reads the configuration file named by AGENDAUTH_CONFIG_FILE.
type FileLoader struct{}

func (f *FileLoader) Load(_ []string, cmd *cli.Command) (bool, error) {
	configFile := os.Getenv("AGENDAUTH_CONFIG_FILE")

	if configFile == "" {
		return false, nil
	}

	if err := file.Decode(configFile, cmd.Configuration); err != nil {
		return false, err
	}

	return true, nil
}
