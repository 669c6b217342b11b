package configuration

import (
	"context"
	"os"

	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

func NewFromEnv() (pactrecorder.Config, error) {
	ctx := context.Background()

	var config pactrecorder.Config
	err := envconfig.Process(ctx, &config)
	if err != nil {
		return config, errors.Wrap(err, "process env config")
	}
	return config, nil
}

// LoadFile overlays the settings found in a YAML file on config. Keys missing from the file
// keep their current value.
func LoadFile(path string, config *pactrecorder.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

func ConfigureRecorder(config pactrecorder.Config) error {
	if config.Target.Host == "" {
		return errors.Errorf("no target to record for %s", config.ServerAddress.String())
	}
	return StartServer(&config.ServerAddress, &config)
}
