package configuration

import (
	"context"
	"os"

	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

// Process holds the settings of the pact-recorder process itself.
type Process struct {
	AdminPort int    `env:"ADMIN_PORT,default=8080"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogJSON   bool   `env:"LOG_JSON"`
}

func NewProcessFromEnv() (Process, error) {
	var process Process
	if err := envconfig.Process(context.Background(), &process); err != nil {
		return process, errors.Wrap(err, "process env config")
	}
	return process, nil
}

func ConfigureLogging(level string, json bool) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	log.SetLevel(parsed)
	log.SetOutput(os.Stderr)
	if json {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// RecorderConfigs expands the RECORDERS targets into one recorder each. Every recorder listens
// on the server address, mounted at the path of its target.
func RecorderConfigs(config pactrecorder.Config) ([]pactrecorder.Config, error) {
	if len(config.Recorders) > 0 && config.ServerAddress.Host == "" {
		return nil, errors.New("SERVER_ADDRESS is required to serve RECORDERS")
	}

	var configs []pactrecorder.Config
	for _, target := range config.Recorders {
		if target.Host == "" {
			return nil, errors.Errorf("recorder target %q has no host", target.String())
		}

		recorderConfig := config
		recorderConfig.Recorders = nil
		recorderConfig.Target = target
		recorderConfig.ServerAddress.Path = target.Path
		recorderConfig.Target.Path = ""
		configs = append(configs, recorderConfig)
	}
	return configs, nil
}
