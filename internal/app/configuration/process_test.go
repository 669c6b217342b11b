package configuration

import (
	"net/url"
	"testing"

	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestRecorderConfigs(t *testing.T) {
	config := pactrecorder.Config{
		ServerAddress: mustURL(t, "http://localhost:8081"),
		Recorders: []url.URL{
			mustURL(t, "http://localhost:3001"),
			mustURL(t, "http://localhost:3002/payments"),
		},
		PactDir: "cypress/pacts",
	}

	configs, err := RecorderConfigs(config)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, "http://localhost:8081", configs[0].ServerAddress.String())
	assert.Equal(t, "http://localhost:3001", configs[0].Target.String())
	assert.Equal(t, "http://localhost:8081/payments", configs[1].ServerAddress.String())
	assert.Equal(t, "http://localhost:3002", configs[1].Target.String())
	assert.Equal(t, "cypress/pacts", configs[1].PactDir)
	assert.Nil(t, configs[1].Recorders)
}

func TestRecorderConfigsErrors(t *testing.T) {
	_, err := RecorderConfigs(pactrecorder.Config{Recorders: []url.URL{mustURL(t, "http://localhost:3001")}})
	assert.Error(t, err)

	_, err = RecorderConfigs(pactrecorder.Config{
		ServerAddress: mustURL(t, "http://localhost:8081"),
		Recorders:     []url.URL{mustURL(t, "/relative")},
	})
	assert.Error(t, err)

	configs, err := RecorderConfigs(pactrecorder.Config{})
	assert.NoError(t, err)
	assert.Empty(t, configs)
}

func TestProcessFromEnv(t *testing.T) {
	t.Setenv("ADMIN_PORT", "9090")

	process, err := NewProcessFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9090, process.AdminPort)
	assert.Equal(t, "info", process.LogLevel)
	assert.False(t, process.LogJSON)
}

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	require.NoError(t, ConfigureLogging("debug", true))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	assert.Error(t, ConfigureLogging("chatty", false))
}
