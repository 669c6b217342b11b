package pactrecorder

import (
	"net/url"
	"time"

	"github.com/form3tech-oss/pact-recorder/internal/app/contract"
)

const (
	defaultDelay    = 500 * time.Millisecond
	defaultDuration = 15 * time.Second
	defaultPactDir  = "pacts"
)

type Config struct {
	// Address to listen on
	ServerAddress url.URL `env:"SERVER_ADDRESS" json:"serverAddress" yaml:"-"`
	// Targets to record, e.g. http://localhost:3001;http://localhost:3002
	Recorders []url.URL `env:"RECORDERS,delimiter=;" json:"-" yaml:"-"`
	// Do not load Target from env, we set this for each value from Recorders
	Target url.URL `json:"target" yaml:"-"`

	PactDir                string        `env:"PACT_DIR,default=pacts" json:"pactDir" yaml:"pactDir"`
	ConsumerName           string        `env:"CONSUMER_NAME,default=customer" json:"consumerName" yaml:"consumerName"`
	ProviderName           string        `env:"PROVIDER_NAME,default=provider" json:"providerName" yaml:"providerName"`
	HeadersBlocklist       []string      `env:"HEADERS_BLOCKLIST" json:"headersBlocklist" yaml:"headersBlocklist"`
	IgnoreDefaultBlocklist bool          `env:"IGNORE_DEFAULT_BLOCKLIST" json:"ignoreDefaultBlocklist" yaml:"ignoreDefaultBlocklist"`
	WaitDelay              time.Duration `env:"WAIT_DELAY" json:"waitDelay" yaml:"waitDelay"`
	WaitDuration           time.Duration `env:"WAIT_DURATION" json:"waitDuration" yaml:"waitDuration"`

	TLSCertFile string `env:"TLS_CERT_FILE" json:"tlsCertFile" yaml:"tlsCertFile"`
	TLSKeyFile  string `env:"TLS_KEY_FILE" json:"tlsKeyFile" yaml:"tlsKeyFile"`
	// Require client certificates signed by this CA
	TLSCAFile string `env:"TLS_CA_FILE" json:"tlsCaFile" yaml:"tlsCaFile"`
}

func (c *Config) Identity() contract.Identity {
	identity := contract.Identity{ConsumerName: c.ConsumerName, ProviderName: c.ProviderName}
	if identity.ConsumerName == "" {
		identity.ConsumerName = contract.DefaultConsumerName
	}
	if identity.ProviderName == "" {
		identity.ProviderName = contract.DefaultProviderName
	}
	return identity
}

func (c *Config) Blocklist() *contract.Blocklist {
	return contract.NewBlocklist(c.IgnoreDefaultBlocklist, c.HeadersBlocklist...)
}

func (c *Config) Dir() string {
	if c.PactDir == "" {
		return defaultPactDir
	}
	return c.PactDir
}
