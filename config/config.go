package config

import (
	"io/ioutil"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	"github.com/Tezha3/phishing-url-detection/app"
	"github.com/Tezha3/phishing-url-detection/collectors/page"
	"github.com/Tezha3/phishing-url-detection/collectors/registry"
	"github.com/Tezha3/phishing-url-detection/metrics"
	"github.com/Tezha3/phishing-url-detection/store"
)

const (
	StorePass       = "STORE_PASS"
	InfluxAuthToken = "INFLUX_AUTH_TOKEN"
	SentryDsn       = "SENTRY_DSN"

	DefaultPath = "config/config.yml"
)

type Model struct {
	Path string `yaml:"path"`
}

type Config struct {
	Model       Model           `yaml:"model"`
	Fetch       page.Config     `yaml:"fetch"`
	Registry    registry.Config `yaml:"registry"`
	Store       store.Config    `yaml:"store"`
	InfluxDB    metrics.Opts    `yaml:"influxdb"`
	Sentry      app.Sentry      `yaml:"sentry"`
	LogLevel    string          `yaml:"log-level"`
	WorkerCount int             `yaml:"worker-count"`
}

// Default returns a configuration that only needs a model path to be usable.
func Default() Config {
	return Config{
		Model:       Model{Path: "model/xgb_model_top_features.json"},
		Fetch:       page.DefaultConfig,
		Registry:    registry.DefaultConfig,
		LogLevel:    "info",
		WorkerCount: 10,
	}
}

func (c *Config) IsValid() error {
	ce := app.NewConfigErr()
	if c.Model.Path == "" {
		ce.Add("model path cannot be empty")
	}
	if c.Fetch.Timeout <= 0 {
		ce.Add("fetch timeout must be positive")
	}
	if c.Fetch.MaxPageBytes < 0 {
		ce.Add("fetch max-page-bytes cannot be negative")
	}
	if c.Fetch.MaxRedirects < 0 {
		ce.Add("fetch max-redirects cannot be negative")
	}
	if c.Registry.Timeout <= 0 {
		ce.Add("registry timeout must be positive")
	}
	if c.Registry.CacheSize < 0 {
		ce.Add("registry cache-size cannot be negative")
	}
	if c.WorkerCount <= 0 {
		ce.Add("worker-count must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		ce.Add("unknown log-level " + c.LogLevel)
	}
	ce.Merge(c.Store.IsValid())
	ce.Merge(c.InfluxDB.IsValid())
	ce.Merge(c.Sentry.IsValid())

	if ce.IsError() {
		return &ce
	}
	return nil
}

// ReadConfig reads the configuration file at path on top of the defaults.
// Secrets are taken from the environment (or a .env file) and removed from
// the environment afterwards.
func ReadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Msgf("failed to load .env file: %s", err)
	}

	conf := Default()
	f, err := ioutil.ReadFile(path)
	if err != nil {
		return conf, errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(f, &conf); err != nil {
		return conf, errors.Wrap(err, "unmarshal config file")
	}

	if v := os.Getenv(StorePass); v != "" {
		conf.Store.Password = v
	}
	if v := os.Getenv(InfluxAuthToken); v != "" {
		conf.InfluxDB.AuthToken = v
	}
	if v := os.Getenv(SentryDsn); v != "" {
		conf.Sentry.Dsn = v
	}

	for _, env := range []string{StorePass, InfluxAuthToken, SentryDsn} {
		os.Setenv(env, "")
	}

	return conf, nil
}
