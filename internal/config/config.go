package config

import (
	"time"

	"github.com/ghaggin/wallet/internal/model"
)

type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

type Config struct {
	Mode    Mode    `yaml:"mode"`
	API     API     `yaml:"api"`
	Session Session `yaml:"session"`
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
}

type API struct {
	DevelopmentURL string        `yaml:"development_url"`
	ProductionURL  string        `yaml:"production_url"`
	Timeout        time.Duration `yaml:"timeout"`
}

type Session struct {
	TTL time.Duration `yaml:"ttl"`
}

// Storage selects the key/value backend holding the session.
// Driver is one of "memory", "file" or "sqlite".
type Storage struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type Server struct {
	Port int `yaml:"port"`
}

func Default() *Config {
	return &Config{
		Mode: ModeProduction,
		API: API{
			DevelopmentURL: "http://localhost:8080",
			ProductionURL:  "https://seanmcapp.herokuapp.com",
			Timeout:        10 * time.Second,
		},
		Session: Session{
			TTL: model.DefaultSessionTTL,
		},
		Storage: Storage{
			Driver: "file",
			Path:   ".wallet/session.json",
		},
		Server: Server{
			Port: 8123,
		},
	}
}

// New loads the yaml config file on top of the defaults. A non-empty mode
// takes precedence over the file and the environment.
func New(mode Mode) (*Config, error) {
	loadDotEnv()

	cfg := Default()
	if err := readYAML(configPath(), cfg); err != nil {
		return nil, err
	}

	if env := getEnv("WALLET_MODE"); env != "" {
		cfg.Mode = Mode(env)
	}
	if mode != "" {
		cfg.Mode = mode
	}

	cfg.fill()
	return cfg, nil
}

// fill restores defaults for zero values a partial yaml file left behind.
func (c *Config) fill() {
	d := Default()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.API.DevelopmentURL == "" {
		c.API.DevelopmentURL = d.API.DevelopmentURL
	}
	if c.API.ProductionURL == "" {
		c.API.ProductionURL = d.API.ProductionURL
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = d.Session.TTL
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = d.Storage.Driver
	}
	if c.Storage.Path == "" && c.Storage.Driver != "memory" {
		c.Storage.Path = d.Storage.Path
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
}

// BaseURL is the wallet service address for the configured mode.
func (c *Config) BaseURL() string {
	if c.Mode == ModeDevelopment {
		return c.API.DevelopmentURL
	}
	return c.API.ProductionURL
}
