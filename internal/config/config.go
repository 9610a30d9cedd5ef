package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/metaselect/internal/domain/auth"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		MaxUploadMB int      `yaml:"maxUploadMB"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text | json
	} `yaml:"log"`

	Classifier struct {
		Provider       string `yaml:"provider"` // http | openai
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
		OpenAI         struct {
			APIKey  string `yaml:"apiKey"`
			BaseURL string `yaml:"baseURL"`
			Model   string `yaml:"model"`
		} `yaml:"openai"`
	} `yaml:"classifier"`

	History struct {
		Driver     string `yaml:"driver"` // memory | sqlite | mysql | postgres | minio
		Key        string `yaml:"key"`
		Capacity   int    `yaml:"capacity"`
		SQLitePath string `yaml:"sqlitePath"`
	} `yaml:"history"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		Prefix     string `yaml:"prefix"`
	} `yaml:"minio"`

	Auth struct {
		Users []APIUser `yaml:"users"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity        int `yaml:"capacity"`
		RefillPerSecond int `yaml:"refillPerSecond"`
	} `yaml:"rateLimit"`

	Session struct {
		IdleMinutes  int `yaml:"idleMinutes"`
		SweepSeconds int `yaml:"sweepSeconds"`
	} `yaml:"session"`
}

// APIUser maps an API key to the user it signs in.
type APIUser struct {
	APIKey    string `yaml:"apiKey"`
	auth.User `yaml:",inline"`
}

// Default returns a config that runs locally against a classifier on :8000.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Server.MaxUploadMB = 10
	cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Classifier.Provider = "http"
	cfg.Classifier.URL = "http://localhost:8000"
	cfg.Classifier.TimeoutSeconds = 60
	cfg.History.Driver = "sqlite"
	cfg.History.Key = "analysis_history"
	cfg.History.Capacity = 10
	cfg.History.SQLitePath = "metaselect.db"
	cfg.Database.SSLMode = "disable"
	cfg.Minio.Prefix = "history"
	cfg.RateLimit.Capacity = 30
	cfg.RateLimit.RefillPerSecond = 1
	cfg.Session.IdleMinutes = 60
	cfg.Session.SweepSeconds = 300
	return &cfg
}

// LoadEnv reads .env style files into the process environment. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load baca file config.yaml; ${VAR} references are expanded from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over Default() and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Classifier.Provider {
	case "http":
		if strings.TrimSpace(c.Classifier.URL) == "" {
			return errors.New("classifier.url is required for the http provider")
		}
	case "openai":
		if strings.TrimSpace(c.Classifier.OpenAI.APIKey) == "" {
			return errors.New("classifier.openai.apiKey is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown classifier.provider %q (allowed: http, openai)", c.Classifier.Provider)
	}

	switch c.History.Driver {
	case "memory":
	case "sqlite":
		if c.History.SQLitePath == "" {
			return errors.New("history.sqlitePath is required for the sqlite driver")
		}
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the %s driver", c.History.Driver)
		}
	case "minio":
		if c.Minio.Endpoint == "" || c.Minio.BucketName == "" {
			return errors.New("minio.endpoint and minio.bucketName are required for the minio driver")
		}
	default:
		return fmt.Errorf("unknown history.driver %q (allowed: memory, sqlite, mysql, postgres, minio)", c.History.Driver)
	}

	if c.History.Capacity <= 0 {
		return errors.New("history.capacity must be positive")
	}
	seen := make(map[string]bool, len(c.Auth.Users))
	for i, u := range c.Auth.Users {
		if u.APIKey == "" || u.ID == "" {
			return fmt.Errorf("auth.users[%d]: apiKey and id are required", i)
		}
		if seen[u.APIKey] {
			return fmt.Errorf("auth.users[%d]: duplicate apiKey", i)
		}
		seen[u.APIKey] = true
	}
	return nil
}

func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Session.IdleMinutes) * time.Minute
}

func (c *Config) SessionSweep() time.Duration {
	return time.Duration(c.Session.SweepSeconds) * time.Second
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// APIKeys maps each configured key to its user.
func (c *Config) APIKeys() map[string]auth.User {
	out := make(map[string]auth.User, len(c.Auth.Users))
	for _, u := range c.Auth.Users {
		out[u.APIKey] = u.User
	}
	return out
}
