package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      int       `yaml:"port"`
		RateLimit RateLimit `yaml:"rateLimit"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
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
	} `yaml:"minio"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	// Redis is optional; when Addr is empty the in-memory score cache is used.
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Scores struct {
		CacheTTLSeconds int `yaml:"cacheTTLSeconds"`
	} `yaml:"scores"`

	// Vendors holds pass-through credentials per adapter, keyed by source
	// tag (cwpsa, immy, m365). Values are opaque to everything but the
	// adapter that declares them required.
	Vendors map[string]VendorConfig `yaml:"vendors"`

	// APIKeys maps tenant name -> API key for request auth.
	APIKeys map[string]string `yaml:"apiKeys"`
}

type VendorConfig struct {
	BaseURL     string            `yaml:"baseURL"`
	Credentials map[string]string `yaml:"credentials"`
}

// RateLimit bounds requests per tenant+IP: a bucket of Burst tokens
// refilled at PerSecond.
type RateLimit struct {
	Burst     int `yaml:"burst"`
	PerSecond int `yaml:"perSecond"`
}

// Load reads the yaml config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Scores.CacheTTLSeconds <= 0 {
		cfg.Scores.CacheTTLSeconds = 300
	}
	if cfg.Server.RateLimit.Burst <= 0 {
		cfg.Server.RateLimit.Burst = 60
	}
	if cfg.Server.RateLimit.PerSecond <= 0 {
		cfg.Server.RateLimit.PerSecond = 5
	}
	return &cfg, nil
}

// MySQLDSN builds the MySQL connection string
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the lib/pq connection string
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
