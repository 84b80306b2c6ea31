package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	JWT struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"jwt"`

	// Default model endpoint used when an assistant carries no
	// credentials of its own.
	Model struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"model"`

	// Key for assistant API-key encryption at rest (hex, 32 bytes).
	Secret struct {
		EncryptionKey string `yaml:"encryption_key"`
	} `yaml:"secret"`

	MQ struct {
		Enabled    bool     `yaml:"enabled"`
		NameServer []string `yaml:"name_server"`
	} `yaml:"mq"`

	MCP struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"mcp"`

	OSS struct {
		Region          string `yaml:"region"`
		AccessKeyID     string `yaml:"access_key_id"`
		AccessKeySecret string `yaml:"access_key_secret"`
		BucketName      string `yaml:"bucket_name"`
	} `yaml:"oss"`

	Milvus struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"milvus"`
}

var Cfg Config

func Load() error {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal(data, &Cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %v", path, err)
	}

	return nil
}
