package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	ShipScope ShipScopeConfig `yaml:"shipscope"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	ssl := d.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, ssl)
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	TrackingUpdatedTopicName string `yaml:"tracking_updated_topic_name"`
	ConsumerGroup            string `yaml:"consumer_group"`
}

func (k KafkaConfig) Broker() string {
	return fmt.Sprintf("%s:%d", k.Host, k.Port)
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type ShipScopeConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	// Cached tracking results expire after this many seconds; 600 when unset.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// Amazon order lookups need real account credentials. Leaving them
	// empty keeps the service up; Amazon lookups fail with a
	// configuration error.
	AmazonEmail    string `yaml:"amazon_email"`
	AmazonPassword string `yaml:"amazon_password"`
	AmazonBaseURL  string `yaml:"amazon_base_url"`

	SwaggerPath string `yaml:"swagger_path"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
