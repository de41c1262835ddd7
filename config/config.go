package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Lookup   LookupConfig
	Pipeline PipelineConfig
	Kafka    KafkaConfig
}

type ServerConfig struct {
	Port string
}

type LookupConfig struct {
	BaseURL  string        // Geolocation lookup service root (ip-api compatible)
	Timeout  time.Duration // Transport timeout for one lookup call
	CacheTTL time.Duration // 0 means entries live for the process lifetime
}

type PipelineConfig struct {
	LookupConcurrency int // Max in-flight lookup calls per run
}

type KafkaConfig struct {
	Brokers     []string // Empty disables record publishing
	RecordTopic string
}

func NewConfig() (*Config, error) {
	// Configure Viper to read .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// Enable automatic environment variable loading
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOOKUP_BASE_URL", "http://ip-api.com")
	viper.SetDefault("LOOKUP_TIMEOUT", "10s")
	viper.SetDefault("LOOKUP_CACHE_TTL", "0")
	viper.SetDefault("PIPELINE_LOOKUP_CONCURRENCY", 8)
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_RECORD_TOPIC", "enriched_records")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config
	config.Server.Port = viper.GetString("SERVER_PORT")

	// --- Lookup ---
	config.Lookup.BaseURL = strings.TrimRight(viper.GetString("LOOKUP_BASE_URL"), "/")
	config.Lookup.Timeout = viper.GetDuration("LOOKUP_TIMEOUT")
	config.Lookup.CacheTTL = viper.GetDuration("LOOKUP_CACHE_TTL")

	// --- Pipeline ---
	config.Pipeline.LookupConcurrency = viper.GetInt("PIPELINE_LOOKUP_CONCURRENCY")

	// --- Kafka ---
	kafkaBrokers := viper.GetString("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		config.Kafka.Brokers = strings.Split(kafkaBrokers, ",")
	}
	config.Kafka.RecordTopic = viper.GetString("KAFKA_RECORD_TOPIC")

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}
