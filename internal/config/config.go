package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Ledger   LedgerConfig
	Chain    ChainConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// LedgerConfig selects the durable medium behind the local ledger store and
// the directory scannable artifacts are rendered into.
type LedgerConfig struct {
	Backend     string // "bolt" or "postgres"
	BoltPath    string
	ArtifactDir string
}

// ChainConfig points at the consensus-ledger gateway. An empty GatewayURL
// means the process runs local-only.
type ChainConfig struct {
	GatewayURL string
	APIKey     string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("LEDGER_BACKEND", "bolt")
	viper.SetDefault("LEDGER_BOLT_PATH", "veritag.db")
	viper.SetDefault("LEDGER_ARTIFACT_DIR", "artifacts")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Ledger: LedgerConfig{
			Backend:     viper.GetString("LEDGER_BACKEND"),
			BoltPath:    viper.GetString("LEDGER_BOLT_PATH"),
			ArtifactDir: viper.GetString("LEDGER_ARTIFACT_DIR"),
		},
		Chain: ChainConfig{
			GatewayURL: viper.GetString("CHAIN_GATEWAY_URL"),
			APIKey:     viper.GetString("CHAIN_API_KEY"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
	}
}
