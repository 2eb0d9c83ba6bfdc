package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server       Server
	Database     Database
	AutoSave     AutoSave
	GeminiApiKey string
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// AutoSave holds the tuning knobs for the answer persistence coordinator.
type AutoSave struct {
	InFlightTTLSeconds   int // advisory lock lifetime per (attempt, question)
	MaxRetries           int // retry budget per queued answer
	DrainIntervalSeconds int // background queue drain cadence
	PurgeAgeHours        int // queued entries older than this are purged
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("AUTOSAVE_INFLIGHT_TTL_SECONDS", 30)
	viper.SetDefault("AUTOSAVE_MAX_RETRIES", 5)
	viper.SetDefault("AUTOSAVE_DRAIN_INTERVAL_SECONDS", 60)
	viper.SetDefault("AUTOSAVE_PURGE_AGE_HOURS", 24)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.AutoSave.InFlightTTLSeconds = viper.GetInt("AUTOSAVE_INFLIGHT_TTL_SECONDS")
	config.AutoSave.MaxRetries = viper.GetInt("AUTOSAVE_MAX_RETRIES")
	config.AutoSave.DrainIntervalSeconds = viper.GetInt("AUTOSAVE_DRAIN_INTERVAL_SECONDS")
	config.AutoSave.PurgeAgeHours = viper.GetInt("AUTOSAVE_PURGE_AGE_HOURS")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")

	log.Info().Str("port", config.Server.Port).Str("db_host", config.Database.Host).Msg("Config loaded")
	return &config, nil
}
