package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	ManagerKey        string `mapstructure:"MANAGER_KEY"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Gemini API key for the cloud detection/extraction provider.
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Workflow engine policy knobs. Copied into an engine.Policy at startup;
	// the engine itself never reads this struct.
	HILRequired            bool    `mapstructure:"HIL_REQUIRED"`
	DetectionProvider      string  `mapstructure:"DETECTION_PROVIDER"`
	DetectionMinConfidence float64 `mapstructure:"DETECTION_MIN_CONFIDENCE"`
	ProviderMaxRetries     int     `mapstructure:"PROVIDER_MAX_RETRIES"`
	DepositDefaultPercent  float64 `mapstructure:"DEPOSIT_DEFAULT_PERCENT"`
	StaleAfterDays         int     `mapstructure:"STALE_AFTER_DAYS"`
	DebugTrace             bool    `mapstructure:"DEBUG_TRACE"`

	// Venue identity, used on outbound offer documents.
	VenueName string `mapstructure:"VENUE_NAME"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 3)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "venuepilot")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("HIL_REQUIRED", true)
	viper.SetDefault("DETECTION_PROVIDER", "local")
	viper.SetDefault("DETECTION_MIN_CONFIDENCE", 0.65)
	viper.SetDefault("PROVIDER_MAX_RETRIES", 2)
	viper.SetDefault("DEPOSIT_DEFAULT_PERCENT", 20)
	viper.SetDefault("STALE_AFTER_DAYS", 30)
	viper.SetDefault("DEBUG_TRACE", false)
	viper.SetDefault("VENUE_NAME", "VenuePilot")
	viper.SetDefault("MANAGER_KEY", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
