/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the booking-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	BookingEventExchange string `mapstructure:"BOOKING_EVENT_EXCHANGE"`
	JWKSURL              string `mapstructure:"JWKS_URL"`
	// CommissionRatePercent is the single platform-wide commission rate. Every
	// analytics and payout call site reads this value; none carries its own
	// literal.
	CommissionRatePercent           float64 `mapstructure:"COMMISSION_RATE_PERCENT"`
	PromoValidateRateLimitPerMinute int     `mapstructure:"PROMO_VALIDATE_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BOOKING_EVENT_EXCHANGE", "hirafic.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "hirafic:rate_limit")
	viper.SetDefault("COMMISSION_RATE_PERCENT", 15.0)
	viper.SetDefault("PROMO_VALIDATE_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("BOOKING_EVENT_EXCHANGE")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("COMMISSION_RATE_PERCENT")
	_ = viper.BindEnv("PROMO_VALIDATE_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "hirafic:rate_limit"
	}

	if config.CommissionRatePercent < 0 {
		log.Printf("level=warn component=config msg=\"negative commission rate configured; coercing to zero\" rate_percent=%f", config.CommissionRatePercent)
		config.CommissionRatePercent = 0
	}
	if config.CommissionRatePercent > 100 {
		log.Printf("level=warn component=config msg=\"commission rate too high; capping at 100\" rate_percent=%f", config.CommissionRatePercent)
		config.CommissionRatePercent = 100
	}

	if config.PromoValidateRateLimitPerMinute < 0 {
		config.PromoValidateRateLimitPerMinute = 0
	}

	return
}
