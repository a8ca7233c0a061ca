/**
 * @description
 * This file handles the configuration management for the generation-service.
 * It uses the 'viper' library to load configuration from environment
 * variables, providing a centralized and consistent way to manage settings.
 */
package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	ClerkJWKSURL     string `mapstructure:"CLERK_JWKS_URL"`
	ClerkIssuer      string `mapstructure:"CLERK_ISSUER"`
	AuthHeaderBypass bool   `mapstructure:"AUTH_HEADER_BYPASS"`

	GeminiAPIKey    string `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL   string `mapstructure:"GEMINI_BASE_URL"`
	GeminiChatModel string `mapstructure:"GEMINI_CHAT_MODEL"`
	GeminiCodeModel string `mapstructure:"GEMINI_CODE_MODEL"`

	StabilityAPIKey  string `mapstructure:"STABILITY_API_KEY"`
	StabilityBaseURL string `mapstructure:"STABILITY_BASE_URL"`

	ReplicateAPIToken string `mapstructure:"REPLICATE_API_TOKEN"`
	ReplicateBaseURL  string `mapstructure:"REPLICATE_BASE_URL"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`

	FreeLimit              int    `mapstructure:"FREE_LIMIT"`
	RateLimitPerMinute     int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	ProviderTimeoutSeconds int    `mapstructure:"PROVIDER_TIMEOUT_SECONDS"`
	LapseJobSchedule       string `mapstructure:"LAPSE_JOB_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	viper.SetDefault("GEMINI_CHAT_MODEL", "gemini-1.5-flash")
	viper.SetDefault("GEMINI_CODE_MODEL", "gemini-1.5-pro")
	viper.SetDefault("STABILITY_BASE_URL", "https://api.stability.ai")
	viper.SetDefault("REPLICATE_BASE_URL", "https://api.replicate.com")
	viper.SetDefault("FREE_LIMIT", 5)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 60)
	viper.SetDefault("LAPSE_JOB_SCHEDULE", "17 * * * *")
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("CLERK_JWKS_URL")
	_ = viper.BindEnv("CLERK_ISSUER")
	_ = viper.BindEnv("AUTH_HEADER_BYPASS")
	_ = viper.BindEnv("GEMINI_API_KEY")
	_ = viper.BindEnv("GEMINI_BASE_URL")
	_ = viper.BindEnv("GEMINI_CHAT_MODEL")
	_ = viper.BindEnv("GEMINI_CODE_MODEL")
	_ = viper.BindEnv("STABILITY_API_KEY")
	_ = viper.BindEnv("STABILITY_BASE_URL")
	_ = viper.BindEnv("REPLICATE_API_TOKEN")
	_ = viper.BindEnv("REPLICATE_BASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_ADDR")
	_ = viper.BindEnv("FREE_LIMIT")
	_ = viper.BindEnv("RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("PROVIDER_TIMEOUT_SECONDS")
	_ = viper.BindEnv("LAPSE_JOB_SCHEDULE")

	err = viper.Unmarshal(&config)
	return
}
