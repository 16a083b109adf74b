package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	Port              string        `mapstructure:"PORT"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	AdminKey          string        `mapstructure:"ADMIN_KEY"`
	EmbedURL          string        `mapstructure:"EMBED_URL"`
	EmbedModel        string        `mapstructure:"EMBED_MODEL"`
	AssistantBaseURL  string        `mapstructure:"ASSISTANT_BASE_URL"`
	AssistantModel    string        `mapstructure:"ASSISTANT_MODEL"`
	AssistantAPIKey   string        `mapstructure:"ASSISTANT_API_KEY"`
	AssistantMaxToken int           `mapstructure:"ASSISTANT_MAX_TOKENS"`
	CORSAllowed       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB   int64         `mapstructure:"MAX_UPLOAD_MB"`
	RulesPath         string        `mapstructure:"RULES_PATH"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("ASSISTANT_MAX_TOKENS", 1024)
	v.SetDefault("RULES_PATH", "rules.yaml")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
