package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
		MetricsPort string        `mapstructure:"metricsPort"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMODE  string `mapstructure:"SSLMODE"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	JWT struct {
		SecretKey                string `mapstructure:"secretKey"`
		Issuer                   string `mapstructure:"issuer"`
		Audience                 string `mapstructure:"audience"`
		AccessTokenExpireMinutes int    `mapstructure:"accessTokenExpireMinutes"`
	} `mapstructure:"jwt"`
	Auth struct {
		ResetTokenExpireMinutes int  `mapstructure:"resetTokenExpireMinutes"`
		EchoResetTokens         bool `mapstructure:"echoResetTokens"`
	} `mapstructure:"auth"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
		FromName string `mapstructure:"fromName"`
		UseTLS   bool   `mapstructure:"useTLS"`
	} `mapstructure:"smtp"`
	ResetBaseURL string `mapstructure:"resetBaseURL"`
}

// AccessTokenTTL returns the configured access-token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpireMinutes) * time.Minute
}

// ResetTokenTTL returns the configured password-reset token lifetime.
func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.Auth.ResetTokenExpireMinutes) * time.Minute
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets never live in the YAML file; they come from the environment
	// (JWT_SECRET_KEY, POSTGRES_PASSWORD, SMTP_USER, SMTP_PASS).
	v.AutomaticEnv()
	_ = v.BindEnv("jwt.secretKey", "JWT_SECRET_KEY")
	_ = v.BindEnv("repositories.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("smtp.username", "SMTP_USER")
	_ = v.BindEnv("smtp.password", "SMTP_PASS")
	_ = v.BindEnv("mode", "APP_ENV")

	// Try to load file-based config, fall back to the embedded defaults.
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	if config.JWT.SecretKey == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY must be set")
	}
	if config.JWT.AccessTokenExpireMinutes <= 0 {
		config.JWT.AccessTokenExpireMinutes = 30
	}
	if config.Auth.ResetTokenExpireMinutes <= 0 {
		config.Auth.ResetTokenExpireMinutes = 60
	}
	return config, nil
}
