package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Session    SessionConfig    `mapstructure:"session"`
	MFA        MFAConfig        `mapstructure:"mfa"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	Alerts     AlertConfig      `mapstructure:"alerts"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

type ServerConfig struct {
	Port              int     `mapstructure:"port"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	RequestBurst      int     `mapstructure:"request_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret               string `mapstructure:"secret"`
	RefreshSecret        string `mapstructure:"refresh_secret"`
	AccessExpiryMinutes  int    `mapstructure:"access_expiry_minutes"`
	RefreshExpiryMinutes int    `mapstructure:"refresh_expiry_minutes"`
	Issuer               string `mapstructure:"issuer"`
}

type AuthConfig struct {
	MaxFailedAttempts    int `mapstructure:"max_failed_attempts"`
	FailureWindowMinutes int `mapstructure:"failure_window_minutes"`
	LockoutMinutes       int `mapstructure:"lockout_minutes"`
	BcryptCost           int `mapstructure:"bcrypt_cost"`
}

type SessionConfig struct {
	TimeoutMinutes  int  `mapstructure:"timeout_minutes"`
	MaxConcurrent   int  `mapstructure:"max_concurrent"`
	AllowConcurrent bool `mapstructure:"allow_concurrent"`
}

type MFAConfig struct {
	GracePeriodDays int `mapstructure:"grace_period_days"`
}

type EncryptionConfig struct {
	// KeyBase64 is the 256-bit PHI key as stored in the secret store
	KeyBase64 string `mapstructure:"key_base64"`
}

type AlertConfig struct {
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

type AuditConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
