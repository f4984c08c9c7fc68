// Package config loads service configuration from environment / .env files.
package config

import (
	"time"

	"github.com/spf13/viper"

	"stayledger/internal/core/types"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Log      LogConfig
	Tax      TaxConfig
	Checkout CheckoutConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type LogConfig struct {
	Level       string
	Development bool
}

// TaxConfig holds the bracket table for room/package charges and the flat
// rate for food and consumables. Single jurisdiction, fixed brackets; rates
// are decimal fractions (0.05 = 5%).
type TaxConfig struct {
	BracketLower string // upper bound (exclusive) of the low bracket
	BracketUpper string // upper bound (inclusive) of the mid bracket
	RateLow      string
	RateMid      string
	RateHigh     string
	RateFlatFood string
}

type CheckoutConfig struct {
	// DefaultReturnLocation is the storage location code returned consumables
	// go to when the operator does not pick one explicitly.
	DefaultReturnLocation string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// .env is optional; environment variables alone are fine.
	_ = viper.ReadInConfig()

	viper.SetDefault("APP_NAME", "stayledger")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "stayledger")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 25)
	viper.SetDefault("DB_MIN_CONNS", 5)
	viper.SetDefault("DB_MAX_CONN_LIFETIME", "1h")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TAX_BRACKET_LOWER", "5000")
	viper.SetDefault("TAX_BRACKET_UPPER", "7500")
	viper.SetDefault("TAX_RATE_LOW", "0.05")
	viper.SetDefault("TAX_RATE_MID", "0.12")
	viper.SetDefault("TAX_RATE_HIGH", "0.18")
	viper.SetDefault("TAX_RATE_FLAT_FOOD", "0.05")
	viper.SetDefault("CHECKOUT_DEFAULT_RETURN_LOCATION", "MAIN_STORE")

	return &Config{
		App: AppConfig{
			Name: viper.GetString("APP_NAME"),
			Env:  viper.GetString("APP_ENV"),
			Port: viper.GetString("APP_PORT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			Name:            viper.GetString("DB_NAME"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			SSLMode:         viper.GetString("DB_SSL_MODE"),
			MaxConns:        viper.GetInt32("DB_MAX_CONNS"),
			MinConns:        viper.GetInt32("DB_MIN_CONNS"),
			MaxConnLifetime: viper.GetDuration("DB_MAX_CONN_LIFETIME"),
		},
		Log: LogConfig{
			Level:       viper.GetString("LOG_LEVEL"),
			Development: viper.GetString("APP_ENV") == "development",
		},
		Tax: TaxConfig{
			BracketLower: viper.GetString("TAX_BRACKET_LOWER"),
			BracketUpper: viper.GetString("TAX_BRACKET_UPPER"),
			RateLow:      viper.GetString("TAX_RATE_LOW"),
			RateMid:      viper.GetString("TAX_RATE_MID"),
			RateHigh:     viper.GetString("TAX_RATE_HIGH"),
			RateFlatFood: viper.GetString("TAX_RATE_FLAT_FOOD"),
		},
		Checkout: CheckoutConfig{
			DefaultReturnLocation: viper.GetString("CHECKOUT_DEFAULT_RETURN_LOCATION"),
		},
	}
}

// DSN builds a pgx connection string.
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode
}

// MustMoney parses a configured decimal or panics at startup.
// Tax misconfiguration must fail fast, never fall back silently.
func MustMoney(s string) types.Money {
	return types.MustMoney(s)
}
