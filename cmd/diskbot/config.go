package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/pkazanov/diskbot/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the bot backend will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key used to sign the OAuth state parameter
	SecretKey string

	// Key the stored Yandex tokens are encrypted with
	CipherKey string

	// Telegram Bot API token
	TelegramToken string

	// Yandex OAuth application credentials
	YandexAppID     string
	YandexAppSecret string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		Environment: defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":       setString(&c.ListenAddr),
		"DATABASE_URI":      setString(&c.DatabaseDSN),
		"SECRET_KEY":        setString(&c.SecretKey),
		"CIPHER_KEY":        setString(&c.CipherKey),
		"TELEGRAM_TOKEN":    setString(&c.TelegramToken),
		"YANDEX_APP_ID":     setString(&c.YandexAppID),
		"YANDEX_APP_SECRET": setString(&c.YandexAppSecret),
		"LOG_LEVEL":         setString(&c.LogLevel),
		"ENVIRONMENT":       setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("diskbot", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "State signing key")
	fs.StringVarP(&c.CipherKey, "cipher-key", "c", c.CipherKey, "Token encryption key")
	fs.StringVarP(&c.TelegramToken, "telegram-token", "t", c.TelegramToken, "Telegram Bot API token")
	fs.StringVar(&c.YandexAppID, "yandex-app-id", c.YandexAppID, "Yandex OAuth application id")
	fs.StringVar(&c.YandexAppSecret, "yandex-app-secret", c.YandexAppSecret, "Yandex OAuth application secret")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
