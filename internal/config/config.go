package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppEnv  string

	// Provider gateway.
	GatewayURL string
	NotifyURL  string
	ReturnURL  string

	// Merchant identity issued by the provider.
	AppID              string
	MerchantPrivateKey string
	ProviderPublicKey  string
	SignType           string

	// Barcode-pay polling schedule.
	PollInterval time.Duration
	PollCount    int

	// Merchant API auth.
	JWTSecret string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:            getEnv("APP_PORT", "8080"),
		AppEnv:             os.Getenv("APP_ENV"),
		GatewayURL:         getEnv("GATEWAY_URL", "https://openapi.example.com"),
		NotifyURL:          os.Getenv("NOTIFY_URL"),
		ReturnURL:          os.Getenv("RETURN_URL"),
		AppID:              os.Getenv("MERCHANT_APP_ID"),
		MerchantPrivateKey: os.Getenv("MERCHANT_PRIVATE_KEY"),
		ProviderPublicKey:  os.Getenv("PROVIDER_PUBLIC_KEY"),
		SignType:           getEnv("MERCHANT_SIGN_TYPE", "RSA2"),
		PollInterval:       getDuration("POLL_INTERVAL", 3*time.Second),
		PollCount:          getInt("POLL_COUNT", 10),
		JWTSecret:          os.Getenv("SECRET_KEY"),
		DBHost:             os.Getenv("DB_HOST"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             os.Getenv("DB_NAME"),
		DBPort:             os.Getenv("DB_PORT"),
	}

	if cfg.AppID == "" || cfg.MerchantPrivateKey == "" || cfg.ProviderPublicKey == "" {
		log.Fatal("Merchant credentials not loaded properly")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
