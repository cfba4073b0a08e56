package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string
	AppPort string

	// Origin of the dashboard frontend; OAuth callbacks redirect back here
	// and CORS is restricted to it.
	FrontendOrigin string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string

	// Club backend API (member lookup/creation).
	ClubAPIBaseURL    string
	ClubAPIServiceKey string

	RedisAddr     string
	RedisPassword string

	SessionTTL time.Duration
}

func Load() Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:  getenv("APP_ENV", "development"),
		AppPort: getenv("APP_PORT", "8080"),

		FrontendOrigin: getenv("FRONTEND_ORIGIN", "http://localhost:5173"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURL:  os.Getenv("DISCORD_REDIRECT_URL"),

		ClubAPIBaseURL:    getenv("CLUB_API_BASE_URL", "http://localhost:9000"),
		ClubAPIServiceKey: os.Getenv("CLUB_API_SERVICE_KEY"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SessionTTL: getduration("SESSION_TTL", 24*time.Hour),
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
