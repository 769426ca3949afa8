package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Dispatcher struct {
	BatchSize      int
	Concurrency    int
	MaxAttempts    int
	RequestTimeout time.Duration
	StaleAfter     time.Duration
	RetryPolicy    string
	RetryDelay     time.Duration
	RefreshLeeway  time.Duration
}

type Config struct {
	FacebookAppID        string
	FacebookAppSecret    string
	FacebookRedirectURI  string
	LinkedinClientID     string
	LinkedinClientSecret string
	LinkedinRedirectURI  string
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURI    string
	PostgresURI          string
	RedisURI             string
	FrontendURL          string
	OllamaURL            string
	OllamaModel          string
	R2                   R2
	Dispatcher           Dispatcher
	SecretKey            string
	StateSecret          string
	EncryptionKey        string
	CookieName           string
}

func LoadConfig() *Config {
	return &Config{
		FacebookAppID:        getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:    getEnv("FACEBOOK_APP_SECRET", ""),
		FacebookRedirectURI:  getEnv("FACEBOOK_REDIRECT_URI", ""),
		LinkedinClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedinClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		LinkedinRedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:    getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		PostgresURI:          getEnv("POSTGRES_URI", ""),
		RedisURI:             getEnv("REDIS_URI", ""),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:5173"),
		OllamaURL:            getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:          getEnv("OLLAMA_MODEL", "llama3.1"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Dispatcher: Dispatcher{
			BatchSize:      getEnvInt("DISPATCH_BATCH_SIZE", 10),
			Concurrency:    getEnvInt("DISPATCH_CONCURRENCY", 10),
			MaxAttempts:    getEnvInt("DISPATCH_MAX_ATTEMPTS", 3),
			RequestTimeout: getEnvDuration("DISPATCH_REQUEST_TIMEOUT", 30*time.Second),
			StaleAfter:     getEnvDuration("DISPATCH_STALE_AFTER", 15*time.Minute),
			RetryPolicy:    getEnv("DISPATCH_RETRY_POLICY", "none"),
			RetryDelay:     getEnvDuration("DISPATCH_RETRY_DELAY", time.Minute),
			RefreshLeeway:  getEnvDuration("TOKEN_REFRESH_LEEWAY", 5*time.Minute),
		},
		SecretKey:     getEnv("SECRET_KEY", ""),
		StateSecret:   getEnv("STATE_SECRET", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", "sf_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
