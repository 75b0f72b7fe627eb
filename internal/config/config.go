package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string // Secret key for JWT token signing
	JWTTTL          int    // JWT token expiration time in hours
	S3Bucket        string
	S3Region        string
	S3Endpoint      string // Optional custom endpoint (MinIO etc.); empty for AWS
	S3PublicBaseURL string // Public base URL the stored objects resolve under
	ThumbnailFolder string // Logical folder prefix for re-hosted thumbnails
	ListPageSize    int    // Fixed page size for the link listing
	FetchTimeout    int    // Timeout in seconds for outbound page/image fetches

	RateLimitRPS         float64 // Rate limit for general API endpoints (requests per second)
	RateLimitBurst       int     // Burst size for rate limiting
	RateLimitAuthRPS     float64 // Rate limit for auth endpoints (stricter)
	RateLimitAuthBurst   int     // Burst size for auth endpoints
	RateLimitCreateRPS   float64 // Rate limit for link ingestion (stricter, it does remote fetches)
	RateLimitCreateBurst int     // Burst size for link ingestion
}

func Load() *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTTTL:          getEnvInt("JWT_TTL_HOURS", 24),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		ThumbnailFolder: getEnv("THUMBNAIL_FOLDER", "thumbnails"),
		ListPageSize:    getEnvInt("LIST_PAGE_SIZE", 20),
		FetchTimeout:    getEnvInt("FETCH_TIMEOUT_SECONDS", 15),

		RateLimitRPS:         getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:       getEnvInt("RATE_LIMIT_BURST", 20),
		RateLimitAuthRPS:     getEnvFloat("RATE_LIMIT_AUTH_RPS", 5),
		RateLimitAuthBurst:   getEnvInt("RATE_LIMIT_AUTH_BURST", 10),
		RateLimitCreateRPS:   getEnvFloat("RATE_LIMIT_CREATE_RPS", 2),
		RateLimitCreateBurst: getEnvInt("RATE_LIMIT_CREATE_BURST", 5),
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
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
