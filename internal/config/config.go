package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost           string
	DBPort           int
	DBUser           string
	DBPassword       string
	DBName           string
	DBConnectRetries int
	DBMaxOpenConns   int
	DBMaxIdleConns   int

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// HTTP API consumed by FreeRADIUS's rest module
	APIPort int

	// Outbound client timeouts
	RouterApiTimeout    time.Duration
	DisconnectTimeout   time.Duration
	ReachabilityTimeout time.Duration
}

func Load() *Config {
	// Database password - warn if using default
	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	// Redis password - warn if using default
	redisPassword := getEnv("REDIS_PASSWORD", "")
	if redisPassword == "" {
		log.Println("WARNING: REDIS_PASSWORD not set - Redis is not secured!")
	}

	return &Config{
		// Database
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnvInt("DB_PORT", 5432),
		DBUser:           getEnv("DB_USER", "radgate"),
		DBPassword:       dbPassword,
		DBName:           getEnv("DB_NAME", "radgate"),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 30),
		DBMaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 100),
		DBMaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 10),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: redisPassword,

		// API
		APIPort: getEnvInt("API_PORT", 8080),

		// Timeouts
		RouterApiTimeout:    time.Duration(getEnvInt("ROUTEROS_TIMEOUT_SECS", 8)) * time.Second,
		DisconnectTimeout:   time.Duration(getEnvInt("DISCONNECT_TIMEOUT_SECS", 5)) * time.Second,
		ReachabilityTimeout: time.Duration(getEnvInt("REACHABILITY_TIMEOUT_SECS", 3)) * time.Second,
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
