package bootstrap

import (
	"os"
	"strconv"
)

type Config struct {
	ServerAddr string

	MongoURI      string
	MongoDatabase string

	CookieSecure bool
	CookieDomain string

	UploadDir      string
	UploadMaxBytes int

	LogLevel string
	Version  string
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "classpad"),

		CookieSecure: getEnv("COOKIE_SECURE", "false") == "true",
		CookieDomain: getEnv("COOKIE_DOMAIN", ""),

		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		UploadMaxBytes: getEnvInt("UPLOAD_MAX_BYTES", 10*1024*1024),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Version:  getEnv("VERSION", "dev"),
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
