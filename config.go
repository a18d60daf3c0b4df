package clockin

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ActivityBackendSQLite  = "sqlite"
	ActivityBackendMongoDB = "mongodb"
)

type Config struct {
	DatabaseURL string
	BotName     string
	BotToken    string
	Port        string
	BaseURL     string
	Locale      string
	LogLevel    string
	AdminIDs    []string

	//
	ActivityBackend string
	MongoURI        string
	MongoDatabase   string

	//
	Policy ShiftPolicy
}

func LoadConfig(isProd bool) (Config, error) {
	if isProd {
		_ = godotenv.Load(".env")
	} else {
		_ = godotenv.Load(".env.dev")
	}

	config := Config{
		DatabaseURL:     getEnv("CLOCKIN_DB_PATH", "clockin.db"),
		BotName:         getEnv("CLOCKIN_BOT_NAME", "Clockin"),
		BotToken:        os.Getenv("CLOCKIN_BOT_TOKEN"),
		Port:            getEnv("CLOCKIN_PORT", "8080"),
		BaseURL:         strings.TrimRight(getEnv("CLOCKIN_BASE_URL", "http://localhost:8080"), "/"),
		Locale:          getEnv("CLOCKIN_LOCALE", "en"),
		LogLevel:        getEnv("CLOCKIN_LOG_LEVEL", "info"),
		AdminIDs:        splitList(os.Getenv("CLOCKIN_ADMIN_IDS")),
		ActivityBackend: getEnv("CLOCKIN_ACTIVITY_BACKEND", ActivityBackendSQLite),
		MongoURI:        getEnv("CLOCKIN_MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("CLOCKIN_MONGODB_DATABASE", "clockin"),
	}

	if config.BotToken == "" {
		return Config{}, fmt.Errorf("required environment variable: CLOCKIN_BOT_TOKEN")
	}

	switch config.ActivityBackend {
	case ActivityBackendSQLite, ActivityBackendMongoDB:
	default:
		return Config{}, fmt.Errorf("unsupported CLOCKIN_ACTIVITY_BACKEND: %q", config.ActivityBackend)
	}

	loc, err := time.LoadLocation(getEnv("CLOCKIN_TIMEZONE", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("CLOCKIN_TIMEZONE: %w", err)
	}
	config.Policy = DefaultShiftPolicy(loc)
	if path := os.Getenv("CLOCKIN_POLICY_FILE"); path != "" {
		if config.Policy, err = LoadShiftPolicy(path, config.Policy); err != nil {
			return Config{}, err
		}
	}

	return config, nil
}

func (c Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// MonitorURL is the page a user opens to start webcam monitoring.
func (c Config) MonitorURL(userID string) string {
	return MonitorURL(c.BaseURL, userID)
}

func MonitorURL(baseURL, userID string) string {
	return fmt.Sprintf("%s/monitor.html?user_id=%s", strings.TrimRight(baseURL, "/"), userID)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
