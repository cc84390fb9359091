// Package config provides configuration management for the bot.
// It loads environment variables and makes them available throughout the application.
package config

import (
	"os"
	"strings"
	"sync"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken          string
	DevGuildID        string
	OperatorChannelID string
	DevUsers          []string

	// MongoDB
	MongoDBURL      string
	DBName          string
	HoyoverseDBName string
	AnalyticsDBName string

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Web Server
	Port     string
	APIToken string

	// Environment
	Environment string
	EnvFile     string
	Schedule    bool

	// Webhooks
	ErrorWebhook string

	// top.gg listing, updated in production only
	TopGGToken string
	TopGGBotID string

	// HoYoLAB account used to validate codes
	HoyolabCookies  string
	HoyolabEmail    string
	HoyolabPassword string
	HoyolabUIDs     map[models.Game]string

	// Files
	StreamConfigPath string
	AssetsDir        string
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	envFile := getEnv("ENV_FILE", ".env")
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load(envFile)

	cfg = &Config{
		// Discord
		BotToken:          getEnv("botToken", ""),
		DevGuildID:        getEnv("devGuildId", ""),
		OperatorChannelID: getEnv("operatorChannelId", ""),
		DevUsers:          splitList(getEnv("DEV_USERS", "")),

		// MongoDB
		MongoDBURL:      getEnv("mongodbUrl", "mongodb://localhost:27017"),
		DBName:          getEnv("dbName", "zenox"),
		HoyoverseDBName: getEnv("hoyoverseDbName", "hoyoverseDB"),
		AnalyticsDBName: getEnv("analyticsDbName", "analytics"),

		// MQTT
		MQTTHost:     getEnv("MQTT_Host", "localhost"),
		MQTTPort:     getEnv("MQTT_Port", "1883"),
		MQTTUser:     getEnv("MQTT_User", ""),
		MQTTPassword: getEnv("MQTT_Password", ""),

		// Web Server
		Port:     getEnv("PORT", "3000"),
		APIToken: getEnv("apiToken", ""),

		// Environment
		Environment: getEnv("enviroment", "dev"),
		EnvFile:     envFile,
		Schedule:    getEnv("SCHEDULE", "false") == "true",

		ErrorWebhook: getEnv("errorWebhook", ""),

		TopGGToken: getEnv("TOPGG_TOKEN", ""),
		TopGGBotID: getEnv("TOPGG_BOT_ID", "781529450734551071"),

		HoyolabCookies:  getEnv("HOYOLAB_COOKIES", ""),
		HoyolabEmail:    getEnv("HOYOLAB_EMAIL", ""),
		HoyolabPassword: getEnv("HOYOLAB_PASSWORD", ""),
		HoyolabUIDs: map[models.Game]string{
			models.GameGenshin:  getEnv("HOYOLAB_UID_GENSHIN", ""),
			models.GameStarRail: getEnv("HOYOLAB_UID_STARRAIL", ""),
			models.GameZZZ:      getEnv("HOYOLAB_UID_ZZZ", ""),
		},

		StreamConfigPath: getEnv("STREAM_CONFIG", "streams.toml"),
		AssetsDir:        getEnv("ASSETS_DIR", "./zenox-assets/assets"),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// IsDevUser reports whether the user may run /dev commands
func (c *Config) IsDevUser(userID string) bool {
	for _, id := range c.DevUsers {
		if id == userID {
			return true
		}
	}
	return false
}
