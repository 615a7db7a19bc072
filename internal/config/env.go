package config

import (
	"os"
	"strconv"
)

// ApplyEnv overrides file settings with QUESTLOG_* environment variables.
func ApplyEnv(c *Config) {
	if val := os.Getenv("QUESTLOG_ADDR"); val != "" {
		c.Server.Addr = val
	}
	if val := os.Getenv("QUESTLOG_DB_DRIVER"); val != "" {
		c.Storage.Driver = val
	}
	if val := os.Getenv("QUESTLOG_DB_DSN"); val != "" {
		c.Storage.DSN = val
	}
	if val := os.Getenv("QUESTLOG_DATA_DIR"); val != "" {
		c.Storage.DataDir = val
	}
	if val := os.Getenv("QUESTLOG_LOG_MODE"); val != "" {
		c.Log.Mode = val
	}
	if val := os.Getenv("QUESTLOG_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("QUESTLOG_TIMEZONE"); val != "" {
		c.Clock.Timezone = val
	}
	if val := getEnvInt("QUESTLOG_MATERIALIZER_WORKERS"); val > 0 {
		c.Materializer.Workers = val
	}
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}
