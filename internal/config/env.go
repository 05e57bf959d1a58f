package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var (
	envMu sync.RWMutex
	env   = newViper()
)

// newViper reads .env files as KEY=VALUE pairs; process environment
// variables always win over file values
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()
	return v
}

// LoadEnv loads variables from the first .env file found in the current
// directory or its parents. A missing file is not an error.
func LoadEnv() error {
	for _, envPath := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		return LoadEnvFile(envPath)
	}
	return nil
}

// LoadEnvFile loads variables from path, replacing any previously loaded file
func LoadEnvFile(path string) error {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	envMu.Lock()
	env = v
	envMu.Unlock()
	return nil
}

// resetEnv drops any loaded .env values
func resetEnv() {
	envMu.Lock()
	env = newViper()
	envMu.Unlock()
}

func lookup(key string) string {
	envMu.RLock()
	defer envMu.RUnlock()
	return strings.TrimSpace(env.GetString(key))
}

// GetEnv gets environment variable with default
func GetEnv(key, defaultValue string) string {
	if value := lookup(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets integer environment variable with default
func GetEnvInt(key string, defaultValue int) int {
	if value := lookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvFloat gets float environment variable with default
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := lookup(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvBool gets boolean environment variable with default
func GetEnvBool(key string, defaultValue bool) bool {
	if value := lookup(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}
