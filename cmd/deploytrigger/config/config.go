package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"deploytrigger/internal/logger"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env files into the process environment without
// overriding variables that are already set.
func LoadEnvFiles(envFiles ...string) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("Error loading %s: %v", envFile, err)
			}
		}
	}
}

func GetEnv(key string, defaultValue string) string {
	value := os.Getenv(key)

	if value == "" {
		return defaultValue
	}

	return value
}

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("Could not determine home directory: %v", err)
		return ""
	}
	return homeDir
}

func getDefaultDatabasePath(fallback string) string {
	homeDir := getHomeDir()
	if homeDir == "" {
		return fallback
	}
	return filepath.Join(homeDir, ".deploytrigger", "history.db")
}

type Configuration struct {
	Host string
	User string
	Port uint

	// SSHKeyB64 is a base64-encoded private key, used in memory.
	SSHKeyB64 string
	// SSHKeyPEM is PEM text with literal "\n" sequences, written to a
	// temporary key file for the duration of the connection.
	SSHKeyPEM        string
	SSHKeyPassphrase string
	KnownHostsPath   string

	ScriptPath     string
	LogPath        string
	ConnectTimeout time.Duration

	DatabasePath string
	LogLevel     string
}

// Load reads the configuration from .env and the environment. It is the only
// place environment variables are consulted.
func Load() (*Configuration, error) {
	LoadEnvFiles()

	port, err := strconv.ParseUint(GetEnv("VPS_PORT", "22"), 10, 16)

	if err != nil {
		return nil, fmt.Errorf("invalid VPS_PORT: %w", err)
	}

	connectTimeout, err := time.ParseDuration(GetEnv("SSH_CONNECT_TIMEOUT", "30s"))

	if err != nil {
		return nil, fmt.Errorf("invalid SSH_CONNECT_TIMEOUT: %w", err)
	}

	if connectTimeout <= 0 {
		return nil, fmt.Errorf("invalid SSH_CONNECT_TIMEOUT: must be positive")
	}

	return &Configuration{
		Host: GetEnv("VPS_HOST", ""),
		User: GetEnv("VPS_USER", ""),
		Port: uint(port),

		SSHKeyB64:        GetEnv("VPS_SSH_KEY_B64", ""),
		SSHKeyPEM:        GetEnv("VPS_SSH_KEY", ""),
		SSHKeyPassphrase: GetEnv("VPS_SSH_KEY_PASSPHRASE", ""),
		KnownHostsPath:   GetEnv("VPS_KNOWN_HOSTS", ""),

		ScriptPath:     GetEnv("DEPLOY_SCRIPT_PATH", "/root/reddit_post_automation/bash/deploy.sh"),
		LogPath:        GetEnv("DEPLOY_LOG_PATH", "/tmp/deploy.log"),
		ConnectTimeout: connectTimeout,

		DatabasePath: GetEnv("DATABASE_PATH", getDefaultDatabasePath("/var/lib/deploytrigger/history.db")),
		LogLevel:     GetEnv("LOG_LEVEL", "info"),
	}, nil
}
