package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Game configuration
	Game GameConfig `json:"game"`

	// Database configuration
	Database DatabaseConfig `json:"database"`
}

// ServerConfig holds HTTP server and logging configuration
type ServerConfig struct {
	// Server port
	Port string `json:"port"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level"`

	// Log file used by the terminal client; empty discards logs there
	LogFile string `json:"log_file"`

	// URL players open to join, encoded in the QR code
	PublicURL string `json:"public_url"`
}

// GameConfig holds scenario director configuration
type GameConfig struct {
	// Director tick in milliseconds
	TickMillis int `json:"tick_ms"`

	// Seconds between decision rolls
	DecisionIntervalSeconds int `json:"decision_interval_seconds"`

	// Probability of a decision per roll (0-100)
	RandomDecisionProbability int `json:"random_decision_probability"`

	// Waiting decisions above which no new one is issued; 0 means unlimited
	MaxWaitingDecisions int `json:"max_waiting_decisions"`

	// Resolve decisions automatically with the advisor's pick
	Autopilot bool `json:"autopilot"`

	// Directory holding decisions.yaml; empty uses the built-in catalog
	DataDir string `json:"data_dir"`
}

// TickInterval returns the director tick as a duration
func (g GameConfig) TickInterval() time.Duration {
	if g.TickMillis <= 0 {
		return time.Second
	}
	return time.Duration(g.TickMillis) * time.Millisecond
}

// DecisionEvery returns the decision roll interval as a duration
func (g GameConfig) DecisionEvery() time.Duration {
	return time.Duration(g.DecisionIntervalSeconds) * time.Second
}

// DatabaseConfig holds database specific configuration
type DatabaseConfig struct {
	// Database driver (sqlite3)
	Driver string `json:"driver"`

	// Database connection string
	DSN string `json:"dsn"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:      "8080",
			LogLevel:  "info",
			LogFile:   "./data/eoc.log",
			PublicURL: "http://localhost:8080",
		},
		Game: GameConfig{
			TickMillis:                1000,
			DecisionIntervalSeconds:   20,
			RandomDecisionProbability: 60,
			MaxWaitingDecisions:       3,
			Autopilot:                 false,
			DataDir:                   "",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "./data/reports.db",
		},
	}
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config, err
	}

	// Write defaults on first run
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, SaveConfig(config, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config Config, path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create or truncate file
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// Write config to file
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return err
	}

	return nil
}
