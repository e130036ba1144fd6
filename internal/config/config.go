package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"cellsanity/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data   DataConfig
	Output OutputConfig
	Ledger LedgerConfig
	Server ServerConfig
}

// DataConfig locates the three required input tables. Files may be .csv or
// .xlsx; the reader decides by extension.
type DataConfig struct {
	InputDir         string
	CyclesFile       string
	MeasurementsFile string
	ImpedanceFile    string
}

// CyclesPath returns the resolved path of the cycles table.
func (d DataConfig) CyclesPath() string { return filepath.Join(d.InputDir, d.CyclesFile) }

// MeasurementsPath returns the resolved path of the measurements table.
func (d DataConfig) MeasurementsPath() string { return filepath.Join(d.InputDir, d.MeasurementsFile) }

// ImpedancePath returns the resolved path of the impedance table.
func (d DataConfig) ImpedancePath() string { return filepath.Join(d.InputDir, d.ImpedanceFile) }

// OutputConfig holds artifact output settings
type OutputConfig struct {
	Dir     string // root of evidence/ and figures/
	RepCell string // cell whose representative discharge profile is plotted
	Workers int    // per-partition reduction parallelism
}

// LedgerConfig holds optional run-ledger persistence settings. An empty URL
// disables persistence entirely.
type LedgerConfig struct {
	DatabaseURL string
}

// ServerConfig holds artifact server settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data: DataConfig{
			InputDir:         getEnvOrDefault("INPUT_DIR", "./data"),
			CyclesFile:       getEnvOrDefault("CYCLES_FILE", "cycles_raw.csv"),
			MeasurementsFile: getEnvOrDefault("MEASUREMENTS_FILE", "measurements_raw.csv"),
			ImpedanceFile:    getEnvOrDefault("IMPEDANCE_FILE", "impedance_raw.csv"),
		},
		Output: OutputConfig{
			Dir:     getEnvOrDefault("OUT_DIR", "./sanity_outputs"),
			RepCell: getEnvOrDefault("REP_CELL", "B0029"),
			Workers: getEnvIntOrDefault("WORKERS", runtime.NumCPU()),
		},
		Ledger: LedgerConfig{
			DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Data.InputDir == "" {
		return errors.ConfigInvalid("input directory is required")
	}
	if config.Output.Dir == "" {
		return errors.ConfigInvalid("output directory is required")
	}
	if config.Output.RepCell == "" {
		return errors.ConfigInvalid("representative cell id is required")
	}
	if config.Output.Workers < 1 {
		return errors.ConfigInvalid("worker count must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
