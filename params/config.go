package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Sim struct {
	Teams   int
	Ticks   int
	Strikes []int64
	// Seed drives the card deal and the random strategies; 0 picks one from the clock
	Seed int64
	// TickInterval pauses between ticks so the observer API can be watched live
	TickInterval time.Duration
}

type Journal struct {
	Dir  string // empty disables the journal
	Keep bool   // keep the directory after the run
}

type API struct {
	Addr           string // empty disables the observer API
	AllowedOrigins []string
	// Linger keeps the API up after settlement so the final result can be read
	Linger time.Duration
}

type Log struct {
	File  string
	Level string
}

type Config struct {
	Sim     Sim
	Journal Journal
	API     API
	Log     Log
}

func Default() Config {
	return Config{
		Sim: Sim{
			Teams:   3,
			Ticks:   50,
			Strikes: []int64{50, 60, 70, 80, 90},
		},
		API: API{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: Log{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("SIM_TEAMS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("SIM_TEAMS: %w", err)
		}
		cfg.Sim.Teams = n
	}
	if v := os.Getenv("SIM_TICKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("SIM_TICKS: %w", err)
		}
		cfg.Sim.Ticks = n
	}
	if v := os.Getenv("SIM_STRIKES"); v != "" {
		strikes, err := ParseStrikes(v)
		if err != nil {
			return cfg, fmt.Errorf("SIM_STRIKES: %w", err)
		}
		cfg.Sim.Strikes = strikes
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("SIM_SEED: %w", err)
		}
		cfg.Sim.Seed = n
	}
	if v := os.Getenv("SIM_TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("SIM_TICK_INTERVAL_MS: %w", err)
		}
		cfg.Sim.TickInterval = time.Duration(ms) * time.Millisecond
	}

	cfg.Journal.Dir = getEnv("JOURNAL_DIR", cfg.Journal.Dir)
	cfg.Journal.Keep = os.Getenv("JOURNAL_KEEP") == "true"

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if v := os.Getenv("API_ALLOWED_ORIGINS"); v != "" {
		cfg.API.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("API_LINGER_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("API_LINGER_MS: %w", err)
		}
		cfg.API.Linger = time.Duration(ms) * time.Millisecond
	}

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	return cfg, cfg.Validate()
}

// Validate rejects configurations the simulation cannot run
func (c Config) Validate() error {
	if c.Sim.Teams < 1 {
		return fmt.Errorf("teams must be at least 1, got %d", c.Sim.Teams)
	}
	// one card per team from a single deck
	if c.Sim.Teams > 52 {
		return fmt.Errorf("teams must be at most 52, got %d", c.Sim.Teams)
	}
	if c.Sim.Ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", c.Sim.Ticks)
	}
	if len(c.Sim.Strikes) == 0 {
		return fmt.Errorf("at least one strike is required")
	}
	if c.Sim.TickInterval < 0 {
		return fmt.Errorf("tick interval must not be negative, got %s", c.Sim.TickInterval)
	}
	if c.API.Linger < 0 {
		return fmt.Errorf("api linger must not be negative, got %s", c.API.Linger)
	}
	return nil
}

// ParseStrikes parses a comma-separated strike list such as "50,60,70"
func ParseStrikes(s string) ([]int64, error) {
	var out []int64
	for _, part := range splitList(s) {
		k, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad strike %q: %w", part, err)
		}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no strikes in %q", s)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
