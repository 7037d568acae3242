// Package config loads server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// GATEHOUSE_* environment variables. Command-line flags are applied last
// by the server binary. The file is the first of: the explicit path, the
// GATEHOUSE_CONFIG variable, ./gatehouse.yaml if it exists.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "gatehouse.yaml"

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // empty disables gRPC

	Env      string `yaml:"env"`      // "dev" | "prod"
	Timezone string `yaml:"timezone"` // IANA name; windows are evaluated in it

	Store     StoreConfig     `yaml:"store"`
	Match     MatchConfig     `yaml:"match"`
	Policy    PolicyConfig    `yaml:"policy"`
	Passes    PassesConfig    `yaml:"passes"`
	Terminals TerminalsConfig `yaml:"terminals"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Log       LogConfig       `yaml:"log"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres" | "memory"
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

type MatchConfig struct {
	Threshold       float64 `yaml:"threshold"`
	SignatureLength int     `yaml:"signature_length"`
}

type PolicyConfig struct {
	EntryLeadMinutes  int `yaml:"entry_lead_minutes"`
	ExitGraceMinutes  int `yaml:"exit_grace_minutes"`
	VisitGraceMinutes int `yaml:"visit_grace_minutes"`
}

type PassesConfig struct {
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"` // 0 disables the sweeper
}

type TerminalsConfig struct {
	Known   []string `yaml:"known"`
	Enforce bool     `yaml:"enforce"`
}

type HeartbeatConfig struct {
	RetentionDays      int `yaml:"retention_days"` // 0 = keep forever
	PruneIntervalHours int `yaml:"prune_interval_hours"`
}

type AlertsConfig struct {
	ExitLookaheadMinutes int `yaml:"exit_lookahead_minutes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" | "json"
}

func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
		Env:      "dev",
		Timezone: "Local",
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "./data/gatehouse.db",
		},
		Match: MatchConfig{
			Threshold:       0.6,
			SignatureLength: 128,
		},
		Policy: PolicyConfig{
			EntryLeadMinutes:  10,
			ExitGraceMinutes:  30,
			VisitGraceMinutes: 30,
		},
		Passes:    PassesConfig{SweepIntervalMinutes: 5},
		Heartbeat: HeartbeatConfig{RetentionDays: 30, PruneIntervalHours: 6},
		Alerts:    AlertsConfig{ExitLookaheadMinutes: 10},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the config file (if any)
// and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	path, explicit := resolvePath(path)
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decodeYAML(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolvePath returns the file to read and whether it was asked for
// explicitly, in which case it must exist.
func resolvePath(path string) (string, bool) {
	if p := strings.TrimSpace(path); p != "" {
		return p, true
	}
	if p := strings.TrimSpace(os.Getenv("GATEHOUSE_CONFIG")); p != "" {
		return p, true
	}
	return defaultConfigFile, false
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("GATEHOUSE_HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getenvDefault("GATEHOUSE_GRPC_ADDR", cfg.GRPCAddr)
	cfg.Env = getenvDefault("GATEHOUSE_ENV", cfg.Env)
	cfg.Timezone = getenvDefault("GATEHOUSE_TZ", cfg.Timezone)

	cfg.Store.Driver = getenvDefault("GATEHOUSE_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.Path = getenvDefault("GATEHOUSE_DB_PATH", cfg.Store.Path)
	cfg.Store.DSN = getenvDefault("GATEHOUSE_DB_DSN", cfg.Store.DSN)

	cfg.Match.Threshold = getenvFloat("GATEHOUSE_MATCH_THRESHOLD", cfg.Match.Threshold)
	cfg.Match.SignatureLength = getenvInt("GATEHOUSE_SIGNATURE_LENGTH", cfg.Match.SignatureLength)

	cfg.Policy.EntryLeadMinutes = getenvInt("GATEHOUSE_ENTRY_LEAD_MINUTES", cfg.Policy.EntryLeadMinutes)
	cfg.Policy.ExitGraceMinutes = getenvInt("GATEHOUSE_EXIT_GRACE_MINUTES", cfg.Policy.ExitGraceMinutes)
	cfg.Policy.VisitGraceMinutes = getenvInt("GATEHOUSE_VISIT_GRACE_MINUTES", cfg.Policy.VisitGraceMinutes)

	cfg.Passes.SweepIntervalMinutes = getenvInt("GATEHOUSE_PASS_SWEEP_MINUTES", cfg.Passes.SweepIntervalMinutes)

	if known := splitCSV(os.Getenv("GATEHOUSE_KNOWN_TERMINALS")); known != nil {
		cfg.Terminals.Known = known
	}
	cfg.Terminals.Enforce = getenvBool("GATEHOUSE_ENFORCE_TERMINALS", cfg.Terminals.Enforce)

	cfg.Heartbeat.RetentionDays = getenvInt("GATEHOUSE_HEARTBEAT_RETENTION_DAYS", cfg.Heartbeat.RetentionDays)
	cfg.Heartbeat.PruneIntervalHours = getenvInt("GATEHOUSE_PRUNE_INTERVAL_HOURS", cfg.Heartbeat.PruneIntervalHours)

	cfg.Alerts.ExitLookaheadMinutes = getenvInt("GATEHOUSE_EXIT_LOOKAHEAD_MINUTES", cfg.Alerts.ExitLookaheadMinutes)

	cfg.Log.Level = getenvDefault("GATEHOUSE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("GATEHOUSE_LOG_FORMAT", cfg.Log.Format)
}

// Validate normalises enumerations and rejects values the server cannot
// start with.
func (c *Config) Validate() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "sqlite", "memory":
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return errors.New("config: store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}

	if c.Match.Threshold <= 0 {
		return fmt.Errorf("config: match.threshold must be positive, got %v", c.Match.Threshold)
	}
	if c.Match.SignatureLength <= 0 {
		return fmt.Errorf("config: match.signature_length must be positive, got %d", c.Match.SignatureLength)
	}
	if c.Policy.EntryLeadMinutes < 0 || c.Policy.ExitGraceMinutes < 0 || c.Policy.VisitGraceMinutes < 0 {
		return errors.New("config: policy minutes must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", tz, err)
	}
	return loc, nil
}

func (c Config) EntryLead() time.Duration {
	return time.Duration(c.Policy.EntryLeadMinutes) * time.Minute
}

func (c Config) ExitGrace() time.Duration {
	return time.Duration(c.Policy.ExitGraceMinutes) * time.Minute
}

func (c Config) VisitGrace() time.Duration {
	return time.Duration(c.Policy.VisitGraceMinutes) * time.Minute
}

func (c Config) PassSweepInterval() time.Duration {
	return time.Duration(c.Passes.SweepIntervalMinutes) * time.Minute
}

func (c Config) HeartbeatRetention() time.Duration {
	return time.Duration(c.Heartbeat.RetentionDays) * 24 * time.Hour
}

// HeartbeatPruneInterval is zero, disabling the pruner, when retention
// is zero.
func (c Config) HeartbeatPruneInterval() time.Duration {
	if c.Heartbeat.RetentionDays <= 0 {
		return 0
	}
	hours := c.Heartbeat.PruneIntervalHours
	if hours <= 0 {
		hours = 6
	}
	return time.Duration(hours) * time.Hour
}

func (c Config) ExitLookahead() time.Duration {
	return time.Duration(c.Alerts.ExitLookaheadMinutes) * time.Minute
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
