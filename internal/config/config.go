// Package config loads questlog_config.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Magget135/Minimal-Quest-Log/internal/model"
)

const DefaultPath = "questlog_config.yml"

type Config struct {
	Server       ServerConfig       `yaml:"server" json:"server"`
	Storage      StorageConfig      `yaml:"storage" json:"storage"`
	Log          LogConfig          `yaml:"log" json:"log"`
	Clock        ClockConfig        `yaml:"clock" json:"clock"`
	Materializer MaterializerConfig `yaml:"materializer" json:"materializer"`
	XP           XPConfig           `yaml:"xp" json:"xp"`
	Rewards      RewardsConfig      `yaml:"rewards" json:"rewards"`
}

type ServerConfig struct {
	Addr              string   `yaml:"addr" json:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	CORSOrigins       []string `yaml:"cors_origins" json:"cors_origins"`
}

type StorageConfig struct {
	// Driver is sqlite, postgres or memory.
	Driver  string `yaml:"driver" json:"driver"`
	DSN     string `yaml:"dsn" json:"-"`
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

type LogConfig struct {
	Mode  string `yaml:"mode" json:"mode"`
	Level string `yaml:"level" json:"level"`
}

type ClockConfig struct {
	// Timezone is the IANA zone that decides what "today" is.
	Timezone string `yaml:"timezone" json:"timezone"`
}

type MaterializerConfig struct {
	Workers      int      `yaml:"workers" json:"workers"`
	Interval     Duration `yaml:"interval" json:"interval"`
	RunOnStartup *bool    `yaml:"run_on_startup" json:"run_on_startup"`
}

type XPConfig struct {
	RankXP map[string]int `yaml:"rank_xp" json:"rank_xp"`
}

type RewardsConfig struct {
	SeedDefaults *bool          `yaml:"seed_defaults" json:"seed_defaults"`
	Defaults     []RewardConfig `yaml:"defaults" json:"defaults"`
}

type RewardConfig struct {
	Name   string `yaml:"reward_name" json:"reward_name"`
	XPCost int    `yaml:"xp_cost" json:"xp_cost"`
}

// Duration reads "15m" style strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (s *ServerConfig) ApplyDefaults() {
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.ReadHeaderTimeout.Duration == 0 {
		s.ReadHeaderTimeout.Duration = 5 * time.Second
	}
	if s.ShutdownTimeout.Duration == 0 {
		s.ShutdownTimeout.Duration = 10 * time.Second
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
}

func (s *StorageConfig) ApplyDefaults() {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = "sqlite"
	}
	if s.DataDir == "" {
		s.DataDir = "data"
	}
	if s.DSN == "" && s.Driver == "sqlite" {
		s.DSN = s.DataDir + "/questlog.db"
	}
}

func (l *LogConfig) ApplyDefaults() {
	if l.Mode == "" {
		l.Mode = "dev"
	}
	if l.Level == "" {
		l.Level = "info"
	}
}

func (c *ClockConfig) ApplyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

func (m *MaterializerConfig) ApplyDefaults() {
	if m.Workers <= 0 {
		m.Workers = 4
	}
	if m.Interval.Duration <= 0 {
		m.Interval.Duration = 15 * time.Minute
	}
	if m.RunOnStartup == nil {
		v := true
		m.RunOnStartup = &v
	}
}

func (r *RewardsConfig) ApplyDefaults() {
	if r.SeedDefaults == nil {
		v := true
		r.SeedDefaults = &v
	}
}

func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Log.ApplyDefaults()
	c.Clock.ApplyDefaults()
	c.Materializer.ApplyDefaults()
	c.Rewards.ApplyDefaults()
}

// Validate reports settings that would fail later at startup.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("storage.driver %q: want sqlite, postgres or memory", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return errors.New("storage.dsn is required for postgres")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.XPTable(); err != nil {
		return err
	}
	for i, r := range c.Rewards.Defaults {
		if strings.TrimSpace(r.Name) == "" || r.XPCost < 0 {
			return fmt.Errorf("rewards.defaults[%d]: name is required and xp_cost must not be negative", i)
		}
	}
	return nil
}

// Location resolves clock.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Clock.Timezone)
	if err != nil {
		return nil, fmt.Errorf("clock.timezone %q: %w", c.Clock.Timezone, err)
	}
	return loc, nil
}

// XPTable is the default table with xp.rank_xp applied on top.
func (c *Config) XPTable() (model.XPTable, error) {
	t := model.DefaultXPTable()
	for name, xp := range c.XP.RankXP {
		r, err := model.ParseRank(name)
		if err != nil {
			return nil, fmt.Errorf("xp.rank_xp: %w", err)
		}
		if xp < 0 {
			return nil, fmt.Errorf("xp.rank_xp.%s must not be negative", r)
		}
		t[r] = xp
	}
	return t, nil
}

// Default is the configuration used when no file exists.
func Default() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}

// Load reads path, applies environment overrides and defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	var r Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	ApplyEnv(&r)
	r.ApplyDefaults()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
