// Package config provides the inspiral configuration loader.
// Config is loaded by merging defaults → ~/.inspiral/config.yaml → inspiral.yaml → INSPIRAL_* env vars.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/render"
	"github.com/f9-o/inspiral/pkg/errs"
	"github.com/f9-o/inspiral/pkg/netutil"
)

// ProjectFile is the name of the project config discovered from the CWD upwards.
const ProjectFile = "inspiral.yaml"

// Defaults contains factory-default values applied before any config file is loaded.
var Defaults = map[string]any{
	"orbit.body1.x":       -3.0,
	"orbit.body1.y":       0.0,
	"orbit.body1.z":       0.0,
	"orbit.body2.x":       1.0,
	"orbit.body2.y":       0.0,
	"orbit.body2.z":       0.0,
	"orbit.phase":         0.1,
	"orbit.radius":        3.0,
	"orbit.radius_step":   0.01,
	"orbit.phase_step":    0.05,
	"orbit.exponent":      1.5,
	"orbit.half_turn":     math.Pi,
	"bodies.radius":       0.5,
	"bodies.color1":       "#FFFFFF",
	"bodies.color2":       "#FFFFFF",
	"render.rate_hz":      10.0,
	"render.frames":       render.FormatTable,
	"render.trail":        24,
	"render.width":        0,
	"render.height":       0,
	"log.level":           "info",
	"log.format":          "text",
	"log.file":            "",
	"metrics.enabled":     false,
	"metrics.addr":        "127.0.0.1:9091",
	"redis.enabled":       false,
	"redis.addr":          "localhost:6379",
	"redis.channel":       "inspiral.frame",
	"state.path":          "",
	"state.record_frames": true,
}

// ─────────────────────────────────────────────────────────────────────────────
// Config types
// ─────────────────────────────────────────────────────────────────────────────

// Config is the fully-decoded configuration.
type Config struct {
	Orbit   v1.OrbitParams `mapstructure:"orbit"   toml:"orbit"`
	Bodies  BodiesConfig   `mapstructure:"bodies"  toml:"bodies"`
	Render  RenderConfig   `mapstructure:"render"  toml:"render"`
	Log     LogConfig      `mapstructure:"log"     toml:"log"`
	Metrics MetricsConfig  `mapstructure:"metrics" toml:"metrics"`
	Redis   RedisConfig    `mapstructure:"redis"   toml:"redis"`
	State   StateConfig    `mapstructure:"state"   toml:"state"`
}

// BodiesConfig controls how the two spheres are drawn.
type BodiesConfig struct {
	Radius float64 `mapstructure:"radius" toml:"radius"`
	Color1 string  `mapstructure:"color1" toml:"color1"`
	Color2 string  `mapstructure:"color2" toml:"color2"`
}

// RenderConfig controls pacing and terminal output.
type RenderConfig struct {
	RateHz float64 `mapstructure:"rate_hz" toml:"rate_hz"` // ticks per second; 0 = unpaced
	Frames string  `mapstructure:"frames"  toml:"frames"`  // table | json | none (headless runs)
	Trail  int     `mapstructure:"trail"   toml:"trail"`   // TUI trail length in ticks
	Width  int     `mapstructure:"width"   toml:"width"`   // TUI canvas columns; 0 = fit terminal
	Height int     `mapstructure:"height"  toml:"height"`  // TUI canvas rows; 0 = fit terminal
}

// LogConfig controls logging behaviour.
type LogConfig struct {
	Level  string `mapstructure:"level"  toml:"level"` // debug | info | warn | error
	File   string `mapstructure:"file"   toml:"file"`
	Format string `mapstructure:"format" toml:"format"` // json | text
}

// MetricsConfig controls the optional Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Addr    string `mapstructure:"addr"    toml:"addr"`
}

// RedisConfig controls the optional Redis frame publisher.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Addr    string `mapstructure:"addr"    toml:"addr"`
	Channel string `mapstructure:"channel" toml:"channel"`
}

// StateConfig controls the run history database.
type StateConfig struct {
	Path         string `mapstructure:"path"          toml:"path"` // defaults to ~/.inspiral/state.db
	RecordFrames bool   `mapstructure:"record_frames" toml:"record_frames"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Loader
// ─────────────────────────────────────────────────────────────────────────────

// Load discovers and loads the configuration, walking up directories to find
// inspiral.yaml, then merging it with the global config and environment variables.
// An explicit path may be YAML or TOML.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()

	// Apply defaults
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}

	// Environment variable binding: INSPIRAL_ORBIT_RADIUS → orbit.radius
	v.SetEnvPrefix("INSPIRAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load global config (~/.inspiral/config.yaml) if it exists
	globalCfg := filepath.Join(Home(), "config.yaml")
	if _, err := os.Stat(globalCfg); err == nil {
		v.SetConfigFile(globalCfg)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Wrap(err, errs.ErrConfig, "config.read_global").WithResource(globalCfg)
		}
	}

	// Load project config
	projectCfg := explicitPath
	if projectCfg == "" {
		if path, err := discoverProjectConfig(); err == nil {
			projectCfg = path
		}
	}
	if projectCfg != "" {
		v.SetConfigFile(projectCfg)
		if err := v.MergeInConfig(); err != nil {
			return nil, errs.Wrap(err, errs.ErrConfig, "config.read_project").WithResource(projectCfg)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(err, errs.ErrConfig, "config.unmarshal")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the factory configuration without reading any file.
func Default() *Config {
	return &Config{
		Orbit:   v1.DefaultOrbitParams(),
		Bodies:  BodiesConfig{Radius: 0.5, Color1: "#FFFFFF", Color2: "#FFFFFF"},
		Render:  RenderConfig{RateHz: 10, Frames: render.FormatTable, Trail: 24},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9091"},
		Redis:   RedisConfig{Addr: "localhost:6379", Channel: "inspiral.frame"},
		State:   StateConfig{RecordFrames: true},
	}
}

// StatePath resolves the state database location.
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	return filepath.Join(Home(), "state.db")
}

// LogPath resolves the log file location.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(Home(), "logs", "inspiral.log")
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

// discoverProjectConfig walks up from the CWD looking for inspiral.yaml.
func discoverProjectConfig() (string, error) {
	start, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := start
	for {
		candidate := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found (searched up from %s)", ProjectFile, start)
}

// Validate performs semantic validation on the loaded config.
func Validate(cfg *Config) error {
	invalid := func(key, format string, args ...any) error {
		return errs.Newf(errs.ErrValidation, "config.validate", format, args...).
			WithResource(key).
			WithAdvice("fix " + key + " in " + ProjectFile + " or the INSPIRAL_* environment")
	}

	o := cfg.Orbit
	for key, val := range map[string]float64{
		"orbit.phase":      o.Phase,
		"orbit.radius":     o.Radius,
		"orbit.phase_step": o.PhaseStep,
		"orbit.exponent":   o.Exponent,
		"orbit.half_turn":  o.HalfTurn,
	} {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return invalid(key, "%s must be a finite number, got %v", key, val)
		}
	}
	if !(o.RadiusStep > 0) || math.IsInf(o.RadiusStep, 0) {
		return invalid("orbit.radius_step", "orbit.radius_step must be > 0, got %v", o.RadiusStep)
	}
	if !(cfg.Bodies.Radius > 0) {
		return invalid("bodies.radius", "bodies.radius must be > 0, got %v", cfg.Bodies.Radius)
	}
	if cfg.Render.RateHz < 0 || math.IsNaN(cfg.Render.RateHz) {
		return invalid("render.rate_hz", "render.rate_hz must be ≥ 0, got %v", cfg.Render.RateHz)
	}
	switch cfg.Render.Frames {
	case render.FormatTable, render.FormatJSON, render.FormatNone:
	default:
		return invalid("render.frames", "render.frames must be table | json | none, got %q", cfg.Render.Frames)
	}
	if cfg.Render.Trail < 0 || cfg.Render.Width < 0 || cfg.Render.Height < 0 {
		return invalid("render", "render.trail, render.width and render.height must not be negative")
	}
	if cfg.Redis.Enabled && cfg.Redis.Channel == "" {
		return invalid("redis.channel", "redis.channel is required when redis.enabled is true")
	}
	if cfg.Redis.Enabled {
		if err := netutil.ValidateHostPort(cfg.Redis.Addr); err != nil {
			return invalid("redis.addr", "redis.addr: %v", err)
		}
	}
	if cfg.Metrics.Enabled {
		if err := netutil.ValidateHostPort(cfg.Metrics.Addr); err != nil {
			return invalid("metrics.addr", "metrics.addr: %v", err)
		}
	}
	return nil
}

// Home returns the inspiral home directory (~/.inspiral), overridable with INSPIRAL_HOME.
func Home() string {
	if h := os.Getenv("INSPIRAL_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".inspiral"
	}
	return filepath.Join(home, ".inspiral")
}

// DefaultConfigTemplate is the content written by `inspiral init`.
const DefaultConfigTemplate = `# inspiral.yaml: binary inspiral parameters
version: "1"

orbit:
  # Initial positions of the two bodies. Only body1 fixes the center.
  body1: { x: -3, y: 0, z: 0 }
  body2: { x: 1, y: 0, z: 0 }
  phase: 0.1         # initial phase angle, radians
  radius: 3.0        # initial orbital radius
  radius_step: 0.01  # radius lost per tick
  phase_step: 0.05   # base phase advance per tick
  exponent: 1.5      # phase advance grows as (radius0/radius)^exponent
  # half_turn: 3.14  # uncomment to reproduce the 3.14 approximation of pi

bodies:
  radius: 0.5
  color1: "#FFFFFF"
  color2: "#FFFFFF"

render:
  rate_hz: 10        # ticks per second; 0 runs as fast as possible
  frames: table      # headless output: table | json | none
  trail: 24
  width: 0           # canvas columns; 0 fits the terminal
  height: 0

log:
  level: info
  format: text

metrics:
  enabled: false
  addr: 127.0.0.1:9091

redis:
  enabled: false
  addr: localhost:6379
  channel: inspiral.frame

state:
  record_frames: true
`
