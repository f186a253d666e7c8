// Package config loads mudra's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/kinematics"
	"github.com/ayusman/mudra/internal/session"
)

// Operator kinds.
const (
	OperatorWindow   = "window"
	OperatorTerminal = "terminal"
	OperatorTray     = "tray"
)

type Config struct {
	// Address is the actuator controller address; for the feetech link it
	// is the serial port.
	Address     string `toml:"address"`
	SessionsDir string `toml:"sessions_dir"`
	DataDir     string `toml:"data_dir"`

	Link        actuator.Config             `toml:"link"`
	Async       AsyncConfig                 `toml:"async"`
	Replay      ReplayConfig                `toml:"replay"`
	Capture     CaptureConfig               `toml:"capture"`
	Detector    DetectorConfig              `toml:"detector"`
	Operator    OperatorConfig              `toml:"operator"`
	Server      ServerConfig                `toml:"server"`
	Catalog     CatalogConfig               `toml:"catalog"`
	Calibration map[string]kinematics.Range `toml:"calibration"`
}

type AsyncConfig struct {
	Enabled bool          `toml:"enabled"`
	Timeout time.Duration `toml:"timeout"`
	Retries int           `toml:"retries"`
	Backoff time.Duration `toml:"backoff"`
}

type ReplayConfig struct {
	Interval time.Duration `toml:"interval"`
}

type CaptureConfig struct {
	Device int  `toml:"device"`
	Width  int  `toml:"width"`
	Height int  `toml:"height"`
	FPS    int  `toml:"fps"`
	Async  bool `toml:"async"`
}

type DetectorConfig struct {
	MaxHands               int     `toml:"max_hands"`
	MinDetectionConfidence float64 `toml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `toml:"min_tracking_confidence"`
	Script                 string  `toml:"script,omitempty"`
	Python                 string  `toml:"python,omitempty"`
}

type OperatorConfig struct {
	Kind string `toml:"kind"`
}

type ServerConfig struct {
	// Addr enables the monitor server when set, e.g. "127.0.0.1:8620".
	Addr string `toml:"addr,omitempty"`
}

type CatalogConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the configuration of the reference hand.
func Default() Config {
	dcfg := detector.DefaultConfig()
	cal := kinematics.DefaultCalibration()

	calibration := make(map[string]kinematics.Range, kinematics.NumFingers)
	for _, f := range kinematics.Fingers {
		calibration[f.String()] = cal[f]
	}

	return Config{
		Address:     actuator.DefaultAddress,
		SessionsDir: session.DefaultDir,
		DataDir:     filepath.Join("~", ".mudra"),
		Link: actuator.Config{
			Kind:    actuator.KindHTTP,
			Timeout: actuator.DefaultTimeout,
			Feetech: actuator.DefaultFeetechConfig(),
		},
		Async: AsyncConfig{
			Enabled: true,
			Timeout: actuator.DefaultTimeout,
			Retries: 1,
			Backoff: 20 * time.Millisecond,
		},
		Replay: ReplayConfig{Interval: session.DefaultInterval},
		Capture: CaptureConfig{
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Detector: DetectorConfig{
			MaxHands:               dcfg.MaxHands,
			MinDetectionConfidence: dcfg.MinConfidence,
			MinTrackingConfidence:  dcfg.MinTrackingConf,
		},
		Operator:    OperatorConfig{Kind: OperatorWindow},
		Catalog:     CatalogConfig{Enabled: true},
		Calibration: calibration,
	}
}

// DefaultPath returns ~/.mudra/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".mudra", "config.toml")
}

// Load reads path over the defaults and validates the result. Keys the file
// sets replace the defaults; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("parsing config: unknown keys %s", strings.Join(keys, ", "))
	}
	mergeCalibration(cfg.Calibration, meta)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// mergeCalibration fills the keys a [calibration.<finger>] table leaves out
// from that finger's default range. The decoder starts every table from a
// zero Range, so a partial entry would otherwise carry zero bounds.
func mergeCalibration(entries map[string]kinematics.Range, meta toml.MetaData) {
	defaults := kinematics.DefaultCalibration()

	for name, decoded := range entries {
		f, err := kinematics.ParseFinger(name)
		if err != nil {
			// Reported by Validate.
			continue
		}

		merged := defaults[f]
		if meta.IsDefined("calibration", name, "in_min") {
			merged.InMin = decoded.InMin
		}
		if meta.IsDefined("calibration", name, "in_max") {
			merged.InMax = decoded.InMax
		}
		if meta.IsDefined("calibration", name, "out_min") {
			merged.OutMin = decoded.OutMin
		}
		if meta.IsDefined("calibration", name, "out_max") {
			merged.OutMax = decoded.OutMax
		}
		entries[name] = merged
	}
}

// LoadOrDefault behaves like Load but returns the defaults when path does
// not exist.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return Load(path)
}

// Save writes cfg to path as TOML, creating the directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks ranges and enumerations. Calibration problems wrap
// kinematics.ErrInvalidRange.
func (c Config) Validate() error {
	if _, err := c.ResolvedCalibration(); err != nil {
		return err
	}

	if !contains(actuator.Kinds(), c.Link.Kind) {
		return fmt.Errorf("link.kind %q: must be one of %s", c.Link.Kind, strings.Join(actuator.Kinds(), ", "))
	}
	if c.Link.Kind == actuator.KindExec && c.Link.Program == "" {
		return fmt.Errorf("link.program is required for the exec link")
	}

	switch c.Operator.Kind {
	case OperatorWindow, OperatorTerminal, OperatorTray:
	default:
		return fmt.Errorf("operator.kind %q: must be window, terminal or tray", c.Operator.Kind)
	}

	if c.Replay.Interval < 0 {
		return fmt.Errorf("replay.interval must not be negative")
	}
	if c.Address == "" {
		return fmt.Errorf("address must not be empty")
	}
	if c.SessionsDir == "" {
		return fmt.Errorf("sessions_dir must not be empty")
	}

	for name, v := range map[string]float64{
		"detector.min_detection_confidence": c.Detector.MinDetectionConfidence,
		"detector.min_tracking_confidence":  c.Detector.MinTrackingConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s %g: must be within [0, 1]", name, v)
		}
	}
	if c.Detector.MaxHands < 1 {
		return fmt.Errorf("detector.max_hands must be at least 1")
	}
	return nil
}

// ResolvedCalibration builds the calibration table. Fingers missing from
// the file keep their default range.
func (c Config) ResolvedCalibration() (kinematics.Calibration, error) {
	cal := kinematics.DefaultCalibration()

	names := make([]string, 0, len(c.Calibration))
	for name := range c.Calibration {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f, err := kinematics.ParseFinger(name)
		if err != nil {
			return cal, fmt.Errorf("calibration: %w", err)
		}
		cal[f] = c.Calibration[name]
	}

	if err := cal.Validate(); err != nil {
		return cal, err
	}
	return cal, nil
}

// DetectorOptions converts the detector section.
func (c Config) DetectorOptions() detector.Config {
	return detector.Config{
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinDetectionConfidence,
		MinTrackingConf: c.Detector.MinTrackingConfidence,
		ScriptPath:      expandHome(c.Detector.Script),
		Python:          expandHome(c.Detector.Python),
	}
}

// AsyncOptions converts the async section.
func (c Config) AsyncOptions() actuator.AsyncOptions {
	return actuator.AsyncOptions{
		Timeout: c.Async.Timeout,
		Retries: c.Async.Retries,
		Backoff: c.Async.Backoff,
	}
}

// ResolvedDataDir returns the data directory with ~ expanded.
func (c Config) ResolvedDataDir() string {
	return expandHome(c.DataDir)
}

// ResolvedSessionsDir returns the sessions directory with ~ expanded.
func (c Config) ResolvedSessionsDir() string {
	return expandHome(c.SessionsDir)
}

// CatalogPath returns the catalog database path.
func (c Config) CatalogPath() string {
	return filepath.Join(c.ResolvedDataDir(), "mudra.db")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return p
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
