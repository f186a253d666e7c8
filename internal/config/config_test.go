package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/kinematics"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Address != "192.168.114.31" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.Replay.Interval != 500*time.Millisecond {
		t.Errorf("Replay.Interval = %s", cfg.Replay.Interval)
	}
	if cfg.SessionsDir != "recorded_sessions" {
		t.Errorf("SessionsDir = %q", cfg.SessionsDir)
	}

	cal, err := cfg.ResolvedCalibration()
	if err != nil {
		t.Fatalf("ResolvedCalibration() error = %v", err)
	}
	if cal != kinematics.DefaultCalibration() {
		t.Errorf("calibration = %+v, want defaults", cal)
	}

	d := cfg.DetectorOptions()
	if d.MaxHands != 2 || d.MinConfidence != 0.5 || d.MinTrackingConf != 0.5 {
		t.Errorf("DetectorOptions() = %+v", d)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
address = "10.0.0.9"
sessions_dir = "/tmp/sessions"

[link]
kind = "ws"
timeout = "150ms"

[replay]
interval = "250ms"

[capture]
device = 1
async = true

[server]
addr = "127.0.0.1:8620"

[calibration.thumb]
in_min = 10
in_max = 120
out_min = 0
out_max = 140
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Address != "10.0.0.9" || cfg.SessionsDir != "/tmp/sessions" {
		t.Errorf("top-level keys not applied: %+v", cfg)
	}
	if cfg.Link.Kind != actuator.KindWS || cfg.Link.Timeout != 150*time.Millisecond {
		t.Errorf("Link = %+v", cfg.Link)
	}
	if cfg.Replay.Interval != 250*time.Millisecond {
		t.Errorf("Replay.Interval = %s", cfg.Replay.Interval)
	}
	if cfg.Capture.Device != 1 || !cfg.Capture.Async || cfg.Capture.Width != 640 {
		t.Errorf("Capture = %+v", cfg.Capture)
	}
	if cfg.Server.Addr != "127.0.0.1:8620" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}

	cal, err := cfg.ResolvedCalibration()
	if err != nil {
		t.Fatalf("ResolvedCalibration() error = %v", err)
	}
	if cal[kinematics.Thumb] != (kinematics.Range{InMin: 10, InMax: 120, OutMin: 0, OutMax: 140}) {
		t.Errorf("thumb = %+v", cal[kinematics.Thumb])
	}
	if cal[kinematics.Index] != kinematics.DefaultCalibration()[kinematics.Index] {
		t.Errorf("index should keep its default, got %+v", cal[kinematics.Index])
	}
}

func TestLoad_PartialCalibration(t *testing.T) {
	path := writeConfig(t, `
[calibration.index]
in_max = 150

[calibration.thumb]
out_min = 20
out_max = 120
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cal, err := cfg.ResolvedCalibration()
	if err != nil {
		t.Fatalf("ResolvedCalibration() error = %v", err)
	}

	want := map[kinematics.Finger]kinematics.Range{
		kinematics.Index: {InMin: 5, InMax: 150, OutMin: 0, OutMax: 150},
		kinematics.Thumb: {InMin: 5, InMax: 130, OutMin: 20, OutMax: 120},
		kinematics.Ring:  kinematics.DefaultCalibration()[kinematics.Ring],
	}
	for f, r := range want {
		if cal[f] != r {
			t.Errorf("%s = %+v, want %+v", f, cal[f], r)
		}
	}

	var angles kinematics.Angles
	angles[kinematics.Index] = 150
	if got := cal.Command(angles).Of(kinematics.Index); got != 150 {
		t.Errorf("index command at full flexion = %g, want 150", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		is      error
	}{
		{
			name:    "equal calibration bounds",
			content: "[calibration.ring]\nin_min = 40\nin_max = 40\nout_min = 0\nout_max = 150\n",
			is:      kinematics.ErrInvalidRange,
		},
		{
			name:    "equal output bounds",
			content: "[calibration.pinky]\nout_min = 90\nout_max = 90\n",
			is:      kinematics.ErrInvalidRange,
		},
		{
			name:    "partial entry collapsing the output range",
			content: "[calibration.middle]\nout_max = 0\n",
			is:      kinematics.ErrInvalidRange,
		},
		{
			name:    "unknown finger",
			content: "[calibration.toe]\nin_min = 0\nin_max = 1\n",
			want:    "unknown finger",
		},
		{
			name:    "unknown key",
			content: "adress = \"typo\"\n",
			want:    "unknown keys adress",
		},
		{
			name:    "unknown link kind",
			content: "[link]\nkind = \"pigeon\"\n",
			want:    "link.kind",
		},
		{
			name:    "exec link without program",
			content: "[link]\nkind = \"exec\"\n",
			want:    "link.program",
		},
		{
			name:    "bad operator",
			content: "[operator]\nkind = \"voice\"\n",
			want:    "operator.kind",
		},
		{
			name:    "confidence out of range",
			content: "[detector]\nmin_detection_confidence = 1.5\n",
			want:    "min_detection_confidence",
		},
		{
			name:    "invalid toml",
			content: "address = \n",
			want:    "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("Load() error = %v, want %v", err, tt.is)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Address != actuator.DefaultAddress {
		t.Errorf("Address = %q, want default", cfg.Address)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Address = "hand.local"
	cfg.Replay.Interval = time.Second

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Address != "hand.local" || got.Replay.Interval != time.Second {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in, want string
	}{
		{"~/.mudra", filepath.Join(home, ".mudra")},
		{"~", home},
		{"/var/lib/mudra", "/var/lib/mudra"},
		{"relative/dir", "relative/dir"},
	}
	for _, tt := range tests {
		if got := expandHome(tt.in); got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	cfg := Default()
	if got := cfg.CatalogPath(); got != filepath.Join(home, ".mudra", "mudra.db") {
		t.Errorf("CatalogPath() = %q", got)
	}
}
