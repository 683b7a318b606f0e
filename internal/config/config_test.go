package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[scene]
split_threshold = 8
audit = true

[loop]
tick_rate = "50ms"
max_ticks = 100

[camera]
position = [1.0, 2.0, 3.0]

[database]
enabled = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scene.SplitThreshold != 8 || !cfg.Scene.Audit {
		t.Errorf("scene = %+v", cfg.Scene)
	}
	if cfg.Scene.MarginFactor != 1.5 {
		t.Errorf("margin_factor default lost: %v", cfg.Scene.MarginFactor)
	}
	if cfg.Loop.TickRate != 50*time.Millisecond || cfg.Loop.MaxTicks != 100 {
		t.Errorf("loop = %+v", cfg.Loop)
	}
	if cfg.Camera.Position != [3]float32{1, 2, 3} || cfg.Camera.FovY != 60 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if !cfg.Database.Enabled || cfg.Database.BatchSize != 64 {
		t.Errorf("database = %+v", cfg.Database)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"margin", "[scene]\nmargin_factor = 0.5\n", "margin_factor"},
		{"split", "[scene]\nsplit_threshold = 0\n", "split_threshold"},
		{"tick", "[loop]\ntick_rate = \"0s\"\n", "tick_rate"},
		{"profile", "[profile]\nmode = \"block\"\n", "profile.mode"},
		{"syntax", "[scene\n", "parse config"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, c.body))
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Fatalf("err = %v, want mention of %q", err, c.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error")
	}
}
