package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/legsim/internal/dynamo"
)

func TestParseSweepParam(t *testing.T) {
	name, values, err := parseSweepParam("contact.kp=1000, 2000,4e3")
	if err != nil {
		t.Fatal(err)
	}
	if name != "contact.kp" || len(values) != 3 || values[2] != 4000 {
		t.Errorf("got %s %v", name, values)
	}
	for _, bad := range []string{"contact.kp", "=1,2", "kp=1,x"} {
		if _, _, err := parseSweepParam(bad); err == nil {
			t.Errorf("parseSweepParam(%q) should fail", bad)
		}
	}
}

func TestBuildConfigLayers(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	addConfigFlags(cmd)
	if err := cmd.Flags().Set("preset", "drop"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("contact-kp", "8000"); err != nil {
		t.Fatal(err)
	}
	defer func() { preset, contactKp = "", 0 }()

	cfg, err := buildConfig(cmd, "box")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Body.Mass != 2 || cfg.InitState.Position[2] != 0.5 {
		t.Errorf("preset not applied: %+v", cfg)
	}
	if cfg.Contact.Kp != 8000 {
		t.Errorf("contact kp = %g, want flag value 8000", cfg.Contact.Kp)
	}
	if cfg.Dt != 0.0005 {
		t.Errorf("dt = %g, want preset value", cfg.Dt)
	}

	if _, err := buildConfig(cmd, "hexapod"); err == nil {
		t.Error("unknown preset model should fail")
	}
	preset = ""
	if _, err := buildConfig(cmd, "hexapod"); !errors.Is(err, dynamo.ErrUnknownModel) {
		t.Errorf("unknown model: err = %v", err)
	}
}

func TestBuildConfigFileOverPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("duration: 1.5\ncontact:\n  kd: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := &cobra.Command{Use: "run"}
	addConfigFlags(cmd)
	for flag, v := range map[string]string{"preset": "drop", "config": path, "time": "0.7"} {
		if err := cmd.Flags().Set(flag, v); err != nil {
			t.Fatal(err)
		}
	}
	defer func() { preset, configFile, duration = "", "", 0 }()

	cfg, err := buildConfig(cmd, "box")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Body.Mass != 2 || cfg.InitState.Position[2] != 0.5 {
		t.Errorf("preset dropped by the config file: %+v", cfg)
	}
	if cfg.Contact.Kd != 50 {
		t.Errorf("contact kd = %g, want file value 50", cfg.Contact.Kd)
	}
	if cfg.Duration != 0.7 {
		t.Errorf("duration = %g, want flag value 0.7", cfg.Duration)
	}
}
