package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q", c.Server.Addr)
	}
	if c.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %q", c.Storage.Driver)
	}
	if c.Fraud.Thresholds.Low != 0.35 || c.Fraud.Thresholds.High != 0.70 {
		t.Errorf("thresholds = %v/%v", c.Fraud.Thresholds.Low, c.Fraud.Thresholds.High)
	}

	w := c.Fraud.Weights
	sum := w.Age + w.Geo + w.Velocity + w.Trust + w.Offense
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("default weights must sum to 1, got %v", sum)
	}

	if c.Rewards.AuthenticPoints != 10 || c.Rewards.SuspiciousPoints != 5 || c.Rewards.CounterfeitPoints != 25 {
		t.Errorf("reward defaults = %d/%d/%d",
			c.Rewards.AuthenticPoints, c.Rewards.SuspiciousPoints, c.Rewards.CounterfeitPoints)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":9999"
storage:
  driver: memory
channels:
  - ref: retail-1
    trust: 0.9
    lat: -34.6
    lng: -58.4
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVER_ADDR", ":7777")
	t.Setenv("FRAUD_THRESHOLD_HIGH", "0.9")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// env pisa yaml
	if c.Server.Addr != ":7777" {
		t.Errorf("Server.Addr = %q, want :7777", c.Server.Addr)
	}
	if c.Fraud.Thresholds.High != 0.9 {
		t.Errorf("Thresholds.High = %v, want 0.9", c.Fraud.Thresholds.High)
	}
	if len(c.Channels) != 1 || c.Channels[0].Ref != "retail-1" {
		t.Errorf("channels = %+v", c.Channels)
	}
}

func TestValidate_Failures(t *testing.T) {
	base := func() *Config {
		c, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		return c
	}

	t.Run("weights must sum to one", func(t *testing.T) {
		c := base()
		c.Fraud.Weights.Age = 0.5
		if err := c.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("negative weight", func(t *testing.T) {
		c := base()
		c.Fraud.Weights.Age = -0.1
		c.Fraud.Weights.Geo = 0.45
		if err := c.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("low above high", func(t *testing.T) {
		c := base()
		c.Fraud.Thresholds.Low = 0.8
		if err := c.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		c := base()
		c.Storage.Driver = "postgres"
		if err := c.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("channel trust out of range", func(t *testing.T) {
		c := base()
		c.Channels = []Channel{{Ref: "x", Trust: 1.5}}
		if err := c.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("verifier:\n  timeout: nope\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestDur(t *testing.T) {
	if Dur("90s") != 90*time.Second {
		t.Fatal("Dur(90s)")
	}
}
