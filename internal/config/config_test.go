package config

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Detector.ScaleFactor != 1.5 || cfg.Detector.MinNeighbors != 6 {
		t.Errorf("detector defaults = %+v", cfg.Detector)
	}
	if cfg.Enroll.Stride != 5 || cfg.Enroll.Max != 50 {
		t.Errorf("enroll defaults = %+v", cfg.Enroll)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected postgres driver by default, got %s", cfg.Database.Driver)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ROLLCALL_DB_DRIVER", "sqlite")
	t.Setenv("ROLLCALL_ENROLL_MAX", "20")
	t.Setenv("ROLLCALL_SCALE_FACTOR", "1.2")
	t.Setenv("ROLLCALL_LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %s", cfg.Database.Driver)
	}
	if cfg.Enroll.Max != 20 || cfg.Enroll.Stride != 5 {
		t.Errorf("Enroll = %+v", cfg.Enroll)
	}
	if cfg.Detector.ScaleFactor != 1.2 {
		t.Errorf("ScaleFactor = %v", cfg.Detector.ScaleFactor)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %s", cfg.Log.Format)
	}
}

func TestEnvIntRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"Unset", "", 7},
		{"Valid", "12", 12},
		{"Zero", "0", 7},
		{"Negative", "-3", 7},
		{"Garbage", "lots", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ROLLCALL_TEST_INT", tt.value)
			if got := envInt("ROLLCALL_TEST_INT", 7); got != tt.want {
				t.Errorf("envInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	t.Run("Explicit URL", func(t *testing.T) {
		t.Setenv("ROLLCALL_DB_URL", "postgres://a@b/c")
		t.Setenv("POSTGRES_HOST", "ignored")
		if got := databaseURL("default"); got != "postgres://a@b/c" {
			t.Errorf("databaseURL() = %s", got)
		}
	})
	t.Run("Built from POSTGRES_*", func(t *testing.T) {
		t.Setenv("ROLLCALL_DB_URL", "")
		t.Setenv("POSTGRES_HOST", "db")
		t.Setenv("POSTGRES_USER", "u")
		t.Setenv("POSTGRES_PASSWORD", "p")
		t.Setenv("POSTGRES_DB", "rollcall")
		t.Setenv("POSTGRES_PORT", "")
		if got := databaseURL("default"); got != "postgres://u:p@db:5432/rollcall" {
			t.Errorf("databaseURL() = %s", got)
		}
	})
	t.Run("Fallback", func(t *testing.T) {
		t.Setenv("ROLLCALL_DB_URL", "")
		t.Setenv("POSTGRES_HOST", "")
		if got := databaseURL("default"); got != "default" {
			t.Errorf("databaseURL() = %s", got)
		}
	})
}
