package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Enroll   EnrollConfig   `yaml:"enroll"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // postgres, sqlite or mongo
	URL        string `yaml:"url"`    // PostgreSQL connection URL
	SQLitePath string `yaml:"sqlite_path"`
	MongoURL   string `yaml:"mongo_url"`
	MongoDB    string `yaml:"mongo_db"`
}

type CameraConfig struct {
	Backend string `yaml:"backend"` // ffmpeg or native (gocv build)
	FFmpeg  string `yaml:"ffmpeg"`
	Format  string `yaml:"format"` // ffmpeg input driver
	Device  string `yaml:"device"`
	FPS     int    `yaml:"fps"`
}

type DetectorConfig struct {
	Backend      string  `yaml:"backend"` // python or native (gocv build)
	Python       string  `yaml:"python"`
	Script       string  `yaml:"script"`
	Cascade      string  `yaml:"cascade"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
}

type EnrollConfig struct {
	Stride int `yaml:"stride"`
	Max    int `yaml:"max"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Defaults returns the embedded configuration without environment overrides.
func Defaults() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded defaults.yaml: %w", err)
	}
	return &cfg, nil
}

// Load applies environment overrides on top of the embedded defaults.
func Load() (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	db := &cfg.Database
	db.Driver = envString("ROLLCALL_DB_DRIVER", db.Driver)
	db.URL = databaseURL(db.URL)
	db.SQLitePath = envString("ROLLCALL_SQLITE_PATH", db.SQLitePath)
	db.MongoURL = envString("ROLLCALL_MONGO_URL", db.MongoURL)
	db.MongoDB = envString("ROLLCALL_MONGO_DB", db.MongoDB)

	cam := &cfg.Camera
	cam.Backend = envString("ROLLCALL_CAMERA_BACKEND", cam.Backend)
	cam.FFmpeg = envString("ROLLCALL_FFMPEG", cam.FFmpeg)
	cam.Format = envString("ROLLCALL_CAMERA_FORMAT", cam.Format)
	cam.Device = envString("ROLLCALL_CAMERA_DEVICE", cam.Device)
	cam.FPS = envInt("ROLLCALL_CAMERA_FPS", cam.FPS)

	det := &cfg.Detector
	det.Backend = envString("ROLLCALL_DETECTOR_BACKEND", det.Backend)
	det.Python = envString("ROLLCALL_PYTHON", det.Python)
	det.Script = envString("ROLLCALL_DETECTOR_SCRIPT", det.Script)
	det.Cascade = envString("ROLLCALL_CASCADE", det.Cascade)
	det.ScaleFactor = envFloat("ROLLCALL_SCALE_FACTOR", det.ScaleFactor)
	det.MinNeighbors = envInt("ROLLCALL_MIN_NEIGHBORS", det.MinNeighbors)

	cfg.Enroll.Stride = envInt("ROLLCALL_ENROLL_STRIDE", cfg.Enroll.Stride)
	cfg.Enroll.Max = envInt("ROLLCALL_ENROLL_MAX", cfg.Enroll.Max)

	cfg.Log.Level = envString("ROLLCALL_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envString("ROLLCALL_LOG_FORMAT", cfg.Log.Format)

	return cfg, nil
}

// databaseURL prefers ROLLCALL_DB_URL, then a URL built from POSTGRES_*, then the default.
func databaseURL(defaultURL string) string {
	if url := os.Getenv("ROLLCALL_DB_URL"); url != "" {
		return url
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := os.Getenv("POSTGRES_DB")
		port := os.Getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}
	return defaultURL
}
