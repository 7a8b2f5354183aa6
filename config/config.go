package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the main application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DeepFace DeepFaceConfig `mapstructure:"deepface"`
	Matching MatchingConfig `mapstructure:"matching"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig holds database settings (SQLite).
type DBConfig struct {
	File string `mapstructure:"file"`
}

// StorageConfig holds the filesystem layout for gallery images and
// per-identity embedding folders.
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	GalleryDir string `mapstructure:"gallery_dir"`
	ModelDir   string `mapstructure:"model_dir"`
}

// DeepFaceConfig holds settings for the DeepFace-compatible face service.
type DeepFaceConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	Model          string        `mapstructure:"model"`
	Detector       string        `mapstructure:"detector"`
	DistanceMetric string        `mapstructure:"distance_metric"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryCount     int           `mapstructure:"retry_count"`
}

// MatchingConfig holds settings for the gallery matching engine.
type MatchingConfig struct {
	// Policy selects how multiple gallery images of one identity are
	// reduced during a scan: "first_match" stops at the first verified
	// pair, "best_match" compares the whole gallery and keeps the maximum.
	Policy string `mapstructure:"policy"`
	// TopK limits the ranked result list returned to API callers.
	TopK int `mapstructure:"top_k"`
	// VariantCount is the default gallery size generated per registration.
	VariantCount int `mapstructure:"variant_count"`
	// FaceMargin is the pixel margin added around a detected bounding box
	// before cropping, clamped to the image bounds.
	FaceMargin int `mapstructure:"face_margin"`
}

// Load reads the configuration from an optional YAML file and from
// environment variables, applying defaults for anything unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				log.Warnf("Config file %s not found, using defaults", configPath)
			} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Warnf("Config file %s not found, using defaults", configPath)
			} else {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Environment variables overlay the file values.
	v.AutomaticEnv()
	v.SetEnvPrefix("FACE_ROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("db.file", "/data/face-roster.db")

	v.SetDefault("storage.data_dir", "/data")
	v.SetDefault("storage.gallery_dir", "/data/face_database")
	v.SetDefault("storage.model_dir", "/data/face_models")

	v.SetDefault("deepface.enabled", true)
	v.SetDefault("deepface.url", "http://localhost:5005")
	v.SetDefault("deepface.model", "VGG-Face")
	v.SetDefault("deepface.detector", "mtcnn")
	v.SetDefault("deepface.distance_metric", "cosine")
	v.SetDefault("deepface.timeout", 30*time.Second)
	v.SetDefault("deepface.retry_count", 2)

	v.SetDefault("matching.policy", "first_match")
	v.SetDefault("matching.top_k", 3)
	v.SetDefault("matching.variant_count", 30)
	v.SetDefault("matching.face_margin", 10)
}

func ensureDirectories(cfg *Config) error {
	for _, dir := range []string{cfg.Storage.DataDir, cfg.Storage.GalleryDir, cfg.Storage.ModelDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if cfg.DB.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.File), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return nil
}
