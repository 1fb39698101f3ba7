// Package config loads and saves the application's YAML configuration.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration, one section per concern.
type Config struct {
	App     AppSettings     `yaml:"app"`
	Capture CaptureSettings `yaml:"capture"`
	OCR     OCRSettings     `yaml:"ocr"`
	Naming  NamingSettings  `yaml:"naming"`
	Export  ExportSettings  `yaml:"export"`
	UI      UISettings      `yaml:"ui"`
}

// AppSettings holds application-level values.
type AppSettings struct {
	Version     string `yaml:"version"`
	StartupMode string `yaml:"startup_mode"`
}

// CaptureSettings controls where and how capture images are written.
type CaptureSettings struct {
	SaveDirectory string `yaml:"save_directory"`
	ImageFormat   string `yaml:"image_format"` // "png" or "jpg"
	JPEGQuality   int    `yaml:"jpeg_quality"`
}

// OCRSettings selects and tunes the recognition engine.
type OCRSettings struct {
	Engine              string   `yaml:"engine"`
	Languages           []string `yaml:"languages"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	QueueDelayMS        int      `yaml:"queue_delay_ms"`
	DisplayMode         string   `yaml:"display_mode"`
}

// QueueDelay returns the worker's idle poll delay.
func (o OCRSettings) QueueDelay() time.Duration {
	return time.Duration(o.QueueDelayMS) * time.Millisecond
}

// NamingSettings controls capture file naming.
type NamingSettings struct {
	Pattern                string `yaml:"pattern"`
	TimestampFormat        string `yaml:"timestamp_format"`
	UseSmartFilenames      bool   `yaml:"use_smart_filenames"`
	SmartFilenameMaxLength int    `yaml:"smart_filename_max_length"`
	FallbackPattern        string `yaml:"fallback_pattern"`
}

// ExportSettings holds export defaults.
type ExportSettings struct {
	DefaultFormat string `yaml:"default_format"`
}

// UISettings holds values only a UI frontend reads.
type UISettings struct {
	NotificationDurationMS int    `yaml:"notification_duration_ms"`
	Theme                  string `yaml:"theme"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		App: AppSettings{
			Version:     "2.0.0",
			StartupMode: "minimal",
		},
		Capture: CaptureSettings{
			SaveDirectory: "",
			ImageFormat:   "png",
			JPEGQuality:   95,
		},
		OCR: OCRSettings{
			Engine:              "tesseract",
			Languages:           []string{"eng"},
			ConfidenceThreshold: 0.7,
			QueueDelayMS:        500,
			DisplayMode:         "continuous",
		},
		Naming: NamingSettings{
			Pattern:                "capture_{timestamp}",
			TimestampFormat:        "20060102_150405",
			UseSmartFilenames:      true,
			SmartFilenameMaxLength: 50,
			FallbackPattern:        "capture_{timestamp}",
		},
		Export: ExportSettings{
			DefaultFormat: "json",
		},
		UI: UISettings{
			NotificationDurationMS: 3000,
			Theme:                  "dark",
		},
	}
}

// Path returns the config file path under baseDir.
func Path(baseDir string) string {
	return filepath.Join(baseDir, "config.yaml")
}

// Load reads baseDir/config.yaml. A missing or unparsable file yields the
// defaults. Unmarshaling into a pre-populated default struct means keys
// absent from the file keep their default, while explicit values (including
// false booleans) win.
func Load(baseDir string) (*Config, error) {
	data, err := os.ReadFile(Path(baseDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), nil
	}
	return cfg, nil
}

// Save writes the configuration to baseDir/config.yaml.
func Save(baseDir string, cfg *Config) error {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(baseDir), data, 0o600)
}

