package config

import (
	"fmt"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Recognizer backends.
const (
	BackendONNX   = "onnx"
	BackendOpenCV = "opencv"
)

type Config struct {
	Port     string `env:"PORT" env-default:"8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	ModelsDir          string `env:"MODELS_DIR" env-default:"models"`
	ClassifierModel    string `env:"CLASSIFIER_MODEL" env-default:"fracture_classifier.onnx"`
	ClassifierMetadata string `env:"CLASSIFIER_METADATA" env-default:"fracture_classifier.json"`
	RecognizerModel    string `env:"RECOGNIZER_MODEL" env-default:"mobilenet_v2.onnx"`
	RecognizerMetadata string `env:"RECOGNIZER_METADATA" env-default:"mobilenet_v2.json"`
	RecognizerBackend  string `env:"RECOGNIZER_BACKEND" env-default:"onnx"`
	ONNXRuntimeLib     string `env:"ONNXRUNTIME_LIB"`

	UploadDir   string `env:"UPLOAD_DIR" env-default:"static"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB" env-default:"10"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RecognizerBackend != BackendONNX && c.RecognizerBackend != BackendOpenCV {
		return fmt.Errorf("RECOGNIZER_BACKEND must be %q or %q, got %q", BackendONNX, BackendOpenCV, c.RecognizerBackend)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// Rebase resolves relative directories against root.
func (c *Config) Rebase(root string) {
	if !filepath.IsAbs(c.ModelsDir) {
		c.ModelsDir = filepath.Join(root, c.ModelsDir)
	}
	if !filepath.IsAbs(c.UploadDir) {
		c.UploadDir = filepath.Join(root, c.UploadDir)
	}
}

func (c *Config) ModelPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ModelsDir, name)
}
