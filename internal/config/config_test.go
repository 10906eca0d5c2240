package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "models", cfg.ModelsDir)
	require.Equal(t, "static", cfg.UploadDir)
	require.Equal(t, BackendONNX, cfg.RecognizerBackend)
	require.Equal(t, int64(10), cfg.MaxUploadMB)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("RECOGNIZER_BACKEND", "opencv")
	t.Setenv("MAX_UPLOAD_MB", "25")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, BackendOpenCV, cfg.RecognizerBackend)
	require.Equal(t, int64(25), cfg.MaxUploadMB)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RECOGNIZER_BACKEND", "tflite")

	_, err := Load()
	require.Error(t, err)
}

func TestRebaseAndModelPath(t *testing.T) {
	cfg := &Config{ModelsDir: "models", UploadDir: "/var/uploads"}
	cfg.Rebase("/srv/app")

	require.Equal(t, filepath.Join("/srv/app", "models"), cfg.ModelsDir)
	require.Equal(t, "/var/uploads", cfg.UploadDir)
	require.Equal(t, filepath.Join("/srv/app", "models", "a.onnx"), cfg.ModelPath("a.onnx"))
	require.Equal(t, "/opt/b.onnx", cfg.ModelPath("/opt/b.onnx"))
}
