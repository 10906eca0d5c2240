package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// InitEnvironment prepares the process-wide ONNX Runtime. libPath may be
// empty to use the platform default shared library. Calling it again after
// a successful initialisation is a no-op.
func InitEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// DestroyEnvironment releases the ONNX Runtime. Sessions must be closed first.
func DestroyEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		_ = ort.DestroyEnvironment()
	}
}
