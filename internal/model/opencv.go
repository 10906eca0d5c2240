//go:build gocv
// +build gocv

package model

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// OpenCVRecognizer runs the auxiliary classifier through OpenCV DNN instead
// of ONNX Runtime. The model must be an NCHW export.
type OpenCVRecognizer struct {
	mu       sync.Mutex
	net      gocv.Net
	Metadata Metadata
	labels   []string
}

func NewOpenCVRecognizer(modelPath, metadataPath string) (*OpenCVRecognizer, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	if metadata.ImageSize <= 0 {
		return nil, errors.New("recognizer metadata: image_size is required")
	}

	labels, err := resolveLabels(metadata)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to read ONNX model %s", modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &OpenCVRecognizer{
		net:      net,
		Metadata: metadata,
		labels:   labels,
	}, nil
}

// TopK returns the k most likely labels for img, highest confidence first.
func (r *OpenCVRecognizer) TopK(img image.Image, k int) ([]Score, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	size := r.Metadata.ImageSize
	// (x - 127.5) / 127.5 maps pixels into [-1, 1].
	blob := gocv.BlobFromImage(mat, 1/127.5, image.Pt(size, size),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.net.SetInput(blob, "")
	prob := r.net.Forward("")
	defer prob.Close()

	raw, err := prob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	scores := append([]float32(nil), raw...)
	if r.Metadata.ApplySoftmax {
		scores = softmax(scores)
	}
	return topK(scores, r.labels, k), nil
}

func (r *OpenCVRecognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.net.Close()
}
