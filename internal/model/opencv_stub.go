//go:build !gocv
// +build !gocv

package model

import (
	"errors"
	"image"
)

// OpenCVRecognizer is unavailable without the gocv build tag.
type OpenCVRecognizer struct {
	Metadata Metadata
}

// NewOpenCVRecognizer returns an error when built without the gocv tag.
func NewOpenCVRecognizer(string, string) (*OpenCVRecognizer, error) {
	return nil, errors.New("gocv build tag is not enabled")
}

func (r *OpenCVRecognizer) TopK(image.Image, int) ([]Score, error) {
	return nil, errors.New("gocv build tag is not enabled")
}

func (r *OpenCVRecognizer) Close() {}
