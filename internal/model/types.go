package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Tensor layouts accepted in Metadata.Layout.
const (
	LayoutNHWC = "NHWC"
	LayoutNCHW = "NCHW"
)

type Metadata struct {
	InputName     string   `json:"input_name"`
	OutputName    string   `json:"output_name"`
	InputShape    []int64  `json:"input_shape"`
	OutputShape   []int64  `json:"output_shape"`
	Classes       []string `json:"classes"`
	LabelsPath    string   `json:"labels_path"`
	ImageSize     int      `json:"image_size"`
	Layout        string   `json:"layout"`
	Probabilities bool     `json:"probabilities"`
	ApplySoftmax  bool     `json:"apply_softmax"`
}

// LoadMetadata reads the JSON sidecar of a model. Relative labels paths
// are resolved against the directory of the metadata file.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if metadata.InputName == "" {
		metadata.InputName = "input"
	}
	if metadata.OutputName == "" {
		metadata.OutputName = "output"
	}
	if metadata.Layout == "" {
		metadata.Layout = LayoutNHWC
	}
	if metadata.LabelsPath != "" && !filepath.IsAbs(metadata.LabelsPath) {
		metadata.LabelsPath = filepath.Join(filepath.Dir(path), metadata.LabelsPath)
	}

	if len(metadata.InputShape) == 0 || len(metadata.OutputShape) == 0 {
		return Metadata{}, fmt.Errorf("metadata %s: input_shape and output_shape are required", path)
	}
	if metadata.Layout != LayoutNHWC && metadata.Layout != LayoutNCHW {
		return Metadata{}, fmt.Errorf("metadata %s: unsupported layout %q", path, metadata.Layout)
	}

	return metadata, nil
}

// InputSize is the number of values a single inference call expects.
func (m Metadata) InputSize() int {
	size := 1
	for _, dim := range m.InputShape {
		size *= int(dim)
	}
	return size
}

// Prediction is the fracture classifier output for one image.
type Prediction struct {
	Class string
	// Probabilities is nil when the model exposes raw scores only.
	Probabilities map[string]float32
}

// ConfidencePercent returns the highest class probability as a percentage
// rounded to two decimals. ok is false when the model has no probabilities.
func (p *Prediction) ConfidencePercent() (float64, bool) {
	if len(p.Probabilities) == 0 {
		return 0, false
	}
	var best float32
	for _, v := range p.Probabilities {
		if v > best {
			best = v
		}
	}
	return roundTo(float64(best)*100, 2), true
}

// Score is one labelled output of the auxiliary image classifier.
type Score struct {
	Label      string
	Confidence float32
}
