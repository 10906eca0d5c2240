package model

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Classifier wraps the binary fracture model. The session is created once
// and tensors are allocated per call, so a Classifier is safe to share
// between requests.
type Classifier struct {
	session  *ort.DynamicAdvancedSession
	Metadata Metadata
}

func NewClassifier(modelPath, metadataPath string) (*Classifier, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	if len(metadata.Classes) == 0 {
		return nil, fmt.Errorf("classifier metadata lists no classes")
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Classifier{
		session:  session,
		Metadata: metadata,
	}, nil
}

// Classify runs the model on one flattened image and returns the winning
// class. Probabilities are filled only when the model outputs them.
func (c *Classifier) Classify(inputData []float32) (*Prediction, error) {
	if expected := c.Metadata.InputSize(); len(inputData) != expected {
		return nil, fmt.Errorf("expected %d values, got %d", expected, len(inputData))
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(c.Metadata.InputShape...), inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(c.Metadata.OutputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := c.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return decodePrediction(outputTensor.GetData(), c.Metadata)
}

func decodePrediction(outputData []float32, metadata Metadata) (*Prediction, error) {
	if len(outputData) < len(metadata.Classes) {
		return nil, fmt.Errorf("model returned %d scores for %d classes", len(outputData), len(metadata.Classes))
	}
	scores := outputData[:len(metadata.Classes)]
	if metadata.ApplySoftmax {
		scores = softmax(scores)
	}

	prediction := &Prediction{Class: metadata.Classes[argmax(scores)]}
	if metadata.Probabilities || metadata.ApplySoftmax {
		prediction.Probabilities = make(map[string]float32, len(scores))
		for i, val := range scores {
			prediction.Probabilities[metadata.Classes[i]] = val
		}
	}
	return prediction, nil
}

func (c *Classifier) Close() {
	if c.session != nil {
		c.session.Destroy()
	}
}
