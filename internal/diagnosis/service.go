// Package diagnosis runs an uploaded image through validation,
// preprocessing, classification and fracture description.
package diagnosis

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Brownie44l1/fracture-api/internal/fracture"
	"github.com/Brownie44l1/fracture-api/internal/imaging"
	"github.com/Brownie44l1/fracture-api/internal/model"
)

// ErrNotXray is returned when the upload fails the X-ray plausibility checks.
var ErrNotXray = errors.New("image does not appear to be an X-ray")

// ProcessingError wraps any failure after validation succeeded.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return "processing image: " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

type Validator interface {
	IsValid(path string) bool
}

type Classifier interface {
	Classify(inputData []float32) (*model.Prediction, error)
}

type Describer interface {
	Describe(label string) *fracture.Descriptor
}

// Result is a successful diagnosis. Confidence is a percentage with two
// decimals, nil when the classifier has no probabilities.
type Result struct {
	Label      string               `json:"label"`
	Confidence *float64             `json:"confidence"`
	Fracture   *fracture.Descriptor `json:"fracture"`
}

type Service struct {
	validator  Validator
	classifier Classifier
	describer  Describer
	logger     *zap.Logger
}

func NewService(validator Validator, classifier Classifier, describer Describer, logger *zap.Logger) *Service {
	return &Service{
		validator:  validator,
		classifier: classifier,
		describer:  describer,
		logger:     logger.Named("diagnosis"),
	}
}

// Diagnose validates and classifies the image stored at path.
func (s *Service) Diagnose(path string) (*Result, error) {
	if !s.validator.IsValid(path) {
		return nil, ErrNotXray
	}

	result, err := s.classify(path)
	if err != nil {
		s.logger.Warn("processing failed", zap.String("path", path), zap.Error(err))
		return nil, &ProcessingError{Err: err}
	}

	s.logger.Info("image classified",
		zap.String("path", path),
		zap.String("label", result.Label),
		zap.Bool("fracture_info", result.Fracture != nil))
	return result, nil
}

func (s *Service) classify(path string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	inputData, err := imaging.Preprocess(path)
	if err != nil {
		return nil, err
	}

	prediction, err := s.classifier.Classify(inputData)
	if err != nil {
		return nil, err
	}

	result = &Result{Label: prediction.Class}
	if confidence, ok := prediction.ConfidencePercent(); ok {
		result.Confidence = &confidence
	}
	if fracture.IsFractured(prediction.Class) {
		result.Fracture = s.describer.Describe(prediction.Class)
	}
	return result, nil
}
