// Package xray decides whether an upload plausibly is a radiograph.
package xray

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/Brownie44l1/fracture-api/internal/imaging"
	"github.com/Brownie44l1/fracture-api/internal/model"
)

var (
	ErrAspectRatio = errors.New("aspect ratio out of range")
	ErrExposure    = errors.New("mean intensity out of range")
	ErrFlat        = errors.New("intensity variation too low")
	ErrNonMedical  = errors.New("confidently recognised as a non-medical subject")
)

// MedicalTerms are matched as substrings of the lower-cased recognizer labels.
var MedicalTerms = []string{
	"x-ray", "radiograph", "medical", "bone", "scan", "microscope",
	"diagnostic", "skeletal", "fracture", "joint", "limb", "tissue",
}

// Recognizer is the general-purpose image classifier used as a plausibility filter.
type Recognizer interface {
	TopK(img image.Image, k int) ([]model.Score, error)
}

type Thresholds struct {
	MinAspectRatio float64
	MaxAspectRatio float64
	MinMean        float64
	MaxMean        float64
	MinStd         float64
	InputSize      int
	TopK           int
	// MinTermConfidence is the floor a medical label must exceed to accept.
	MinTermConfidence float32
	// MaxOffTopicConfidence rejects a non-medical top-1 label above it.
	MaxOffTopicConfidence float32
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAspectRatio:        0.2,
		MaxAspectRatio:        5.0,
		MinMean:               20,
		MaxMean:               235,
		MinStd:                10,
		InputSize:             224,
		TopK:                  10,
		MinTermConfidence:     0.001,
		MaxOffTopicConfidence: 0.95,
	}
}

type Option func(*Validator)

func WithThresholds(t Thresholds) Option {
	return func(v *Validator) {
		v.thresholds = t
	}
}

type Validator struct {
	recognizer Recognizer
	thresholds Thresholds
	logger     *zap.Logger
}

func NewValidator(recognizer Recognizer, logger *zap.Logger, opts ...Option) *Validator {
	v := &Validator{
		recognizer: recognizer,
		thresholds: DefaultThresholds(),
		logger:     logger.Named("xray"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsValid reports whether the image at path passes every check. Any
// failure, including a decode error or a recognizer panic, yields false.
func (v *Validator) IsValid(path string) bool {
	if err := v.Check(path); err != nil {
		v.logger.Info("image rejected", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}

// Check runs the geometric, statistical and recognizer checks in order and
// returns the first failure.
func (v *Validator) Check(path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validation panic: %v", r)
		}
	}()

	img, err := imaging.Open(path)
	if err != nil {
		return err
	}
	return v.CheckImage(img)
}

func (v *Validator) CheckImage(img image.Image) error {
	t := v.thresholds

	gray := imaging.Grayscale(img)
	width, height := gray.Bounds().Dx(), gray.Bounds().Dy()
	if height == 0 || width == 0 {
		return fmt.Errorf("%w: empty image", ErrAspectRatio)
	}
	aspect := float64(width) / float64(height)
	if aspect < t.MinAspectRatio || aspect > t.MaxAspectRatio {
		return fmt.Errorf("%w: %.3f", ErrAspectRatio, aspect)
	}

	mean, std := imaging.Stats(gray)
	if mean < t.MinMean || mean > t.MaxMean {
		return fmt.Errorf("%w: %.2f", ErrExposure, mean)
	}
	if std < t.MinStd {
		return fmt.Errorf("%w: std=%.2f", ErrFlat, std)
	}

	if v.recognizer == nil {
		return errors.New("recognizer is not configured")
	}
	scores, err := v.recognizer.TopK(imaging.Resize(imaging.Opaque(img), t.InputSize, t.InputSize), t.TopK)
	if err != nil {
		return fmt.Errorf("recognizer: %w", err)
	}
	if len(scores) == 0 {
		return errors.New("recognizer returned no predictions")
	}

	for _, s := range scores {
		if hasMedicalTerm(s.Label) && s.Confidence > t.MinTermConfidence {
			v.logger.Debug("medical label matched",
				zap.String("label", s.Label), zap.Float32("confidence", s.Confidence))
			return nil
		}
	}

	top := scores[0]
	if top.Confidence > t.MaxOffTopicConfidence && !hasMedicalTerm(top.Label) {
		return fmt.Errorf("%w: %s (%.3f)", ErrNonMedical, top.Label, top.Confidence)
	}
	return nil
}

func hasMedicalTerm(label string) bool {
	label = strings.ToLower(label)
	for _, term := range MedicalTerms {
		if strings.Contains(label, term) {
			return true
		}
	}
	return false
}
