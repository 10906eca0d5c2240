package model

import (
	"fmt"
	"image"
	"image/color"

	ort "github.com/yalue/onnxruntime_go"
)

// Recognizer is the general-purpose ImageNet classifier used to sanity-check
// uploads. It expects images already resized to Metadata.ImageSize.
type Recognizer struct {
	session  *ort.DynamicAdvancedSession
	Metadata Metadata
	labels   []string
}

func NewRecognizer(modelPath, metadataPath string) (*Recognizer, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	if metadata.ImageSize <= 0 {
		return nil, fmt.Errorf("recognizer metadata: image_size is required")
	}

	labels, err := resolveLabels(metadata)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Recognizer{
		session:  session,
		Metadata: metadata,
		labels:   labels,
	}, nil
}

// TopK returns the k most likely labels for img, highest confidence first.
func (r *Recognizer) TopK(img image.Image, k int) ([]Score, error) {
	size := r.Metadata.ImageSize
	if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
		return nil, fmt.Errorf("expected %dx%d image, got %dx%d", size, size, b.Dx(), b.Dy())
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(r.Metadata.InputShape...), imageTensor(img, r.Metadata.Layout))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(r.Metadata.OutputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := r.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	scores := outputTensor.GetData()
	if r.Metadata.ApplySoftmax {
		scores = softmax(scores)
	}
	return topK(scores, r.labels, k), nil
}

// imageTensor converts img to float32 values scaled to [-1, 1], the input
// range MobileNetV2 was trained with.
func imageTensor(img image.Image, layout string) []float32 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Alpha is dropped, not applied.
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			rgb := [3]float32{
				float32(c.R)/127.5 - 1,
				float32(c.G)/127.5 - 1,
				float32(c.B)/127.5 - 1,
			}

			pixelIndex := y*width + x
			for c, v := range rgb {
				if layout == LayoutNCHW {
					data[c*plane+pixelIndex] = v
				} else {
					data[pixelIndex*3+c] = v
				}
			}
		}
	}
	return data
}

func (r *Recognizer) Close() {
	if r.session != nil {
		r.session.Destroy()
	}
}
