// Package imaging decodes uploads and turns them into the inputs the
// models expect.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// ClassifierSize is the side of the square grayscale image fed to the
	// fracture classifier.
	ClassifierSize = 128
	// VectorLength is the number of values Preprocess produces.
	VectorLength = ClassifierSize * ClassifierSize
)

// Open decodes the image stored at path.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Opaque returns the colour values of img with alpha dropped, so
// transparent pixels keep their stored colour instead of turning black.
// The result always starts at the origin.
func Opaque(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			out.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

// Grayscale converts img to 8-bit luma using the ITU-R 601 weights,
// ignoring alpha. The result always starts at the origin.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			gray.SetGray(x, y, color.GrayModel.Convert(color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}).(color.Gray))
		}
	}
	return gray
}

// Resize scales img to exactly width x height with bicubic interpolation.
func Resize(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, resize.Bicubic)
}

// Stats returns the mean and population standard deviation of the pixels.
func Stats(gray *image.Gray) (mean, std float64) {
	bounds := gray.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return 0, 0
	}

	var sum float64
	for y := 0; y < bounds.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+bounds.Dx()]
		for _, p := range row {
			sum += float64(p)
		}
	}
	mean = sum / float64(n)

	var sq float64
	for y := 0; y < bounds.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+bounds.Dx()]
		for _, p := range row {
			d := float64(p) - mean
			sq += d * d
		}
	}
	return mean, math.Sqrt(sq / float64(n))
}

// Preprocess loads the image at path and returns the flattened grayscale
// vector the fracture classifier expects.
func Preprocess(path string) ([]float32, error) {
	img, err := Open(path)
	if err != nil {
		return nil, err
	}
	return PreprocessImage(img)
}

// PreprocessImage converts img to grayscale, resizes it to 128x128 and
// flattens it row-major. Values stay in the 0-255 range.
func PreprocessImage(img image.Image) ([]float32, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}

	gray := Grayscale(Resize(Grayscale(img), ClassifierSize, ClassifierSize))

	inputData := make([]float32, 0, VectorLength)
	for y := 0; y < ClassifierSize; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+ClassifierSize]
		for _, p := range row {
			inputData = append(inputData, float32(p))
		}
	}
	return inputData, nil
}
