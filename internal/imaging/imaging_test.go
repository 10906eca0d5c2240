package imaging

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func savePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x + y) % 256)
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	return img
}

func TestPreprocess_FixedLength(t *testing.T) {
	sizes := []image.Point{{1, 1}, {37, 512}, {128, 128}, {640, 480}, {1000, 3}}
	for _, size := range sizes {
		path := savePNG(t, gradient(size.X, size.Y))

		vec, err := Preprocess(path)
		require.NoError(t, err)
		require.Len(t, vec, VectorLength)
		for _, v := range vec {
			require.True(t, v >= 0 && v <= 255)
		}
	}
}

func TestPreprocess_JPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, gradient(300, 200), nil))
	require.NoError(t, f.Close())

	vec, err := Preprocess(path)
	require.NoError(t, err)
	require.Len(t, vec, VectorLength)
}

func TestPreprocess_UniformStaysUniform(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 256, 256))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	vec, err := PreprocessImage(img)
	require.NoError(t, err)
	for _, v := range vec {
		require.Equal(t, float32(128), v)
	}
}

func TestPreprocess_Corrupt(t *testing.T) {
	full := savePNG(t, gradient(64, 64))
	raw, err := os.ReadFile(full)
	require.NoError(t, err)

	truncated := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(truncated, raw[:len(raw)/3], 0o644))

	_, err = Preprocess(truncated)
	require.Error(t, err)

	_, err = Preprocess(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestPreprocessImage_Empty(t *testing.T) {
	_, err := PreprocessImage(image.NewGray(image.Rect(0, 0, 0, 0)))
	require.Error(t, err)
}

func TestGrayscale_Luma(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 6))
	img.Set(5, 5, color.RGBA{R: 255, A: 255})
	img.Set(6, 5, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	gray := Grayscale(img)
	require.Equal(t, image.Rect(0, 0, 2, 1), gray.Bounds())
	require.Equal(t, uint8(76), gray.GrayAt(0, 0).Y)
	require.Equal(t, uint8(255), gray.GrayAt(1, 0).Y)
}

func TestStats(t *testing.T) {
	flat := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range flat.Pix {
		flat.Pix[i] = 90
	}
	mean, std := Stats(flat)
	require.InDelta(t, 90, mean, 1e-9)
	require.InDelta(t, 0, std, 1e-9)

	half := image.NewGray(image.Rect(0, 0, 2, 1))
	half.Pix[0], half.Pix[1] = 0, 200
	mean, std = Stats(half)
	require.InDelta(t, 100, mean, 1e-9)
	require.InDelta(t, 100, std, 1e-9)

	mean, std = Stats(image.NewGray(image.Rect(0, 0, 0, 0)))
	require.Zero(t, mean)
	require.Zero(t, std)
}

func TestResize(t *testing.T) {
	out := Resize(gradient(500, 100), 224, 224)
	require.Equal(t, 224, out.Bounds().Dx())
	require.Equal(t, 224, out.Bounds().Dy())
}

func transparentGrey(w, h int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(60 + (x+y*w)%140)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: alpha})
		}
	}
	return img
}

func TestGrayscale_IgnoresAlpha(t *testing.T) {
	for _, alpha := range []uint8{0, 128, 255} {
		src := transparentGrey(64, 64, alpha)
		gray := Grayscale(src)
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				require.Equal(t, src.NRGBAAt(x, y).R, gray.GrayAt(x, y).Y, "alpha %d at %d,%d", alpha, x, y)
			}
		}

		mean, std := Stats(gray)
		require.InDelta(t, 129.5, mean, 1.0)
		require.Greater(t, std, 10.0)
	}

	red := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	red.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 64})
	require.Equal(t, uint8(76), Grayscale(red).GrayAt(0, 0).Y)
}

func TestPreprocessImage_TransparentKeepsColour(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 150, 150, 150, 0
	}

	vec, err := PreprocessImage(src)
	require.NoError(t, err)
	for _, v := range vec {
		require.Equal(t, float32(150), v)
	}
}

func TestOpaque(t *testing.T) {
	src := image.NewNRGBA(image.Rect(3, 3, 5, 4))
	src.SetNRGBA(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	src.SetNRGBA(4, 3, color.NRGBA{R: 200, G: 100, B: 50, A: 90})

	out := Opaque(src)
	require.Equal(t, image.Rect(0, 0, 2, 1), out.Bounds())
	require.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, out.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, out.RGBAAt(1, 0))
}
