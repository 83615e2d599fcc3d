package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoTone builds a synthetic page: dark "ink" band on a light background.
func twoTone(dark, light uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			v := light
			if y >= 8 && y < 12 {
				v = dark
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestEnhance_NilAndEmptyInput(t *testing.T) {
	e := NewEnhancer(nil)

	assert.Nil(t, e.Enhance(nil))

	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	assert.Equal(t, empty, e.Enhance(empty))
}

// corruptImage panics on every pixel read, like a decoder handing back a
// broken page.
type corruptImage struct{}

func (corruptImage) ColorModel() color.Model { return color.NRGBAModel }
func (corruptImage) Bounds() image.Rectangle { return image.Rect(0, 0, 8, 8) }
func (corruptImage) At(x, y int) color.Color { panic("corrupt page data") }

func TestEnhance_PanickingSourceReturnsInput(t *testing.T) {
	e := NewEnhancer(nil)
	src := corruptImage{}

	out := e.Enhance(src)

	assert.Equal(t, src, out)
}

func TestEnhance_ProducesBinaryOutput(t *testing.T) {
	e := NewEnhancer(nil)

	out := e.Enhance(twoTone(40, 220))
	require.NotNil(t, out)

	nrgba, ok := out.(*image.NRGBA)
	require.True(t, ok)

	bounds := nrgba.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := nrgba.NRGBAAt(x, y)
			assert.True(t, px.R == 0 || px.R == 255,
				"pixel at (%d,%d) is %d, expected binary", x, y, px.R)
		}
	}
}

func TestEnhance_Deterministic(t *testing.T) {
	e := NewEnhancer(nil)

	first := e.Enhance(twoTone(40, 220))
	second := e.Enhance(twoTone(40, 220))

	assert.Equal(t, first, second)
}

func TestOtsuThreshold(t *testing.T) {
	tests := []struct {
		name    string
		img     *image.NRGBA
		wantMin int
		wantMax int
	}{
		{
			name:    "bimodal image splits between modes",
			img:     twoTone(40, 220),
			wantMin: 40,
			wantMax: 220,
		},
		{
			name:    "empty image falls back to midpoint",
			img:     image.NewNRGBA(image.Rect(0, 0, 0, 0)),
			wantMin: 128,
			wantMax: 128,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := otsuThreshold(tt.img)
			assert.GreaterOrEqual(t, got, tt.wantMin)
			assert.LessOrEqual(t, got, tt.wantMax)
		})
	}
}

func TestStretchContrast_FlatImageUnchanged(t *testing.T) {
	flat := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			flat.SetNRGBA(x, y, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}

	out := stretchContrast(flat)
	assert.Equal(t, flat, out)
}
