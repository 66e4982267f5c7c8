package providers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync/atomic"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MockImage is an ImageGenerator that draws a placeholder cover.
type MockImage struct {
	ShouldFail bool
	FailTimes  int
	FailWith   error

	calls atomic.Int64
}

// NewMockImage creates a mock image backend.
func NewMockImage() *MockImage {
	return &MockImage{}
}

var _ ImageGenerator = (*MockImage)(nil)

// Name returns "mock-image".
func (m *MockImage) Name() string {
	return MockImageName
}

// Calls returns the number of Generate calls, including failed ones.
func (m *MockImage) Calls() int {
	return int(m.calls.Load())
}

// Generate renders a vertical gradient with a "MOCK COVER" panel as PNG.
func (m *MockImage) Generate(ctx context.Context, prompt string, size Size) ([]byte, error) {
	n := m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ShouldFail || n <= int64(m.FailTimes) {
		if m.FailWith != nil {
			return nil, m.FailWith
		}
		return nil, &BackendError{Backend: MockImageName, Kind: ErrConnection, Err: fmt.Errorf("mock failure")}
	}

	w, h := size.Width, size.Height
	if w <= 0 || h <= 0 {
		w, h = CoverSize.Width, CoverSize.Height
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		frac := float64(y) / float64(h)
		c := color.RGBA{
			R: uint8(50 + frac*100),
			G: uint8(80 + frac*80),
			B: uint8(120 + frac*60),
			A: 255,
		}
		draw.Draw(img, image.Rect(0, y, w, y+1), &image.Uniform{C: c}, image.Point{}, draw.Src)
	}

	// Center panel with a light border
	cy := h / 2
	panel := image.Rect(min(100, w/4), cy-min(100, h/4), w-min(100, w/4), cy+min(100, h/4))
	draw.Draw(img, panel, &image.Uniform{C: color.RGBA{200, 200, 200, 255}}, image.Point{}, draw.Src)
	draw.Draw(img, panel.Inset(2), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	const label = "MOCK COVER"
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{50, 50, 50, 255}),
		Face: face,
	}
	textWidth := d.MeasureString(label).Ceil()
	d.Dot = fixed.P((w-textWidth)/2, cy+face.Ascent/2)
	d.DrawString(label)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode mock cover: %w", err)
	}
	return buf.Bytes(), nil
}
