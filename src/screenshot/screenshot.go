package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"github.com/kbinani/screenshot"
)

// Region is a screen or image rectangle in pixels.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// PrimaryBounds returns the bounds of the primary display.
func PrimaryBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}

// CapturePrimary captures the whole primary display. The region selector
// shows this frame frozen while the user drags.
func CapturePrimary() (*image.RGBA, error) {
	bounds, err := PrimaryBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture primary display: %w", err)
	}
	return img, nil
}

// CaptureRegion captures a specific region of the screen.
func CaptureRegion(region Region) (*image.RGBA, error) {
	if region.Empty() {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", region.Width, region.Height)
	}
	img, err := screenshot.CaptureRect(region.Rect())
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return img, nil
}

// ParseRegion reads "X,Y,W,H" in screen pixels.
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q must be X,Y,W,H", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %q is not a number", s, p)
		}
		v[i] = n
	}
	r := Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Empty() {
		return Region{}, fmt.Errorf("region %q has no area", s)
	}
	return r, nil
}

// Crop copies region out of img. The region is relative to the image
// origin and is clipped to the image bounds.
func Crop(img image.Image, region Region) (*image.RGBA, error) {
	if region.Empty() {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", region.Width, region.Height)
	}
	b := img.Bounds()
	r := region.Rect().Add(b.Min).Intersect(b)
	if r.Empty() {
		return nil, fmt.Errorf("region %+v lies outside the captured image %v", region, b)
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out, nil
}

// Grayscale converts img to 8-bit luminance, which tesseract handles best.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
