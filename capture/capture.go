// Package capture grabs game frames and normalises them to the working
// resolution.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	maa "github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/kbinani/screenshot"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
)

// Working resolution
const (
	WORK_W = 1920
	WORK_H = 1080
)

// UID overlay at the working resolution
var UID_RECT = image.Rect(30, 1030, 200, 1080)

var ErrCaptureFailed = errors.New("capture failed")

// Source produces frames.
type Source interface {
	Capture(ctx context.Context) (image.Image, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (image.Image, error)

func (f SourceFunc) Capture(ctx context.Context) (image.Image, error) { return f(ctx) }

// MaaSource takes screenshots through a MaaFramework controller.
type MaaSource struct {
	ctrl *maa.Controller
}

func NewMaaSource(ctrl *maa.Controller) *MaaSource {
	return &MaaSource{ctrl: ctrl}
}

func (s *MaaSource) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.ctrl.PostScreencap().Wait()
	img, err := s.ctrl.CacheImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: empty screencap", ErrCaptureFailed)
	}
	return img, nil
}

// ScreenSource captures a rectangle of the desktop. An empty Bounds
// captures the primary display.
type ScreenSource struct {
	Bounds image.Rectangle
}

func (s ScreenSource) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := s.Bounds
	if r.Empty() {
		if screenshot.NumActiveDisplays() == 0 {
			return nil, fmt.Errorf("%w: no active display", ErrCaptureFailed)
		}
		r = screenshot.GetDisplayBounds(0)
	}
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	return img, nil
}

// FileSource replays an image file, for offline debugging.
type FileSource struct {
	Path string
}

func (s FileSource) Capture(ctx context.Context) (image.Image, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrCaptureFailed, s.Path, err)
	}
	return img, nil
}

// Normalizer scales frames to the working resolution and hides the UID.
type Normalizer struct {
	Width   int
	Height  int
	UIDRect image.Rectangle
}

var DefaultNormalizer = Normalizer{Width: WORK_W, Height: WORK_H, UIDRect: UID_RECT}

// Normalize returns a new frame of the working size.
func (n Normalizer) Normalize(img image.Image) *image.RGBA {
	var out *image.RGBA
	b := img.Bounds()
	if b.Dx() == n.Width && b.Dy() == n.Height {
		out = vision.Crop(img, b)
	} else {
		out = vision.Resize(img, n.Width, n.Height)
	}
	FillUID(out, n.UIDRect)
	return out
}

// FillUID blacks out the account id overlay.
func FillUID(img *image.RGBA, r image.Rectangle) {
	r = r.Intersect(img.Bounds())
	black := color.RGBA{A: 255}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, black)
		}
	}
}

// Normalized wraps a source with a normalizer.
type Normalized struct {
	Source     Source
	Normalizer Normalizer
}

func (s Normalized) Capture(ctx context.Context) (image.Image, error) {
	img, err := s.Source.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return s.Normalizer.Normalize(img), nil
}
