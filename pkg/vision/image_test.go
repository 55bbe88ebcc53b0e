package vision

import (
	"image"
	"image/color"
	"testing"
)

func TestColorSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		c, tgt color.RGBA
		want   uint8
	}{
		{"same", color.RGBA{10, 20, 30, 255}, color.RGBA{10, 20, 30, 255}, 255},
		{"brighter", color.RGBA{20, 20, 30, 255}, color.RGBA{10, 20, 30, 255}, 245},
		{"mixed", color.RGBA{20, 15, 30, 255}, color.RGBA{10, 20, 30, 255}, 240},
		{"far", color.RGBA{255, 0, 0, 255}, color.RGBA{0, 255, 0, 255}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColorSimilarity(tt.c, tt.tgt); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCropOutsideBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	out := Crop(img, image.Rect(-1, -1, 3, 3))
	if out.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if got := out.RGBAAt(1, 1); got.R != 255 {
		t.Errorf("pixel (1,1) = %v, want red", got)
	}
	if got := out.RGBAAt(0, 0); got.A != 0 {
		t.Errorf("pixel (0,0) = %v, want transparent", got)
	}
}

func TestComponents(t *testing.T) {
	m := image.NewAlpha(image.Rect(0, 0, 10, 10))
	set := func(x, y int) { m.SetAlpha(x, y, color.Alpha{A: 255}) }
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			set(x, y)
		}
	}
	set(8, 8)
	set(9, 9)

	got := Components(m, 1)
	if len(got) != 2 {
		t.Fatalf("components = %d, want 2", len(got))
	}
	if got[0].Area != 9 || got[1].Area != 2 {
		t.Errorf("areas = %d, %d", got[0].Area, got[1].Area)
	}
	cx, cy := got[0].Centroid()
	if cx != 1.5 || cy != 1.5 {
		t.Errorf("centroid = (%v, %v), want (1.5, 1.5)", cx, cy)
	}
	if n := len(Components(m, 3)); n != 1 {
		t.Errorf("with minArea 3 got %d components", n)
	}
}

func TestCircleMask(t *testing.T) {
	m := CircleMask(21, 21, 10.5, 10.5, 10)
	if m.AlphaAt(10, 10).A == 0 {
		t.Error("centre not set")
	}
	if m.AlphaAt(0, 0).A != 0 {
		t.Error("corner set")
	}
}
