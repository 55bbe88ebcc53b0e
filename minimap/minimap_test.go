package minimap

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
)

var background = color.RGBA{R: 60, G: 60, B: 70, A: 255}

func blankFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, WORK_W/4, WORK_H/4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = background.R, background.G, background.B, 255
	}
	return img
}

// drawArrow paints a triangle pointing at angle (clockwise from up) whose
// apex is 9px and base 5px away from the minimap centre.
func drawArrow(img *image.RGBA, angle float64) {
	cx, cy := float64(LOC_CENTER_X), float64(LOC_CENTER_Y)
	rad := angle * math.Pi / 180
	ux, uy := math.Sin(rad), -math.Cos(rad)
	nx, ny := -uy, ux
	ax, ay := cx+9*ux, cy+9*uy
	bx, by := cx-5*ux, cy-5*uy
	p1x, p1y := bx+5*nx, by+5*ny
	p2x, p2y := bx-5*nx, by-5*ny
	sign := func(px, py, x1, y1, x2, y2 float64) float64 {
		return (px-x2)*(y1-y2) - (x1-x2)*(py-y2)
	}
	for y := LOC_CENTER_Y - 15; y <= LOC_CENTER_Y+15; y++ {
		for x := LOC_CENTER_X - 15; x <= LOC_CENTER_X+15; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			d1 := sign(px, py, ax, ay, p1x, p1y)
			d2 := sign(px, py, p1x, p1y, p2x, p2y)
			d3 := sign(px, py, p2x, p2y, ax, ay)
			neg := d1 < 0 || d2 < 0 || d3 < 0
			pos := d1 > 0 || d2 > 0 || d3 > 0
			if !(neg && pos) {
				img.SetRGBA(x, y, ARROW_COLOR)
			}
		}
	}
}

func TestHeading(t *testing.T) {
	a := NewAnalyzer(DefaultGeometry, nil)
	for _, want := range []float64{0, 45, 90, 135, 200, 300} {
		frame := blankFrame()
		drawArrow(frame, want)
		snap := a.Analyze(frame)
		got, err := snap.Heading()
		if err != nil {
			t.Fatalf("angle %v: %v", want, err)
		}
		if d := math.Abs(geom.AngleDelta(want, got)); d > 10 {
			t.Errorf("angle %v: got %.1f", want, got)
		}
	}
}

func TestNoArrowGivesUnknownHeading(t *testing.T) {
	a := NewAnalyzer(DefaultGeometry, nil)
	snap := a.Analyze(blankFrame())
	if snap.HasAngle {
		t.Fatal("heading found on a frame without arrow")
	}
	if _, err := snap.Heading(); !errors.Is(err, ErrUnknownHeading) {
		t.Errorf("err = %v, want ErrUnknownHeading", err)
	}
	if snap.DelRadar == nil || snap.CircleMask == nil {
		t.Error("snapshot images missing")
	}
}

func TestCutSize(t *testing.T) {
	a := NewAnalyzer(DefaultGeometry, nil)
	crop := a.Cut(blankFrame())
	if crop.Bounds().Dx() != 2*LOC_RADIUS || crop.Bounds().Dy() != 2*LOC_RADIUS {
		t.Errorf("crop bounds = %v", crop.Bounds())
	}
}

func TestRemoveRadarOnlyTouchesSector(t *testing.T) {
	a := NewAnalyzer(DefaultGeometry, nil)
	crop := a.Cut(blankFrame())
	r := LOC_RADIUS
	// paint the overlay on top of the background for a cone facing right
	overlay := a.radarMask(90)
	lit := image.NewRGBA(crop.Bounds())
	copy(lit.Pix, crop.Pix)
	b := crop.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			k := float64(overlay.AlphaAt(x, y).A) / 255
			c := crop.RGBAAt(x, y)
			blend := func(v uint8) uint8 { return uint8(math.Round(float64(v)*(1-k) + 255*k)) }
			lit.SetRGBA(x, y, color.RGBA{R: blend(c.R), G: blend(c.G), B: blend(c.B), A: c.A})
		}
	}

	out := a.RemoveRadar(lit, 90)
	for _, p := range []image.Point{{r + 40, r}, {r - 40, r}, {r, r - 40}} {
		got := out.RGBAAt(p.X, p.Y)
		if diff := int(got.R) - int(background.R); diff < -2 || diff > 2 {
			t.Errorf("pixel %v = %v, want close to %v", p, got, background)
		}
	}
	if m1, m2 := a.radarMask(90), a.radarMask(90); m1 != m2 {
		t.Error("radar mask not cached")
	}
}

type fakeMatcher struct {
	hits []vision.Match
}

func (f fakeMatcher) MatchTemplate(src, tmpl image.Image, threshold float64) ([]vision.Match, error) {
	return f.hits, nil
}

func TestFindIcon(t *testing.T) {
	a := NewAnalyzer(DefaultGeometry, fakeMatcher{hits: []vision.Match{
		{Rect: image.Rect(100, 40, 110, 50), Confidence: 0.9},
	}})
	snap := a.Analyze(blankFrame())
	p, ok, err := a.FindIcon(snap, image.NewRGBA(image.Rect(0, 0, 10, 10)), 0.7)
	if err != nil || !ok {
		t.Fatalf("FindIcon = %v, %v", ok, err)
	}
	if p != (geom.ScreenPoint{X: 105, Y: 45}) {
		t.Errorf("icon at %v", p)
	}
}

func TestFindEnemy(t *testing.T) {
	a := NewAnalyzer(DefaultGeometry, nil)
	frame := blankFrame()
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			frame.SetRGBA(LOC_CENTER_X+30+x, LOC_CENTER_Y-20+y, ENEMY_COLOR)
		}
	}
	snap := a.Analyze(frame)
	p, ok := a.FindEnemy(snap)
	if !ok {
		t.Fatal("enemy not found")
	}
	want := geom.ScreenPoint{X: float64(LOC_RADIUS + 33), Y: float64(LOC_RADIUS - 17)}
	if p.Sub(want).Len() > 1 {
		t.Errorf("enemy at %v, want %v", p, want)
	}

	if _, ok := a.FindEnemy(a.Analyze(blankFrame())); ok {
		t.Error("enemy found on a blank frame")
	}
}
