// Package minimap derives heading and a clean image from the circular
// minimap in the corner of a game frame.
package minimap

import (
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
)

// ErrUnknownHeading is returned when the player arrow cannot be found.
var ErrUnknownHeading = errors.New("heading unknown")

// Geometry locates the minimap circle on a normalised frame.
type Geometry struct {
	CenterX     int `mapstructure:"center_x"`
	CenterY     int `mapstructure:"center_y"`
	Radius      int `mapstructure:"radius"`
	ArrowRadius int `mapstructure:"arrow_radius"`
}

var DefaultGeometry = Geometry{
	CenterX:     LOC_CENTER_X,
	CenterY:     LOC_CENTER_Y,
	Radius:      LOC_RADIUS,
	ArrowRadius: ROT_RADIUS,
}

// Rect is the crop rectangle on the frame.
func (g Geometry) Rect() image.Rectangle {
	return image.Rect(g.CenterX-g.Radius, g.CenterY-g.Radius, g.CenterX+g.Radius, g.CenterY+g.Radius)
}

// Center is the circle centre inside the crop.
func (g Geometry) Center() geom.ScreenPoint {
	return geom.ScreenPoint{X: float64(g.Radius), Y: float64(g.Radius)}
}

// Snapshot is everything derived from one frame's minimap.
type Snapshot struct {
	// Origin is the raw crop.
	Origin *image.RGBA
	// DelRadar is Origin with the view cone overlay subtracted.
	DelRadar   *image.RGBA
	ArrowMask  *image.Alpha
	CircleMask *image.Alpha
	Angle      float64
	HasAngle   bool
	Center     geom.ScreenPoint
	CapturedAt time.Time
}

// Heading returns the arrow angle or ErrUnknownHeading.
func (s *Snapshot) Heading() (float64, error) {
	if s == nil || !s.HasAngle {
		return 0, ErrUnknownHeading
	}
	return s.Angle, nil
}

// Analyzer cuts and analyses minimaps. It is safe for concurrent use.
type Analyzer struct {
	geo     Geometry
	matcher vision.TemplateMatcher
	circle  *image.Alpha
	now     func() time.Time

	mu    sync.Mutex
	radar map[int]*image.Alpha
}

// NewAnalyzer returns an analyzer for the given geometry. matcher may be nil
// when FindIcon is not used.
func NewAnalyzer(geo Geometry, matcher vision.TemplateMatcher) *Analyzer {
	if geo.Radius <= 0 {
		geo = DefaultGeometry
	}
	if geo.ArrowRadius <= 0 {
		geo.ArrowRadius = ROT_RADIUS
	}
	size := 2 * geo.Radius
	c := float64(geo.Radius)
	return &Analyzer{
		geo:     geo,
		matcher: matcher,
		circle:  vision.CircleMask(size, size, c, c, float64(geo.Radius-EDGE_MARGIN)),
		now:     time.Now,
		radar:   make(map[int]*image.Alpha),
	}
}

func (a *Analyzer) Geometry() Geometry { return a.geo }

// Cut returns the square crop around the minimap circle, without resizing.
func (a *Analyzer) Cut(frame image.Image) *image.RGBA {
	r := a.geo.Rect().Add(frame.Bounds().Min)
	return vision.Crop(frame, r)
}

// Analyze runs the full per-frame derivation.
func (a *Analyzer) Analyze(frame image.Image) *Snapshot {
	crop := a.Cut(frame)
	snap := &Snapshot{
		Origin:     crop,
		Center:     a.geo.Center(),
		CapturedAt: a.now(),
	}
	snap.ArrowMask = a.arrowMask(crop)
	snap.Angle, snap.HasAngle = a.headingFromMask(snap.ArrowMask)
	if snap.HasAngle {
		snap.DelRadar = a.RemoveRadar(crop, snap.Angle)
	} else {
		snap.DelRadar = vision.Crop(crop, crop.Bounds())
	}
	snap.CircleMask = a.featureMask(snap.ArrowMask)
	log.Debug().
		Bool("has_angle", snap.HasAngle).
		Float64("angle", snap.Angle).
		Msg("[MiniMap] Analyzed")
	return snap
}

// Heading detects the player arrow on a crop.
func (a *Analyzer) Heading(crop *image.RGBA) (float64, bool) {
	return a.headingFromMask(a.arrowMask(crop))
}

// arrowMask keeps the largest arrow coloured blob near the centre.
func (a *Analyzer) arrowMask(crop *image.RGBA) *image.Alpha {
	c := a.geo.Radius
	r := a.geo.ArrowRadius
	within := image.NewAlpha(crop.Bounds())
	for y := c - r; y < c+r; y++ {
		for x := c - r; x < c+r; x++ {
			within.SetAlpha(x, y, color.Alpha{A: 255})
		}
	}
	raw := vision.ColorMask(crop, ARROW_COLOR, ARROW_TOLERANCE, within)
	comps := vision.Components(raw, 1)
	out := image.NewAlpha(crop.Bounds())
	if len(comps) == 0 {
		return out
	}
	keep := comps[0].Bounds
	for y := keep.Min.Y; y < keep.Max.Y; y++ {
		for x := keep.Min.X; x < keep.Max.X; x++ {
			if raw.AlphaAt(x, y).A != 0 {
				out.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return out
}

// headingFromMask measures the direction from the arrow centroid to its
// tip, the group of pixels farthest from the centroid.
func (a *Analyzer) headingFromMask(mask *image.Alpha) (float64, bool) {
	if vision.CountMask(mask) < ARROW_MIN_PIXELS {
		return 0, false
	}
	b := mask.Bounds()
	var sx, sy float64
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.AlphaAt(x, y).A != 0 {
				sx += float64(x)
				sy += float64(y)
				n++
			}
		}
	}
	cx, cy := sx/float64(n), sy/float64(n)

	maxDist := 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.AlphaAt(x, y).A != 0 {
				maxDist = math.Max(maxDist, math.Hypot(float64(x)-cx, float64(y)-cy))
			}
		}
	}
	if maxDist == 0 {
		return 0, false
	}
	var tx, ty float64
	m := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.AlphaAt(x, y).A == 0 {
				continue
			}
			if math.Hypot(float64(x)-cx, float64(y)-cy) >= ARROW_TIP_RATIO*maxDist {
				tx += float64(x)
				ty += float64(y)
				m++
			}
		}
	}
	tip := geom.Vec{X: tx/float64(m) - cx, Y: ty/float64(m) - cy}
	return tip.Angle(), true
}

// RemoveRadar subtracts the translucent view cone drawn for the given
// heading. The overlay mask is a function of the angle only and is cached
// per integer degree.
func (a *Analyzer) RemoveRadar(crop *image.RGBA, angle float64) *image.RGBA {
	mask := a.radarMask(int(math.Round(geom.NormalizeAngle(angle))) % 360)
	b := crop.Bounds()
	out := image.NewRGBA(b)
	copy(out.Pix, crop.Pix)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			al := mask.AlphaAt(x, y).A
			if al == 0 {
				continue
			}
			k := float64(al) / 255
			c := crop.RGBAAt(x, y)
			out.SetRGBA(x, y, color.RGBA{
				R: unblend(c.R, k),
				G: unblend(c.G, k),
				B: unblend(c.B, k),
				A: c.A,
			})
		}
	}
	return out
}

func unblend(v uint8, k float64) uint8 {
	f := (float64(v) - 255*k) / (1 - k)
	return uint8(math.Max(0, math.Min(255, math.Round(f))))
}

func (a *Analyzer) radarMask(deg int) *image.Alpha {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m, ok := a.radar[deg]; ok {
		return m
	}
	size := 2 * a.geo.Radius
	c := float64(a.geo.Radius)
	m := image.NewAlpha(image.Rect(0, 0, size, size))
	al := uint8(math.Round(RADAR_ALPHA * 255))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := geom.Vec{X: float64(x) + 0.5 - c, Y: float64(y) + 0.5 - c}
			if v.Len() > c || v.Len() < float64(a.geo.ArrowRadius) {
				continue
			}
			if math.Abs(geom.AngleDelta(float64(deg), v.Angle())) <= RADAR_HALF_ANGLE {
				m.SetAlpha(x, y, color.Alpha{A: al})
			}
		}
	}
	a.radar[deg] = m
	return m
}

// featureMask is the circle minus the arrow.
func (a *Analyzer) featureMask(arrow *image.Alpha) *image.Alpha {
	out := image.NewAlpha(a.circle.Bounds())
	copy(out.Pix, a.circle.Pix)
	b := arrow.Bounds().Intersect(out.Bounds())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if arrow.AlphaAt(x, y).A != 0 {
				out.SetAlpha(x, y, color.Alpha{})
			}
		}
	}
	return out
}

// FindIcon locates a special icon on the minimap and returns its centre
// in crop pixels.
func (a *Analyzer) FindIcon(snap *Snapshot, tmpl image.Image, threshold float64) (geom.ScreenPoint, bool, error) {
	if a.matcher == nil {
		return geom.ScreenPoint{}, false, errors.New("no template matcher configured")
	}
	matches, err := a.matcher.MatchTemplate(snap.DelRadar, tmpl, threshold)
	if err != nil {
		return geom.ScreenPoint{}, false, err
	}
	if len(matches) == 0 {
		return geom.ScreenPoint{}, false, nil
	}
	return matches[0].Center(), true, nil
}

// FindEnemy returns the centre of the largest red enemy marker inside the
// minimap circle.
func (a *Analyzer) FindEnemy(snap *Snapshot) (geom.ScreenPoint, bool) {
	mask := vision.ColorMask(snap.Origin, ENEMY_COLOR, ENEMY_TOLERANCE, a.circle)
	comps := vision.Components(mask, ENEMY_MIN_PIXELS)
	if len(comps) == 0 {
		return geom.ScreenPoint{}, false
	}
	x, y := comps[0].Centroid()
	return geom.ScreenPoint{X: x, Y: y}, true
}
