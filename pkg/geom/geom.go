// Package geom holds the two coordinate spaces used by the tracker.
//
// ScreenPoint is a pixel on a captured frame or on a minimap crop.
// WorldPoint is a pixel on a region's large map. The two are never mixed:
// the only way across is a MiniMapTransform.
package geom

import (
	"fmt"
	"math"
)

// ScreenPoint is a position in screen (or minimap crop) pixels.
type ScreenPoint struct {
	X float64
	Y float64
}

// WorldPoint is a position in large-map pixels of one region.
type WorldPoint struct {
	X float64
	Y float64
}

func Screen(x, y float64) ScreenPoint { return ScreenPoint{X: x, Y: y} }

func World(x, y float64) WorldPoint { return WorldPoint{X: x, Y: y} }

func (p ScreenPoint) String() string { return fmt.Sprintf("screen(%.1f, %.1f)", p.X, p.Y) }

func (p WorldPoint) String() string { return fmt.Sprintf("world(%.1f, %.1f)", p.X, p.Y) }

// Add returns p shifted by v.
func (p WorldPoint) Add(v Vec) WorldPoint { return WorldPoint{X: p.X + v.X, Y: p.Y + v.Y} }

// Sub returns the vector from q to p.
func (p WorldPoint) Sub(q WorldPoint) Vec { return Vec{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the euclidean distance between p and q.
func (p WorldPoint) Dist(q WorldPoint) float64 { return p.Sub(q).Len() }

// Sub returns the vector from q to p.
func (p ScreenPoint) Sub(q ScreenPoint) Vec { return Vec{X: p.X - q.X, Y: p.Y - q.Y} }

// Add returns p shifted by v.
func (p ScreenPoint) Add(v Vec) ScreenPoint { return ScreenPoint{X: p.X + v.X, Y: p.Y + v.Y} }

// Round returns integer pixel coordinates.
func (p ScreenPoint) Round() (int, int) {
	return int(math.Round(p.X)), int(math.Round(p.Y))
}

// Vec is a displacement without a coordinate space of its own.
type Vec struct {
	X float64
	Y float64
}

func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v Vec) Scale(k float64) Vec { return Vec{X: v.X * k, Y: v.Y * k} }

// Angle returns the heading of v in degrees, measured clockwise from
// screen-up (negative y), in [0, 360).
func (v Vec) Angle() float64 {
	deg := math.Atan2(v.X, -v.Y) * 180 / math.Pi
	return NormalizeAngle(deg)
}

// NormalizeAngle maps any angle in degrees to [0, 360).
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// AngleDelta returns the signed shortest rotation from `from` to `to`,
// in (-180, 180]. Positive means clockwise.
func AngleDelta(from, to float64) float64 {
	d := NormalizeAngle(to - from)
	if d > 180 {
		d -= 360
	}
	return d
}

// Rect is an axis-aligned rectangle in world pixels, Min inclusive and
// Max exclusive.
type Rect struct {
	Min WorldPoint
	Max WorldPoint
}

// RectAround returns the square of half-size r centred on c.
func RectAround(c WorldPoint, r float64) Rect {
	return Rect{
		Min: WorldPoint{X: c.X - r, Y: c.Y - r},
		Max: WorldPoint{X: c.X + r, Y: c.Y + r},
	}
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p WorldPoint) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Clamp intersects r with [0,w)x[0,h).
func (r Rect) Clamp(w, h float64) Rect {
	out := r
	out.Min.X = math.Max(0, r.Min.X)
	out.Min.Y = math.Max(0, r.Min.Y)
	out.Max.X = math.Min(w, r.Max.X)
	out.Max.Y = math.Min(h, r.Max.Y)
	return out
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y }

// MiniMapTransform maps minimap-crop pixels to world pixels:
//
//	world = Origin + crop * Scale
//
// Origin is the world position of the crop's top-left pixel.
type MiniMapTransform struct {
	Origin WorldPoint
	Scale  float64
}

// ToWorld converts a minimap crop pixel to a world pixel.
func (t MiniMapTransform) ToWorld(p ScreenPoint) WorldPoint {
	return WorldPoint{X: t.Origin.X + p.X*t.Scale, Y: t.Origin.Y + p.Y*t.Scale}
}

// ToMiniMap converts a world pixel back to a minimap crop pixel.
func (t MiniMapTransform) ToMiniMap(p WorldPoint) ScreenPoint {
	if t.Scale == 0 {
		return ScreenPoint{}
	}
	return ScreenPoint{X: (p.X - t.Origin.X) / t.Scale, Y: (p.Y - t.Origin.Y) / t.Scale}
}

// CenteredTransform is the transform for a minimap whose centre pixel sits
// on world point c at unit scale. It is what route authoring uses when it
// offsets a minimap detection from a known position.
func CenteredTransform(c WorldPoint, center ScreenPoint) MiniMapTransform {
	return MiniMapTransform{
		Origin: WorldPoint{X: c.X - center.X, Y: c.Y - center.Y},
		Scale:  1,
	}
}
