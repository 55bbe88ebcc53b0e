// Package largemap loads pre-scanned region maps and their features.
package largemap

import (
	"fmt"
	"image"
	"regexp"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
)

// Region is one pre-scanned map. It is immutable once loaded.
type Region struct {
	ID     string
	Name   string
	Floor  int
	Origin image.Image
	Gray   *image.Gray
	Mask   *image.Alpha

	Features      vision.FeatureSet
	SpecialPoints map[string]geom.WorldPoint
}

// Size returns the map extent in world pixels.
func (r *Region) Size() (float64, float64) {
	if r.Origin == nil {
		return 0, 0
	}
	b := r.Origin.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// Window returns the features whose keypoints fall inside rect, clamped to
// the map. Keypoints keep their world coordinates.
func (r *Region) Window(rect geom.Rect) (vision.FeatureSet, geom.Rect) {
	w, h := r.Size()
	if w > 0 && h > 0 {
		rect = rect.Clamp(w, h)
	}
	idx := make([]int, 0, len(r.Features.KeyPoints)/4)
	for i, kp := range r.Features.KeyPoints {
		if rect.Contains(geom.WorldPoint{X: kp.X, Y: kp.Y}) {
			idx = append(idx, i)
		}
	}
	return r.Features.Subset(idx), rect
}

// Full returns the bounding rectangle of the whole map.
func (r *Region) Full() geom.Rect {
	w, h := r.Size()
	return geom.Rect{Max: geom.WorldPoint{X: w, Y: h}}
}

var floorSuffix = regexp.MustCompile(`_f\d+$`)

// FloorID names the region of another floor of the same zone. Region ids
// of multi-floor zones end in _f<floor>.
func FloorID(id string, floor int) string {
	return fmt.Sprintf("%s_f%d", floorSuffix.ReplaceAllString(id, ""), floor)
}
