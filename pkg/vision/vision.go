// Package vision holds the image primitives shared by the tracker and the
// interfaces of the computer vision collaborator. Nothing here links OpenCV;
// the gocv backed implementations live in pkg/cvutil.
package vision

import (
	"image"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

// KeyPoint is a detected feature location with its scale (Size, the
// diameter of the meaningful neighbourhood) and orientation in degrees.
type KeyPoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size"`
	Angle    float64 `json:"angle"`
	Response float64 `json:"response"`
	Octave   int     `json:"octave"`
}

// Pt returns the keypoint location as a crop pixel.
func (k KeyPoint) Pt() geom.ScreenPoint { return geom.ScreenPoint{X: k.X, Y: k.Y} }

// FeatureSet is a list of keypoints and their descriptors, index aligned.
type FeatureSet struct {
	KeyPoints   []KeyPoint  `json:"keypoints"`
	Descriptors [][]float32 `json:"descriptors"`
}

func (f FeatureSet) Len() int { return len(f.KeyPoints) }

// Subset returns the features at the given indices.
func (f FeatureSet) Subset(idx []int) FeatureSet {
	out := FeatureSet{
		KeyPoints:   make([]KeyPoint, 0, len(idx)),
		Descriptors: make([][]float32, 0, len(idx)),
	}
	for _, i := range idx {
		out.KeyPoints = append(out.KeyPoints, f.KeyPoints[i])
		out.Descriptors = append(out.Descriptors, f.Descriptors[i])
	}
	return out
}

// Match is one template hit on a source image.
type Match struct {
	Rect       image.Rectangle
	Confidence float64
}

// Center returns the centre pixel of the hit.
func (m Match) Center() geom.ScreenPoint {
	return geom.ScreenPoint{
		X: float64(m.Rect.Min.X+m.Rect.Max.X) / 2,
		Y: float64(m.Rect.Min.Y+m.Rect.Max.Y) / 2,
	}
}

// TemplateMatcher finds a template on a source image. Hits below threshold
// are dropped; the result is sorted by confidence, best first.
type TemplateMatcher interface {
	MatchTemplate(src, tmpl image.Image, threshold float64) ([]Match, error)
}

// FeatureDetector detects keypoints and computes descriptors. Only pixels
// where mask is non-zero are considered; a nil mask means the whole image.
type FeatureDetector interface {
	DetectAndDescribe(img image.Image, mask *image.Alpha) (FeatureSet, error)
}

// InlierFilter fits a geometric model to matched keypoint pairs and reports
// which pairs agree with it.
type InlierFilter interface {
	Inliers(query, train []KeyPoint) ([]bool, error)
}
