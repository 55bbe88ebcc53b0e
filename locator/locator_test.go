package locator

import (
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
)

const cropRadius = 94

type fixedDetector struct {
	fs vision.FeatureSet
}

func (d fixedDetector) DetectAndDescribe(img image.Image, mask *image.Alpha) (vision.FeatureSet, error) {
	return d.fs, nil
}

type constFilter bool

func (f constFilter) Inliers(query, train []vision.KeyPoint) ([]bool, error) {
	out := make([]bool, len(query))
	for i := range out {
		out[i] = bool(f)
	}
	return out, nil
}

// gridRegion has one uniquely described keypoint every 20px.
func gridRegion() *largemap.Region {
	var fs vision.FeatureSet
	for y := 0; y <= 600; y += 20 {
		for x := 0; x <= 600; x += 20 {
			id := float32(len(fs.KeyPoints))
			fs.KeyPoints = append(fs.KeyPoints, vision.KeyPoint{X: float64(x), Y: float64(y), Size: 6})
			fs.Descriptors = append(fs.Descriptors, []float32{id, id * 0.5})
		}
	}
	return &largemap.Region{
		ID:       "grid",
		Origin:   image.NewRGBA(image.Rect(0, 0, 601, 601)),
		Features: fs,
	}
}

// minimapAt returns the features a minimap centred on p would show, zoomed
// out by k.
func minimapAt(region *largemap.Region, p geom.WorldPoint, k float64) vision.FeatureSet {
	var fs vision.FeatureSet
	for i, kp := range region.Features.KeyPoints {
		d := geom.World(kp.X, kp.Y).Sub(p)
		if d.Len() > 80 {
			continue
		}
		fs.KeyPoints = append(fs.KeyPoints, vision.KeyPoint{
			X:    d.X/k + cropRadius,
			Y:    d.Y/k + cropRadius,
			Size: kp.Size / k,
		})
		fs.Descriptors = append(fs.Descriptors, region.Features.Descriptors[i])
	}
	return fs
}

func snapshot(hasAngle bool) *minimap.Snapshot {
	crop := image.NewRGBA(image.Rect(0, 0, 2*cropRadius, 2*cropRadius))
	return &minimap.Snapshot{
		Origin:   crop,
		DelRadar: crop,
		Angle:    90,
		HasAngle: hasAngle,
		Center:   geom.Screen(cropRadius, cropRadius),
	}
}

func TestEstimateRoundTrip(t *testing.T) {
	region := gridRegion()
	tests := []struct {
		name string
		p    geom.WorldPoint
		k    float64
		hint *Hint
	}{
		{"whole map", geom.World(300, 300), 1, nil},
		{"zoomed", geom.World(220, 360), 1.5, nil},
		{"with hint", geom.World(400, 180), 1, &Hint{Pos: geom.World(390, 185), Speed: 35, Elapsed: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(fixedDetector{fs: minimapAt(region, tt.p, tt.k)}, constFilter(true), DefaultParam)
			est, err := l.Estimate(snapshot(true), region, tt.hint)
			if err != nil {
				t.Fatalf("Estimate: %v", err)
			}
			if d := est.Pos.Dist(tt.p); d > 2 {
				t.Errorf("pos = %v, want %v (off by %.2f)", est.Pos, tt.p, d)
			}
			if math.Abs(est.Scale-tt.k) > 1e-9 {
				t.Errorf("scale = %v, want %v", est.Scale, tt.k)
			}
			if est.Angle != 90 || est.Confidence != 1 {
				t.Errorf("angle %v confidence %v", est.Angle, est.Confidence)
			}
		})
	}
}

func TestEstimateTooFewMatches(t *testing.T) {
	region := gridRegion()
	mini := minimapAt(region, geom.World(300, 300), 1).Subset([]int{0, 1, 2})
	l := New(fixedDetector{fs: mini}, constFilter(true), DefaultParam)
	_, err := l.Estimate(snapshot(true), region, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// firstInliers keeps only the first n correspondences.
type firstInliers int

func (f firstInliers) Inliers(query, train []vision.KeyPoint) ([]bool, error) {
	out := make([]bool, len(query))
	for i := 0; i < len(out) && i < int(f); i++ {
		out[i] = true
	}
	return out, nil
}

func TestEstimateInlierCount(t *testing.T) {
	region := gridRegion()
	mini := minimapAt(region, geom.World(300, 300), 1)
	tests := []struct {
		inliers int
		found   bool
	}{
		{0, false},
		{1, false},
		{2, false},
		{3, false},
		{MIN_MATCHES, true},
		{10, true},
	}
	for _, tt := range tests {
		l := New(fixedDetector{fs: mini}, firstInliers(tt.inliers), DefaultParam)
		est, err := l.Estimate(snapshot(true), region, nil)
		if !tt.found {
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("%d inliers: err = %v, want ErrNotFound", tt.inliers, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%d inliers: %v", tt.inliers, err)
			continue
		}
		if est.Inliers != tt.inliers {
			t.Errorf("inliers = %d, want %d", est.Inliers, tt.inliers)
		}
		if d := est.Pos.Dist(geom.World(300, 300)); d > 2 {
			t.Errorf("%d inliers: pos = %v", tt.inliers, est.Pos)
		}
	}
}

func TestEstimateUnknownHeading(t *testing.T) {
	region := gridRegion()
	l := New(fixedDetector{fs: minimapAt(region, geom.World(300, 300), 1)}, constFilter(true), DefaultParam)
	_, err := l.Estimate(snapshot(false), region, nil)
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, minimap.ErrUnknownHeading) {
		t.Fatalf("err = %v, want ErrNotFound wrapping ErrUnknownHeading", err)
	}
}

func TestEstimateNoKeypoints(t *testing.T) {
	region := gridRegion()
	l := New(fixedDetector{}, constFilter(true), DefaultParam)
	if _, err := l.Estimate(snapshot(true), region, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEstimateRejectsJump(t *testing.T) {
	region := gridRegion()
	p := geom.World(300, 300)
	hint := &Hint{Pos: geom.World(450, 300), Speed: 35, Elapsed: 0}
	l := New(fixedDetector{fs: minimapAt(region, p, 1)}, constFilter(true), DefaultParam)
	_, err := l.Estimate(snapshot(true), region, hint)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchWindow(t *testing.T) {
	l := New(nil, nil, DefaultParam)
	w := l.SearchWindow(Hint{Pos: geom.World(100, 100), Speed: 20, Elapsed: 2 * time.Second}, 50)
	want := 20*2 + DefaultParam.WindowMargin + 50
	if w.Max.X-100 != want || 100-w.Min.Y != want {
		t.Errorf("window = %+v, half size want %v", w, want)
	}
}
