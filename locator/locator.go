// Package locator registers a minimap snapshot against a region's large map
// and turns the registration into a world position.
package locator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
)

// ErrNotFound is returned whenever no trustworthy position can be derived.
var ErrNotFound = errors.New("position not found")

// Minimum correspondences for a homography, both before and after RANSAC
const MIN_MATCHES = 4

// Param tunes the estimator.
type Param struct {
	// Ratio is the nearest / second-nearest descriptor distance cut-off.
	Ratio float64 `mapstructure:"ratio"`
	// WindowMargin widens the search window around the hint, world px.
	WindowMargin float64 `mapstructure:"window_margin"`
	// JumpMargin is the slack of the continuity check, world px.
	JumpMargin float64 `mapstructure:"jump_margin"`
}

var DefaultParam = Param{
	Ratio:        0.75,
	WindowMargin: 30,
	JumpMargin:   40,
}

// Hint is the last known position and how far the player may have gone
// since.
type Hint struct {
	Pos     geom.WorldPoint
	Speed   float64 // world px per second
	Elapsed time.Duration
}

// Reach is the largest plausible displacement from Pos.
func (h Hint) Reach() float64 {
	return h.Speed * h.Elapsed.Seconds()
}

// Estimate is a located player.
type Estimate struct {
	Pos        geom.WorldPoint
	Angle      float64
	Confidence float64
	Scale      float64
	Matches    int
	Inliers    int
}

// Locator estimates positions. It holds no per-call state.
type Locator struct {
	detector vision.FeatureDetector
	matcher  vision.Matcher
	filter   vision.InlierFilter
	param    Param
}

func New(detector vision.FeatureDetector, filter vision.InlierFilter, param Param) *Locator {
	if param.Ratio <= 0 {
		param.Ratio = DefaultParam.Ratio
	}
	return &Locator{
		detector: detector,
		matcher:  vision.BruteForce{},
		filter:   filter,
		param:    param,
	}
}

// WithMatcher replaces the descriptor matcher.
func (l *Locator) WithMatcher(m vision.Matcher) *Locator {
	l.matcher = m
	return l
}

func notFound(reason string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, reason)
}

// SearchWindow is the part of the map that may hold the minimap when the
// player is within reach of the hint.
func (l *Locator) SearchWindow(hint Hint, radius float64) geom.Rect {
	return geom.RectAround(hint.Pos, hint.Reach()+l.param.WindowMargin+radius)
}

// Estimate locates the snapshot on the region. hint may be nil, in which
// case the whole map is searched and no continuity check is applied.
func (l *Locator) Estimate(snap *minimap.Snapshot, region *largemap.Region, hint *Hint) (Estimate, error) {
	if _, err := snap.Heading(); err != nil {
		return Estimate{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	mini, err := l.detector.DetectAndDescribe(snap.DelRadar, snap.CircleMask)
	if err != nil {
		return Estimate{}, fmt.Errorf("minimap feature detection failed: %w", err)
	}
	if mini.Len() == 0 {
		return Estimate{}, notFound("no minimap keypoints")
	}

	var mapFs vision.FeatureSet
	if hint != nil {
		radius := float64(snap.Origin.Bounds().Dx()) / 2
		mapFs, _ = region.Window(l.SearchWindow(*hint, radius))
	} else {
		mapFs = region.Features
	}
	if mapFs.Len() == 0 {
		return Estimate{}, notFound("no map keypoints in window")
	}

	good := vision.RatioTest(l.matcher.KnnMatch(mini.Descriptors, mapFs.Descriptors, 2), l.param.Ratio)
	if len(good) < MIN_MATCHES {
		return Estimate{}, notFound(fmt.Sprintf("only %d good matches", len(good)))
	}

	query := make([]vision.KeyPoint, len(good))
	train := make([]vision.KeyPoint, len(good))
	for i, m := range good {
		query[i] = mini.KeyPoints[m.QueryIdx]
		train[i] = mapFs.KeyPoints[m.TrainIdx]
	}
	mask, err := l.filter.Inliers(query, train)
	if err != nil {
		return Estimate{}, fmt.Errorf("inlier filter failed: %w", err)
	}

	// the inlier with the smallest descriptor distance anchors the result
	best := -1
	inliers := 0
	for i := range good {
		if i >= len(mask) || !mask[i] {
			continue
		}
		inliers++
		if best < 0 || good[i].Distance < good[best].Distance {
			best = i
		}
	}
	if inliers < MIN_MATCHES {
		return Estimate{}, notFound(fmt.Sprintf("only %d inliers", inliers))
	}

	miniKp, mapKp := query[best], train[best]
	scale := 1.0
	if miniKp.Size > 0 {
		scale = mapKp.Size / miniKp.Size
	}
	t := geom.MiniMapTransform{
		Origin: geom.WorldPoint{X: mapKp.X - miniKp.X*scale, Y: mapKp.Y - miniKp.Y*scale},
		Scale:  scale,
	}
	pos := t.ToWorld(snap.Center)

	if hint != nil {
		limit := hint.Reach() + l.param.JumpMargin
		if d := pos.Dist(hint.Pos); d > limit {
			log.Debug().
				Stringer("pos", pos).
				Stringer("hint", hint.Pos).
				Float64("dist", d).
				Float64("limit", limit).
				Msg("[Locator] Rejected jump")
			return Estimate{}, notFound(fmt.Sprintf("jumped %.0f px, limit %.0f", d, limit))
		}
	}

	est := Estimate{
		Pos:        pos,
		Angle:      snap.Angle,
		Confidence: float64(inliers) / float64(len(good)),
		Scale:      scale,
		Matches:    len(good),
		Inliers:    inliers,
	}
	log.Debug().
		Str("region", region.ID).
		Float64("x", math.Round(pos.X)).
		Float64("y", math.Round(pos.Y)).
		Float64("angle", est.Angle).
		Float64("confidence", est.Confidence).
		Msg("[Locator] Estimated")
	return est, nil
}
