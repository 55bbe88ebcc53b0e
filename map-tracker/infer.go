// Copyright (c) 2026 Harry Huang
package maptracker

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/capture"
	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

// Tracker holds the process-wide pieces of position inference.
type Tracker struct {
	Regions    *largemap.Registry
	Analyzer   *minimap.Analyzer
	Locator    *locator.Locator
	Normalizer capture.Normalizer
}

// InferParam is the custom_recognition_param of MapTrackerInfer.
type InferParam struct {
	Region string `json:"region"`
	// Optional last known position narrowing the search.
	Hint *[2]float64 `json:"hint,omitempty"`
	// Minimum confidence, MIN_CONFIDENCE when zero.
	Threshold float64 `json:"threshold,omitempty"`
}

// InferResult is the recognition detail.
type InferResult struct {
	Region     string  `json:"region"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Angle      float64 `json:"angle"`
	Confidence float64 `json:"confidence"`
	Inliers    int     `json:"inliers"`
}

var errNoRegion = errors.New("region is required")

func parseInferParam(raw string) (InferParam, error) {
	var p InferParam
	if strings.TrimSpace(raw) == "" {
		return p, errNoRegion
	}
	if err := sonic.UnmarshalString(raw, &p); err != nil {
		return p, err
	}
	if p.Region == "" {
		return p, errNoRegion
	}
	if p.Threshold <= 0 {
		p.Threshold = MIN_CONFIDENCE
	}
	return p, nil
}

func (p InferParam) hint() *locator.Hint {
	if p.Hint == nil {
		return nil
	}
	return &locator.Hint{
		Pos:     geom.World(p.Hint[0], p.Hint[1]),
		Speed:   HINT_SPEED,
		Elapsed: HINT_ELAPSED_MS * time.Millisecond,
	}
}

// Infer is the MapTrackerInfer custom recognition: it locates the player
// on a region from the minimap of the current frame.
type Infer struct {
	t *Tracker
}

var _ maa.CustomRecognitionRunner = &Infer{}

func NewInfer(t *Tracker) *Infer { return &Infer{t: t} }

// Run implements maa.CustomRecognitionRunner.
func (i *Infer) Run(ctx *maa.Context, arg *maa.CustomRecognitionArg) (*maa.CustomRecognitionResult, bool) {
	p, err := parseInferParam(arg.CustomRecognitionParam)
	if err != nil {
		log.Error().Err(err).Str("raw_param", arg.CustomRecognitionParam).Msg("[MapTracker] Bad parameters")
		return nil, false
	}
	if arg.Img == nil {
		log.Error().Msg("[MapTracker] Empty frame")
		return nil, false
	}
	res, err := i.Locate(arg.Img, p)
	if err != nil {
		log.Debug().Err(err).Str("region", p.Region).Msg("[MapTracker] No position")
		return nil, false
	}
	detail, err := sonic.MarshalString(res)
	if err != nil {
		log.Error().Err(err).Msg("[MapTracker] Failed to encode detail")
		return nil, false
	}
	r := i.t.Analyzer.Geometry().Rect()
	return &maa.CustomRecognitionResult{
		Box:    maa.Rect{r.Min.X, r.Min.Y, r.Dx(), r.Dy()},
		Detail: detail,
	}, true
}

// Locate estimates the player position on a raw frame.
func (i *Infer) Locate(frame image.Image, p InferParam) (InferResult, error) {
	region, err := i.t.Regions.Get(p.Region)
	if err != nil {
		return InferResult{}, err
	}
	snap := i.t.Analyzer.Analyze(i.t.Normalizer.Normalize(frame))
	est, err := i.t.Locator.Estimate(snap, region, p.hint())
	if err != nil {
		return InferResult{}, err
	}
	if est.Confidence < p.Threshold {
		return InferResult{}, fmt.Errorf("%w: confidence %.2f below %.2f", locator.ErrNotFound, est.Confidence, p.Threshold)
	}
	log.Debug().
		Str("region", p.Region).
		Stringer("pos", est.Pos).
		Float64("angle", est.Angle).
		Float64("confidence", est.Confidence).
		Msg("[MapTracker] Located")
	return InferResult{
		Region:     p.Region,
		X:          est.Pos.X,
		Y:          est.Pos.Y,
		Angle:      est.Angle,
		Confidence: est.Confidence,
		Inliers:    est.Inliers,
	}, nil
}
