package movement

import (
	"context"

	"github.com/yinghaodang/StarRailAutoProxy/capture"
	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
)

// Tracker is the Positioner built on live frames.
type Tracker struct {
	src      capture.Source
	analyzer *minimap.Analyzer
	loc      *locator.Locator
}

func NewTracker(src capture.Source, analyzer *minimap.Analyzer, loc *locator.Locator) *Tracker {
	return &Tracker{src: src, analyzer: analyzer, loc: loc}
}

// Snapshot captures a frame and analyses its minimap.
func (t *Tracker) Snapshot(ctx context.Context) (*minimap.Snapshot, error) {
	frame, err := t.src.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return t.analyzer.Analyze(frame), nil
}

func (t *Tracker) Locate(ctx context.Context, region *largemap.Region, hint *locator.Hint) (locator.Estimate, error) {
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return locator.Estimate{}, err
	}
	return t.loc.Estimate(snap, region, hint)
}

func (t *Tracker) Heading(ctx context.Context) (float64, error) {
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return snap.Heading()
}
