package simuni

import (
	"context"
	"fmt"
	"strings"
	"sync"

	maa "github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/capture"
	"github.com/yinghaodang/StarRailAutoProxy/control"
	"github.com/yinghaodang/StarRailAutoProxy/keymap"
	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
	"github.com/yinghaodang/StarRailAutoProxy/movement"
	"github.com/yinghaodang/StarRailAutoProxy/ocr"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/maafocus"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
	"github.com/yinghaodang/StarRailAutoProxy/route"
	"github.com/yinghaodang/StarRailAutoProxy/routerun"
)

// Assets are the process-wide pieces a route run is built from.
type Assets struct {
	Registry    *largemap.Registry
	RouteDir    string
	Icons       Icons
	Detector    vision.FeatureDetector
	Filter      vision.InlierFilter
	Matcher     vision.TemplateMatcher
	Descriptors vision.Matcher
	Geometry    minimap.Geometry
	Normalizer  capture.Normalizer
	Locator     locator.Param
	Movement    movement.Param
	Param       Param
	Nodes       StageNodes
	// Author is recorded on routes that gain an inferred waypoint.
	Author string
}

type runRouteParam struct {
	Route       string `json:"route"`
	Level       string `json:"level"`
	MaxReward   *int   `json:"max_reward,omitempty"`
	NewUniverse bool   `json:"new_universe"`
}

func parseRunRouteParam(raw string) (runRouteParam, error) {
	var p runRouteParam
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return p, fmt.Errorf("custom_action_param is empty")
	}
	if err := sonic.UnmarshalString(raw, &p); err != nil {
		return p, fmt.Errorf("failed to parse custom_action_param: %w", err)
	}
	if p.Route == "" {
		return p, fmt.Errorf("route is required")
	}
	if p.Level == "" {
		p.Level = LevelCombat.String()
	}
	return p, nil
}

// RunRoute runs the route of one floor.
// custom_action_param:
//
//	{"route": "<region>_<waypoint>_<variant>", "level": "elite", "max_reward": 1, "new_universe": false}
type RunRoute struct {
	assets *Assets

	// Per universe state survives between floors.
	mu            sync.Mutex
	techniqueUsed bool
}

var _ maa.CustomActionRunner = (*RunRoute)(nil)

func NewRunRoute(assets *Assets) *RunRoute {
	return &RunRoute{assets: assets}
}

func (a *RunRoute) Run(ctx *maa.Context, arg *maa.CustomActionArg) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := parseRunRouteParam(arg.CustomActionParam)
	if err != nil {
		log.Error().Err(err).Str("raw_param", arg.CustomActionParam).Msg("[SimUni] Bad parameters")
		return false
	}

	r, region, level, err := a.load(p)
	if err != nil {
		log.Error().Err(err).Str("route", p.Route).Msg("[SimUni] Failed to load route")
		return false
	}

	env := a.newEnv(ctx)
	if p.MaxReward != nil {
		env.Param.MaxReward = *p.MaxReward
	}
	env.techniqueUsed = a.techniqueUsed
	if p.NewUniverse {
		env.NewUniverse()
	}
	total := len(r.Ops)
	env.OnStep = func(ev routerun.StepEvent) {
		maafocus.Printf(ctx, "%s %d/%d %s", r.ID, ev.Index+1, total, ev.Op.Kind)
	}
	env.OnReward = func(got, max int) {
		maafocus.Printf(ctx, "%s reward %d/%d", r.ID, got, max)
	}

	pos, err := NewLevelRunner(NewHandler(env, level, r, region), env.Param.PhaseRetries).Run(context.Background())
	a.techniqueUsed = env.techniqueUsed
	if err != nil {
		log.Error().Err(err).Str("route", r.ID.String()).Stringer("pos", pos).Msg("[SimUni] Floor failed")
		return false
	}
	if total == 0 && len(r.Ops) > 0 {
		if err := r.AddAuthor(a.assets.Author, true); err != nil {
			log.Warn().Err(err).Msg("[SimUni] Failed to record author")
		}
	}
	log.Info().Str("route", r.ID.String()).Stringer("pos", pos).Msg("[SimUni] Floor done")
	return true
}

func (a *RunRoute) load(p runRouteParam) (*route.Route, *largemap.Region, LevelType, error) {
	level, err := ParseLevelType(p.Level)
	if err != nil {
		return nil, nil, 0, err
	}
	id, err := route.ParseID(p.Route)
	if err != nil {
		return nil, nil, 0, err
	}
	path, err := route.FindFile(a.assets.RouteDir, id)
	if err != nil {
		return nil, nil, 0, err
	}
	r, err := route.Load(path)
	if err != nil {
		return nil, nil, 0, err
	}
	region, err := a.assets.Registry.Get(r.Region)
	if err != nil {
		return nil, nil, 0, err
	}
	return r, region, level, nil
}

// newEnv wires the collaborators of one run to the MaaFramework context.
func (a *RunRoute) newEnv(ctx *maa.Context) *Env {
	ctrl := control.NewMaaController(ctx)
	src := capture.Normalized{
		Source:     capture.NewMaaSource(ctx.GetTasker().GetController()),
		Normalizer: a.assets.Normalizer,
	}
	analyzer := minimap.NewAnalyzer(a.assets.Geometry, a.assets.Matcher)
	loc := locator.New(a.assets.Detector, a.assets.Filter, a.assets.Locator)
	if a.assets.Descriptors != nil {
		loc.WithMatcher(a.assets.Descriptors)
	}
	tracker := movement.NewTracker(src, analyzer, loc)
	mover := movement.NewMover(tracker, ctrl, a.assets.Movement)
	stage := NewPipelineStage(ctx, a.assets.Nodes)
	return &Env{
		Nav:        mover,
		Scanner:    tracker,
		Marker:     analyzer,
		Icons:      a.assets.Icons,
		Regions:    a.assets.Registry,
		Fighter:    stage,
		Interactor: NewOCRInteractor(src, ocr.NewMaaRecognizer(ctx), ctrl, keymap.GetKeyCode("Interact")),
		Waiter:     NewScreenWaiter(tracker),
		Stage:      stage,
		Param:      a.assets.Param,
	}
}
