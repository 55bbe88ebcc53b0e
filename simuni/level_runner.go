package simuni

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/operation"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/route"
	"github.com/yinghaodang/StarRailAutoProxy/routerun"
)

// Handler runs one kind of floor. Its phases are executed in order by a
// LevelRunner.
type Handler interface {
	Level() LevelType
	// Pos is the last known position.
	Pos() geom.WorldPoint

	reset()
	beforeRoute(ctx context.Context) operation.Result
	runRoute(ctx context.Context) operation.Result
	afterRoute(ctx context.Context) operation.Result
	goNext(ctx context.Context) operation.Result
}

// NewHandler picks the handler of a floor type.
func NewHandler(env *Env, level LevelType, r *route.Route, region *largemap.Region) Handler {
	switch {
	case level.IsElite():
		return NewEliteRoute(env, level, r, region)
	case level.IsInteract():
		return NewInteractRoute(env, level, r, region)
	default:
		return NewCombatRoute(env, level, r, region)
	}
}

// LevelRunner walks a floor: before-route, route, after-route, next floor.
type LevelRunner struct {
	h       Handler
	retries int
}

func NewLevelRunner(h Handler, retries int) *LevelRunner {
	return &LevelRunner{h: h, retries: retries}
}

// Run executes every phase, retrying a phase that asks for it at most the
// configured number of times. It returns the last known position, also on
// failure.
func (r *LevelRunner) Run(ctx context.Context) (geom.WorldPoint, error) {
	r.h.reset()
	phases := []struct {
		name  string
		round operation.Round
	}{
		{"before_route", r.h.beforeRoute},
		{"run_route", r.h.runRoute},
		{"after_route", r.h.afterRoute},
		{"go_next", r.h.goNext},
	}
	for _, p := range phases {
		if _, err := operation.Run(ctx, p.name, r.retries, p.round); err != nil {
			return r.h.Pos(), fmt.Errorf("%s floor: %w", r.h.Level(), err)
		}
	}
	return r.h.Pos(), nil
}

// routeBase holds what every floor handler shares.
type routeBase struct {
	env    *Env
	level  LevelType
	route  *route.Route
	region *largemap.Region
	runner *routerun.Runner
	pos    geom.WorldPoint
	logger zerolog.Logger
}

func newRouteBase(env *Env, level LevelType, r *route.Route, region *largemap.Region) routeBase {
	runner := routerun.NewRunner(r, region, routerun.Deps{
		Mover:      env.Nav,
		Fighter:    env.Fighter,
		Interactor: env.Interactor,
		Waiter:     env.Waiter,
	})
	runner.OnStep = env.OnStep
	if env.Regions != nil {
		runner.FloorRegion = func(floor int) (*largemap.Region, error) {
			return env.Regions.Get(largemap.FloorID(r.Region, floor))
		}
	}
	return routeBase{
		env:    env,
		level:  level,
		route:  r,
		region: region,
		runner: runner,
		pos:    r.Start,
		logger: log.With().
			Str("module", "simuni").
			Str("level", level.String()).
			Str("route", r.ID.String()).
			Logger(),
	}
}

func (b *routeBase) Level() LevelType { return b.level }
func (b *routeBase) Pos() geom.WorldPoint { return b.pos }

func (b *routeBase) reset() {
	b.pos = b.route.Start
}

func (b *routeBase) beforeRoute(ctx context.Context) operation.Result {
	return operation.Success(b.pos)
}

func (b *routeBase) runRoute(ctx context.Context) operation.Result {
	out, err := b.runner.Execute(ctx)
	b.pos = out.Pos
	if err != nil {
		if serr := b.env.Nav.Stop(); serr != nil {
			b.logger.Warn().Err(serr).Msg("[SimUni] Failed to release movement keys")
		}
		return operation.FailErr(err)
	}
	return operation.Success(b.pos)
}

func (b *routeBase) afterRoute(ctx context.Context) operation.Result {
	return operation.Success(b.pos)
}

func (b *routeBase) goNext(ctx context.Context) operation.Result {
	b.logger.Info().Stringer("pos", b.pos).Msg("[SimUni] Going to next floor")
	return operation.FromError(b.pos, b.env.Stage.NextLevel(ctx, b.level, b.pos))
}

// activeRegion is the map of the floor the route ended on.
func (b *routeBase) activeRegion() *largemap.Region {
	if reg := b.runner.Region(); reg != nil {
		return reg
	}
	return b.region
}

// markerTarget maps a minimap marker to the large map, taking the player
// to stand on the route start.
func (b *routeBase) markerTarget(center, marker geom.ScreenPoint) geom.WorldPoint {
	return geom.CenteredTransform(b.route.Start, center).ToWorld(marker)
}

// appendInferred adds a waypoint found at run time. A failed save is only
// logged; the route keeps the waypoint in memory for this run.
func (b *routeBase) appendInferred(op route.Operation) {
	if err := b.route.AppendInferred(op); err != nil {
		b.logger.Warn().Err(err).Stringer("op", op).Msg("[SimUni] Failed to save inferred waypoint")
	}
}

// CombatRoute is a floor cleared by walking the route and fighting on it.
type CombatRoute struct {
	routeBase
}

func NewCombatRoute(env *Env, level LevelType, r *route.Route, region *largemap.Region) *CombatRoute {
	return &CombatRoute{routeBase: newRouteBase(env, level, r, region)}
}

// beforeRoute casts the technique once per universe when technique fights
// are enabled.
func (c *CombatRoute) beforeRoute(ctx context.Context) operation.Result {
	if !c.env.Param.TechniqueFight || c.env.techniqueUsed {
		return operation.Success(c.pos)
	}
	if err := c.env.Stage.UseTechnique(ctx); err != nil {
		return operation.FailErr(fmt.Errorf("use technique: %w", err))
	}
	c.env.techniqueUsed = true
	return operation.Success(c.pos)
}
