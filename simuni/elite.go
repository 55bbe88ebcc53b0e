package simuni

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	"github.com/yinghaodang/StarRailAutoProxy/operation"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/route"
)

// STATUS_NO_NEED_REWARD skips the reward chest.
const STATUS_NO_NEED_REWARD = "no need reward"

// EliteRoute is an elite or boss floor: walk to the enemy, beat it, open
// the reward chest.
type EliteRoute struct {
	routeBase
	noIcon bool
}

func NewEliteRoute(env *Env, level LevelType, r *route.Route, region *largemap.Region) *EliteRoute {
	return &EliteRoute{routeBase: newRouteBase(env, level, r, region)}
}

func (r *EliteRoute) reset() {
	r.routeBase.reset()
	r.noIcon = false
}

// beforeRoute looks for the red enemy marker. An empty route gets the
// marker as its first waypoint.
func (r *EliteRoute) beforeRoute(ctx context.Context) operation.Result {
	snap, err := r.env.Scanner.Snapshot(ctx)
	if err != nil {
		return operation.RetryErr(err, ms(r.env.Param.RetryDelay))
	}
	p, ok := r.env.Marker.FindEnemy(snap)
	if !ok {
		r.noIcon = true
		if len(r.route.Ops) == 0 {
			return operation.Retry("no route and no enemy on minimap", ms(r.env.Param.RetryDelay))
		}
		return operation.Success(r.pos)
	}
	if len(r.route.Ops) == 0 {
		r.appendInferred(route.Move(r.markerTarget(snap.Center, p)))
	}
	return operation.Success(r.pos)
}

func (r *EliteRoute) afterRoute(ctx context.Context) operation.Result {
	after := NewEliteAfterRoute(r.env, r.route, r.activeRegion(), r.pos)
	after.OnPos = func(p geom.WorldPoint) { r.pos = p }
	_, err := after.Run(ctx)
	return operation.FromError(r.pos, err)
}

// goNext leaves the universe after the boss.
func (r *EliteRoute) goNext(ctx context.Context) operation.Result {
	if r.level == LevelElite {
		return r.routeBase.goNext(ctx)
	}
	r.logger.Info().Msg("[SimUni] Boss defeated, leaving universe")
	return operation.FromError(r.pos, r.env.Stage.Exit(ctx))
}

// EliteAfterRoute fights the elite at the end of the route and collects
// its reward.
type EliteAfterRoute struct {
	env    *Env
	route  *route.Route
	region *largemap.Region
	pos    geom.WorldPoint

	// MaxReward is how many chests to open; zero skips the chest.
	MaxReward int
	// OnPos receives the final position.
	OnPos func(geom.WorldPoint)

	logger zerolog.Logger
}

func NewEliteAfterRoute(env *Env, r *route.Route, region *largemap.Region, pos geom.WorldPoint) *EliteAfterRoute {
	return &EliteAfterRoute{
		env:       env,
		route:     r,
		region:    region,
		pos:       pos,
		MaxReward: env.Param.MaxReward,
		logger:    log.With().Str("module", "simuni").Str("route", r.ID.String()).Logger(),
	}
}

// Run fights, finds the player again, and takes the reward. It returns the
// final position, which is also passed to OnPos.
func (a *EliteAfterRoute) Run(ctx context.Context) (geom.WorldPoint, error) {
	retries := a.env.Param.PhaseRetries
	if _, err := operation.Run(ctx, "fight_elite", retries, a.fight); err != nil {
		return a.pos, err
	}
	if _, err := operation.Run(ctx, "restore_heading", retries, a.restoreHeading); err != nil {
		return a.pos, err
	}
	if _, err := operation.Run(ctx, "locate_after_fight", retries, a.relocate); err != nil {
		return a.pos, err
	}
	res, err := operation.Run(ctx, "move_to_reward", retries, a.moveToReward)
	if err != nil {
		return a.pos, err
	}
	if res.Status != STATUS_NO_NEED_REWARD {
		if _, err := operation.Run(ctx, "interact_reward", 0, a.interact); err != nil {
			if ctx.Err() != nil {
				return a.pos, err
			}
			a.logger.Warn().Err(err).Msg("[SimUni] Reward interaction failed, continuing")
		} else if _, err := operation.Run(ctx, "collect_reward", retries, a.collect); err != nil {
			return a.pos, err
		}
	}
	a.logger.Info().Stringer("pos", a.pos).Msg("[SimUni] Elite floor done")
	if a.OnPos != nil {
		a.OnPos(a.pos)
	}
	return a.pos, nil
}

func (a *EliteAfterRoute) fight(ctx context.Context) operation.Result {
	return operation.FromError(a.pos, a.env.Stage.FightElite(ctx))
}

// restoreHeading faces the player from the route start toward the elite
// again, since the battle may have turned the camera. A failed turn is
// not fatal.
func (a *EliteAfterRoute) restoreHeading(ctx context.Context) operation.Result {
	if len(a.route.Ops) == 0 || !a.route.Ops[0].HasTarget() {
		return operation.Success(a.pos)
	}
	angle := a.route.Ops[0].Target.Sub(a.route.Start).Angle()
	if err := a.env.Nav.TurnTo(ctx, angle); err != nil {
		if ctx.Err() != nil {
			return operation.FailErr(err)
		}
		a.logger.Warn().Err(err).Float64("angle", angle).Msg("[SimUni] Failed to restore heading")
	}
	return operation.SuccessWait(a.pos, ms(a.env.Param.TurnDelay))
}

// relocate estimates the position again; the fight may have pushed the
// player around. A blind last move leaves nothing to estimate from.
func (a *EliteAfterRoute) relocate(ctx context.Context) operation.Result {
	if last, ok := a.route.LastOp(); ok && last.Kind == route.KindNoPosMove {
		return operation.Success(a.pos)
	}
	hint := &locator.Hint{Pos: a.pos, Speed: a.env.Param.RunSpeed, Elapsed: time.Second}
	est, err := a.env.Nav.Locate(ctx, a.region, hint)
	if err != nil {
		if errors.Is(err, locator.ErrNotFound) {
			return operation.RetryErr(err, ms(a.env.Param.RetryDelay))
		}
		return operation.FailErr(err)
	}
	a.logger.Debug().Stringer("from", a.pos).Stringer("to", est.Pos).Msg("[SimUni] Position after fight")
	a.pos = est.Pos
	return operation.Success(a.pos)
}

func (a *EliteAfterRoute) moveToReward(ctx context.Context) operation.Result {
	if a.MaxReward <= 0 {
		return operation.SuccessStatus(STATUS_NO_NEED_REWARD, a.pos)
	}
	if a.route.Reward == nil {
		return operation.FailErr(fmt.Errorf("route %s: %w", a.route.ID, ErrNoRewardPos))
	}
	end, err := a.env.Nav.MoveWithoutPos(ctx, a.pos, *a.route.Reward, 0)
	if err != nil {
		return operation.FailErr(err)
	}
	a.pos = end
	return operation.Success(a.pos)
}

func (a *EliteAfterRoute) interact(ctx context.Context) operation.Result {
	return operation.FromError(a.pos, a.env.Interactor.Interact(ctx, WORD_REWARD))
}

func (a *EliteAfterRoute) collect(ctx context.Context) operation.Result {
	got, err := a.env.Stage.CollectRewards(ctx, a.MaxReward)
	if err != nil {
		return operation.FailErr(err)
	}
	a.logger.Info().Int("got", got).Int("max", a.MaxReward).Msg("[SimUni] Rewards collected")
	if a.env.OnReward != nil {
		a.env.OnReward(got, a.MaxReward)
	}
	return operation.Success(a.pos)
}
