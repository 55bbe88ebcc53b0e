package simuni

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/operation"
	"github.com/yinghaodang/StarRailAutoProxy/route"
)

// Statuses of the interaction round
const (
	STATUS_INTERACTED = "interacted"
	STATUS_SKIPPED    = "interaction skipped"
)

// InteractRoute is an event, transaction, encounter or respite floor: walk
// to the icon and talk to it.
type InteractRoute struct {
	routeBase
	// noIcon is set when the minimap shows no icon, which usually means
	// the interaction already happened.
	noIcon bool
}

func NewInteractRoute(env *Env, level LevelType, r *route.Route, region *largemap.Region) *InteractRoute {
	return &InteractRoute{routeBase: newRouteBase(env, level, r, region)}
}

func (r *InteractRoute) reset() {
	r.routeBase.reset()
	r.noIcon = false
}

func (r *InteractRoute) beforeRoute(ctx context.Context) operation.Result {
	tmpl, err := r.env.Icons.Icon(r.level.IconID())
	if err != nil {
		return operation.FailErr(fmt.Errorf("%w: %w", ErrAssetMissing, err))
	}
	known, err := r.inferInteractPos(ctx, tmpl)
	if err != nil {
		return operation.RetryErr(err, ms(r.env.Param.RetryDelay))
	}
	if r.level == LevelRespite {
		// Respite floors hide rewards in destructible objects.
		if err := r.env.Fighter.EnterFight(ctx, true); err != nil {
			return operation.FailErr(fmt.Errorf("attack destructibles: %w", err))
		}
	}
	if !known {
		return operation.Retry("no interact position in route and no icon on minimap", ms(r.env.Param.RetryDelay))
	}
	return operation.Success(r.pos)
}

// inferInteractPos looks for the floor icon on the minimap. When the route
// has no operations yet the icon position becomes its first waypoint. It
// reports whether the route knows where to go.
func (r *InteractRoute) inferInteractPos(ctx context.Context, tmpl image.Image) (bool, error) {
	snap, err := r.env.Scanner.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	p, ok, err := r.env.Marker.FindIcon(snap, tmpl, r.env.Param.IconThreshold)
	if err != nil {
		return false, err
	}
	if !ok {
		r.noIcon = true
		r.logger.Info().Msg("[SimUni] No interact icon on minimap")
		return len(r.route.Ops) > 0, nil
	}
	if len(r.route.Ops) == 0 {
		target := r.markerTarget(snap.Center, p)
		op := route.Move(target)
		if r.level == LevelRespite {
			op = route.SlowMove(target)
		}
		r.appendInferred(op)
	}
	return true, nil
}

func (r *InteractRoute) afterRoute(ctx context.Context) operation.Result {
	after := NewInteractAfterRoute(r.env, r.level.InteractWord(), r.noIcon, r.level.CanIgnoreInteract())
	return operation.FromError(r.pos, after.Run(ctx))
}

// InteractAfterRoute talks to the floor target once the route has reached
// it, then plays through the dialog.
type InteractAfterRoute struct {
	env  *Env
	word string
	// noIcon turns a missing prompt into a skip: the interaction most
	// likely happened on an earlier attempt.
	noIcon bool
	// canIgnore turns any failed interaction into a skip.
	canIgnore bool
	logger    zerolog.Logger
}

func NewInteractAfterRoute(env *Env, word string, noIcon, canIgnore bool) *InteractAfterRoute {
	return &InteractAfterRoute{
		env:       env,
		word:      word,
		noIcon:    noIcon,
		canIgnore: canIgnore,
		logger:    log.With().Str("module", "simuni").Str("interact", word).Logger(),
	}
}

func (a *InteractAfterRoute) Run(ctx context.Context) error {
	res, err := operation.Run(ctx, "interact", 0, a.interact)
	if err != nil {
		return err
	}
	if res.Status != STATUS_INTERACTED {
		return nil
	}
	_, err = operation.Run(ctx, "event", 0, a.event)
	return err
}

func (a *InteractAfterRoute) interact(ctx context.Context) operation.Result {
	err := a.env.Interactor.Interact(ctx, a.word)
	if err == nil {
		return operation.Result{
			Kind:   operation.KindSuccess,
			Status: STATUS_INTERACTED,
			Delay:  ms(a.env.Param.EventDelay),
		}
	}
	if ctx.Err() != nil {
		return operation.FailErr(err)
	}
	switch {
	case a.noIcon:
		a.logger.Info().Err(err).Msg("[SimUni] No icon and no prompt, assuming done")
		return operation.SuccessStatus(STATUS_SKIPPED, nil)
	case a.canIgnore:
		a.logger.Info().Err(err).Msg("[SimUni] Interaction failed, skipping")
		return operation.SuccessStatus(STATUS_SKIPPED, nil)
	}
	return operation.FailErr(fmt.Errorf("%w: %q: %w", ErrInteractFailed, a.word, err))
}

func (a *InteractAfterRoute) event(ctx context.Context) operation.Result {
	err := a.env.Stage.HandleEvent(ctx)
	if err != nil && a.canIgnore && ctx.Err() == nil {
		a.logger.Info().Err(err).Msg("[SimUni] Event failed, skipping")
		return operation.SuccessStatus(STATUS_SKIPPED, nil)
	}
	return operation.FromError(nil, err)
}
