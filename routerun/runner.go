// Package routerun executes a route operation by operation.
package routerun

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/movement"
	"github.com/yinghaodang/StarRailAutoProxy/operation"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/route"
)

// Mover walks the player.
type Mover interface {
	MoveDirectly(ctx context.Context, req movement.Request) (geom.WorldPoint, error)
	MoveWithoutPos(ctx context.Context, start, target geom.WorldPoint, d time.Duration) (geom.WorldPoint, error)
}

// Fighter starts a battle. disposable attacks a destructible object
// instead of an enemy.
type Fighter interface {
	EnterFight(ctx context.Context, disposable bool) error
}

// Interactor presses the interact key on a prompt showing text.
type Interactor interface {
	Interact(ctx context.Context, text string) error
}

// Waiter blocks until a condition of the given kind holds.
type Waiter interface {
	Wait(ctx context.Context, kind, value string) error
}

// Deps are the collaborators the runner dispatches to.
type Deps struct {
	Mover      Mover
	Fighter    Fighter
	Interactor Interactor
	Waiter     Waiter
}

// State of the execution loop.
type State int

const (
	StateSelectOperation State = iota
	StateDispatch
	StateAwaitResult
	StateAdvance
	StateReportFailure
	StateAllOperationsDone
)

func (s State) String() string {
	switch s {
	case StateSelectOperation:
		return "SelectOperation"
	case StateDispatch:
		return "Dispatch"
	case StateAwaitResult:
		return "AwaitResult"
	case StateAdvance:
		return "Advance"
	case StateReportFailure:
		return "ReportFailure"
	case StateAllOperationsDone:
		return "AllOperationsDone"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StepEvent describes a finished operation.
type StepEvent struct {
	RunID string
	Index int
	Op    route.Operation
	Pos   geom.WorldPoint
}

// Outcome is the result of a whole run.
type Outcome struct {
	RunID string
	Pos   geom.WorldPoint
	Floor int
	Steps int
}

// Runner is a re-entrant route executor. One instance may run its route
// many times; every Execute starts from the route start.
type Runner struct {
	route  *route.Route
	region *largemap.Region
	deps   Deps

	// OnStep observes each completed operation.
	OnStep func(StepEvent)
	// FloorRegion resolves the region of another floor after a Move that
	// changes floor. When nil the active region is kept.
	FloorRegion func(floor int) (*largemap.Region, error)

	runID  string
	idx    int
	pos    geom.WorldPoint
	floor  int
	active *largemap.Region
	state  State
	steps  int
	logger zerolog.Logger
}

func NewRunner(r *route.Route, region *largemap.Region, deps Deps) *Runner {
	run := &Runner{route: r, region: region, deps: deps}
	run.Reset()
	return run
}

// Reset rewinds to before the first operation.
func (r *Runner) Reset() {
	r.runID = uuid.NewString()
	r.idx = -1
	r.pos = r.route.Start
	r.floor = r.route.Floor
	r.active = r.region
	r.state = StateSelectOperation
	r.steps = 0
	r.logger = log.With().
		Str("module", "routerun").
		Str("run_id", r.runID).
		Str("route", r.route.ID.String()).
		Logger()
}

func (r *Runner) State() State { return r.state }

// Pos is the last known position.
func (r *Runner) Pos() geom.WorldPoint { return r.pos }

// Region is the map of the floor the player is on.
func (r *Runner) Region() *largemap.Region { return r.active }

// Index of the current operation, -1 before the first.
func (r *Runner) Index() int { return r.idx }

// Execute runs every operation in order. Cancellation is honoured between
// operations only.
func (r *Runner) Execute(ctx context.Context) (Outcome, error) {
	r.Reset()
	r.logger.Info().Int("ops", len(r.route.Ops)).Stringer("start", r.pos).Msg("[RouteRun] Start")
	for {
		r.state = StateSelectOperation
		r.idx++
		if r.idx >= len(r.route.Ops) {
			r.state = StateAllOperationsDone
			r.logger.Info().Stringer("pos", r.pos).Int("steps", r.steps).Msg("[RouteRun] All operations done")
			return r.outcome(), nil
		}
		if err := ctx.Err(); err != nil {
			r.state = StateReportFailure
			return r.outcome(), err
		}

		op := r.route.Ops[r.idx]
		var next *route.Operation
		if r.idx+1 < len(r.route.Ops) {
			next = &r.route.Ops[r.idx+1]
		}

		r.state = StateDispatch
		res := r.dispatch(ctx, op, next)

		r.state = StateAwaitResult
		if res.Kind != operation.KindSuccess {
			r.state = StateReportFailure
			err := res.Err
			if err == nil {
				err = fmt.Errorf("%w: %s", operation.ErrFailed, res.Reason)
			}
			r.logger.Error().Err(err).Int("index", r.idx).Stringer("op", op).Msg("[RouteRun] Operation failed")
			return r.outcome(), fmt.Errorf("route %s op %d (%s): %w", r.route.ID, r.idx, op.Kind, err)
		}
		if p, ok := res.Payload.(geom.WorldPoint); ok {
			r.pos = p
		}

		r.state = StateAdvance
		r.steps++
		r.logger.Debug().Int("index", r.idx).Stringer("op", op).Stringer("pos", r.pos).Msg("[RouteRun] Operation done")
		if r.OnStep != nil {
			r.OnStep(StepEvent{RunID: r.runID, Index: r.idx, Op: op, Pos: r.pos})
		}
	}
}

func (r *Runner) outcome() Outcome {
	return Outcome{RunID: r.runID, Pos: r.pos, Floor: r.floor, Steps: r.steps}
}

func (r *Runner) dispatch(ctx context.Context, op route.Operation, next *route.Operation) operation.Result {
	switch op.Kind {
	case route.KindMove, route.KindSlowMove:
		end, err := r.deps.Mover.MoveDirectly(ctx, movement.Request{
			Region:         r.active,
			Start:          r.pos,
			Target:         op.Target,
			StopAfterwards: next == nil || !next.IsMove(),
			Slow:           op.Kind == route.KindSlowMove,
			NoBattle:       r.route.NoBattle(),
		})
		if err != nil {
			return operation.FailErr(err)
		}
		if op.HasFloor && op.Floor != r.floor {
			if err := r.changeFloor(op.Floor); err != nil {
				return operation.FailErr(err)
			}
		}
		return operation.Success(end)
	case route.KindNoPosMove:
		return operation.FromError(r.deps.Mover.MoveWithoutPos(ctx, r.pos, op.Target, op.Duration))
	case route.KindPatrol, route.KindDisposable:
		if err := r.deps.Fighter.EnterFight(ctx, op.Kind == route.KindDisposable); err != nil {
			return operation.FailErr(err)
		}
		return operation.Success(r.pos)
	case route.KindInteract:
		if err := r.deps.Interactor.Interact(ctx, op.Text); err != nil {
			return operation.FailErr(err)
		}
		return operation.Success(r.pos)
	case route.KindWait:
		if err := r.deps.Waiter.Wait(ctx, op.WaitKind, op.WaitValue); err != nil {
			return operation.FailErr(err)
		}
		return operation.Success(r.pos)
	case route.KindUpdatePos:
		if op.HasFloor && op.Floor != r.floor {
			if err := r.changeFloor(op.Floor); err != nil {
				return operation.FailErr(err)
			}
		}
		return operation.Success(op.Target)
	}
	return operation.Fail(fmt.Sprintf("unknown operation kind %d", int(op.Kind)))
}

func (r *Runner) changeFloor(floor int) error {
	r.floor = floor
	if r.FloorRegion == nil {
		return nil
	}
	reg, err := r.FloorRegion(floor)
	if err != nil {
		return fmt.Errorf("switch to floor %d: %w", floor, err)
	}
	r.active = reg
	r.logger.Info().Int("floor", floor).Str("region", reg.ID).Msg("[RouteRun] Floor changed")
	return nil
}
