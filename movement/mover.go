// Package movement walks the player between world points with continuous
// position feedback.
package movement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/control"
	"github.com/yinghaodang/StarRailAutoProxy/keymap"
	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	"github.com/yinghaodang/StarRailAutoProxy/operation"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

var (
	ErrMoveTimeout = errors.New("move timed out")
	ErrStuck       = errors.New("player stuck")
)

var moveLog zerolog.Logger = log.With().Str("module", "movement").Logger()

// Positioner reports where the player is and where it faces.
type Positioner interface {
	Locate(ctx context.Context, region *largemap.Region, hint *locator.Hint) (locator.Estimate, error)
	Heading(ctx context.Context) (float64, error)
}

// Keys are the key codes used while walking.
type Keys struct {
	Forward int32
	Left    int32
	Right   int32
	Sprint  int32
}

// DefaultKeys reads the current key bindings.
func DefaultKeys() Keys {
	return Keys{
		Forward: keymap.GetKeyCode("Move_W"),
		Left:    keymap.GetKeyCode("Move_A"),
		Right:   keymap.GetKeyCode("Move_D"),
		Sprint:  keymap.GetKeyCode("Sprint"),
	}
}

// Request describes one walk.
type Request struct {
	Region *largemap.Region
	Start  geom.WorldPoint
	Target geom.WorldPoint
	// StopAfterwards releases the movement keys on arrival. Consecutive
	// moves leave them held so the player keeps running.
	StopAfterwards bool
	Slow           bool
	NoBattle       bool
}

// Mover owns the movement keys while a walk is in progress.
type Mover struct {
	pos   Positioner
	ctrl  control.Controller
	param Param
	keys  Keys
	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	w walker
}

func NewMover(pos Positioner, ctrl control.Controller, param Param) *Mover {
	m := &Mover{
		pos:   pos,
		ctrl:  ctrl,
		param: param,
		keys:  DefaultKeys(),
		now:   time.Now,
		sleep: operation.Sleep,
	}
	m.w = walker{ctrl: ctrl, keys: m.keys}
	return m
}

// WithClock replaces the time source and the sleep function.
func (m *Mover) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *Mover {
	m.now = now
	m.sleep = sleep
	return m
}

// WithKeys replaces the key codes.
func (m *Mover) WithKeys(k Keys) *Mover {
	m.keys = k
	m.w.keys = k
	return m
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Locate forwards to the positioner.
func (m *Mover) Locate(ctx context.Context, region *largemap.Region, hint *locator.Hint) (locator.Estimate, error) {
	return m.pos.Locate(ctx, region, hint)
}

// Stop releases every movement key.
func (m *Mover) Stop() error { return m.w.release() }

// MoveDirectly walks to req.Target, re-estimating the position every
// InferInterval. It returns the last estimated position.
func (m *Mover) MoveDirectly(ctx context.Context, req Request) (geom.WorldPoint, error) {
	p := m.param
	speed := p.RunSpeed
	if req.Slow {
		speed = p.WalkSpeed
	}
	start := m.now()
	pos := req.Start
	lastFix := start
	progressPos, lastProgress, lastEscape := pos, start, start
	escapeLeft := true
	notFound := 0

	moveLog.Info().
		Stringer("from", req.Start).
		Stringer("to", req.Target).
		Bool("slow", req.Slow).
		Bool("stop", req.StopAfterwards).
		Msg("[Move] Start")

	fail := func(err error) (geom.WorldPoint, error) {
		if rerr := m.w.release(); rerr != nil {
			moveLog.Warn().Err(rerr).Msg("[Move] Failed to release keys")
		}
		return pos, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		now := m.now()
		if now.Sub(start) > ms(p.ArrivalTimeout) {
			return fail(fmt.Errorf("move to %v: %w", req.Target, ErrMoveTimeout))
		}

		est, err := m.pos.Locate(ctx, req.Region, &locator.Hint{Pos: pos, Speed: speed, Elapsed: now.Sub(lastFix)})
		if err != nil {
			if !errors.Is(err, locator.ErrNotFound) {
				return fail(err)
			}
			// Continuity rejections land here too. lastFix stays put, so the
			// hint's reach grows each miss until a drifted fix is accepted.
			notFound++
			if notFound > p.MaxNotFound {
				return fail(fmt.Errorf("move to %v: lost position %d times: %w", req.Target, notFound, err))
			}
			moveLog.Debug().Err(err).Int("count", notFound).Msg("[Move] Position not found")
			if err := m.sleep(ctx, ms(p.InferInterval)); err != nil {
				return fail(err)
			}
			continue
		}
		notFound = 0
		pos = est.Pos
		lastFix = now

		dist := pos.Dist(req.Target)
		if dist <= p.ArrivalThreshold {
			if req.StopAfterwards {
				if err := m.w.release(); err != nil {
					return pos, err
				}
			}
			moveLog.Info().Stringer("pos", pos).Msg("[Move] Arrived")
			return pos, nil
		}

		if pos.Dist(progressPos) > STUCK_EPSILON {
			progressPos, lastProgress = pos, now
		} else {
			idle := now.Sub(lastProgress)
			if idle > ms(p.StuckTimeout) {
				return fail(fmt.Errorf("move to %v: no progress for %s: %w", req.Target, idle, ErrStuck))
			}
			if idle > ms(p.StuckThreshold) && now.Sub(lastEscape) > ms(p.StuckThreshold) {
				moveLog.Warn().Stringer("pos", pos).Dur("idle", idle).Msg("[Move] Stuck, trying to escape")
				if err := m.escape(ctx, escapeLeft); err != nil {
					return fail(err)
				}
				escapeLeft = !escapeLeft
				lastEscape = now
			}
		}

		if err := m.steer(est.Angle, req.Target.Sub(pos).Angle(), !req.Slow && dist > p.SprintThreshold); err != nil {
			return fail(err)
		}
		if err := m.sleep(ctx, ms(p.InferInterval)); err != nil {
			return fail(err)
		}
	}
}

// steer turns toward want and keeps walking unless the turn is too sharp.
func (m *Mover) steer(heading, want float64, sprint bool) error {
	delta := geom.AngleDelta(heading, want)
	abs := math.Abs(delta)
	if abs > m.param.RotationUpperThreshold {
		if err := m.w.stopForward(); err != nil {
			return err
		}
	}
	if abs > m.param.RotationLowerThreshold {
		if err := m.ctrl.Turn(int(math.Round(delta * m.param.RotationSpeed))); err != nil {
			return err
		}
	}
	if abs <= m.param.RotationUpperThreshold {
		if err := m.w.forward(); err != nil {
			return err
		}
		if sprint {
			return m.w.sprint()
		}
	}
	return nil
}

// escape side-steps around whatever blocks the player.
func (m *Mover) escape(ctx context.Context, left bool) error {
	key := m.keys.Right
	if left {
		key = m.keys.Left
	}
	if err := m.w.release(); err != nil {
		return err
	}
	if err := m.ctrl.KeyDown(key); err != nil {
		return err
	}
	serr := m.sleep(ctx, 500*time.Millisecond)
	if err := m.ctrl.KeyUp(key); err != nil {
		return err
	}
	return serr
}

// TurnTo rotates the camera until the player faces angle.
func (m *Mover) TurnTo(ctx context.Context, angle float64) error {
	deadline := m.now().Add(ms(m.param.RotationTimeout))
	for {
		heading, err := m.pos.Heading(ctx)
		if err != nil {
			return fmt.Errorf("turn to %.0f: %w", angle, err)
		}
		delta := geom.AngleDelta(heading, angle)
		if math.Abs(delta) <= m.param.RotationLowerThreshold {
			return nil
		}
		if m.now().After(deadline) {
			return fmt.Errorf("turn to %.0f: %w", angle, ErrMoveTimeout)
		}
		step := math.Max(-MAX_TURN_STEP_DEG, math.Min(MAX_TURN_STEP_DEG, delta))
		if err := m.ctrl.Turn(int(math.Round(step * m.param.RotationSpeed))); err != nil {
			return err
		}
		if err := m.sleep(ctx, ms(m.param.InferInterval)); err != nil {
			return err
		}
	}
}

// MoveWithoutPos walks from start toward target blind, for d or, when d is
// zero, for as long as running the distance takes. It reports target as the
// end position.
func (m *Mover) MoveWithoutPos(ctx context.Context, start, target geom.WorldPoint, d time.Duration) (geom.WorldPoint, error) {
	if err := m.TurnTo(ctx, target.Sub(start).Angle()); err != nil {
		return start, err
	}
	if d <= 0 && m.param.RunSpeed > 0 {
		d = time.Duration(start.Dist(target) / m.param.RunSpeed * float64(time.Second))
	}
	moveLog.Info().
		Stringer("from", start).
		Stringer("to", target).
		Dur("duration", d).
		Msg("[Move] Blind walk")
	if err := m.w.forward(); err != nil {
		return start, err
	}
	serr := m.sleep(ctx, d)
	if err := m.w.release(); err != nil {
		return start, err
	}
	if serr != nil {
		return start, serr
	}
	return target, nil
}

// walker remembers which movement keys are held.
type walker struct {
	ctrl      control.Controller
	keys      Keys
	forwardOn bool
	sprintOn  bool
}

func (w *walker) forward() error {
	if w.forwardOn {
		return nil
	}
	if err := w.ctrl.KeyDown(w.keys.Forward); err != nil {
		return err
	}
	w.forwardOn = true
	return nil
}

func (w *walker) sprint() error {
	if w.sprintOn {
		return nil
	}
	if err := w.ctrl.KeyDown(w.keys.Sprint); err != nil {
		return err
	}
	w.sprintOn = true
	return nil
}

func (w *walker) stopForward() error {
	if w.sprintOn {
		if err := w.ctrl.KeyUp(w.keys.Sprint); err != nil {
			return err
		}
		w.sprintOn = false
	}
	if w.forwardOn {
		if err := w.ctrl.KeyUp(w.keys.Forward); err != nil {
			return err
		}
		w.forwardOn = false
	}
	return nil
}

func (w *walker) release() error { return w.stopForward() }
