// Package control issues synthetic input to the game.
package control

import (
	"errors"
	"fmt"
	"time"

	maa "github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

// Controller is the input collaborator. Gestures are not cancellable once
// started.
type Controller interface {
	Click(p geom.ScreenPoint) error
	Drag(from, to geom.ScreenPoint, d time.Duration) error
	// Turn rotates the camera by a horizontal mouse movement of dx pixels.
	Turn(dx int) error
	KeyDown(key int32) error
	KeyUp(key int32) error
	Hotkey(key int32) error
}

// Camera turn gesture on a 1920x1080 frame
const (
	TURN_CENTER_X     = 960
	TURN_CENTER_Y     = 540
	TURN_DURATION_MS  = 200
	TURN_MAX_DELTA_PX = 800
)

var ErrInputRejected = errors.New("input rejected by controller")

// MaaController drives input through a MaaFramework context.
type MaaController struct {
	ctx *maa.Context
}

func NewMaaController(ctx *maa.Context) *MaaController {
	return &MaaController{ctx: ctx}
}

func (c *MaaController) ctrl() *maa.Controller {
	return c.ctx.GetTasker().GetController()
}

func (c *MaaController) Click(p geom.ScreenPoint) error {
	x, y := p.Round()
	if !c.ctrl().PostClick(int32(x), int32(y)).Wait().Success() {
		return fmt.Errorf("click %v: %w", p, ErrInputRejected)
	}
	return nil
}

func (c *MaaController) Drag(from, to geom.ScreenPoint, d time.Duration) error {
	return c.swipe(from, to, d, false)
}

// Turn hovers the cursor sideways, which the game reads as camera yaw.
func (c *MaaController) Turn(dx int) error {
	dx = max(-TURN_MAX_DELTA_PX, min(TURN_MAX_DELTA_PX, dx))
	if dx == 0 {
		return nil
	}
	from := geom.Screen(TURN_CENTER_X, TURN_CENTER_Y)
	to := geom.Screen(float64(TURN_CENTER_X+dx), TURN_CENTER_Y)
	log.Trace().Int("dx", dx).Msg("[Control] Turn")
	return c.swipe(from, to, TURN_DURATION_MS*time.Millisecond, true)
}

func (c *MaaController) swipe(from, to geom.ScreenPoint, d time.Duration, hover bool) error {
	fx, fy := from.Round()
	tx, ty := to.Round()
	detail, err := c.ctx.RunActionDirect(maa.ActionTypeSwipe, &maa.SwipeParam{
		Begin:     maa.NewTargetRect(maa.Rect{fx, fy, 1, 1}),
		End:       []maa.Target{maa.NewTargetRect(maa.Rect{tx, ty, 1, 1})},
		Duration:  []time.Duration{d},
		OnlyHover: hover,
	}, maa.Rect{0, 0, 0, 0}, nil)
	return actionErr(fmt.Sprintf("swipe %v->%v", from, to), detail, err)
}

// actionErr folds a direct action's outcome into an error. A nil detail or
// an unsuccessful one means the controller dropped the gesture.
func actionErr(op string, detail *maa.ActionDetail, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInputRejected, err)
	}
	if detail == nil || !detail.Success {
		return fmt.Errorf("%s: %w", op, ErrInputRejected)
	}
	return nil
}

func (c *MaaController) KeyDown(key int32) error {
	if !c.ctrl().PostKeyDown(key).Wait().Success() {
		return fmt.Errorf("key down %d: %w", key, ErrInputRejected)
	}
	return nil
}

func (c *MaaController) KeyUp(key int32) error {
	if !c.ctrl().PostKeyUp(key).Wait().Success() {
		return fmt.Errorf("key up %d: %w", key, ErrInputRejected)
	}
	return nil
}

func (c *MaaController) Hotkey(key int32) error {
	if !c.ctrl().PostClickKey(key).Wait().Success() {
		return fmt.Errorf("key %d: %w", key, ErrInputRejected)
	}
	return nil
}
