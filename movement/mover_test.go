package movement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yinghaodang/StarRailAutoProxy/control/controltest"
	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

var testKeys = Keys{Forward: 87, Left: 65, Right: 68, Sprint: 16}

// fakeClock advances by step on every sleep.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		d = c.step
	}
	c.t = c.t.Add(d)
	return nil
}

// walkingPositioner moves a fixed distance toward the target on each call.
type walkingPositioner struct {
	pos     geom.WorldPoint
	target  geom.WorldPoint
	step    float64
	angle   float64
	misses  int
	calls   int
	headErr error
}

func (p *walkingPositioner) Locate(ctx context.Context, region *largemap.Region, hint *locator.Hint) (locator.Estimate, error) {
	p.calls++
	if p.misses > 0 {
		p.misses--
		return locator.Estimate{}, locator.ErrNotFound
	}
	v := p.target.Sub(p.pos)
	if l := v.Len(); l > p.step {
		v = v.Scale(p.step / l)
	}
	p.pos = p.pos.Add(v)
	return locator.Estimate{Pos: p.pos, Angle: p.angle}, nil
}

func (p *walkingPositioner) Heading(ctx context.Context) (float64, error) {
	return p.angle, p.headErr
}

func newTestMover(pos Positioner, rec *controltest.Recorder) (*Mover, *fakeClock) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 100 * time.Millisecond}
	m := NewMover(pos, rec, DEFAULT_MOVING_PARAM).WithKeys(testKeys).WithClock(clock.now, clock.sleep)
	return m, clock
}

func TestMoveDirectlyArrives(t *testing.T) {
	target := geom.World(100, 0)
	pos := &walkingPositioner{pos: geom.World(0, 0), target: target, step: 10, angle: 90, misses: 2}
	rec := &controltest.Recorder{}
	m, _ := newTestMover(pos, rec)

	end, err := m.MoveDirectly(context.Background(), Request{Start: geom.World(0, 0), Target: target, StopAfterwards: true})
	if err != nil {
		t.Fatalf("MoveDirectly: %v", err)
	}
	if end.Dist(target) > DEFAULT_MOVING_PARAM.ArrivalThreshold {
		t.Errorf("end = %v", end)
	}
	if rec.AnyHeld() {
		t.Errorf("keys still held: %v", rec.Held)
	}
	if rec.Count("down 16") != 1 {
		t.Errorf("sprint pressed %d times, want 1", rec.Count("down 16"))
	}
	if rec.Count("turn") != 0 {
		t.Error("turned although facing the target")
	}
}

func TestMoveDirectlyKeepsKeysForNextMove(t *testing.T) {
	target := geom.World(0, -50)
	pos := &walkingPositioner{pos: geom.World(0, 0), target: target, step: 10, angle: 0}
	rec := &controltest.Recorder{}
	m, _ := newTestMover(pos, rec)

	if _, err := m.MoveDirectly(context.Background(), Request{Start: geom.World(0, 0), Target: target, Slow: true}); err != nil {
		t.Fatal(err)
	}
	if !rec.Held[testKeys.Forward] {
		t.Error("forward released although StopAfterwards is false")
	}
	if rec.Held[testKeys.Sprint] {
		t.Error("slow move sprinted")
	}
	_ = m.Stop()
	if rec.AnyHeld() {
		t.Error("Stop left keys held")
	}
}

func TestMoveDirectlyTurnsTowardTarget(t *testing.T) {
	target := geom.World(100, 0)
	pos := &walkingPositioner{pos: geom.World(0, 0), target: target, step: 20, angle: 0}
	rec := &controltest.Recorder{}
	m, _ := newTestMover(pos, rec)
	if _, err := m.MoveDirectly(context.Background(), Request{Target: target, StopAfterwards: true}); err != nil {
		t.Fatal(err)
	}
	if rec.Turned <= 0 {
		t.Errorf("turned %d px, want a clockwise turn", rec.Turned)
	}
}

func TestMoveDirectlyStuck(t *testing.T) {
	pos := &walkingPositioner{pos: geom.World(0, 0), target: geom.World(0, 0), step: 0, angle: 90}
	rec := &controltest.Recorder{}
	m, _ := newTestMover(pos, rec)
	_, err := m.MoveDirectly(context.Background(), Request{Target: geom.World(100, 0), StopAfterwards: true})
	if !errors.Is(err, ErrStuck) {
		t.Fatalf("err = %v, want ErrStuck", err)
	}
	if rec.Count("down 65")+rec.Count("down 68") == 0 {
		t.Error("no escape attempted")
	}
	if rec.AnyHeld() {
		t.Error("keys held after failure")
	}
}

func TestMoveDirectlyLosesPosition(t *testing.T) {
	pos := &walkingPositioner{misses: 1000}
	rec := &controltest.Recorder{}
	m, _ := newTestMover(pos, rec)
	_, err := m.MoveDirectly(context.Background(), Request{Target: geom.World(100, 0)})
	if !errors.Is(err, locator.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if pos.calls != DEFAULT_MOVING_PARAM.MaxNotFound+1 {
		t.Errorf("calls = %d", pos.calls)
	}
}

// driftedPositioner reports a true position away from the start and rejects
// fixes outside the hint's reach the way the locator does.
type driftedPositioner struct {
	walkingPositioner
	rejected int
}

func (p *driftedPositioner) Locate(ctx context.Context, region *largemap.Region, hint *locator.Hint) (locator.Estimate, error) {
	if hint != nil && p.pos.Dist(hint.Pos) > hint.Reach()+locator.DefaultParam.JumpMargin {
		p.calls++
		p.rejected++
		return locator.Estimate{}, locator.ErrNotFound
	}
	return p.walkingPositioner.Locate(ctx, region, hint)
}

func TestMoveDirectlyAcceptsDriftedStart(t *testing.T) {
	// 35 px/s * 0.2 s per miss: the reach covers 60 px after three misses
	cases := []struct {
		name     string
		offset   float64
		rejected int
		ok       bool
	}{
		{"within margin", 30, 0, true},
		{"60px off", 60, 3, true},
		{"beyond reach", 200, DEFAULT_MOVING_PARAM.MaxNotFound + 1, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			target := geom.World(150, 0)
			pos := &driftedPositioner{walkingPositioner: walkingPositioner{
				pos: geom.World(c.offset, 0), target: target, step: 10, angle: 90,
			}}
			m, _ := newTestMover(pos, &controltest.Recorder{})

			end, err := m.MoveDirectly(context.Background(), Request{Start: geom.World(0, 0), Target: target, StopAfterwards: true})
			if pos.rejected != c.rejected {
				t.Errorf("rejected = %d, want %d", pos.rejected, c.rejected)
			}
			if !c.ok {
				if !errors.Is(err, locator.ErrNotFound) {
					t.Fatalf("err = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MoveDirectly: %v", err)
			}
			if end.Dist(target) > DEFAULT_MOVING_PARAM.ArrivalThreshold {
				t.Errorf("end = %v", end)
			}
		})
	}
}

func TestMoveDirectlyTimeout(t *testing.T) {
	// slow progress, never stuck, never arriving in time
	target := geom.World(100000, 0)
	pos := &walkingPositioner{pos: geom.World(0, 0), target: target, step: 3, angle: 90}
	m, _ := newTestMover(pos, &controltest.Recorder{})
	_, err := m.MoveDirectly(context.Background(), Request{Target: target})
	if !errors.Is(err, ErrMoveTimeout) {
		t.Fatalf("err = %v, want ErrMoveTimeout", err)
	}
}

func TestMoveDirectlyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, _ := newTestMover(&walkingPositioner{}, &controltest.Recorder{})
	if _, err := m.MoveDirectly(ctx, Request{Target: geom.World(1, 1)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestMoveWithoutPos(t *testing.T) {
	pos := &walkingPositioner{angle: 90}
	rec := &controltest.Recorder{}
	m, clock := newTestMover(pos, rec)
	start := clock.now()

	end, err := m.MoveWithoutPos(context.Background(), geom.World(0, 0), geom.World(70, 0), 0)
	if err != nil {
		t.Fatal(err)
	}
	if end != geom.World(70, 0) {
		t.Errorf("end = %v", end)
	}
	if walked := clock.now().Sub(start); walked != 2*time.Second {
		t.Errorf("walked %s, want 2s at run speed", walked)
	}
	if rec.AnyHeld() {
		t.Error("forward still held")
	}
}

func TestTurnToUnknownHeading(t *testing.T) {
	pos := &walkingPositioner{headErr: minimap.ErrUnknownHeading}
	m, _ := newTestMover(pos, &controltest.Recorder{})
	if err := m.TurnTo(context.Background(), 90); !errors.Is(err, minimap.ErrUnknownHeading) {
		t.Fatalf("err = %v", err)
	}
}
