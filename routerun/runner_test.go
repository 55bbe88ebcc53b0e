package routerun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/movement"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/route"
)

type fakeMover struct {
	requests []movement.Request
	blind    int
	fail     error
}

func (m *fakeMover) MoveDirectly(ctx context.Context, req movement.Request) (geom.WorldPoint, error) {
	m.requests = append(m.requests, req)
	if m.fail != nil {
		return req.Start, m.fail
	}
	// arrive slightly off target, as a real walk does
	return req.Target.Add(geom.Vec{X: 1}), nil
}

func (m *fakeMover) MoveWithoutPos(ctx context.Context, start, target geom.WorldPoint, d time.Duration) (geom.WorldPoint, error) {
	m.blind++
	return target, nil
}

type fakeActions struct {
	fights    []bool
	interacts []string
	waits     []string
	cancel    context.CancelFunc
}

func (a *fakeActions) EnterFight(ctx context.Context, disposable bool) error {
	a.fights = append(a.fights, disposable)
	return nil
}

func (a *fakeActions) Interact(ctx context.Context, text string) error {
	a.interacts = append(a.interacts, text)
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}

func (a *fakeActions) Wait(ctx context.Context, kind, value string) error {
	a.waits = append(a.waits, kind+":"+value)
	return nil
}

func newRunner(r *route.Route, m *fakeMover, a *fakeActions) *Runner {
	return NewRunner(r, &largemap.Region{ID: "test"}, Deps{Mover: m, Fighter: a, Interactor: a, Waiter: a})
}

func sampleRoute() *route.Route {
	return &route.Route{
		ID:    route.ID{Region: "test", Waypoint: "a"},
		Start: geom.World(0, 0),
		Ops: []route.Operation{
			route.Move(geom.World(10, 0)),
			route.SlowMove(geom.World(20, 0)),
			route.Patrol(),
			route.Move(geom.World(30, 0)),
			route.Interact("事件"),
			route.NoPosMove(geom.World(40, 0), 0),
			route.Wait(route.WAIT_SECONDS, "1"),
			route.Disposable(),
		},
	}
}

func TestExecuteRunsEveryOperation(t *testing.T) {
	r := sampleRoute()
	m, a := &fakeMover{}, &fakeActions{}
	run := newRunner(r, m, a)

	var steps []int
	run.OnStep = func(e StepEvent) { steps = append(steps, e.Index) }

	out, err := run.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Steps != len(r.Ops) || len(steps) != len(r.Ops) {
		t.Errorf("steps = %d / %v, want %d", out.Steps, steps, len(r.Ops))
	}
	if out.Pos != geom.World(40, 0) {
		t.Errorf("final pos = %v, want the blind move target", out.Pos)
	}
	if run.State() != StateAllOperationsDone {
		t.Errorf("state = %v", run.State())
	}
	if len(a.fights) != 2 || a.fights[0] || !a.fights[1] {
		t.Errorf("fights = %v", a.fights)
	}
	if len(a.interacts) != 1 || len(a.waits) != 1 || m.blind != 1 {
		t.Errorf("interacts %v waits %v blind %d", a.interacts, a.waits, m.blind)
	}
	// each move starts from the end of the previous step
	if m.requests[1].Start != geom.World(11, 0) {
		t.Errorf("second move starts at %v", m.requests[1].Start)
	}
	if m.requests[1].Slow != true || m.requests[0].Slow {
		t.Error("slow flags wrong")
	}
}

func TestMoveFusionFlags(t *testing.T) {
	r := sampleRoute()
	m := &fakeMover{}
	if _, err := newRunner(r, m, &fakeActions{}).Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	// move -> slow_move keeps running; slow_move -> patrol stops;
	// move -> interact stops
	want := []bool{false, true, true}
	if len(m.requests) != len(want) {
		t.Fatalf("moves = %d", len(m.requests))
	}
	for i, w := range want {
		if m.requests[i].StopAfterwards != w {
			t.Errorf("move %d StopAfterwards = %v, want %v", i, m.requests[i].StopAfterwards, w)
		}
	}
	if m.requests[0].NoBattle {
		t.Error("route with fights flagged as no battle")
	}
}

func TestLastMoveStops(t *testing.T) {
	r := &route.Route{Ops: []route.Operation{route.Move(geom.World(1, 1)), route.Move(geom.World(2, 2))}}
	m := &fakeMover{}
	if _, err := newRunner(r, m, &fakeActions{}).Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.requests[0].StopAfterwards || !m.requests[1].StopAfterwards {
		t.Errorf("flags = %v, %v", m.requests[0].StopAfterwards, m.requests[1].StopAfterwards)
	}
	if !m.requests[0].NoBattle {
		t.Error("route without fights should be no battle")
	}
}

func TestExecuteIsRestartable(t *testing.T) {
	r := sampleRoute()
	m := &fakeMover{}
	run := newRunner(r, m, &fakeActions{})

	first, err := run.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	firstStarts := len(m.requests)
	second, err := run.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Pos != second.Pos || first.Steps != second.Steps {
		t.Errorf("runs differ: %+v vs %+v", first, second)
	}
	if m.requests[firstStarts].Start != r.Start {
		t.Errorf("second run started at %v, want route start", m.requests[firstStarts].Start)
	}
	if first.RunID == second.RunID {
		t.Error("run id reused")
	}

	run.Reset()
	if run.Index() != -1 || run.Pos() != r.Start || run.State() != StateSelectOperation {
		t.Errorf("after Reset: index %d pos %v state %v", run.Index(), run.Pos(), run.State())
	}
}

func TestExecuteReportsFailure(t *testing.T) {
	boom := errors.New("boom")
	r := sampleRoute()
	m := &fakeMover{fail: boom}
	out, err := newRunner(r, m, &fakeActions{}).Execute(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if out.Steps != 0 || out.Pos != r.Start {
		t.Errorf("outcome = %+v", out)
	}
}

func TestExecuteCancelsBetweenOperations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := &fakeActions{cancel: cancel}
	r := sampleRoute()
	out, err := newRunner(r, &fakeMover{}, a).Execute(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// the interact that cancelled still completes
	if out.Steps != 5 {
		t.Errorf("steps = %d, want 5", out.Steps)
	}
}

func TestUpdatePosAndFloorChange(t *testing.T) {
	upper := &largemap.Region{ID: "test_f2"}
	r := &route.Route{
		Floor: 1,
		Ops: []route.Operation{
			route.MoveFloor(geom.World(5, 5), 2),
			route.Move(geom.World(6, 6)),
			route.UpdatePos(geom.World(100, 100)),
		},
	}
	m := &fakeMover{}
	run := newRunner(r, m, &fakeActions{})
	run.FloorRegion = func(floor int) (*largemap.Region, error) {
		if floor != 2 {
			t.Errorf("floor = %d", floor)
		}
		return upper, nil
	}
	out, err := run.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Pos != geom.World(100, 100) || out.Floor != 2 {
		t.Errorf("outcome = %+v", out)
	}
	if m.requests[1].Region != upper {
		t.Errorf("second move used region %v", m.requests[1].Region.ID)
	}
}

func TestEmptyRoute(t *testing.T) {
	r := &route.Route{Start: geom.World(3, 4)}
	out, err := newRunner(r, &fakeMover{}, &fakeActions{}).Execute(context.Background())
	if err != nil || out.Pos != geom.World(3, 4) || out.Steps != 0 {
		t.Errorf("outcome = %+v, err = %v", out, err)
	}
}
