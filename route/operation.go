package route

import (
	"fmt"
	"time"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

// Kind is the closed set of route operations.
type Kind int

const (
	KindMove Kind = iota
	KindSlowMove
	KindNoPosMove
	KindPatrol
	KindDisposable
	KindInteract
	KindWait
	KindUpdatePos
)

// Names used in route files
const (
	OP_MOVE        = "move"
	OP_SLOW_MOVE   = "slow_move"
	OP_NO_POS_MOVE = "no_pos_move"
	OP_PATROL      = "patrol"
	OP_DISPOSABLE  = "disposable"
	OP_INTERACT    = "interact"
	OP_WAIT        = "wait"
	OP_UPDATE_POS  = "update_pos"
)

// Wait kinds
const (
	WAIT_SECONDS = "seconds"
	WAIT_MAIN    = "main"
)

var kindNames = map[Kind]string{
	KindMove:       OP_MOVE,
	KindSlowMove:   OP_SLOW_MOVE,
	KindNoPosMove:  OP_NO_POS_MOVE,
	KindPatrol:     OP_PATROL,
	KindDisposable: OP_DISPOSABLE,
	KindInteract:   OP_INTERACT,
	KindWait:       OP_WAIT,
	KindUpdatePos:  OP_UPDATE_POS,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func parseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Operation is one step of a route. Which fields are meaningful depends on
// Kind; use the constructors.
type Operation struct {
	Kind Kind

	// Target of Move, SlowMove, NoPosMove and UpdatePos.
	Target geom.WorldPoint
	// Floor is the floor reached by a Move that changes floor.
	Floor    int
	HasFloor bool
	// Duration of a NoPosMove; zero means derive from distance.
	Duration time.Duration
	// Text of an Interact prompt.
	Text string
	// WaitKind and WaitValue of a Wait.
	WaitKind  string
	WaitValue string
}

func Move(p geom.WorldPoint) Operation { return Operation{Kind: KindMove, Target: p} }

// MoveFloor is a Move that ends on another floor.
func MoveFloor(p geom.WorldPoint, floor int) Operation {
	return Operation{Kind: KindMove, Target: p, Floor: floor, HasFloor: true}
}

func SlowMove(p geom.WorldPoint) Operation { return Operation{Kind: KindSlowMove, Target: p} }

func NoPosMove(p geom.WorldPoint, d time.Duration) Operation {
	return Operation{Kind: KindNoPosMove, Target: p, Duration: d}
}

func Patrol() Operation { return Operation{Kind: KindPatrol} }

func Disposable() Operation { return Operation{Kind: KindDisposable} }

func Interact(text string) Operation { return Operation{Kind: KindInteract, Text: text} }

func Wait(kind, value string) Operation {
	return Operation{Kind: KindWait, WaitKind: kind, WaitValue: value}
}

func UpdatePos(p geom.WorldPoint) Operation { return Operation{Kind: KindUpdatePos, Target: p} }

// IsMove reports whether the operation walks with position feedback.
func (o Operation) IsMove() bool { return o.Kind == KindMove || o.Kind == KindSlowMove }

// IsFight reports whether the operation starts a battle.
func (o Operation) IsFight() bool { return o.Kind == KindPatrol || o.Kind == KindDisposable }

// HasTarget reports whether Target is meaningful.
func (o Operation) HasTarget() bool {
	switch o.Kind {
	case KindMove, KindSlowMove, KindNoPosMove, KindUpdatePos:
		return true
	}
	return false
}

func (o Operation) String() string {
	switch o.Kind {
	case KindMove, KindSlowMove, KindUpdatePos:
		if o.HasFloor {
			return fmt.Sprintf("%s(%.0f, %.0f, floor %d)", o.Kind, o.Target.X, o.Target.Y, o.Floor)
		}
		return fmt.Sprintf("%s(%.0f, %.0f)", o.Kind, o.Target.X, o.Target.Y)
	case KindNoPosMove:
		return fmt.Sprintf("%s(%.0f, %.0f, %s)", o.Kind, o.Target.X, o.Target.Y, o.Duration)
	case KindInteract:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Text)
	case KindWait:
		return fmt.Sprintf("%s(%s, %s)", o.Kind, o.WaitKind, o.WaitValue)
	}
	return o.Kind.String()
}
