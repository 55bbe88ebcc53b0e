package simuni

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/routerun"
)

var (
	// ErrInteractFailed is returned when a required interaction never
	// showed up.
	ErrInteractFailed = errors.New("interaction failed")
	// ErrNoRewardPos is returned when rewards are wanted but the route
	// has no reward point.
	ErrNoRewardPos = errors.New("route has no reward position")
	// ErrAssetMissing is returned when a minimap icon template cannot be
	// loaded.
	ErrAssetMissing = errors.New("icon asset missing")
)

// Navigator walks the player and keeps track of it. *movement.Mover
// satisfies it.
type Navigator interface {
	routerun.Mover
	Locate(ctx context.Context, region *largemap.Region, hint *locator.Hint) (locator.Estimate, error)
	TurnTo(ctx context.Context, angle float64) error
	Stop() error
}

// Scanner captures and analyses the minimap. *movement.Tracker satisfies
// it.
type Scanner interface {
	Snapshot(ctx context.Context) (*minimap.Snapshot, error)
}

// Marker finds markers on a minimap snapshot. *minimap.Analyzer satisfies
// it.
type Marker interface {
	FindIcon(snap *minimap.Snapshot, tmpl image.Image, threshold float64) (geom.ScreenPoint, bool, error)
	FindEnemy(snap *minimap.Snapshot) (geom.ScreenPoint, bool)
}

// Icons loads minimap icon templates by id.
type Icons interface {
	Icon(id string) (image.Image, error)
}

// Regions resolves large maps by id. *largemap.Registry satisfies it.
type Regions interface {
	Get(id string) (*largemap.Region, error)
}

// Stage drives the game screens that are not the open world.
type Stage interface {
	// UseTechnique casts the leader's technique before a combat route.
	UseTechnique(ctx context.Context) error
	// FightElite attacks the elite and waits for the battle to end.
	FightElite(ctx context.Context) error
	// HandleEvent plays through the dialog opened by an interaction.
	HandleEvent(ctx context.Context) error
	// CollectRewards opens at most max reward chests and reports how many
	// were taken.
	CollectRewards(ctx context.Context, max int) (int, error)
	// NextLevel walks into the teleporter of the floor.
	NextLevel(ctx context.Context, level LevelType, pos geom.WorldPoint) error
	// Exit leaves the universe after its last floor.
	Exit(ctx context.Context) error
}

// Param tunes the floor handlers.
type Param struct {
	// IconThreshold is the template score needed for a minimap icon.
	IconThreshold float64 `mapstructure:"icon_threshold"`
	// PhaseRetries bounds retries of every phase of a floor.
	PhaseRetries int `mapstructure:"phase_retries"`
	// RetryDelay is the wait between retried rounds, ms.
	RetryDelay int `mapstructure:"retry_delay"`
	// TurnDelay is the wait after restoring the heading, ms.
	TurnDelay int `mapstructure:"turn_delay"`
	// EventDelay is the wait between an interaction and its dialog, ms.
	EventDelay int `mapstructure:"event_delay"`
	// RunSpeed bounds the drift since the last position, world px per second.
	RunSpeed float64 `mapstructure:"run_speed"`
	// MaxReward is how many reward chests an elite floor opens.
	MaxReward int `mapstructure:"max_reward"`
	// TechniqueFight casts the technique before combat routes.
	TechniqueFight bool `mapstructure:"technique_fight"`
}

var DefaultParam = Param{
	IconThreshold:  0.7,
	PhaseRetries:   5,
	RetryDelay:     1000,
	TurnDelay:      500,
	EventDelay:     1500,
	RunSpeed:       35,
	MaxReward:      0,
	TechniqueFight: false,
}

// Env bundles what a floor handler talks to.
type Env struct {
	Nav        Navigator
	Scanner    Scanner
	Marker     Marker
	Icons      Icons
	Regions    Regions
	Fighter    routerun.Fighter
	Interactor routerun.Interactor
	Waiter     routerun.Waiter
	Stage      Stage
	Param      Param

	// OnStep observes every finished route operation.
	OnStep func(routerun.StepEvent)
	// OnReward observes the reward count after an elite floor.
	OnReward func(got, max int)

	techniqueUsed bool
}

// NewUniverse forgets what was done in the previous universe.
func (e *Env) NewUniverse() { e.techniqueUsed = false }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
