// Package simuni runs the route of one Simulated Universe floor together
// with what happens around it: waypoint inference before the route, the
// elite fight and reward chest or the event interaction after it, and the
// hand-over to the next floor.
package simuni

import (
	"fmt"
	"strings"
)

// LevelType is the kind of a Simulated Universe floor.
type LevelType int

const (
	LevelCombat LevelType = iota
	LevelElite
	LevelBoss
	LevelEvent
	LevelTransaction
	LevelEncounter
	LevelRespite
)

var levelNames = map[LevelType]string{
	LevelCombat:      "combat",
	LevelElite:       "elite",
	LevelBoss:        "boss",
	LevelEvent:       "event",
	LevelTransaction: "transaction",
	LevelEncounter:   "encounter",
	LevelRespite:     "respite",
}

// Interaction prompts
const (
	WORD_EVENT   = "事件"
	WORD_RESPITE = "黑塔"
	WORD_REWARD  = "沉浸奖励"
)

// Minimap icon ids
const (
	ICON_EVENT   = "mm_sp_event"
	ICON_RESPITE = "mm_sp_herta"
)

func (t LevelType) String() string {
	if s, ok := levelNames[t]; ok {
		return s
	}
	return fmt.Sprintf("LevelType(%d)", int(t))
}

// ParseLevelType accepts the names printed by String.
func ParseLevelType(s string) (LevelType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range levelNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown level type %q", s)
}

// IsInteract reports whether the floor ends with talking to something.
func (t LevelType) IsInteract() bool {
	switch t {
	case LevelEvent, LevelTransaction, LevelEncounter, LevelRespite:
		return true
	}
	return false
}

// IsElite reports whether the floor ends with a boss-like fight and a
// reward chest.
func (t LevelType) IsElite() bool { return t == LevelElite || t == LevelBoss }

func (t LevelType) InteractWord() string {
	if t == LevelRespite {
		return WORD_RESPITE
	}
	return WORD_EVENT
}

func (t LevelType) IconID() string {
	if t == LevelRespite {
		return ICON_RESPITE
	}
	return ICON_EVENT
}

// CanIgnoreInteract is true where the floor can be left without the
// interaction succeeding.
func (t LevelType) CanIgnoreInteract() bool { return t == LevelRespite }
