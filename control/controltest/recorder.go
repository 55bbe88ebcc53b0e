// Package controltest provides a recording Controller for tests.
package controltest

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

// Recorder remembers every gesture it receives.
type Recorder struct {
	mu     sync.Mutex
	Events []string
	Held   map[int32]bool
	Turned int
	// Fail makes every gesture return this error when set.
	Fail error
}

func (r *Recorder) record(format string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, fmt.Sprintf(format, args...))
	return r.Fail
}

func (r *Recorder) Click(p geom.ScreenPoint) error {
	x, y := p.Round()
	return r.record("click %d,%d", x, y)
}

func (r *Recorder) Drag(from, to geom.ScreenPoint, d time.Duration) error {
	fx, fy := from.Round()
	tx, ty := to.Round()
	return r.record("drag %d,%d->%d,%d", fx, fy, tx, ty)
}

func (r *Recorder) Turn(dx int) error {
	r.mu.Lock()
	r.Turned += dx
	r.mu.Unlock()
	return r.record("turn %d", dx)
}

func (r *Recorder) KeyDown(key int32) error {
	r.mu.Lock()
	if r.Held == nil {
		r.Held = make(map[int32]bool)
	}
	r.Held[key] = true
	r.mu.Unlock()
	return r.record("down %d", key)
}

func (r *Recorder) KeyUp(key int32) error {
	r.mu.Lock()
	delete(r.Held, key)
	r.mu.Unlock()
	return r.record("up %d", key)
}

func (r *Recorder) Hotkey(key int32) error {
	return r.record("key %d", key)
}

// Count returns how many events start with prefix.
func (r *Recorder) Count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.Events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// AnyHeld reports whether a key is still pressed.
func (r *Recorder) AnyHeld() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Held) > 0
}
