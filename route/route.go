// Package route models authored routes and their YAML files.
package route

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

// ErrMalformed is returned for route files that cannot be understood.
var ErrMalformed = errors.New("malformed route")

// File extension of route files
const FILE_EXT = ".yml"

// ID names a route file: <region>_<waypoint>_<variant>. The variant is
// optional and defaults to 0.
type ID struct {
	Region   string
	Waypoint string
	Variant  int
}

// ParseID splits a raw id or file name. The region may itself contain
// underscores.
func ParseID(raw string) (ID, error) {
	raw = strings.TrimSuffix(filepath.Base(raw), FILE_EXT)
	parts := strings.Split(raw, "_")
	if len(parts) < 2 {
		return ID{}, fmt.Errorf("%w: route id %q needs <region>_<waypoint>", ErrMalformed, raw)
	}
	id := ID{}
	if v, err := strconv.Atoi(parts[len(parts)-1]); err == nil && len(parts) >= 3 {
		id.Variant = v
		parts = parts[:len(parts)-1]
	}
	id.Waypoint = parts[len(parts)-1]
	id.Region = strings.Join(parts[:len(parts)-1], "_")
	if id.Region == "" || id.Waypoint == "" {
		return ID{}, fmt.Errorf("%w: route id %q has an empty part", ErrMalformed, raw)
	}
	return id, nil
}

func (id ID) String() string {
	if id.Variant == 0 {
		return id.Region + "_" + id.Waypoint
	}
	return fmt.Sprintf("%s_%s_%02d", id.Region, id.Waypoint, id.Variant)
}

// FileName is the route file name inside a route directory.
func (id ID) FileName() string { return id.String() + FILE_EXT }

// Route is an ordered list of operations starting from a known point of one
// region.
type Route struct {
	ID   ID
	Path string

	Authors []string
	Region  string
	Floor   int
	Start   geom.WorldPoint
	Reward  *geom.WorldPoint
	Ops     []Operation
}

// LastOp returns the final operation.
func (r *Route) LastOp() (Operation, bool) {
	if len(r.Ops) == 0 {
		return Operation{}, false
	}
	return r.Ops[len(r.Ops)-1], true
}

// NoBattle reports whether the route never starts a fight on purpose.
func (r *Route) NoBattle() bool {
	return !slices.ContainsFunc(r.Ops, Operation.IsFight)
}

// AddAuthor records a contributor once, optionally saving the file.
func (r *Route) AddAuthor(name string, save bool) error {
	if name != "" && !slices.Contains(r.Authors, name) {
		r.Authors = append(r.Authors, name)
	}
	if save {
		return r.Save()
	}
	return nil
}

// AppendInferred appends an operation discovered at run time and persists
// the route. The in-memory route keeps the operation even when saving fails.
func (r *Route) AppendInferred(op Operation) error {
	r.Ops = append(r.Ops, op)
	log.Info().
		Str("route", r.ID.String()).
		Stringer("op", op).
		Msg("[Route] Appended inferred operation")
	return r.Save()
}

// Save writes the route back to Path.
func (r *Route) Save() error {
	if r.Path == "" {
		return fmt.Errorf("route %s has no file path", r.ID)
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create route dir: %w", err)
	}
	if err := os.WriteFile(r.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save route %s: %w", r.ID, err)
	}
	return nil
}

// Load reads one route file. The id comes from the file name.
func Load(path string) (*Route, error) {
	id, err := ParseID(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", id, err)
	}
	r.ID = id
	r.Path = path
	return r, nil
}

// FindFile returns the file of id in dir. Variants are compared by value,
// so x_y.yml, x_y_0.yml and x_y_00.yml all name variant 0 of x_y.
func FindFile(dir string, id ID) (string, error) {
	if path := filepath.Join(dir, id.FileName()); fileExists(path) {
		return path, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list routes: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != FILE_EXT {
			continue
		}
		if got, err := ParseID(e.Name()); err == nil && got == id {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("route %s: %w", id, os.ErrNotExist)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadDir reads every route file of a directory, sorted by id.
func LoadDir(dir string) ([]*Route, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	var routes []*Route
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != FILE_EXT {
			continue
		}
		r, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID.String() < routes[j].ID.String() })
	log.Info().Str("dir", dir).Int("count", len(routes)).Msg("[Route] Routes loaded")
	return routes, nil
}

// Find returns the route of a region and waypoint with the given variant.
func Find(routes []*Route, region, waypoint string, variant int) (*Route, bool) {
	for _, r := range routes {
		if r.ID.Region == region && r.ID.Waypoint == waypoint && r.ID.Variant == variant {
			return r, true
		}
	}
	return nil, false
}
