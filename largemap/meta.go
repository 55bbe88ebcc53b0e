package largemap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

// meta is the on-disk description of a region next to its image.
type meta struct {
	Name          string               `yaml:"name"`
	Floor         int                  `yaml:"floor"`
	SpecialPoints map[string][]float64 `yaml:"special_points"`
}

func loadMeta(path string) (meta, error) {
	var m meta
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("failed to read region meta: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse region meta %s: %w", path, err)
	}
	return m, nil
}

func (m meta) points() (map[string]geom.WorldPoint, error) {
	out := make(map[string]geom.WorldPoint, len(m.SpecialPoints))
	for label, xy := range m.SpecialPoints {
		if len(xy) != 2 {
			return nil, fmt.Errorf("special point %q: want [x, y], got %v", label, xy)
		}
		out[label] = geom.WorldPoint{X: xy[0], Y: xy[1]}
	}
	return out, nil
}
