package route

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

// Current route file version
const FILE_VERSION = 1

type fileRoute struct {
	Version int       `yaml:"version"`
	Author  []string  `yaml:"author"`
	Region  string    `yaml:"region"`
	Floor   int       `yaml:"floor"`
	Start   []float64 `yaml:"start"`
	Reward  []float64 `yaml:"reward"`
	Route   []fileOp  `yaml:"route"`
}

type fileOp struct {
	Op   string     `yaml:"op"`
	Data *yaml.Node `yaml:"data"`
}

// Parse decodes a route file body.
func Parse(data []byte) (*Route, error) {
	var f fileRoute
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if f.Version > FILE_VERSION {
		return nil, fmt.Errorf("%w: version %d is newer than %d", ErrMalformed, f.Version, FILE_VERSION)
	}
	start, err := point(f.Start, "start")
	if err != nil {
		return nil, err
	}
	r := &Route{
		Authors: f.Author,
		Region:  f.Region,
		Floor:   f.Floor,
		Start:   start,
	}
	if len(f.Reward) > 0 {
		p, err := point(f.Reward, "reward")
		if err != nil {
			return nil, err
		}
		r.Reward = &p
	}
	for i, fo := range f.Route {
		op, err := decodeOp(fo)
		if err != nil {
			return nil, fmt.Errorf("%w: op %d (%s): %w", ErrMalformed, i, fo.Op, err)
		}
		r.Ops = append(r.Ops, op)
	}
	return r, nil
}

func point(xy []float64, field string) (geom.WorldPoint, error) {
	if len(xy) != 2 {
		return geom.WorldPoint{}, fmt.Errorf("%w: %s wants [x, y], got %v", ErrMalformed, field, xy)
	}
	return geom.WorldPoint{X: xy[0], Y: xy[1]}, nil
}

func decodeOp(fo fileOp) (Operation, error) {
	kind, ok := parseKind(fo.Op)
	if !ok {
		return Operation{}, fmt.Errorf("unknown op %q", fo.Op)
	}
	switch kind {
	case KindMove, KindSlowMove, KindUpdatePos, KindNoPosMove:
		var nums []float64
		if fo.Data == nil {
			return Operation{}, fmt.Errorf("missing coordinates")
		}
		if err := fo.Data.Decode(&nums); err != nil {
			return Operation{}, err
		}
		if len(nums) < 2 || len(nums) > 3 {
			return Operation{}, fmt.Errorf("want [x, y] or [x, y, z], got %v", nums)
		}
		op := Operation{Kind: kind, Target: geom.WorldPoint{X: nums[0], Y: nums[1]}}
		if len(nums) == 3 {
			if kind == KindNoPosMove {
				op.Duration = time.Duration(nums[2] * float64(time.Second))
			} else {
				op.Floor = int(nums[2])
				op.HasFloor = true
			}
		}
		return op, nil
	case KindInteract:
		var text string
		if fo.Data == nil {
			return Operation{}, fmt.Errorf("missing interact text")
		}
		if err := fo.Data.Decode(&text); err != nil {
			return Operation{}, err
		}
		return Interact(text), nil
	case KindWait:
		var args []string
		if fo.Data == nil {
			return Operation{}, fmt.Errorf("missing wait arguments")
		}
		if err := fo.Data.Decode(&args); err != nil {
			return Operation{}, err
		}
		if len(args) != 2 {
			return Operation{}, fmt.Errorf("want [kind, value], got %v", args)
		}
		return Wait(args[0], args[1]), nil
	}
	return Operation{Kind: kind}, nil
}

// Marshal encodes the route in the file layout, coordinates in flow style.
// A floor is only written when it differs from the previous one.
func (r *Route) Marshal() ([]byte, error) {
	doc := mapping()
	addField(doc, "version", intNode(FILE_VERSION))
	authors := flow()
	for _, a := range r.Authors {
		authors.Content = append(authors.Content, strNode(a))
	}
	addField(doc, "author", authors)
	addField(doc, "region", strNode(r.Region))
	addField(doc, "floor", intNode(r.Floor))
	addField(doc, "start", pointNode(r.Start))
	if r.Reward != nil {
		addField(doc, "reward", pointNode(*r.Reward))
	}

	ops := &yaml.Node{Kind: yaml.SequenceNode}
	lastFloor := r.Floor
	for _, op := range r.Ops {
		item := mapping()
		addField(item, "op", strNode(op.Kind.String()))
		switch op.Kind {
		case KindMove, KindSlowMove, KindUpdatePos:
			data := pointNode(op.Target)
			if op.HasFloor && op.Floor != lastFloor {
				data.Content = append(data.Content, intNode(op.Floor))
				lastFloor = op.Floor
			}
			addField(item, "data", data)
		case KindNoPosMove:
			data := pointNode(op.Target)
			if op.Duration > 0 {
				data.Content = append(data.Content, numNode(op.Duration.Seconds()))
			}
			addField(item, "data", data)
		case KindInteract:
			addField(item, "data", strNode(op.Text))
		case KindWait:
			data := flow()
			data.Content = append(data.Content, strNode(op.WaitKind), strNode(op.WaitValue))
			addField(item, "data", data)
		}
		ops.Content = append(ops.Content, item)
	}
	addField(doc, "route", ops)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode route: %w", err)
	}
	return out, nil
}

func mapping() *yaml.Node { return &yaml.Node{Kind: yaml.MappingNode} }

func flow() *yaml.Node { return &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle} }

func addField(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.SingleQuotedStyle}
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}

func numNode(v float64) *yaml.Node {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return intNode(int(v))
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v, 'f', -1, 64)}
}

func pointNode(p geom.WorldPoint) *yaml.Node {
	n := flow()
	n.Content = append(n.Content, numNode(p.X), numNode(p.Y))
	return n
}
