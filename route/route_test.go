package route

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

const sample = `author: ['alice']
region: 'herta_base_f1'
floor: 1
start: [120, 340]
reward: [150, 300]
route:
  - op: 'move'
    data: [200, 340]
  - op: 'move'
    data: [260, 300, 2]
  - op: 'no_pos_move'
    data: [280, 300, 1.5]
  - op: 'patrol'
  - op: 'interact'
    data: '事件'
  - op: 'wait'
    data: ['seconds', '1.5']
  - op: 'update_pos'
    data: [281, 301]
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Region != "herta_base_f1" || r.Floor != 1 || r.Start != geom.World(120, 340) {
		t.Errorf("header = %q %d %v", r.Region, r.Floor, r.Start)
	}
	if r.Reward == nil || *r.Reward != geom.World(150, 300) {
		t.Errorf("reward = %v", r.Reward)
	}
	want := []Operation{
		Move(geom.World(200, 340)),
		MoveFloor(geom.World(260, 300), 2),
		NoPosMove(geom.World(280, 300), 1500*time.Millisecond),
		Patrol(),
		Interact("事件"),
		Wait(WAIT_SECONDS, "1.5"),
		UpdatePos(geom.World(281, 301)),
	}
	if len(r.Ops) != len(want) {
		t.Fatalf("ops = %d, want %d", len(r.Ops), len(want))
	}
	for i := range want {
		if r.Ops[i] != want[i] {
			t.Errorf("op %d = %+v, want %+v", i, r.Ops[i], want[i])
		}
	}
	if r.NoBattle() {
		t.Error("route with patrol reported as no battle")
	}
	if last, ok := r.LastOp(); !ok || last.Kind != KindUpdatePos {
		t.Errorf("last op = %v", last)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown op", "start: [1, 2]\nroute:\n  - op: 'fly'\n"},
		{"short start", "start: [1]\nroute: []\n"},
		{"move without data", "start: [1, 2]\nroute:\n  - op: 'move'\n"},
		{"bad wait", "start: [1, 2]\nroute:\n  - op: 'wait'\n    data: ['seconds']\n"},
		{"future version", "version: 9\nstart: [1, 2]\n"},
		{"not yaml", "start: [1, 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.body)); !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	r, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	data, err := r.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"start: [120, 340]", "data: [260, 300, 2]", "data: [280, 300, 1.5]", "data: ['seconds', '1.5']"} {
		if !strings.Contains(text, want) {
			t.Errorf("output lacks %q:\n%s", want, text)
		}
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, text)
	}
	if len(back.Ops) != len(r.Ops) {
		t.Fatalf("ops = %d, want %d", len(back.Ops), len(r.Ops))
	}
	for i := range r.Ops {
		if back.Ops[i] != r.Ops[i] {
			t.Errorf("op %d = %+v, want %+v", i, back.Ops[i], r.Ops[i])
		}
	}
}

func TestFloorWrittenOnlyOnChange(t *testing.T) {
	r := &Route{Floor: 1, Ops: []Operation{
		MoveFloor(geom.World(1, 1), 1),
		MoveFloor(geom.World(2, 2), 2),
	}}
	data, err := r.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "data: [1, 1]\n") || !strings.Contains(text, "data: [2, 2, 2]") {
		t.Errorf("unexpected floors:\n%s", text)
	}
}

func TestAppendInferredPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "herta_base_f1_event_01.yml")
	if err := os.WriteFile(path, []byte("author: ['alice']\nregion: 'herta_base_f1'\nfloor: 1\nstart: [120, 340]\nroute: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.ID != (ID{Region: "herta_base_f1", Waypoint: "event", Variant: 1}) {
		t.Errorf("id = %+v", r.ID)
	}
	if err := r.AppendInferred(SlowMove(geom.World(140, 320))); err != nil {
		t.Fatalf("AppendInferred: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Ops) != 1 || reloaded.Ops[0] != SlowMove(geom.World(140, 320)) {
		t.Errorf("reloaded ops = %+v", reloaded.Ops)
	}
	if !reloaded.NoBattle() {
		t.Error("route without fights should be no battle")
	}
}

func TestAddAuthor(t *testing.T) {
	r := &Route{Authors: []string{"alice"}}
	_ = r.AddAuthor("bob", false)
	_ = r.AddAuthor("alice", false)
	if len(r.Authors) != 2 || r.Authors[1] != "bob" {
		t.Errorf("authors = %v", r.Authors)
	}
	if err := r.AddAuthor("carol", true); err == nil {
		t.Error("save without path should fail")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw  string
		want ID
		err  bool
	}{
		{"herta_base_f1_event_02.yml", ID{Region: "herta_base_f1", Waypoint: "event", Variant: 2}, false},
		{"jarilo_tp1", ID{Region: "jarilo", Waypoint: "tp1"}, false},
		{"dir/luofu_stargazer_elite.yml", ID{Region: "luofu_stargazer", Waypoint: "elite"}, false},
		{"lonely", ID{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseID(tt.raw)
			if (err != nil) != tt.err {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
	if s := (ID{Region: "a_b", Waypoint: "c", Variant: 3}).FileName(); s != "a_b_c_03.yml" {
		t.Errorf("file name = %s", s)
	}
}

func TestFindFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"herta_base_f1_entry_0.yml", "herta_base_f1_entry_1.yml", "herta_base_f1_event_02.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("start: [0, 0]\nroute: []\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	tests := []struct {
		raw  string
		want string
	}{
		{"herta_base_f1_entry_0", "herta_base_f1_entry_0.yml"},
		{"herta_base_f1_entry", "herta_base_f1_entry_0.yml"},
		{"herta_base_f1_entry_1", "herta_base_f1_entry_1.yml"},
		{"herta_base_f1_entry_01", "herta_base_f1_entry_1.yml"},
		{"herta_base_f1_event_2", "herta_base_f1_event_02.yml"},
	}
	for _, tt := range tests {
		id, err := ParseID(tt.raw)
		if err != nil {
			t.Fatalf("ParseID(%q): %v", tt.raw, err)
		}
		path, err := FindFile(dir, id)
		if err != nil {
			t.Errorf("FindFile(%q): %v", tt.raw, err)
			continue
		}
		if filepath.Base(path) != tt.want {
			t.Errorf("FindFile(%q) = %s, want %s", tt.raw, filepath.Base(path), tt.want)
		}
	}
	id, _ := ParseID("herta_base_f1_entry_3")
	if _, err := FindFile(dir, id); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing variant: err = %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_x.yml", "a_y_01.yml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("start: [0, 0]\nroute: []\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	routes, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 2 || routes[0].ID.Region != "a" {
		t.Fatalf("routes = %+v", routes)
	}
	if _, ok := Find(routes, "b", "x", 0); !ok {
		t.Error("Find missed b_x")
	}
}
