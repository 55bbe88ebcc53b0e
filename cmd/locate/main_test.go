package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yinghaodang/StarRailAutoProxy/capture"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-r", "herta_base_f1", "--hint", "120,340", "--interval", "500ms"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.region != "herta_base_f1" || len(o.hint) != 2 || o.hint[1] != 340 || o.interval.Milliseconds() != 500 {
		t.Errorf("options = %+v", o)
	}

	bad := [][]string{
		{},
		{"-r", "herta_base_f1", "--hint", "1,2,3"},
		{"--unknown"},
	}
	for _, args := range bad {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%q) accepted", args)
		}
	}
}

func TestSourceFromImage(t *testing.T) {
	o := options{image: "frame.png"}
	src, ok := o.source(capture.DefaultNormalizer).(capture.Normalized)
	if !ok {
		t.Fatalf("source is %T", src)
	}
	if fs, ok := src.Source.(capture.FileSource); !ok || fs.Path != "frame.png" {
		t.Errorf("inner source = %#v", src.Source)
	}
	if _, ok := (options{}).source(capture.DefaultNormalizer).(capture.Normalized).Source.(capture.ScreenSource); !ok {
		t.Error("desktop capture expected without an image")
	}
}

func TestRouteStart(t *testing.T) {
	dir := t.TempDir()
	body := "region: 'herta_base_f1'\nstart: [120, 340]\nroute: []\n"
	if err := os.WriteFile(filepath.Join(dir, "herta_base_f1_elite_01.yml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	start, err := routeStart(dir, options{region: "herta_base_f1"})
	if err != nil || start != nil {
		t.Fatalf("without waypoint: %v, %v", start, err)
	}
	start, err = routeStart(dir, options{region: "herta_base_f1", waypoint: "elite", variant: 1})
	if err != nil {
		t.Fatalf("routeStart: %v", err)
	}
	if *start != geom.World(120, 340) {
		t.Errorf("start = %v", *start)
	}
	if _, err := routeStart(dir, options{region: "herta_base_f1", waypoint: "elite", variant: 2}); err == nil {
		t.Error("missing variant found")
	}
}
