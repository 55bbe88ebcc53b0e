package ocr

import (
	"image"
	"testing"
)

func TestLCSPercent(t *testing.T) {
	tests := []struct {
		text, target string
		want         float64
	}{
		{"事件", "事件", 1},
		{"[F] 事件记录", "事件", 1},
		{"事", "事件", 0.5},
		{"abc", "", 0},
		{"xyz", "abc", 0},
		{"axbxc", "abc", 1},
	}
	for _, tt := range tests {
		if got := LCSPercent(tt.text, tt.target); got != tt.want {
			t.Errorf("LCSPercent(%q, %q) = %v, want %v", tt.text, tt.target, got, tt.want)
		}
	}
}

func TestFind(t *testing.T) {
	results := map[string][]Result{
		"休整":  {{Text: "休整", Box: image.Rect(0, 0, 10, 10)}},
		"事件记": {{Text: "事件记", Box: image.Rect(20, 0, 40, 10)}},
	}
	r, ok := Find(results, "事件", 0.5)
	if !ok || r.Text != "事件记" {
		t.Errorf("Find = %+v, %v", r, ok)
	}
	if _, ok := Find(results, "奖励", 0.5); ok {
		t.Error("found a word that is not on screen")
	}
}
