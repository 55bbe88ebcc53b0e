// Package ocr reads on-screen text through the MaaFramework OCR recognition
// and matches it loosely against expected words.
package ocr

import (
	"fmt"
	"image"
	"strings"

	maa "github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/rs/zerolog/log"
)

// Pipeline node holding the OCR model settings
const OCR_NODE = "SimUniOCR"

// Result is one recognised line.
type Result struct {
	Text string
	Box  image.Rectangle
}

// Recognizer is the OCR collaborator. Results are keyed by their text.
type Recognizer interface {
	Recognize(img image.Image, roi image.Rectangle) (map[string][]Result, error)
}

// MaaRecognizer runs the OCR node of the loaded resource.
type MaaRecognizer struct {
	ctx  *maa.Context
	node string
}

func NewMaaRecognizer(ctx *maa.Context) *MaaRecognizer {
	return &MaaRecognizer{ctx: ctx, node: OCR_NODE}
}

func (r *MaaRecognizer) Recognize(img image.Image, roi image.Rectangle) (map[string][]Result, error) {
	var (
		detail *maa.RecognitionDetail
		err    error
	)
	if roi.Empty() {
		detail, err = r.ctx.RunRecognition(r.node, img)
	} else {
		detail, err = r.ctx.RunRecognition(r.node, img, map[string]any{
			r.node: map[string]any{
				"roi": maa.Rect{roi.Min.X, roi.Min.Y, roi.Dx(), roi.Dy()},
			},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("ocr %s: %w", r.node, err)
	}
	out := make(map[string][]Result)
	if detail == nil || detail.Results == nil {
		log.Debug().Str("node", r.node).Msg("[OCR] No results")
		return out, nil
	}
	for _, item := range detail.Results.All {
		if item == nil {
			continue
		}
		res, ok := item.AsOCR()
		if !ok {
			continue
		}
		text := strings.TrimSpace(res.Text)
		if text == "" {
			continue
		}
		box := image.Rect(res.Box.X(), res.Box.Y(), res.Box.X()+res.Box.Width(), res.Box.Y()+res.Box.Height())
		out[text] = append(out[text], Result{Text: text, Box: box})
	}
	return out, nil
}

// LCSPercent returns the length of the longest common subsequence of text
// and target divided by the length of target.
func LCSPercent(text, target string) float64 {
	a, b := []rune(text), []rune(target)
	if len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return float64(prev[len(b)]) / float64(len(b))
}

// Find returns the first result whose text contains enough of target.
func Find(results map[string][]Result, target string, percent float64) (Result, bool) {
	best := Result{}
	bestScore := -1.0
	for text, rs := range results {
		score := LCSPercent(text, target)
		if score >= percent && score > bestScore && len(rs) > 0 {
			best, bestScore = rs[0], score
		}
	}
	return best, bestScore >= 0
}
