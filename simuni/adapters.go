package simuni

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/capture"
	"github.com/yinghaodang/StarRailAutoProxy/control"
	"github.com/yinghaodang/StarRailAutoProxy/ocr"
	"github.com/yinghaodang/StarRailAutoProxy/operation"
	"github.com/yinghaodang/StarRailAutoProxy/route"
)

// Interact prompt search
const (
	INTERACT_LCS_PERCENT = 0.1
	INTERACT_RETRIES     = 5
	INTERACT_INTERVAL_MS = 300
)

// Interact prompts are listed right of the screen centre.
var INTERACT_ROI = image.Rect(1260, 400, 1550, 800)

// OCRInteractor reads the interaction prompt list and presses the interact
// key once the wanted prompt shows up.
type OCRInteractor struct {
	Src      capture.Source
	OCR      ocr.Recognizer
	Ctrl     control.Controller
	Key      int32
	ROI      image.Rectangle
	Percent  float64
	Retries  int
	Interval time.Duration
}

func NewOCRInteractor(src capture.Source, rec ocr.Recognizer, ctrl control.Controller, key int32) *OCRInteractor {
	return &OCRInteractor{
		Src:      src,
		OCR:      rec,
		Ctrl:     ctrl,
		Key:      key,
		ROI:      INTERACT_ROI,
		Percent:  INTERACT_LCS_PERCENT,
		Retries:  INTERACT_RETRIES,
		Interval: INTERACT_INTERVAL_MS * time.Millisecond,
	}
}

func (i *OCRInteractor) Interact(ctx context.Context, text string) error {
	_, err := operation.Run(ctx, "interact "+text, i.Retries, func(ctx context.Context) operation.Result {
		img, err := i.Src.Capture(ctx)
		if err != nil {
			return operation.RetryErr(err, i.Interval)
		}
		results, err := i.OCR.Recognize(img, i.ROI)
		if err != nil {
			return operation.RetryErr(err, i.Interval)
		}
		if _, ok := ocr.Find(results, text, i.Percent); !ok {
			return operation.Retry("prompt not found", i.Interval)
		}
		return operation.FromError(nil, i.Ctrl.Hotkey(i.Key))
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInteractFailed, err)
	}
	log.Info().Str("text", text).Msg("[Interact] Prompt found")
	return nil
}

// Main screen polling
const (
	MAIN_POLL_MS    = 500
	MAIN_TIMEOUT_MS = 30000
)

// ScreenWaiter serves route wait operations. The world screen counts as
// back once the minimap shows the player arrow.
type ScreenWaiter struct {
	Scanner Scanner
	Poll    time.Duration
	Timeout time.Duration
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

func NewScreenWaiter(s Scanner) *ScreenWaiter {
	return &ScreenWaiter{
		Scanner: s,
		Poll:    MAIN_POLL_MS * time.Millisecond,
		Timeout: MAIN_TIMEOUT_MS * time.Millisecond,
		now:     time.Now,
		sleep:   operation.Sleep,
	}
}

func (w *ScreenWaiter) Wait(ctx context.Context, kind, value string) error {
	switch kind {
	case route.WAIT_SECONDS:
		sec, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("wait seconds %q: %w", value, err)
		}
		return w.sleep(ctx, time.Duration(sec*float64(time.Second)))
	case route.WAIT_MAIN:
		return w.waitMain(ctx)
	}
	return fmt.Errorf("unknown wait kind %q", kind)
}

func (w *ScreenWaiter) waitMain(ctx context.Context) error {
	deadline := w.now().Add(w.Timeout)
	for {
		snap, err := w.Scanner.Snapshot(ctx)
		if err == nil && snap.HasAngle {
			return nil
		}
		if w.now().After(deadline) {
			return fmt.Errorf("world screen did not return in %s", w.Timeout)
		}
		if err := w.sleep(ctx, w.Poll); err != nil {
			return err
		}
	}
}

// IconDir loads <dir>/<id>.png once per id.
type IconDir struct {
	Dir string

	mu    sync.Mutex
	cache map[string]image.Image
}

func NewIconDir(dir string) *IconDir {
	return &IconDir{Dir: dir, cache: make(map[string]image.Image)}
}

func (d *IconDir) Icon(id string) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if img, ok := d.cache[id]; ok {
		return img, nil
	}
	f, err := os.Open(filepath.Join(d.Dir, id+".png"))
	if err != nil {
		return nil, fmt.Errorf("icon %s: %w", id, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("icon %s: %w", id, err)
	}
	d.cache[id] = img
	return img, nil
}
