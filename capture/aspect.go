package capture

import (
	"errors"
	"fmt"
	"math"

	maa "github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/rs/zerolog/log"
)

var (
	_ maa.TaskerEventSink = &AspectRatioChecker{}
)

var ErrAspectRatio = errors.New("unsupported aspect ratio")

// Accepted deviation from 16:9
const ASPECT_TOLERANCE = 0.02

// CheckResolution accepts frames that scale cleanly to the working size.
func CheckResolution(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrAspectRatio, w, h)
	}
	want := float64(WORK_W) / float64(WORK_H)
	got := float64(w) / float64(h)
	if math.Abs(got-want)/want > ASPECT_TOLERANCE {
		return fmt.Errorf("%w: %dx%d is not 16:9", ErrAspectRatio, w, h)
	}
	return nil
}

// AspectRatioChecker warns once per session when the game window is not
// 16:9, since every minimap constant assumes it.
type AspectRatioChecker struct {
	warned bool
}

// OnTaskerTask handles tasker task events
func (c *AspectRatioChecker) OnTaskerTask(tasker *maa.Tasker, event maa.EventStatus, detail maa.TaskerTaskDetail) {
	if event != maa.EventStatusStarting || c.warned {
		return
	}
	ctrl := tasker.GetController()
	if ctrl == nil {
		return
	}
	ctrl.PostScreencap().Wait()
	img, err := ctrl.CacheImage()
	if err != nil || img == nil {
		log.Warn().Err(err).Msg("[AspectRatio] Failed to get screencap")
		return
	}
	b := img.Bounds()
	if err := CheckResolution(b.Dx(), b.Dy()); err != nil {
		log.Warn().
			Err(err).
			Str("entry", detail.Entry).
			Msg("[AspectRatio] Game window should be 16:9, position tracking will be unreliable")
		c.warned = true
		return
	}
	log.Debug().Int("width", b.Dx()).Int("height", b.Dy()).Msg("[AspectRatio] Check passed")
}
