package common

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	maa "github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/capture"
	"github.com/yinghaodang/StarRailAutoProxy/largemap"
)

// Frames are saved here unless custom_action_param names a dir.
const FRAME_DIR = "debug/frames"

// SaveFrame writes the current screen, normalised to the working
// resolution, to a PNG file. Useful for collecting minimap samples.
type SaveFrame struct{}

var _ maa.CustomActionRunner = (*SaveFrame)(nil)

func (a *SaveFrame) Run(ctx *maa.Context, arg *maa.CustomActionArg) bool {
	var params struct {
		Dir string `json:"dir"`
	}
	if raw := strings.TrimSpace(arg.CustomActionParam); raw != "" {
		if err := sonic.UnmarshalString(raw, &params); err != nil {
			log.Error().Err(err).Str("raw_param", raw).Msg("[SaveFrame] failed to parse custom_action_param")
			return false
		}
	}
	dir := params.Dir
	if dir == "" {
		dir = FRAME_DIR
	}

	src := capture.Normalized{
		Source:     capture.NewMaaSource(ctx.GetTasker().GetController()),
		Normalizer: capture.DefaultNormalizer,
	}
	img, err := src.Capture(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("[SaveFrame] capture failed")
		return false
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.png", time.Now().Format("20060102_150405.000")))
	if err := largemap.WritePNG(path, img); err != nil {
		log.Error().Err(err).Str("path", path).Msg("[SaveFrame] write failed")
		return false
	}
	log.Info().Str("path", path).Msg("[SaveFrame] frame saved")
	return true
}
