package minimap

import "image/color"

// Minimap geometry on a 1920x1080 frame
const (
	WORK_W = 1920
	WORK_H = 1080

	// Mini-map crop area
	LOC_CENTER_X = 137
	LOC_CENTER_Y = 142
	LOC_RADIUS   = 94

	// Pointer crop area, relative to the minimap centre
	ROT_RADIUS = 14

	// Ring along the minimap edge excluded from feature detection
	EDGE_MARGIN = 5
)

// Arrow detection
var (
	ARROW_COLOR             = color.RGBA{R: 1, G: 199, B: 255, A: 255}
	ARROW_TOLERANCE   uint8 = 50
	ARROW_MIN_PIXELS        = 15
	ARROW_TIP_RATIO         = 0.85
)

// Radar overlay
var (
	RADAR_HALF_ANGLE = 45.0
	RADAR_ALPHA      = 0.18
)

// Enemy marker detection
var (
	ENEMY_COLOR             = color.RGBA{R: 230, G: 60, B: 60, A: 255}
	ENEMY_TOLERANCE   uint8 = 40
	ENEMY_MIN_PIXELS        = 12
)
