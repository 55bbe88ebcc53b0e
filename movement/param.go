package movement

// Param tunes the walking loop. Distances are world pixels, durations
// milliseconds, angles degrees.
type Param struct {
	ArrivalThreshold       float64 `mapstructure:"arrival_threshold"`
	ArrivalTimeout         int     `mapstructure:"arrival_timeout"`
	RotationLowerThreshold float64 `mapstructure:"rotation_lower_threshold"`
	RotationUpperThreshold float64 `mapstructure:"rotation_upper_threshold"`
	// RotationSpeed is mouse pixels per degree of camera yaw.
	RotationSpeed   float64 `mapstructure:"rotation_speed"`
	RotationTimeout int     `mapstructure:"rotation_timeout"`
	SprintThreshold float64 `mapstructure:"sprint_threshold"`
	StuckThreshold  int     `mapstructure:"stuck_threshold"`
	StuckTimeout    int     `mapstructure:"stuck_timeout"`
	InferInterval   int     `mapstructure:"infer_interval"`
	MaxNotFound     int     `mapstructure:"max_not_found"`
	// Speeds in world pixels per second.
	RunSpeed  float64 `mapstructure:"run_speed"`
	WalkSpeed float64 `mapstructure:"walk_speed"`
}

// Move action configuration
const (
	INFER_INTERVAL_MS = 200
	// Displacement below which the player counts as standing still
	STUCK_EPSILON = 2.0
	// Turns are split into steps no larger than this
	MAX_TURN_STEP_DEG = 90.0
)

// Default moving parameters
var DEFAULT_MOVING_PARAM = Param{
	ArrivalThreshold:       4.5,
	ArrivalTimeout:         60000,
	RotationLowerThreshold: 8.0,
	RotationUpperThreshold: 60.0,
	RotationSpeed:          2.0,
	RotationTimeout:        30000,
	SprintThreshold:        25.0,
	StuckThreshold:         1500,
	StuckTimeout:           10000,
	InferInterval:          INFER_INTERVAL_MS,
	MaxNotFound:            10,
	RunSpeed:               35,
	WalkSpeed:              20,
}
