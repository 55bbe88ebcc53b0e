// Package config loads agent settings from settings.yaml and SRAP_*
// environment variables on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/yinghaodang/StarRailAutoProxy/capture"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
	"github.com/yinghaodang/StarRailAutoProxy/movement"
	"github.com/yinghaodang/StarRailAutoProxy/simuni"
)

const (
	CONFIG_NAME = "settings"
	ENV_PREFIX  = "SRAP"
	// Install root override, shared with the MaaFramework launcher
	ENV_INSTALL_ROOT = "MAA_INSTALL_ROOT"
	// Directory whose presence marks an install root
	RESOURCE_DIR = "resource/sim_uni"
)

// Paths are resolved against the install root when relative.
type Paths struct {
	Maps   string `mapstructure:"maps"`
	Routes string `mapstructure:"routes"`
	Icons  string `mapstructure:"icons"`
	Logs   string `mapstructure:"logs"`
}

// Rect is a screen rectangle at the working resolution.
type Rect struct {
	X      int `mapstructure:"x"`
	Y      int `mapstructure:"y"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Settings is everything the agent reads at start-up.
type Settings struct {
	LogLevel     string            `mapstructure:"log_level"`
	HighPriority bool              `mapstructure:"high_priority"`
	Author       string            `mapstructure:"author"`
	Paths        Paths             `mapstructure:"paths"`
	Preload      []string          `mapstructure:"preload"`
	UID          Rect              `mapstructure:"uid"`
	Minimap      minimap.Geometry  `mapstructure:"minimap"`
	Locator      locator.Param     `mapstructure:"locator"`
	Movement     movement.Param    `mapstructure:"movement"`
	SimUni       simuni.Param      `mapstructure:"simuni"`
	Nodes        simuni.StageNodes `mapstructure:"nodes"`

	// Root is the install root the paths were resolved against.
	Root string `mapstructure:"-"`
}

// Default returns the built-in settings.
func Default() Settings {
	uid := capture.UID_RECT
	return Settings{
		LogLevel: zerolog.InfoLevel.String(),
		Paths: Paths{
			Maps:   filepath.Join(RESOURCE_DIR, "map"),
			Routes: filepath.Join(RESOURCE_DIR, "route"),
			Icons:  filepath.Join(RESOURCE_DIR, "icon"),
			Logs:   "debug",
		},
		UID:      Rect{X: uid.Min.X, Y: uid.Min.Y, Width: uid.Dx(), Height: uid.Dy()},
		Minimap:  minimap.DefaultGeometry,
		Locator:  locator.DefaultParam,
		Movement: movement.DEFAULT_MOVING_PARAM,
		SimUni:   simuni.DefaultParam,
		Nodes:    simuni.DefaultStageNodes,
	}
}

// Load reads settings. path may name a file; when empty settings.yaml is
// looked up in the install root and the working directory, and a missing
// file only means defaults.
func Load(path string) (Settings, error) {
	root, err := ResolveRoot()
	if err != nil {
		return Settings{}, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, "", reflect.ValueOf(Default()))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(CONFIG_NAME)
		v.AddConfigPath(root)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil {
		return Settings{}, fmt.Errorf("log_level %q: %w", s.LogLevel, err)
	}
	s.Root = root
	s.Paths.Maps = resolve(root, s.Paths.Maps)
	s.Paths.Routes = resolve(root, s.Paths.Routes)
	s.Paths.Icons = resolve(root, s.Paths.Icons)
	s.Paths.Logs = resolve(root, s.Paths.Logs)
	return s, nil
}

// setDefaults registers every leaf of a settings struct under its
// mapstructure key so that env overrides and Unmarshal see all keys.
func setDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			setDefaults(v, key, val.Field(i))
			continue
		}
		v.SetDefault(key, val.Field(i).Interface())
	}
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// ResolveRoot prefers MAA_INSTALL_ROOT, then walks up from the executable,
// and falls back to the working directory.
func ResolveRoot() (string, error) {
	if base := os.Getenv(ENV_INSTALL_ROOT); base != "" {
		if dirExists(filepath.Join(base, RESOURCE_DIR)) {
			return base, nil
		}
	}

	if exe, err := os.Executable(); err == nil && exe != "" {
		dir := filepath.Dir(exe)
		for i := 0; i < 4; i++ {
			if dirExists(filepath.Join(dir, RESOURCE_DIR)) {
				return dir, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	return os.Getwd()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
