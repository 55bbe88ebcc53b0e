package keymap

import (
	"fmt"
	"strings"
	"sync"
	"time"

	maa "github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

const (
	unsupportedKey = -1
	invalidKey     = -2
)

var (
	mu     sync.RWMutex
	keymap = cloneKeymap(Win32Keymap)
)

func cloneKeymap(src map[string]int32) map[string]int32 {
	out := make(map[string]int32, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Transfer key string to key code.
//
// Returns:
//   - KeyCode(int32): The corresponding key code for the given key string if the key is supported.
//   - -1: If the key string is unsupported.
//   - -2: If the key string is invalid.
func GetKeyCode(key string) int32 {
	mu.RLock()
	keyCode, ok := keymap[key]
	mu.RUnlock()
	if !ok {
		log.Error().Msgf("Invalid key: %s", key)
		return invalidKey
	}
	if keyCode == unsupportedKey {
		log.Error().Msgf("Unsupported key: %s", key)
	}
	return keyCode
}

// KeyCode is GetKeyCode with an error for unusable keys.
func KeyCode(key string) (int32, error) {
	code := GetKeyCode(key)
	if code < 0 {
		return 0, fmt.Errorf("key %q is not bound", key)
	}
	return code, nil
}

// Override merges user bindings over the defaults.
func Override(bindings map[string]int32) {
	mu.Lock()
	defer mu.Unlock()
	keymap = cloneKeymap(Win32Keymap)
	for k, v := range bindings {
		keymap[k] = v
	}
}

type keyParam struct {
	Key      string `json:"key"`
	Duration int32  `json:"duration"`
}

func parseKeyParam(raw string) (keyParam, error) {
	var params keyParam
	err := sonic.UnmarshalString(strings.TrimSpace(raw), &params)
	return params, err
}

type KM_Init struct{}

func (a *KM_Init) Run(ctx *maa.Context, arg *maa.CustomActionArg) bool {
	var params map[string]int32
	if err := sonic.UnmarshalString(arg.CustomActionParam, &params); err != nil {
		log.Error().Err(err).Msg("Failed to parse CustomActionParam")
		return false
	}

	Override(params)

	log.Info().Int("bindings", len(params)).Msg("Keymap initialized successfully!")
	return true
}

type KM_ClickKey struct{}

func (a *KM_ClickKey) Run(ctx *maa.Context, arg *maa.CustomActionArg) bool {
	params, err := parseKeyParam(arg.CustomActionParam)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse CustomActionParam")
		return false
	}

	key := GetKeyCode(params.Key)
	if key < 0 {
		return false
	}

	return ctx.GetTasker().GetController().PostClickKey(key).Wait().Success()
}

type KM_LongPressKey struct{}

func (a *KM_LongPressKey) Run(ctx *maa.Context, arg *maa.CustomActionArg) bool {
	params, err := parseKeyParam(arg.CustomActionParam)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse CustomActionParam")
		return false
	}

	key := GetKeyCode(params.Key)
	if key < 0 {
		return false
	}

	ctrl := ctx.GetTasker().GetController()
	if !ctrl.PostKeyDown(key).Wait().Success() {
		return false
	}

	time.Sleep(time.Duration(params.Duration) * time.Millisecond)

	return ctrl.PostKeyUp(key).Wait().Success()
}

type KM_KeyDown struct{}

func (a *KM_KeyDown) Run(ctx *maa.Context, arg *maa.CustomActionArg) bool {
	params, err := parseKeyParam(arg.CustomActionParam)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse CustomActionParam")
		return false
	}

	key := GetKeyCode(params.Key)
	if key < 0 {
		return false
	}

	return ctx.GetTasker().GetController().PostKeyDown(key).Wait().Success()
}

type KM_KeyUp struct{}

func (a *KM_KeyUp) Run(ctx *maa.Context, arg *maa.CustomActionArg) bool {
	params, err := parseKeyParam(arg.CustomActionParam)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse CustomActionParam")
		return false
	}

	key := GetKeyCode(params.Key)
	if key < 0 {
		return false
	}

	return ctx.GetTasker().GetController().PostKeyUp(key).Wait().Success()
}
