// Package maafocus pushes progress text to the MaaFramework UI.
package maafocus

import (
	"errors"
	"fmt"

	"github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/rs/zerolog/log"
)

const nodeName = "_SRAP_FOCUS_"

// ErrNilContext indicates the provided context is nil.
var ErrNilContext = errors.New("context is nil")

// NodeActionStarting shows content on the UI as the starting message of a
// throwaway node.
func NodeActionStarting(ctx *maa.Context, content string) error {
	if ctx == nil {
		return ErrNilContext
	}

	pp := maa.NewPipeline()
	pp.AddNode(maa.NewNode(nodeName).
		SetFocus(map[string]any{
			maa.EventNodeAction.Starting(): content,
		}).
		SetPreDelay(0).
		SetPostDelay(0))
	_, err := ctx.RunTask(nodeName, pp)
	return err
}

// Printf formats a progress line and shows it. Failures are only logged;
// progress text never stops a task.
func Printf(ctx *maa.Context, format string, args ...any) {
	content := fmt.Sprintf(format, args...)
	if err := NodeActionStarting(ctx, content); err != nil {
		log.Debug().Err(err).Str("content", content).Msg("[Focus] failed to show progress")
	}
}
