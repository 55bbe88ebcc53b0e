package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MaaXYZ/maa-framework-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/yinghaodang/StarRailAutoProxy/capture"
	"github.com/yinghaodang/StarRailAutoProxy/common"
	"github.com/yinghaodang/StarRailAutoProxy/config"
	"github.com/yinghaodang/StarRailAutoProxy/keymap"
	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	maptracker "github.com/yinghaodang/StarRailAutoProxy/map-tracker"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/cvutil"
	"github.com/yinghaodang/StarRailAutoProxy/simuni"
)

func registerAll(settings config.Settings) error {
	for _, dir := range []string{settings.Paths.Maps, settings.Paths.Routes} {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("resource directory: %w", err)
		}
	}

	detector := cvutil.SIFT{}
	filter := cvutil.Homography{}
	registry := largemap.NewRegistry(settings.Paths.Maps, detector)
	if len(settings.Preload) > 0 {
		if err := registry.Preload(context.Background(), settings.Preload...); err != nil {
			return fmt.Errorf("preload regions: %w", err)
		}
		log.Info().Strs("regions", registry.Loaded()).Msg("Regions preloaded")
	}
	normalizer := capture.Normalizer{
		Width:   capture.WORK_W,
		Height:  capture.WORK_H,
		UIDRect: settings.UID.Image(),
	}

	// Register all custom components from each package
	keymap.Register()
	common.Register()
	maptracker.Register(&maptracker.Tracker{
		Regions:    registry,
		Analyzer:   minimap.NewAnalyzer(settings.Minimap, cvutil.Template{}),
		Locator:    locator.New(detector, filter, settings.Locator).WithMatcher(cvutil.BFMatcher{}),
		Normalizer: normalizer,
	})
	simuni.Register(&simuni.Assets{
		Registry:    registry,
		RouteDir:    settings.Paths.Routes,
		Icons:       simuni.NewIconDir(settings.Paths.Icons),
		Detector:    detector,
		Filter:      filter,
		Matcher:     cvutil.Template{},
		Descriptors: cvutil.BFMatcher{},
		Geometry:    settings.Minimap,
		Normalizer:  normalizer,
		Locator:     settings.Locator,
		Movement:    settings.Movement,
		Param:       settings.SimUni,
		Nodes:       settings.Nodes,
		Author:      settings.Author,
	})

	// Warns when the game window is not 16:9 (uses TaskerSink, not custom action/recognition)
	maa.AgentServerAddTaskerSink(&capture.AspectRatioChecker{})

	log.Info().
		Str("maps", settings.Paths.Maps).
		Str("routes", settings.Paths.Routes).
		Msg("All custom components and sinks registered successfully")
	return nil
}
