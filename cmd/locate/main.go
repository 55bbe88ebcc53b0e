// Command locate estimates the player position from a screenshot file or the
// live desktop, using the same assets as the agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/yinghaodang/StarRailAutoProxy/capture"
	"github.com/yinghaodang/StarRailAutoProxy/config"
	"github.com/yinghaodang/StarRailAutoProxy/largemap"
	"github.com/yinghaodang/StarRailAutoProxy/locator"
	"github.com/yinghaodang/StarRailAutoProxy/minimap"
	"github.com/yinghaodang/StarRailAutoProxy/movement"
	"github.com/yinghaodang/StarRailAutoProxy/operation"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/cvutil"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/route"
)

type options struct {
	config   string
	region   string
	image    string
	hint     []float64
	waypoint string
	variant  int
	interval time.Duration
	dump     string
	verbose  bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("locate", pflag.ContinueOnError)
	fs.StringVarP(&o.config, "config", "c", "", "settings file")
	fs.StringVarP(&o.region, "region", "r", "", "region id, e.g. herta_base_f1")
	fs.StringVarP(&o.image, "image", "i", "", "screenshot to locate on instead of the desktop")
	fs.Float64SliceVar(&o.hint, "hint", nil, "last known position as x,y")
	fs.StringVarP(&o.waypoint, "waypoint", "w", "", "start from the route of this waypoint of the region")
	fs.IntVar(&o.variant, "variant", 0, "route variant")
	fs.DurationVar(&o.interval, "interval", 0, "keep locating at this interval")
	fs.StringVar(&o.dump, "dump-minimap", "", "write the cleaned minimap to this png")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.region == "" {
		return o, errors.New("--region is required")
	}
	if o.hint != nil && len(o.hint) != 2 {
		return o, fmt.Errorf("--hint wants x,y, got %d values", len(o.hint))
	}
	return o, nil
}

func (o options) source(n capture.Normalizer) capture.Source {
	var src capture.Source = capture.ScreenSource{}
	if o.image != "" {
		src = capture.FileSource{Path: o.image}
	}
	return capture.Normalized{Source: src, Normalizer: n}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("Bad arguments")
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if o.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	settings, err := config.Load(o.config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, settings); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Locate failed")
	}
}

func run(ctx context.Context, o options, settings config.Settings) error {
	detector := cvutil.SIFT{}
	registry := largemap.NewRegistry(settings.Paths.Maps, detector)
	region, err := registry.Get(o.region)
	if err != nil {
		return err
	}
	if points, err := registry.ListSpecialPoints(o.region); err == nil {
		for name, p := range points {
			log.Debug().Str("name", name).Stringer("pos", p).Msg("[Locate] Special point")
		}
	}
	normalizer := capture.Normalizer{Width: capture.WORK_W, Height: capture.WORK_H, UIDRect: settings.UID.Image()}
	analyzer := minimap.NewAnalyzer(settings.Minimap, cvutil.Template{})
	loc := locator.New(detector, cvutil.Homography{}, settings.Locator).WithMatcher(cvutil.BFMatcher{})
	tracker := movement.NewTracker(o.source(normalizer), analyzer, loc)

	var hint *locator.Hint
	if o.hint != nil {
		hint = &locator.Hint{Pos: geom.World(o.hint[0], o.hint[1]), Speed: settings.Movement.RunSpeed, Elapsed: time.Second}
	}
	start, err := routeStart(settings.Paths.Routes, o)
	if err != nil {
		return err
	}
	if start != nil && hint == nil {
		hint = &locator.Hint{Pos: *start, Speed: settings.Movement.RunSpeed, Elapsed: time.Second}
	}

	for {
		start := time.Now()
		est, err := tracker.Locate(ctx, region, hint)
		switch {
		case errors.Is(err, locator.ErrNotFound):
			log.Warn().Err(err).Msg("[Locate] Lost")
		case err != nil:
			return err
		default:
			log.Info().
				Str("region", region.ID).
				Stringer("pos", est.Pos).
				Float64("angle", est.Angle).
				Float64("confidence", est.Confidence).
				Int("inliers", est.Inliers).
				Dur("took", time.Since(start)).
				Msg("[Locate] Found")
			if start != nil {
				log.Info().Float64("dist", est.Pos.Dist(*start)).Msg("[Locate] Distance to route start")
			}
			if hint != nil {
				hint.Pos = est.Pos
			}
		}
		if o.dump != "" {
			if err := dumpMinimap(ctx, tracker, o.dump); err != nil {
				log.Warn().Err(err).Msg("[Locate] Failed to dump minimap")
			}
		}
		if o.interval <= 0 {
			return nil
		}
		if err := operation.Sleep(ctx, o.interval); err != nil {
			return err
		}
	}
}

// routeStart is the start point of the selected route, nil without
// --waypoint.
func routeStart(dir string, o options) (*geom.WorldPoint, error) {
	if o.waypoint == "" {
		return nil, nil
	}
	routes, err := route.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	r, ok := route.Find(routes, o.region, o.waypoint, o.variant)
	if !ok {
		return nil, fmt.Errorf("no route for %s %s variant %d", o.region, o.waypoint, o.variant)
	}
	log.Info().Str("route", r.ID.String()).Stringer("start", r.Start).Int("ops", len(r.Ops)).Msg("[Locate] Route selected")
	return &r.Start, nil
}

func dumpMinimap(ctx context.Context, t *movement.Tracker, path string) error {
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return err
	}
	return largemap.WritePNG(path, snap.DelRadar)
}
