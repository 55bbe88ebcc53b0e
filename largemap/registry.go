package largemap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/geom"
	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
)

// ErrAssetMissing is returned when a region's map image cannot be found.
var ErrAssetMissing = errors.New("region asset missing")

// Asset file names inside a region directory
const (
	ORIGIN_FILE   = "origin.png"
	MASK_FILE     = "mask.png"
	META_FILE     = "meta.yaml"
	FEATURES_FILE = "features.zst"
)

// Pixels brighter than this are walkable when no mask.png is shipped
const ROAD_LUMA_THRESHOLD = 40

// Registry lazily loads regions from an asset directory and caches them for
// its lifetime.
type Registry struct {
	dir      string
	detector vision.FeatureDetector

	mu      sync.Mutex
	regions map[string]*Region
}

// NewRegistry returns a registry reading <dir>/<regionID>/. detector may be
// nil when every region ships a feature cache.
func NewRegistry(dir string, detector vision.FeatureDetector) *Registry {
	return &Registry{
		dir:      dir,
		detector: detector,
		regions:  make(map[string]*Region),
	}
}

// Get returns the region, loading it on first use.
func (r *Registry) Get(id string) (*Region, error) {
	r.mu.Lock()
	if reg, ok := r.regions[id]; ok {
		r.mu.Unlock()
		return reg, nil
	}
	r.mu.Unlock()

	reg, err := r.load(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.regions[id]; ok {
		return cached, nil
	}
	r.regions[id] = reg
	return reg, nil
}

// Put registers an already built region, replacing any cached one.
func (r *Registry) Put(reg *Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions[reg.ID] = reg
}

// ListSpecialPoints returns the labelled points of a region.
func (r *Registry) ListSpecialPoints(id string) (map[string]geom.WorldPoint, error) {
	reg, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]geom.WorldPoint, len(reg.SpecialPoints))
	for k, v := range reg.SpecialPoints {
		out[k] = v
	}
	return out, nil
}

// Loaded returns the ids of cached regions, sorted.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.regions))
	for id := range r.regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Preload loads several regions concurrently.
func (r *Registry) Preload(ctx context.Context, ids ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.Get(id)
			return err
		})
	}
	return g.Wait()
}

func (r *Registry) load(id string) (*Region, error) {
	dir := filepath.Join(r.dir, id)
	origin, err := readImage(filepath.Join(dir, ORIGIN_FILE))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("region %s: %w", id, ErrAssetMissing)
		}
		return nil, fmt.Errorf("region %s: failed to read map: %w", id, err)
	}
	m, err := loadMeta(filepath.Join(dir, META_FILE))
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", id, err)
	}
	points, err := m.points()
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", id, err)
	}

	gray := vision.ToGray(origin)
	mask, err := loadMask(filepath.Join(dir, MASK_FILE), gray)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", id, err)
	}

	reg := &Region{
		ID:            id,
		Name:          m.Name,
		Floor:         m.Floor,
		Origin:        origin,
		Gray:          gray,
		Mask:          mask,
		SpecialPoints: points,
	}
	if reg.Name == "" {
		reg.Name = id
	}

	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	cachePath := filepath.Join(dir, FEATURES_FILE)
	fs, ok, err := readFeatureCache(cachePath, w, h)
	if err != nil {
		log.Warn().Err(err).Str("region", id).Msg("[LargeMap] Ignoring broken feature cache")
	}
	if !ok {
		if r.detector == nil {
			return nil, fmt.Errorf("region %s: no feature cache and no detector", id)
		}
		fs, err = r.detector.DetectAndDescribe(gray, mask)
		if err != nil {
			return nil, fmt.Errorf("region %s: feature detection failed: %w", id, err)
		}
		if err := writeFeatureCache(cachePath, w, h, fs); err != nil {
			log.Warn().Err(err).Str("region", id).Msg("[LargeMap] Failed to write feature cache")
		}
	}
	reg.Features = fs

	log.Info().
		Str("region", id).
		Int("width", w).
		Int("height", h).
		Int("keypoints", fs.Len()).
		Int("special_points", len(points)).
		Msg("[LargeMap] Region loaded")
	return reg, nil
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// loadMask reads mask.png, or derives the mask from the map luminance.
func loadMask(path string, gray *image.Gray) (*image.Alpha, error) {
	b := gray.Bounds()
	out := image.NewAlpha(b)
	img, err := readImage(path)
	if err == nil {
		if img.Bounds().Size() != b.Size() {
			return nil, fmt.Errorf("mask size %v does not match map size %v", img.Bounds().Size(), b.Size())
		}
		g := vision.ToGray(img)
		for i, v := range g.Pix {
			if v > 0 {
				out.Pix[i] = 255
			}
		}
		return out, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read mask: %w", err)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if gray.GrayAt(x, y).Y > ROAD_LUMA_THRESHOLD {
				out.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return out, nil
}

// WritePNG saves img, used by tooling that produces region assets.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
