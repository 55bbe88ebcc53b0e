package largemap

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
)

const featureCacheVersion = 1

type featureCache struct {
	Version  int               `json:"version"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Features vision.FeatureSet `json:"features"`
}

func readFeatureCache(path string, w, h int) (vision.FeatureSet, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return vision.FeatureSet{}, false, nil
		}
		return vision.FeatureSet{}, false, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return vision.FeatureSet{}, false, err
	}
	defer dec.Close()
	data, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return vision.FeatureSet{}, false, fmt.Errorf("failed to decompress feature cache: %w", err)
	}
	var c featureCache
	if err := sonic.Unmarshal(data, &c); err != nil {
		return vision.FeatureSet{}, false, fmt.Errorf("failed to decode feature cache: %w", err)
	}
	if c.Version != featureCacheVersion || c.Width != w || c.Height != h {
		return vision.FeatureSet{}, false, nil
	}
	if len(c.Features.KeyPoints) != len(c.Features.Descriptors) {
		return vision.FeatureSet{}, false, nil
	}
	return c.Features, true, nil
}

func writeFeatureCache(path string, w, h int, fs vision.FeatureSet) error {
	data, err := sonic.Marshal(featureCache{
		Version:  featureCacheVersion,
		Width:    w,
		Height:   h,
		Features: fs,
	})
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	return os.WriteFile(path, enc.EncodeAll(data, nil), 0o644)
}
