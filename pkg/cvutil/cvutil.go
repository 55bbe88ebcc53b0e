// Package cvutil implements the vision collaborators on OpenCV through
// gocv.
package cvutil

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/yinghaodang/StarRailAutoProxy/pkg/vision"
)

// RANSAC settings of the homography fit
const (
	RANSAC_REPROJ_THRESHOLD = 5.0
	RANSAC_MAX_ITERS        = 2000
	RANSAC_CONFIDENCE       = 0.995
)

// Template hits kept per call
const MAX_TEMPLATE_MATCHES = 5

var errEmptyImage = errors.New("empty image")

// toMat converts an image to a BGR Mat. The caller closes it.
func toMat(img image.Image) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.NewMat(), errEmptyImage
	}
	return gocv.ImageToMatRGB(img)
}

// maskToMat converts an alpha mask to a single channel Mat; nil gives an
// empty Mat, which OpenCV reads as no mask.
func maskToMat(mask *image.Alpha) (gocv.Mat, error) {
	if mask == nil {
		return gocv.NewMat(), nil
	}
	gray := &image.Gray{Pix: mask.Pix, Stride: mask.Stride, Rect: mask.Rect}
	return gocv.ImageGrayToMatGray(gray)
}

// SIFT is the FeatureDetector used for minimap and large map features.
type SIFT struct{}

func (SIFT) DetectAndDescribe(img image.Image, mask *image.Alpha) (vision.FeatureSet, error) {
	src, err := toMat(img)
	if err != nil {
		return vision.FeatureSet{}, err
	}
	defer src.Close()
	gocv.CvtColor(src, &src, gocv.ColorBGRToGray)

	m, err := maskToMat(mask)
	if err != nil {
		return vision.FeatureSet{}, err
	}
	defer m.Close()

	sift := gocv.NewSIFT()
	defer sift.Close()
	kps, desc := sift.DetectAndCompute(src, m)
	defer desc.Close()

	out := vision.FeatureSet{
		KeyPoints:   make([]vision.KeyPoint, len(kps)),
		Descriptors: make([][]float32, len(kps)),
	}
	for i, kp := range kps {
		out.KeyPoints[i] = vision.KeyPoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
		row := make([]float32, desc.Cols())
		for j := range row {
			row[j] = desc.GetFloatAt(i, j)
		}
		out.Descriptors[i] = row
	}
	return out, nil
}

// Homography is the RANSAC InlierFilter.
type Homography struct{}

func (Homography) Inliers(query, train []vision.KeyPoint) ([]bool, error) {
	if len(query) != len(train) {
		return nil, fmt.Errorf("point count mismatch: %d vs %d", len(query), len(train))
	}
	if len(query) < 4 {
		return make([]bool, len(query)), nil
	}
	src := pointsMat(query)
	defer src.Close()
	dst := pointsMat(train)
	defer dst.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	h := gocv.FindHomography(src, &dst, gocv.HomographyMethodRANSAC, RANSAC_REPROJ_THRESHOLD, &mask, RANSAC_MAX_ITERS, RANSAC_CONFIDENCE)
	defer h.Close()

	out := make([]bool, len(query))
	if h.Empty() || mask.Empty() {
		return out, nil
	}
	for i := range out {
		out[i] = mask.GetUCharAt(i, 0) != 0
	}
	return out, nil
}

func pointsMat(kps []vision.KeyPoint) gocv.Mat {
	pts := make([]gocv.Point2f, len(kps))
	for i, kp := range kps {
		pts[i] = gocv.Point2f{X: float32(kp.X), Y: float32(kp.Y)}
	}
	vec := gocv.NewPoint2fVectorFromPoints(pts)
	defer vec.Close()
	return gocv.NewMatFromPoint2fVector(vec, true)
}

// BFMatcher is an OpenCV brute force L2 matcher.
type BFMatcher struct{}

func (BFMatcher) KnnMatch(query, train [][]float32, k int) [][]vision.DMatch {
	if len(query) == 0 || len(train) == 0 {
		return nil
	}
	q := descriptorMat(query)
	defer q.Close()
	t := descriptorMat(train)
	defer t.Close()

	bf := gocv.NewBFMatcherWithParams(gocv.NormL2, false)
	defer bf.Close()
	knn := bf.KnnMatch(q, t, k)

	out := make([][]vision.DMatch, len(knn))
	for i, row := range knn {
		out[i] = make([]vision.DMatch, len(row))
		for j, m := range row {
			out[i][j] = vision.DMatch{QueryIdx: m.QueryIdx, TrainIdx: m.TrainIdx, Distance: m.Distance}
		}
	}
	return out
}

func descriptorMat(rows [][]float32) gocv.Mat {
	m := gocv.NewMatWithSize(len(rows), len(rows[0]), gocv.MatTypeCV32F)
	for i, row := range rows {
		for j, v := range row {
			m.SetFloatAt(i, j, v)
		}
	}
	return m
}

// Template matches with normalised cross correlation.
type Template struct{}

func (Template) MatchTemplate(src, tmpl image.Image, threshold float64) ([]vision.Match, error) {
	s, err := toMat(src)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	t, err := toMat(tmpl)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	if t.Cols() > s.Cols() || t.Rows() > s.Rows() {
		return nil, fmt.Errorf("template %dx%d larger than source %dx%d", t.Cols(), t.Rows(), s.Cols(), s.Rows())
	}

	result := gocv.NewMat()
	defer result.Close()
	empty := gocv.NewMat()
	defer empty.Close()
	gocv.MatchTemplate(s, t, &result, gocv.TmCcoeffNormed, empty)

	var out []vision.Match
	w, h := t.Cols(), t.Rows()
	origin := src.Bounds().Min
	for len(out) < MAX_TEMPLATE_MATCHES {
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
		if float64(maxVal) < threshold {
			break
		}
		r := image.Rect(maxLoc.X, maxLoc.Y, maxLoc.X+w, maxLoc.Y+h)
		out = append(out, vision.Match{Rect: r.Add(origin), Confidence: float64(maxVal)})
		suppress(result, r)
	}
	return out, nil
}

// suppress clears the neighbourhood of a hit so the next best one is a
// different object.
func suppress(result gocv.Mat, r image.Rectangle) {
	x0, y0 := max(r.Min.X-r.Dx()/2, 0), max(r.Min.Y-r.Dy()/2, 0)
	x1, y1 := min(r.Min.X+r.Dx()/2+1, result.Cols()), min(r.Min.Y+r.Dy()/2+1, result.Rows())
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			result.SetFloatAt(y, x, -1)
		}
	}
}
