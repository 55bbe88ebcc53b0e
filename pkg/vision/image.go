package vision

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ToRGBA returns img as an *image.RGBA whose bounds start at (0,0).
// The input is returned as is when it already has that shape.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(out, image.Point{}, img, b, draw.Src, nil)
	return out
}

// Crop copies the part of img inside r into a new image at origin (0,0).
// Pixels of r outside img stay transparent black.
func Crop(img image.Image, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	src := r.Intersect(img.Bounds())
	if src.Empty() {
		return out
	}
	draw.Copy(out, src.Min.Sub(r.Min), img, src, draw.Src, nil)
	return out
}

// Resize scales img to w x h with bilinear filtering.
func Resize(img image.Image, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}

// ToGray converts img to 8-bit luminance.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(out, image.Point{}, img, b, draw.Src, nil)
	return out
}

// ColorSimilarity follows the magic wand tolerance of image editors:
// 255 - (max positive channel difference + max negative channel difference).
func ColorSimilarity(c color.RGBA, target color.RGBA) uint8 {
	dr := int(c.R) - int(target.R)
	dg := int(c.G) - int(target.G)
	db := int(c.B) - int(target.B)
	pos := max(0, dr, dg, db)
	neg := max(0, -dr, -dg, -db)
	s := 255 - pos - neg
	if s < 0 {
		return 0
	}
	return uint8(s)
}

// ColorMask marks every pixel of img whose similarity to target is at
// least 255 - tolerance. If within is non-nil, pixels outside it are skipped.
func ColorMask(img *image.RGBA, target color.RGBA, tolerance uint8, within *image.Alpha) *image.Alpha {
	b := img.Bounds()
	out := image.NewAlpha(b)
	limit := 255 - tolerance
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if within != nil && within.AlphaAt(x, y).A == 0 {
				continue
			}
			if ColorSimilarity(img.RGBAAt(x, y), target) >= limit {
				out.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return out
}

// CircleMask returns a w x h mask with a filled circle of radius r centred
// at (cx, cy).
func CircleMask(w, h int, cx, cy, r float64) *image.Alpha {
	out := image.NewAlpha(image.Rect(0, 0, w, h))
	r2 := r * r
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r2 {
				out.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return out
}

// CountMask returns the number of non-zero mask pixels.
func CountMask(m *image.Alpha) int {
	n := 0
	for _, a := range m.Pix {
		if a != 0 {
			n++
		}
	}
	return n
}

// Component is one 8-connected blob of a binary mask.
type Component struct {
	Area   int
	Bounds image.Rectangle
	SumX   int
	SumY   int
}

// Centroid returns the mean pixel position of the blob.
func (c Component) Centroid() (float64, float64) {
	if c.Area == 0 {
		return 0, 0
	}
	return float64(c.SumX)/float64(c.Area) + 0.5, float64(c.SumY)/float64(c.Area) + 0.5
}

// Components labels the 8-connected blobs of m and returns those with at
// least minArea pixels, largest first.
func Components(m *image.Alpha, minArea int) []Component {
	b := m.Bounds()
	seen := make([]bool, b.Dx()*b.Dy())
	idx := func(x, y int) int { return (y-b.Min.Y)*b.Dx() + (x - b.Min.X) }
	var out []Component
	stack := make([]image.Point, 0, 64)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if seen[idx(x, y)] || m.AlphaAt(x, y).A == 0 {
				continue
			}
			c := Component{Bounds: image.Rect(x, y, x+1, y+1)}
			seen[idx(x, y)] = true
			stack = append(stack[:0], image.Pt(x, y))
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				c.Area++
				c.SumX += p.X
				c.SumY += p.Y
				c.Bounds = c.Bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						q := image.Pt(p.X+dx, p.Y+dy)
						if !q.In(b) || seen[idx(q.X, q.Y)] || m.AlphaAt(q.X, q.Y).A == 0 {
							continue
						}
						seen[idx(q.X, q.Y)] = true
						stack = append(stack, q)
					}
				}
			}
			if c.Area >= minArea {
				out = append(out, c)
			}
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Area > out[j-1].Area; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
