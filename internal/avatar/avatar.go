// Package avatar draws deterministic geometric avatars from a seed string.
// The same seed and size always produce byte-identical PNG output.
package avatar

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/zarlcorp/zmask/internal/seeded"
	"golang.org/x/image/vector"
)

// DefaultSize is the edge length used when the caller has no preference.
const DefaultSize = 200

// kappa places cubic control points so four segments approximate a circle.
const kappa = 0.5522847498

type shapeKind int

const (
	shapeRect shapeKind = iota
	shapeCircle
	shapeTriangle
)

// muted tones that read well on light and dark terminals
var palettes = [][5]string{
	{"#2d2d2d", "#4a4a4a", "#6b6b6b", "#8c8c8c", "#b0b0b0"},
	{"#1a1a2e", "#16213e", "#0f3460", "#533483", "#e94560"},
	{"#212529", "#343a40", "#495057", "#6c757d", "#adb5bd"},
	{"#0d1b2a", "#1b263b", "#415a77", "#778da9", "#e0e1dd"},
	{"#10002b", "#240046", "#3c096c", "#5a189a", "#9d4edd"},
	{"#03071e", "#370617", "#6a040f", "#9d0208", "#dc2f02"},
	{"#001219", "#005f73", "#0a9396", "#94d2bd", "#e9d8a6"},
	{"#353535", "#3c6e71", "#ffffff", "#d9d9d9", "#284b63"},
}

// Seed builds the avatar seed for an identity.
func Seed(firstName, lastName, email string) string {
	return firstName + lastName + email
}

// Render draws the avatar for seed as a size×size PNG. A non-positive size
// has no drawing surface and yields an empty result.
func Render(seed string, size int) ([]byte, error) {
	if size <= 0 {
		return nil, nil
	}

	img := paint(seed, size)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI renders the avatar and wraps it as a data:image/png URI.
// It returns "" when there is nothing to show.
func DataURI(seed string, size int) (string, error) {
	b, err := Render(seed, size)
	if err != nil || len(b) == 0 {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b), nil
}

// Thumbnail decodes a rendered avatar and scales it to w×h.
func Thumbnail(png []byte, w, h int) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	return imaging.Resize(img, w, h, imaging.Box), nil
}

// painter fills paths onto a canvas with a fixed alpha per shape.
type painter struct {
	dst  *image.RGBA
	size int
	z    *vector.Rasterizer
}

func paint(seed string, size int) *image.RGBA {
	r := seeded.New(seeded.Hash(seed))
	fsize := float64(size)
	half := fsize / 2

	palette := palettes[r.Intn(len(palettes))]
	pickColor := func() string { return palette[r.Intn(len(palette))] }

	p := &painter{
		dst:  image.NewRGBA(image.Rect(0, 0, size, size)),
		size: size,
		z:    vector.NewRasterizer(size, size),
	}
	p.background(palette[0])

	shapes := 4 + r.Intn(5)
	for range shapes {
		fill := pickColor()
		alpha := 0.4 + r.Float64()*0.5

		kind := shapeKind(r.Intn(3))
		x := r.Float64() * half
		y := r.Float64() * fsize
		w := 20 + r.Float64()*(half-20)
		h := 20 + r.Float64()*60

		switch kind {
		case shapeRect:
			p.rect(x, y, w, h, fill, alpha)
			p.rect(fsize-x-w, y, w, h, fill, alpha)
		case shapeCircle:
			rad := 10 + r.Float64()*30
			p.circle(x+rad, y+rad, rad, fill, alpha)
			p.circle(fsize-x-rad, y+rad, rad, fill, alpha)
		case shapeTriangle:
			p.triangle(x, y, x+w, y+h/2, x, y+h, fill, alpha)
			p.triangle(fsize-x, y, fsize-x-w, y+h/2, fsize-x, y+h, fill, alpha)
		}
	}

	// accent circle
	alpha := 0.6 + r.Float64()*0.3
	fill := pickColor()
	rad := 15 + r.Float64()*20
	p.circle(half, half, rad, fill, alpha)

	return p.dst
}

func (p *painter) background(hex string) {
	c := parseHex(hex, 1)
	draw.Draw(p.dst, p.dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (p *painter) rect(x, y, w, h float64, hex string, alpha float64) {
	p.begin()
	p.z.MoveTo(f32(x), f32(y))
	p.z.LineTo(f32(x+w), f32(y))
	p.z.LineTo(f32(x+w), f32(y+h))
	p.z.LineTo(f32(x), f32(y+h))
	p.z.ClosePath()
	p.fill(hex, alpha)
}

func (p *painter) circle(cx, cy, r float64, hex string, alpha float64) {
	k := r * kappa
	p.begin()
	p.z.MoveTo(f32(cx+r), f32(cy))
	p.z.CubeTo(f32(cx+r), f32(cy+k), f32(cx+k), f32(cy+r), f32(cx), f32(cy+r))
	p.z.CubeTo(f32(cx-k), f32(cy+r), f32(cx-r), f32(cy+k), f32(cx-r), f32(cy))
	p.z.CubeTo(f32(cx-r), f32(cy-k), f32(cx-k), f32(cy-r), f32(cx), f32(cy-r))
	p.z.CubeTo(f32(cx+k), f32(cy-r), f32(cx+r), f32(cy-k), f32(cx+r), f32(cy))
	p.z.ClosePath()
	p.fill(hex, alpha)
}

func (p *painter) triangle(ax, ay, bx, by, cx, cy float64, hex string, alpha float64) {
	p.begin()
	p.z.MoveTo(f32(ax), f32(ay))
	p.z.LineTo(f32(bx), f32(by))
	p.z.LineTo(f32(cx), f32(cy))
	p.z.ClosePath()
	p.fill(hex, alpha)
}

func (p *painter) begin() {
	p.z.Reset(p.size, p.size)
}

func (p *painter) fill(hex string, alpha float64) {
	src := image.NewUniform(parseHex(hex, alpha))
	p.z.Draw(p.dst, p.dst.Bounds(), src, image.Point{})
}

// parseHex converts "#rrggbb" to a colour with the given opacity.
func parseHex(hex string, alpha float64) color.NRGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		// palettes are static; a bad entry is a programming error
		panic("avatar: bad palette colour " + hex)
	}
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)}
}

func f32(v float64) float32 { return float32(v) }
