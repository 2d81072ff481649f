// Package compositor turns a generated image into the final sticker: a square
// canvas on black with the label drawn as a rounded badge near the top.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	_ "golang.org/x/image/webp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stickerforge/internal/codec"
	"stickerforge/internal/domain"
)

const (
	DefaultSize         = 1024
	DefaultFontSize     = 48
	DefaultPaddingX     = 40
	DefaultPaddingY     = 20
	DefaultTopMargin    = 40
	DefaultCornerRadius = 30
	DefaultStrokeWidth  = 4
	// BaselineNudge shifts the text down for optical centering.
	BaselineNudge = 2
)

var (
	badgeFill   = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
	badgeStroke = color.NRGBA{A: 255}
	textColor   = color.NRGBA{A: 255}
)

// Options controls canvas and badge geometry, in pixels.
type Options struct {
	Size         int
	FontSize     float64
	PaddingX     float64
	PaddingY     float64
	TopMargin    float64
	CornerRadius float64
	StrokeWidth  float64
}

// DefaultOptions returns the standard sticker geometry.
func DefaultOptions() Options {
	return Options{
		Size:         DefaultSize,
		FontSize:     DefaultFontSize,
		PaddingX:     DefaultPaddingX,
		PaddingY:     DefaultPaddingY,
		TopMargin:    DefaultTopMargin,
		CornerRadius: DefaultCornerRadius,
		StrokeWidth:  DefaultStrokeWidth,
	}
}

// BadgeLayout describes where the label badge and its text land on the canvas.
type BadgeLayout struct {
	Text      string
	X, Y      float64
	Width     float64
	Height    float64
	TextWidth float64
	TextX     float64
	Baseline  float64
}

// Rect returns the badge bounds rounded outward to whole pixels.
func (b BadgeLayout) Rect() image.Rectangle {
	return image.Rect(int(b.X), int(b.Y), int(b.X+b.Width+0.5), int(b.Y+b.Height+0.5))
}

// Compositor renders stickers. It is safe for concurrent use; the font face
// is shared behind a mutex.
type Compositor struct {
	opts Options

	mu      sync.Mutex
	face    font.Face
	ascent  float64
	descent float64
}

// New parses the bundled bold font and prepares a face at the configured size.
func New(opts Options) (*Compositor, error) {
	def := DefaultOptions()
	if opts.Size <= 0 {
		return nil, fmt.Errorf("%w: canvas size must be positive", domain.ErrRender)
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}

	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("%w: parse font: %v", domain.ErrRender, err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: font face: %v", domain.ErrRender, err)
	}
	metrics := face.Metrics()
	return &Compositor{
		opts:    opts,
		face:    face,
		ascent:  fixedToFloat(metrics.Ascent),
		descent: fixedToFloat(metrics.Descent),
	}, nil
}

// NewDefault is New(DefaultOptions()) with size and font overrides applied
// when positive.
func NewDefault(size int, fontSize float64) (*Compositor, error) {
	opts := DefaultOptions()
	if size > 0 {
		opts.Size = size
	}
	if fontSize > 0 {
		opts.FontSize = fontSize
	}
	return New(opts)
}

// Size returns the output edge length.
func (c *Compositor) Size() int {
	return c.opts.Size
}

// Composite renders raw and returns the sticker as a PNG data URL.
func (c *Compositor) Composite(raw []byte, label string) (string, error) {
	out, err := c.Render(raw, label)
	if err != nil {
		return "", err
	}
	return codec.DataURL("image/png", out), nil
}

// Render renders raw and returns the encoded PNG.
func (c *Compositor) Render(raw []byte, label string) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	size := c.opts.Size
	canvas := imaging.New(size, size, color.Black)
	if canvas.Bounds().Dx() != size || canvas.Bounds().Dy() != size {
		return nil, fmt.Errorf("%w: could not allocate %dx%d canvas", domain.ErrRender, size, size)
	}
	// Stretch to fill; sources are expected to be square already.
	stretched := imaging.Resize(src, size, size, imaging.Lanczos)
	canvas = imaging.Overlay(canvas, stretched, image.Point{}, 1)

	c.mu.Lock()
	layout := c.layoutLocked(label)
	c.drawBadge(canvas, layout)
	c.drawText(canvas, layout)
	c.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", domain.ErrRender, err)
	}
	return buf.Bytes(), nil
}

// Layout computes the badge geometry for label without rendering anything.
func (c *Compositor) Layout(label string) BadgeLayout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layoutLocked(label)
}

func (c *Compositor) layoutLocked(label string) BadgeLayout {
	text := cases.Upper(language.Und).String(label)
	textWidth := fixedToFloat(font.MeasureString(c.face, text))
	width := textWidth + 2*c.opts.PaddingX
	height := c.opts.FontSize + 2*c.opts.PaddingY
	x := (float64(c.opts.Size) - width) / 2
	y := c.opts.TopMargin
	mid := y + height/2 + BaselineNudge
	return BadgeLayout{
		Text:      text,
		X:         x,
		Y:         y,
		Width:     width,
		Height:    height,
		TextWidth: textWidth,
		TextX:     x + (width-textWidth)/2,
		Baseline:  mid + (c.ascent-c.descent)/2,
	}
}

func (c *Compositor) drawBadge(dst draw.Image, b BadgeLayout) {
	bounds := dst.Bounds()
	r := c.opts.CornerRadius
	half := c.opts.StrokeWidth / 2

	fill := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	roundedRect(fill, b.X, b.Y, b.Width, b.Height, r, false)
	fill.Draw(dst, bounds, image.NewUniform(badgeFill), image.Point{})

	if half <= 0 {
		return
	}
	stroke := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	roundedRect(stroke, b.X-half, b.Y-half, b.Width+2*half, b.Height+2*half, r+half, false)
	roundedRect(stroke, b.X+half, b.Y+half, b.Width-2*half, b.Height-2*half, max(r-half, 0), true)
	stroke.Draw(dst, bounds, image.NewUniform(badgeStroke), image.Point{})
}

func (c *Compositor) drawText(dst draw.Image, b BadgeLayout) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: c.face,
		Dot:  fixed.Point26_6{X: floatToFixed(b.TextX), Y: floatToFixed(b.Baseline)},
	}
	d.DrawString(b.Text)
}

// kappa approximates a quarter circle with one cubic segment.
const kappa = 0.5523

// roundedRect appends a closed rounded rectangle to z. Reverse traces it
// counter-clockwise so it cancels an enclosing clockwise path.
func roundedRect(z *vector.Rasterizer, x, y, w, h, r float64, reverse bool) {
	if w <= 0 || h <= 0 {
		return
	}
	r = min(r, w/2, h/2)
	k := r * kappa
	f := func(v float64) float32 { return float32(v) }
	x2, y2 := x+w, y+h

	if !reverse {
		z.MoveTo(f(x+r), f(y))
		z.LineTo(f(x2-r), f(y))
		z.CubeTo(f(x2-r+k), f(y), f(x2), f(y+r-k), f(x2), f(y+r))
		z.LineTo(f(x2), f(y2-r))
		z.CubeTo(f(x2), f(y2-r+k), f(x2-r+k), f(y2), f(x2-r), f(y2))
		z.LineTo(f(x+r), f(y2))
		z.CubeTo(f(x+r-k), f(y2), f(x), f(y2-r+k), f(x), f(y2-r))
		z.LineTo(f(x), f(y+r))
		z.CubeTo(f(x), f(y+r-k), f(x+r-k), f(y), f(x+r), f(y))
		z.ClosePath()
		return
	}
	z.MoveTo(f(x+r), f(y))
	z.CubeTo(f(x+r-k), f(y), f(x), f(y+r-k), f(x), f(y+r))
	z.LineTo(f(x), f(y2-r))
	z.CubeTo(f(x), f(y2-r+k), f(x+r-k), f(y2), f(x+r), f(y2))
	z.LineTo(f(x2-r), f(y2))
	z.CubeTo(f(x2-r+k), f(y2), f(x2), f(y2-r+k), f(x2), f(y2-r))
	z.LineTo(f(x2), f(y+r))
	z.CubeTo(f(x2), f(y+r-k), f(x2-r+k), f(y), f(x2-r), f(y))
	z.ClosePath()
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
