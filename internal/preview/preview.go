// Package preview renders receipts as PNG images approximating thermal paper output
package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/storekit/thermalprint/internal/escpos"
	"github.com/storekit/thermalprint/pkg/receipt"
)

const (
	cellWidth  = 7 // advance of the built-in 7x13 face
	lineHeight = 16
	margin     = 12
	threshold  = 128
)

// Paper widths in dots at 203 dpi
const (
	Paper80mm = 576
	Paper58mm = 384
)

// Renderer draws laid-out receipt lines onto a canvas
type Renderer struct {
	width   int
	setFont func(dc *gg.Context)
}

// Option configures a Renderer
type Option func(*Renderer) error

// WithFont renders text with a TrueType font instead of the built-in bitmap face
func WithFont(path string, points float64) Option {
	return func(r *Renderer) error {
		face, err := gg.LoadFontFace(path, points)
		if err != nil {
			return fmt.Errorf("failed to load font %s: %w", path, err)
		}
		r.setFont = func(dc *gg.Context) { dc.SetFontFace(face) }
		return nil
	}
}

// New creates a renderer for the given character width
func New(width int, opts ...Option) (*Renderer, error) {
	if width < escpos.NarrowWidth {
		width = escpos.Width
	}
	r := &Renderer{width: width}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// PaperPixels maps a character width to the printable width in dots
func PaperPixels(width int) int {
	if width <= escpos.NarrowWidth {
		return Paper58mm
	}
	return Paper80mm
}

// Render lays out the receipt and draws it as a black and white image
func (r *Renderer) Render(data *receipt.Data) image.Image {
	lines := escpos.Lines(data, r.width)

	contentWidth := r.width * cellWidth
	height := margin * 2
	for _, line := range lines {
		height += lineHeight * scaleOf(line)
	}

	dc := gg.NewContext(contentWidth+margin*2, height)
	dc.SetColor(color.White)
	dc.Clear()

	y := margin
	for _, line := range lines {
		scale := scaleOf(line)
		if line.Text != "" {
			dc.DrawImage(r.renderLine(line, contentWidth), margin, y)
		}
		y += lineHeight * scale
	}

	img := imaging.Resize(dc.Image(), PaperPixels(r.width), 0, imaging.Lanczos)
	return monochrome(img)
}

// WritePNG renders the receipt and encodes it as PNG
func (r *Renderer) WritePNG(w io.Writer, data *receipt.Data) error {
	if err := imaging.Encode(w, r.Render(data), imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

// renderLine draws one line at 1x and scales it up for double-size text
func (r *Renderer) renderLine(line escpos.Line, contentWidth int) image.Image {
	scale := scaleOf(line)
	w := contentWidth / scale

	lc := gg.NewContext(w, lineHeight)
	lc.SetColor(color.White)
	lc.Clear()
	if r.setFont != nil {
		r.setFont(lc)
	}
	lc.SetColor(color.Black)

	x, anchor := 0.0, 0.0
	switch line.Align {
	case escpos.AlignCenter:
		x, anchor = float64(w)/2, 0.5
	case escpos.AlignRight:
		x, anchor = float64(w), 1
	}
	lc.DrawStringAnchored(line.Text, x, lineHeight/2, anchor, 0.5)
	if line.Bold {
		lc.DrawStringAnchored(line.Text, x+1, lineHeight/2, anchor, 0.5)
	}

	if scale == 1 {
		return lc.Image()
	}
	return imaging.Resize(lc.Image(), contentWidth, lineHeight*scale, imaging.NearestNeighbor)
}

func scaleOf(line escpos.Line) int {
	if line.Large {
		return 2
	}
	return 1
}

// monochrome thresholds the image the way a thermal head prints it
func monochrome(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		if c.R < threshold {
			return color.NRGBA{A: 255}
		}
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	})
}
