package ogimage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/murphyslaws/murphys-laws/internal/core"
)

// Output size of a rendered card (the standard Open Graph size).
const (
	Width  = 1200
	Height = 630
)

// The card is laid out on a canvas one third of the output size so the
// 7x13 bitmap face reads at a sensible size, then scaled up.
const (
	scale         = 3
	canvasWidth   = Width / scale
	canvasHeight  = Height / scale
	padding       = 20
	lineHeight    = 15
	maxTextLines  = 7
	cornerLength  = 20
	accentBarSize = 2
)

var (
	colorGradientStart = color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
	colorGradientEnd   = color.RGBA{R: 0x0b, G: 0x0b, B: 0x11, A: 0xff}
	colorPrimaryText   = color.RGBA{R: 0xe9, G: 0xea, B: 0xee, A: 0xff}
	colorSecondaryText = color.RGBA{R: 0xb3, G: 0xb7, B: 0xc4, A: 0xff}
	colorAccent        = color.RGBA{R: 0x4f, G: 0x46, B: 0xe5, A: 0xff}
	colorAccentFaint   = color.NRGBA{R: 0x4f, G: 0x46, B: 0xe5, A: 0x4d}
)

const (
	brandName = "Murphy's Laws"
	brandURL  = "murphys-laws.com"
)

var face = basicfont.Face7x13

// Render draws the share card for a law and returns it PNG-encoded.
func Render(law *core.Law) ([]byte, error) {
	if law == nil {
		return nil, fmt.Errorf("render og image: nil law")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	drawBackground(canvas)
	drawDecorations(canvas)
	drawLawContent(canvas, law)
	drawBranding(canvas)

	out := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode og image: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBackground(dst *image.RGBA) {
	for y := 0; y < canvasHeight; y++ {
		t := float64(y) / float64(canvasHeight-1)
		row := lerp(colorGradientStart, colorGradientEnd, t)
		draw.Draw(dst, image.Rect(0, y, canvasWidth, y+1), image.NewUniform(row), image.Point{}, draw.Src)
	}
}

func drawDecorations(dst *image.RGBA) {
	draw.Draw(dst, image.Rect(0, 0, canvasWidth, accentBarSize), image.NewUniform(colorAccent), image.Point{}, draw.Src)

	faint := image.NewUniform(colorAccentFaint)
	fill := func(r image.Rectangle) {
		draw.Draw(dst, r, faint, image.Point{}, draw.Over)
	}

	// Top-left corner
	fill(image.Rect(padding, padding, padding+1, padding+cornerLength))
	fill(image.Rect(padding+1, padding, padding+cornerLength, padding+1))

	// Bottom-right corner
	right, bottom := canvasWidth-padding, canvasHeight-padding
	fill(image.Rect(right-1, bottom-cornerLength, right, bottom))
	fill(image.Rect(right-cornerLength, bottom-1, right-1, bottom))
}

func drawLawContent(dst *image.RGBA, law *core.Law) {
	maxWidth := canvasWidth - 2*padding
	y := padding + 13

	if title := sanitize(law.DisplayTitle()); title != "" {
		drawText(dst, truncate(title, maxWidth), padding+4, y, colorAccent)
		y += lineHeight + 6
	}

	drawText(dst, "\"", padding, y, colorAccentFaint)

	textX := padding + 10
	lines := wrap(sanitize(law.Text), maxWidth-10)
	if len(lines) > maxTextLines {
		lines = lines[:maxTextLines]
		lines[maxTextLines-1] = truncate(lines[maxTextLines-1], maxWidth-10-measure("...")) + "..."
	}
	for _, line := range lines {
		drawText(dst, line, textX, y, colorPrimaryText)
		y += lineHeight
	}

	if name := attributionName(law); name != "" {
		drawText(dst, truncate("- "+name, maxWidth-10), textX, y+4, colorSecondaryText)
	}
}

func drawBranding(dst *image.RGBA) {
	baseline := canvasHeight - 12
	drawText(dst, brandName, padding, baseline, colorPrimaryText)
	drawText(dst, brandURL, canvasWidth-padding-measure(brandURL), baseline, colorSecondaryText)
}

func attributionName(law *core.Law) string {
	for _, a := range law.Attributions {
		if name := strings.TrimSpace(sanitize(a.Name)); name != "" {
			return name
		}
	}
	return ""
}

func drawText(dst *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func measure(text string) int {
	return font.MeasureString(face, text).Ceil()
}

// wrap breaks text into lines no wider than maxWidth, splitting words that
// do not fit on a line of their own.
func wrap(text string, maxWidth int) []string {
	var (
		lines   []string
		current string
	)
	for _, word := range strings.Fields(text) {
		for measure(word) > maxWidth {
			head := truncate(word, maxWidth)
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			lines = append(lines, head)
			word = word[len(head):]
		}
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// truncate cuts text to the longest prefix no wider than maxWidth.
func truncate(text string, maxWidth int) string {
	if measure(text) <= maxWidth {
		return text
	}
	end := len(text)
	for end > 0 && measure(text[:end]) > maxWidth {
		_, size := utf8.DecodeLastRuneInString(text[:end])
		end -= size
	}
	if end == 0 {
		// Always make progress, even for a face wider than maxWidth.
		_, size := utf8.DecodeRuneInString(text)
		end = size
	}
	return text[:end]
}

var typographic = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", "\"", "”", "\"",
	"–", "-", "—", "-",
	"…", "...",
)

// sanitize maps text onto the ASCII range the bitmap face covers.
func sanitize(text string) string {
	text = typographic.Replace(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			b.WriteByte(' ')
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}
