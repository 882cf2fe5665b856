// Package art turns video frames into colored character art for the terminal.
package art

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/nfnt/resize"

	"github.com/njyeung/termvid/player"
)

// CharSets are the built-in character ramps; luminance 0 picks the first rune
var CharSets = map[string]string{
	"default":  "█▓▒░",
	"detailed": "$@B%8&WM#*oahkbdpqwmZO0QLCJUYXzcvunxrjft/\\|()1{}[]?-_+~<>i!lI;:,\"^`'. ",
	"simple":   " .:-=+*#%@",
}

const (
	// share of the terminal the art may cover
	fitFraction = 0.9

	// used when the terminal size is unknown
	fallbackRows = 24

	minCols = 20
	minRows = 10

	resetFg = "\x1b[39m"
)

// ResolveCharSet returns the characters for a named set. "custom" uses custom,
// unknown names and empty sets fall back to the default set.
func ResolveCharSet(name, custom string) string {
	if name == "custom" {
		if custom != "" {
			return custom
		}
		return CharSets["default"]
	}
	if chars, ok := CharSets[name]; ok {
		return chars
	}
	return CharSets["default"]
}

// SizeFunc reports the terminal size in cells
type SizeFunc func() (cols, rows int, err error)

// Options configure a Converter
type Options struct {
	Chars    string
	Gamma    float64
	Contrast float64
	Size     SizeFunc // nil disables fitting to the terminal
}

// Converter maps each pixel to a character by luminance, colored with a
// gamma and contrast adjusted 24-bit foreground
type Converter struct {
	chars []rune
	size  SizeFunc
	lut   [256]uint8
}

// NewConverter precomputes the color curve
func NewConverter(opts Options) *Converter {
	if opts.Chars == "" {
		opts.Chars = CharSets["default"]
	}
	c := &Converter{
		chars: []rune(opts.Chars),
		size:  opts.Size,
	}
	for i := range c.lut {
		v := 255 * math.Pow(float64(i)/255, opts.Gamma) * opts.Contrast
		c.lut[i] = uint8(max(0, min(255, int(v))))
	}
	return c
}

// Render loads a stored frame and converts it, fitted to the terminal
func (c *Converter) Render(h player.Handle) (string, int, error) {
	img, err := player.LoadFrame(h.Path)
	if err != nil {
		return "", 0, err
	}
	cols, rows := c.limits()
	art, width := c.Convert(img, cols, rows)
	return art, width, nil
}

// limits returns the largest art that fits the terminal, 0 meaning unbounded
func (c *Converter) limits() (int, int) {
	if c.size == nil {
		return 0, 0
	}
	cols, rows, err := c.size()
	if err != nil || cols <= 0 || rows <= 0 {
		return 0, fallbackRows
	}
	return max(minCols, int(float64(cols)*fitFraction)), max(minRows, int(float64(rows)*fitFraction))
}

// Convert renders img one character per pixel, shrinking it first to at most
// maxCols x maxRows while keeping its aspect. Zero limits are ignored.
// Returns the art and its width in columns.
func (c *Converter) Convert(img image.Image, maxCols, maxRows int) (string, int) {
	b := img.Bounds()
	w, h := fit(b.Dx(), b.Dy(), maxCols, maxRows)
	if w == 0 || h == 0 {
		return "", 0
	}
	if w != b.Dx() || h != b.Dy() {
		img = resize.Resize(uint(w), uint(h), img, resize.Bilinear)
		b = img.Bounds()
	}

	var sb strings.Builder
	sb.Grow(w * h * 20)

	n := len(c.chars)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		last := -1
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl := rgb8(img.At(x, y))

			l := luminance(r, g, bl)
			ch := c.chars[int(l)*(n-1)/255]

			cr, cg, cb := c.lut[r], c.lut[g], c.lut[bl]
			packed := int(cr)<<16 | int(cg)<<8 | int(cb)
			if packed != last {
				sb.WriteString("\x1b[38;2;")
				sb.WriteString(strconv.Itoa(int(cr)))
				sb.WriteByte(';')
				sb.WriteString(strconv.Itoa(int(cg)))
				sb.WriteByte(';')
				sb.WriteString(strconv.Itoa(int(cb)))
				sb.WriteByte('m')
				last = packed
			}
			sb.WriteRune(ch)
		}
		sb.WriteString(resetFg)
		sb.WriteByte('\n')
	}
	return sb.String(), w
}

// fit scales w x h down to the limits keeping the aspect ratio
func fit(w, h, maxCols, maxRows int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if maxRows > 0 && h > maxRows {
		w = max(1, w*maxRows/h)
		h = maxRows
	}
	if maxCols > 0 && w > maxCols {
		h = max(1, h*maxCols/w)
		w = maxCols
	}
	return w, h
}

func rgb8(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

// luminance is the ITU-R 601-2 luma transform
func luminance(r, g, b uint8) uint8 {
	return uint8((int(r)*299 + int(g)*587 + int(b)*114) / 1000)
}
