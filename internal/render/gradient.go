package render

import (
	"math"
)

// quarterProfile returns arc[dy] = floor(sqrt(r*r - dy*dy)) for dy in [0,r].
func quarterProfile(r int) []int {
	arc := make([]int, r+1)
	for dy := 0; dy <= r; dy++ {
		arc[dy] = int(math.Sqrt(float64(r*r - dy*dy)))
	}
	return arc
}

// Lerp interpolates each RGB565 channel independently, round half up.
// ratio = i/(n-1), zero when n=1.
func Lerp(from, to Color, i, n int) Color {
	ratio := 0.0
	if n > 1 {
		ratio = float64(i) / float64(n-1)
	}
	ch := func(a, b uint8) uint8 {
		return uint8(int(a) + int(math.Floor(float64(int(b)-int(a))*ratio+0.5)))
	}
	return RGB565(ch(from.R5(), to.R5()), ch(from.G6(), to.G6()), ch(from.B5(), to.B5()))
}

// Span is one horizontal line of gradient fill.
type Span struct {
	X, Y, W int
	Color   Color
}

// GradientSpans computes top to bottom gradient fill of rounded rect (x,y,w,h,r).
// Corner rows are narrowed by quarter circle profile, spans are clipped to [0,Width).
func GradientSpans(x, y, w, h, r int, from, to Color) []Span {
	if w <= 0 || h <= 0 {
		return nil
	}
	if r < 0 {
		r = 0
	}
	if limit := minInt(w, h) / 2; r > limit {
		r = limit
	}
	arc := quarterProfile(r)
	spans := make([]Span, 0, h)
	for i := 0; i < h; i++ {
		sx, sw := x, w
		d := -1
		if i < r {
			d = r - i
		} else if i >= h-r {
			d = i - (h - 1 - r)
		}
		if d >= 0 {
			inset := r - arc[d]
			sx += inset
			sw -= 2 * inset
		}
		if sx < 0 {
			sw += sx
			sx = 0
		}
		if sx+sw > Width {
			sw = Width - sx
		}
		if sw <= 0 {
			continue
		}
		spans = append(spans, Span{X: sx, Y: y + i, W: sw, Color: Lerp(from, to, i, h)})
	}
	return spans
}

func FillGradientRoundRect(cv Canvas, x, y, w, h, r int, from, to Color) {
	for _, s := range GradientSpans(x, y, w, h, r, from, to) {
		cv.DrawHLine(s.X, s.Y, s.W, s.Color)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
