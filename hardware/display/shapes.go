package display

import "github.com/temoto/powerdash/internal/render"

// Rounded rectangles follow Adafruit GFX midpoint circle helpers,
// so output matches TFT libraries pixel for pixel.

func clampRadius(w, h, r int) int {
	if limit := minInt(w, h) / 2; r > limit {
		r = limit
	}
	if r < 0 {
		r = 0
	}
	return r
}

func (d *Display) FillRoundRect(x, y, w, h, r int, c render.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	r = clampRadius(w, h, r)
	d.FillRect(x+r, y, w-2*r, h, c)
	d.fillCircleHelper(x+w-r-1, y+r, r, 1, h-2*r-1, c)
	d.fillCircleHelper(x+r, y+r, r, 2, h-2*r-1, c)
}

func (d *Display) DrawRoundRect(x, y, w, h, r int, c render.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	r = clampRadius(w, h, r)
	d.DrawHLine(x+r, y, w-2*r, c)
	d.DrawHLine(x+r, y+h-1, w-2*r, c)
	d.DrawVLine(x, y+r, h-2*r, c)
	d.DrawVLine(x+w-1, y+r, h-2*r, c)
	d.drawCircleHelper(x+r, y+r, r, 1, c)
	d.drawCircleHelper(x+w-r-1, y+r, r, 2, c)
	d.drawCircleHelper(x+w-r-1, y+h-r-1, r, 4, c)
	d.drawCircleHelper(x+r, y+h-r-1, r, 8, c)
}

func (d *Display) drawCircleHelper(x0, y0, r int, corner uint8, c render.Color) {
	f := 1 - r
	ddx, ddy := 1, -2*r
	x, y := 0, r
	for x < y {
		if f >= 0 {
			y--
			ddy += 2
			f += ddy
		}
		x++
		ddx += 2
		f += ddx
		if corner&4 != 0 {
			d.pixel(x0+x, y0+y, c)
			d.pixel(x0+y, y0+x, c)
		}
		if corner&2 != 0 {
			d.pixel(x0+x, y0-y, c)
			d.pixel(x0+y, y0-x, c)
		}
		if corner&8 != 0 {
			d.pixel(x0-y, y0+x, c)
			d.pixel(x0-x, y0+y, c)
		}
		if corner&1 != 0 {
			d.pixel(x0-y, y0-x, c)
			d.pixel(x0-x, y0-y, c)
		}
	}
}

// corners: 1 right half, 2 left half; delta extends vertical lines.
func (d *Display) fillCircleHelper(x0, y0, r int, corners uint8, delta int, c render.Color) {
	f := 1 - r
	ddx, ddy := 1, -2*r
	x, y := 0, r
	px, py := x, y
	delta++
	for x < y {
		if f >= 0 {
			y--
			ddy += 2
			f += ddy
		}
		x++
		ddx += 2
		f += ddx
		if x < y+1 {
			if corners&1 != 0 {
				d.DrawVLine(x0+x, y0-y, 2*y+delta, c)
			}
			if corners&2 != 0 {
				d.DrawVLine(x0-x, y0-y, 2*y+delta, c)
			}
		}
		if y != py {
			if corners&1 != 0 {
				d.DrawVLine(x0+py, y0-px, 2*px+delta, c)
			}
			if corners&2 != 0 {
				d.DrawVLine(x0-py, y0-px, 2*px+delta, c)
			}
			py = y
		}
		px = x
	}
}
